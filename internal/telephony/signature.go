package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"outbound-calls/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SignatureHeader carries the provider's request signature.
const SignatureHeader = "X-Twilio-Signature"

// SignatureValidator checks X-Twilio-Signature on inbound callbacks.
//
// The signed URL is a public origin plus the request URI as received, so a
// TLS-terminating proxy in front of the service does not break validation.
// The origins are https plus the public base host, and the scheme and host
// of every configured callback URL, since those may point at another host.
type SignatureValidator struct {
	authToken string
	origins   []string
}

func NewSignatureValidator(authToken, publicBaseURL string, callbackURLs ...string) *SignatureValidator {
	v := &SignatureValidator{authToken: authToken}
	v.addOrigin("https://" + publicHost(publicBaseURL))
	for _, raw := range callbackURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			continue
		}
		v.addOrigin(u.Scheme + "://" + u.Host)
	}
	return v
}

func (v *SignatureValidator) addOrigin(origin string) {
	for _, o := range v.origins {
		if o == origin {
			return
		}
	}
	v.origins = append(v.origins, origin)
}

// Sign computes the signature for a URL and its POST parameters: the URL,
// followed by each parameter name and value in name order, HMAC-SHA1 with
// the auth token, base64-encoded.
func Sign(authToken, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		vals := append([]string(nil), params[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Valid reports whether r carries a correct signature. It parses the form.
func (v *SignatureValidator) Valid(r *http.Request) bool {
	got := r.Header.Get(SignatureHeader)
	if got == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	for _, origin := range v.origins {
		want := Sign(v.authToken, origin+r.URL.RequestURI(), r.PostForm)
		if hmac.Equal([]byte(got), []byte(want)) {
			return true
		}
	}
	return false
}

// Middleware rejects callbacks whose signature does not match with 403.
func (v *SignatureValidator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.Valid(c.Request) {
			logger.FromGin(c).Warn("webhook signature rejected", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}
