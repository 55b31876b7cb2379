package auth

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// RequireAccessToken verifies an access token and injects the principal into
// the request context. Scope checks are separate; chain RequireScope.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)

		claims, err := m.Verify(tok, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx := WithPrincipal(c.Request.Context(), claims.Subject, claims.Scopes)
		c.Request = c.Request.WithContext(ctx)

		// Also store on gin context for handler convenience.
		c.Set("subject", claims.Subject)
		c.Set("scopes", claims.Scopes)

		c.Next()
	}
}

// RequireScope allows the request when the principal holds scope, or
// calls:admin. It must run after RequireAccessToken.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := Subject(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		scopes := Scopes(c.Request.Context())
		if !slices.Contains(scopes, scope) && !slices.Contains(scopes, ScopeCallsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
