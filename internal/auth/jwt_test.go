package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"outbound-calls/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:      "secret",
		JWTIssuer:      "issuer",
		JWTAudience:    "aud",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := testManager(t)

	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.Issue(now, "dialer-svc", []string{ScopeCallsWrite}, 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Verify(tok, now.Add(1*time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "dialer-svc" || !claims.HasScope(ScopeCallsWrite) || claims.HasScope(ScopeCallsRead) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()
	tok, _ := m.Issue(now, "svc", []string{ScopeCallsRead}, time.Minute)

	if _, err := m.Verify(tok, now.Add(10*time.Minute)); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired token, got %v", err)
	}
}

func TestVerifyAllowsClockSkew(t *testing.T) {
	m := testManager(t)
	now := time.Unix(1700000000, 0).UTC()
	tok, _ := m.Issue(now, "svc", []string{ScopeCallsRead}, time.Minute)

	if _, err := m.Verify(tok, now.Add(time.Minute+10*time.Second)); err != nil {
		t.Fatalf("expected token within leeway to verify, got %v", err)
	}
	if _, err := m.Verify(tok, now.Add(-10*time.Second)); err != nil {
		t.Fatalf("expected token issued slightly in the future to verify, got %v", err)
	}
	if _, err := m.Verify(tok, now.Add(time.Minute+time.Minute)); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expiry past leeway, got %v", err)
	}
}

func TestVerifyRejectsOtherIssuer(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	other, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "someone-else", JWTAudience: "aud"})
	tok, _ := other.Issue(now, "svc", []string{ScopeCallsRead}, 0)

	if _, err := testManager(t).Verify(tok, now); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
}

func TestIssueRequiresScopes(t *testing.T) {
	if _, err := testManager(t).Issue(time.Now(), "svc", nil, 0); !errors.Is(err, ErrNoScopes) {
		t.Fatalf("expected ErrNoScopes, got %v", err)
	}
}

func TestRequireScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := testManager(t)

	r := gin.New()
	r.GET("/calls", RequireAccessToken(m), RequireScope(ScopeCallsRead), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/calls", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	now := time.Now()
	readTok, _ := m.Issue(now, "svc", []string{ScopeCallsRead}, 0)
	writeTok, _ := m.Issue(now, "svc", []string{ScopeCallsWrite}, 0)
	adminTok, _ := m.Issue(now, "ops", []string{ScopeCallsAdmin}, 0)

	if code := do(""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}
	if code := do("Bearer garbage"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", code)
	}
	if code := do("Bearer " + writeTok); code != http.StatusForbidden {
		t.Fatalf("expected 403 without scope, got %d", code)
	}
	if code := do("Bearer " + readTok); code != http.StatusOK {
		t.Fatalf("expected 200 with scope, got %d", code)
	}
	if code := do("Bearer " + adminTok); code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", code)
	}
}
