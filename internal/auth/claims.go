package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const TokenTypeAccess TokenType = "access"

// Scopes granted to control API clients.
const (
	ScopeCallsRead  = "calls:read"
	ScopeCallsWrite = "calls:write"
	// ScopeCallsAdmin satisfies every calls:* scope check.
	ScopeCallsAdmin = "calls:admin"
)

// Claims are the only supported JWT claims shape for this service. The
// subject names the calling client (a service or operator), not a person.
type Claims struct {
	jwt.RegisteredClaims

	Scopes    []string  `json:"scopes"`
	TokenType TokenType `json:"token_type"`
}

// HasScope reports whether the claims grant scope directly or via admin.
func (c Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope) || slices.Contains(c.Scopes, ScopeCallsAdmin)
}
