// Package auth validates the bearer tokens presented to the HTTP facade.
// Tokens are issued elsewhere; this service only checks HS256 signatures and
// time claims and exposes the subject (a user email) and role.
package auth

import (
	"context"
	"time"
)

// RoleAdmin may act on any user's resources.
const RoleAdmin = "admin"

// JWTService validates and, for tooling and tests, signs access tokens.
type JWTService interface {
	// ValidateToken validates the token string and extracts its claims.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)

	// GenerateToken signs a token for subject with the given role and lifetime.
	GenerateToken(ctx context.Context, subject, role string, lifetime time.Duration) (string, error)
}

// Claims are the validated contents of an access token.
type Claims struct {
	// Subject is the email of the user the token was issued for.
	Subject string `json:"sub"`

	// Role is an optional authorization role; "admin" bypasses ownership checks.
	Role string `json:"role,omitempty"`

	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}

// IsAdmin reports whether the claims carry the admin role.
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// CanAccess reports whether the token holder may act on email's resources.
func (c *Claims) CanAccess(email string) bool {
	if c == nil {
		return false
	}
	return c.IsAdmin() || c.Subject == email
}
