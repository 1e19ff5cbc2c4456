package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fitcoach/coach/internal/api/shared"
	"github.com/fitcoach/coach/internal/platform/logger"
	"github.com/fitcoach/coach/internal/redact"
	"github.com/fitcoach/coach/internal/service/auth"
)

// AuthMiddleware provides JWT authentication for routes. A nil validator
// disables authentication and every request passes through.
type AuthMiddleware struct {
	validator TokenValidator
}

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error)
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Enabled reports whether tokens are checked.
func (m *AuthMiddleware) Enabled() bool {
	return m != nil && m.validator != nil
}

// Authenticate validates the bearer token and stores its claims on the
// request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			if r.Header.Get("Authorization") == "" {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
				return
			}
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.validator.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, auth.ErrInvalidToken),
				errors.Is(err, auth.ErrTokenNotYetValid),
				errors.Is(err, auth.ErrMissingSubject):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				logger.FromContext(r.Context()).Error("failed to validate token",
					slog.String("error", redact.Error(err)))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.WithClaims(r.Context(), claims)))
	})
}

// RequireAdmin rejects tokens without the admin role.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		claims, ok := shared.GetClaims(r.Context())
		if !ok || !claims.IsAdmin() {
			shared.RespondWithError(w, r, http.StatusForbidden, "Admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireEmailParam rejects requests whose token subject differs from the
// email in the named URL parameter, unless the token is an admin's.
func (m *AuthMiddleware) RequireEmailParam(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			if !CanAccessEmail(r, chi.URLParam(r, param)) {
				shared.RespondWithError(w, r, http.StatusForbidden, "Access to this user is not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CanAccessEmail reports whether the authenticated caller may act on email.
// It is true when the request carries no claims, which only happens when
// authentication is disabled.
func CanAccessEmail(r *http.Request, email string) bool {
	claims, ok := shared.GetClaims(r.Context())
	if !ok {
		return true
	}
	return claims.CanAccess(email)
}
