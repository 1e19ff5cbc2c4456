package shared

import (
	"context"
	"regexp"

	"github.com/google/uuid"

	"github.com/fitcoach/coach/internal/service/auth"
)

// ContextKey namespaces values stored on request contexts.
type ContextKey string

const (
	// TraceIDKey is the key for the trace ID in the request context.
	TraceIDKey ContextKey = "traceID"

	// ClaimsKey is the key for validated token claims.
	ClaimsKey ContextKey = "claims"

	// TraceIDHeader carries a caller-supplied trace ID and echoes ours back.
	TraceIDHeader = "X-Trace-ID"
)

// Only short opaque tokens are accepted from callers so log lines cannot be
// forged through the header.
var traceIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{8,64}$`)

// SetTraceID stores incoming as the trace ID when it looks like one, and a
// fresh UUID otherwise.
func SetTraceID(ctx context.Context, incoming string) context.Context {
	traceID := incoming
	if !traceIDPattern.MatchString(traceID) {
		traceID = uuid.NewString()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context, or "" when absent.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// WithClaims stores validated token claims on ctx.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims returns the token claims placed by the auth middleware.
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}
