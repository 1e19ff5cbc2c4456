package middleware

import (
	"log/slog"
	"net/http"

	"github.com/fitcoach/coach/internal/api/shared"
	"github.com/fitcoach/coach/internal/platform/logger"
)

// TraceMiddleware assigns a trace ID to each request, echoes it in the
// X-Trace-ID response header and stores a request-scoped logger carrying it.
// Apply it before any middleware that logs or writes errors.
func TraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context(), r.Header.Get(shared.TraceIDHeader))
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)
			w.Header().Set(shared.TraceIDHeader, traceID)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
