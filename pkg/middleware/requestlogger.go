package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dev-tahsin7/LMS-TestApp/pkg/logger"
)

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// user_id, trace_id and span_id, and stores it in context for handlers to
// retrieve with logger.FromContext.
//
// Mount it after RequestLogging and Tracing, and inside RequireSession for
// routes where the user id should be attached.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
