package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"rxsentinel/arbiter/pkg/server/api"
)

// Recovery converts a handler panic into a 500 response. The panic and
// stack trace are logged with the request ID; the client sees only a
// generic message.
func Recovery(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.ErrorContext(r.Context(), "panic in handler",
						"panic", rec,
						"request_id", GetRequestID(r.Context()),
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					api.WriteError(w, http.StatusInternalServerError, api.CodeInternal,
						"an internal error occurred")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
