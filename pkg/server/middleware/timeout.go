package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout attaches a deadline to each request context. Handlers observe
// it through the operations they call: the orchestrator bounds the run
// with it and the ledger's storage honors it on every read and write, so
// no goroutine handoff is needed and the response writer is never shared
// across goroutines.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
