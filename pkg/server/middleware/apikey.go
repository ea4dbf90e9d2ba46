package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"rxsentinel/arbiter/pkg/config"
	"rxsentinel/arbiter/pkg/server/api"
)

const defaultAPIKeyHeader = "X-API-Key"

// APIKey rejects requests that do not carry one of the configured keys.
// When authentication is disabled the middleware is a pass-through.
//
// The presented key is compared against every configured key with a
// constant-time comparison and no early exit, so response timing does not
// reveal which key matched or how close a guess came.
func APIKey(cfg config.AuthenticationConfig, log *slog.Logger) func(http.Handler) http.Handler {
	header := cfg.HeaderName
	if header == "" {
		header = defaultAPIKeyHeader
	}
	keys := make([][]byte, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := []byte(r.Header.Get(header))

			match := 0
			for _, k := range keys {
				match |= subtle.ConstantTimeCompare(presented, k)
			}
			if len(presented) == 0 || match != 1 {
				log.WarnContext(r.Context(), "request rejected, bad API key",
					"request_id", GetRequestID(r.Context()),
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				api.WriteError(w, http.StatusUnauthorized, api.CodeUnauthorized,
					"missing or invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
