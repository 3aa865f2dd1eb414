package middlewares

import (
	"crypto/subtle"
	"net/http"

	"github.com/expanova/cita-watcher/common/utils"
	"github.com/rs/zerolog/log"
)

// ApiKeyHeader carries the backend API key
const ApiKeyHeader = "X-API-KEY"

// ApiKey rejects requests whose X-API-KEY header does not match key. An
// empty key disables the check.
func ApiKey(key string) func(http.Handler) http.Handler {
	if key == "" {
		log.Warn().Msg("BACKEND_API_KEY is empty, API key authentication disabled")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get(ApiKeyHeader)
			if got == "" {
				utils.WriteError(w, http.StatusUnauthorized, "Missing API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				log.Warn().Str("remoteAddr", r.RemoteAddr).Msg("Rejected request with invalid API key")
				utils.WriteError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
