package statusapi

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// recoverMiddleware guards the status surface against a handler panic
// taking down the whole process; the indexer's correctness never depends on
// this HTTP surface staying up.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("status api handler panicked")
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
