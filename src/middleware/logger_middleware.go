package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"centsible-server/src/logger"
)

// RequestLogger puts the server logger on every request context so handlers
// can pull it with logger.FromContext.
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLog := log.With().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), reqLog)))
		})
	}
}
