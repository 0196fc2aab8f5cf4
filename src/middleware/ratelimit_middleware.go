package middleware

import (
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware sheds load once the shared limiter is exhausted.
func RateLimitMiddleware(limiter *rate.Limiter, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("Rate limit exceeded")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
