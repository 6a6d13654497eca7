package middleware

import (
	"net"
	"net/http"
	"strconv"

	"github.com/okhomenko/eventgate/internal/infrastructure/ratelimit"
	"github.com/okhomenko/eventgate/internal/interfaces/rest"
)

// RateLimit throttles by client IP using the Redis fixed-window limiter.
// A nil limiter disables throttling entirely.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := limiter.Allow(r.Context(), clientIP(r))
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				rest.WriteErrorCode(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
