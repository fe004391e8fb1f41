package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/widgetlabs/widget-api/internal/ratelimit"
	"github.com/widgetlabs/widget-api/pkg/logger"
)

// RateLimit runs every request through the sliding-window limiter and
// attaches the standard X-RateLimit headers to accepted and rejected
// responses alike.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := limiter.Allow(clientIP(r), bearerToken(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset, 10))

			if decision.Limited {
				logger.From(r.Context()).Warn("rate limit exceeded",
					"ip", clientIP(r),
					"path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Too many requests"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP trusts chi's RealIP middleware to have rewritten RemoteAddr from
// forwarding headers; here we only strip the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// bearerToken returns the raw credential, or empty for anonymous requests.
// Validity is irrelevant here: a garbage token still identifies one client.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
