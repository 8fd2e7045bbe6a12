package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/metrics"
	"github.com/go-chi/httprate"
)

const (
	requestsPerMinute       = 100
	strictRequestsPerMinute = 10
)

// RateLimiter creates a middleware that limits requests based on IP address
// It allows 100 requests per minute per IP address for regular endpoints
func RateLimiter(m *metrics.Metrics) func(http.Handler) http.Handler {
	return limitByIP(requestsPerMinute, "ip", m)
}

// StrictRateLimiter creates a more restrictive rate limiter for sensitive endpoints
// like login and registration (10 requests per minute per IP)
func StrictRateLimiter(m *metrics.Metrics) func(http.Handler) http.Handler {
	return limitByIP(strictRequestsPerMinute, "ip_strict", m)
}

func limitByIP(limit int, rule string, m *metrics.Metrics) func(http.Handler) http.Handler {
	return httprate.Limit(limit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			m.RateLimited(rule)
			writeError(w, "Too many requests, try again later", http.StatusTooManyRequests)
		}),
	)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
