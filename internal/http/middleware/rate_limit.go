package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/diagnosis/medcv-review/internal/http/response"
	"github.com/diagnosis/medcv-review/pkg/logger"
)

// Limiter counts hits per key. Implementations fail open and report the
// error alongside allowed=true.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	Prefix   string                         // Namespaces keys per route group
	KeyFunc  func(r *http.Request) []string // Function to generate rate limit keys
	SkipFunc func(r *http.Request) bool     // Function to skip rate limiting
}

// RateLimiter provides rate limiting functionality
type RateLimiter struct {
	limiter Limiter
	config  RateLimitConfig
}

// NewRateLimiter creates a new rate limiter. A nil limiter disables it.
func NewRateLimiter(limiter Limiter, config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientIPKeyFunc
	}
	return &RateLimiter{limiter: limiter, config: config}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.limiter == nil || (rl.config.SkipFunc != nil && rl.config.SkipFunc(r)) {
				next.ServeHTTP(w, r)
				return
			}

			for _, key := range rl.config.KeyFunc(r) {
				ok, err := rl.limiter.Allow(r.Context(), rl.config.Prefix+key)
				if err != nil {
					logger.WarnContext(r.Context(), "Rate limiter unavailable", "error", err)
				}
				if !ok {
					response.RateLimit(w, "Too many requests from this IP, please try again later.")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIPKeyFunc limits by client IP.
func ClientIPKeyFunc(r *http.Request) []string {
	if ip := getClientIP(r); ip != "" {
		return []string{"ip:" + ip}
	}
	return nil
}

// getClientIP returns the host part of RemoteAddr. Forwarding headers are
// only honoured when chi's RealIP has rewritten RemoteAddr upstream.
func getClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
