// Package ratelimit throttles write routes per client.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/mealboard/marketplace/pkg/controller"
	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/server/router"
)

// RateLimiter decides whether a request identified by key may proceed.
// Implementations must be safe for concurrent use.
type RateLimiter interface {
	Allow(key string) bool
}

// TokenBucketLimiter keeps one in-process token bucket per key.
type TokenBucketLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewTokenBucketLimiter allows requestsPerSecond on average with bursts up to burst.
func NewTokenBucketLimiter(requestsPerSecond int, burst int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

// Allow consumes one token from key's bucket.
func (l *TokenBucketLimiter) Allow(key string) bool {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter).Allow()
	}
	limiter, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	return limiter.(*rate.Limiter).Allow()
}

// KeyFunc extracts the rate limiting key from a request.
type KeyFunc func(router.Context) string

// RateLimit rejects requests over the limit with 429 and a Retry-After header.
// A nil keyFunc limits per client IP.
func RateLimit(limiter RateLimiter, keyFunc KeyFunc, log logger.Logger) router.MiddlewareFunc {
	if keyFunc == nil {
		keyFunc = func(c router.Context) string { return ClientIP(c.Request()) }
	}
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			key := keyFunc(c)
			if limiter.Allow(key) {
				return next(c)
			}

			log.WithContext(c.Request().Context()).Warn("rate limit exceeded",
				"key", key,
				"path", c.Request().URL.Path,
			)
			c.Response().Header().Set("Retry-After", "1")
			return c.JSON(http.StatusTooManyRequests, controller.ErrorResponse{
				Error:     "rate_limited",
				Message:   "rate limit exceeded",
				RequestID: logger.RequestIDFromContext(c.Request().Context()),
			})
		}
	}
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the remote address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
