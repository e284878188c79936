package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mealboard/marketplace/pkg/observability/logger"
)

// redisCounter is the subset of the Redis client the limiter needs.
type redisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisRateLimiter counts requests per key in fixed windows shared by every
// service instance.
type RedisRateLimiter struct {
	client    redisCounter
	limit     int64
	window    time.Duration
	opTimeout time.Duration
	prefix    string
	log       logger.Logger
}

// NewRedisRateLimiter allows requestsPerSecond+burst requests per window.
func NewRedisRateLimiter(client redisCounter, requestsPerSecond, burst int, window time.Duration, log logger.Logger) *RedisRateLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &RedisRateLimiter{
		client:    client,
		limit:     int64(requestsPerSecond + burst),
		window:    window,
		opTimeout: 500 * time.Millisecond,
		prefix:    "ratelimit",
		log:       log,
	}
}

// WithKeyPrefix namespaces the counter keys, e.g. "marketplace:" gives
// "marketplace:ratelimit:<key>".
func (r *RedisRateLimiter) WithKeyPrefix(prefix string) *RedisRateLimiter {
	r.prefix = prefix + "ratelimit"
	return r
}

// Allow increments key's window counter. Redis failures let the request through.
func (r *RedisRateLimiter) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), r.opTimeout)
	defer cancel()

	redisKey := fmt.Sprintf("%s:%s", r.prefix, key)
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		r.log.Error("redis rate limiter increment failed", "error", err)
		return true
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			r.log.Warn("redis rate limiter failed to set TTL", "error", err)
		}
	}
	return count <= r.limit
}
