// Package redis wraps go-redis with the key/value and counter operations the
// marketplace uses for caching, sequence allocation and rate limiting.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/observability/tracing"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// Adapter provides Redis connectivity with connection pooling
type Adapter struct {
	client *redis.Client
	logger logger.Logger
}

// Config holds Redis connection configuration
type Config struct {
	URL              string
	MaxConns         int
	OperationTimeout time.Duration
}

// NewAdapter parses the URL, opens a pooled client and pings it.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("redis URL is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		opts.PoolSize = cfg.MaxConns
	}
	opts.DialTimeout = 5 * time.Second
	if cfg.OperationTimeout > 0 {
		opts.ReadTimeout = cfg.OperationTimeout
		opts.WriteTimeout = cfg.OperationTimeout
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info("Redis connection established",
		"max_conns", opts.PoolSize,
		"operation_timeout", cfg.OperationTimeout,
	)
	return NewAdapterFromClient(client, log), nil
}

// NewAdapterFromClient wraps an existing client without pinging it.
func NewAdapterFromClient(client *redis.Client, log logger.Logger) *Adapter {
	return &Adapter{client: client, logger: log}
}

// Client returns the underlying *redis.Client for direct access when needed
func (a *Adapter) Client() *redis.Client {
	return a.client
}

func (a *Adapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

// Get returns ErrCacheMiss when key is absent.
func (a *Adapter) Get(ctx context.Context, key string) (string, error) {
	ctx, span := tracing.StartCacheSpan(ctx, tracing.SpanOperationCacheGet, key)
	val, err := a.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		tracing.End(span, nil)
		return "", ErrCacheMiss
	}
	tracing.End(span, err)
	if err != nil {
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// SetWithTTL stores value under key. A zero ttl means no expiration.
func (a *Adapter) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	ctx, span := tracing.StartCacheSpan(ctx, tracing.SpanOperationCacheSet, key)
	err := a.client.Set(ctx, key, value, ttl).Err()
	tracing.End(span, err)
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

func (a *Adapter) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := a.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// Incr atomically increments the value of a key by 1
func (a *Adapter) Incr(ctx context.Context, key string) (int64, error) {
	ctx, span := tracing.StartCacheSpan(ctx, tracing.SpanOperationCacheIncr, key)
	val, err := a.client.Incr(ctx, key).Result()
	tracing.End(span, err)
	if err != nil {
		return 0, fmt.Errorf("failed to increment key %s: %w", key, err)
	}
	return val, nil
}

// Expire sets a timeout on key.
func (a *Adapter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := a.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("failed to expire key %s: %w", key, err)
	}
	return nil
}

// RunScript executes script atomically on the server.
func (a *Adapter) RunScript(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) (interface{}, error) {
	val, err := script.Run(ctx, a.client, keys, args...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to run script: %w", err)
	}
	return val, nil
}

// HealthCheck verifies the Redis connection is healthy with a timeout
func (a *Adapter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := a.client.Ping(ctx).Err(); err != nil {
		a.logger.Error("Redis health check failed", "error", err)
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close gracefully closes the Redis connection
func (a *Adapter) Close() error {
	if err := a.client.Close(); err != nil {
		a.logger.Error("failed to close Redis connection", "error", err)
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	a.logger.Info("Redis connection closed")
	return nil
}
