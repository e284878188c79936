package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mealboard/marketplace/pkg/listing"
	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/resilience"
	redisstore "github.com/mealboard/marketplace/pkg/store/redis"
)

// Directory resolves listing owners from the user repository.
type Directory struct {
	repo Repository
}

func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

// FirstName returns listing.ErrOwnerNotFound for unknown users.
func (d *Directory) FirstName(ctx context.Context, userID string) (string, error) {
	p, err := d.repo.Profile(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return "", listing.ErrOwnerNotFound
	}
	if err != nil {
		return "", err
	}
	return p.FirstName, nil
}

// stringCache is satisfied by the Redis store adapter.
type stringCache interface {
	Get(ctx context.Context, key string) (string, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedDirectory keeps owner first names in Redis. Cache failures fall
// through to the wrapped directory.
type CachedDirectory struct {
	next    listing.OwnerDirectory
	cache   stringCache
	ttl     time.Duration
	logger  logger.Logger
	breaker *resilience.Breaker
	prefix  string
}

func NewCachedDirectory(next listing.OwnerDirectory, cache stringCache, ttl time.Duration, log logger.Logger) *CachedDirectory {
	return &CachedDirectory{next: next, cache: cache, ttl: ttl, logger: log}
}

// WithKeyPrefix namespaces the cache keys, e.g. "marketplace:" gives
// "marketplace:user:<id>:firstname".
func (d *CachedDirectory) WithKeyPrefix(prefix string) *CachedDirectory {
	d.prefix = prefix
	return d
}

// WithBreaker routes cache calls through b, so an unreachable cache is
// skipped until b lets a probe through.
func (d *CachedDirectory) WithBreaker(b *resilience.Breaker) *CachedDirectory {
	d.breaker = b
	return d
}

func (d *CachedDirectory) FirstName(ctx context.Context, userID string) (string, error) {
	key := d.prefix + firstNameKey(userID)
	var name string
	err := d.guard(ctx, func(ctx context.Context) error {
		var err error
		name, err = d.cache.Get(ctx, key)
		return err
	})
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, redisstore.ErrCacheMiss) && !errors.Is(err, resilience.ErrOpen) {
		d.logger.WithContext(ctx).Warn("owner cache read failed", "user_id", userID, "error", err)
	}

	name, err = d.next.FirstName(ctx, userID)
	if err != nil {
		return "", err
	}
	err = d.guard(ctx, func(ctx context.Context) error {
		return d.cache.SetWithTTL(ctx, key, name, d.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrOpen) {
		d.logger.WithContext(ctx).Warn("owner cache write failed", "user_id", userID, "error", err)
	}
	return name, nil
}

func (d *CachedDirectory) guard(ctx context.Context, fn func(context.Context) error) error {
	if d.breaker == nil {
		return fn(ctx)
	}
	return d.breaker.Execute(ctx, fn, isCacheMiss)
}

func isCacheMiss(err error) bool {
	return errors.Is(err, redisstore.ErrCacheMiss)
}

func firstNameKey(userID string) string {
	return fmt.Sprintf("user:%s:firstname", userID)
}
