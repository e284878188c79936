// Package app assembles the marketplace service from configuration: stores,
// repositories, services, health checks and HTTP routes.
package app

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mealboard/marketplace/pkg/api"
	"github.com/mealboard/marketplace/pkg/config"
	"github.com/mealboard/marketplace/pkg/health"
	"github.com/mealboard/marketplace/pkg/listing"
	"github.com/mealboard/marketplace/pkg/middleware/ratelimit"
	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/observability/metrics"
	"github.com/mealboard/marketplace/pkg/repository/document"
	"github.com/mealboard/marketplace/pkg/resilience"
	"github.com/mealboard/marketplace/pkg/server/router"
	"github.com/mealboard/marketplace/pkg/store"
	"github.com/mealboard/marketplace/pkg/user"
)

// redisKeyPrefix namespaces every key the service writes to Redis: the
// listing sequence, the owner cache and the rate limit counters.
const redisKeyPrefix = "marketplace:"

const (
	ownerCacheMaxFailures = 5
	ownerCacheCooldown    = 30 * time.Second
)

// App holds the wired components of one process.
type App struct {
	Config   *config.Config
	Logger   logger.Logger
	Stores   *store.Stores
	Metrics  *metrics.Registry
	Health   *health.Registry
	Listings *listing.Service
	Users    *user.Service

	listingRepo listing.Repository
	userRepo    user.Repository
}

// New opens the configured stores and wires the application on top.
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	stores, err := store.Open(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}
	a, err := NewWithStores(cfg, log, stores, metrics.NewRegistry())
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	return a, nil
}

// NewWithStores wires the application on already opened stores. A nil
// Mongo adapter selects the in-memory repositories.
func NewWithStores(cfg *config.Config, log logger.Logger, stores *store.Stores, reg *metrics.Registry) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  log,
		Stores:  stores,
		Metrics: reg,
		Health:  health.NewRegistry(),
	}

	if stores.Mongo != nil {
		exec, err := document.NewMongoDBExecutor(stores.Mongo)
		if err != nil {
			return nil, err
		}
		a.listingRepo = listing.NewMongoRepository(exec, listing.DefaultCollection)
		a.userRepo = user.NewMongoRepository(exec, user.DefaultCollection)
		a.Health.Register(health.NewDatabaseChecker("mongodb", stores.Mongo))
	} else {
		a.listingRepo = listing.NewMemoryRepository()
		a.userRepo = user.NewMemoryRepository()
		a.Health.Register(health.NewPingChecker("memory"))
	}
	if stores.Redis != nil {
		a.Health.Register(health.NewCacheChecker("redis", stores.Redis))
	}

	sequence, err := a.sequence()
	if err != nil {
		return nil, err
	}

	var owners listing.OwnerDirectory = user.NewDirectory(a.userRepo)
	if stores.Redis != nil {
		breaker := resilience.NewBreaker(resilience.BreakerConfig{
			Name:        "owner-cache",
			MaxFailures: ownerCacheMaxFailures,
			Cooldown:    ownerCacheCooldown,
		}, log)
		owners = user.NewCachedDirectory(owners, stores.Redis, cfg.Cache.TTL, log).
			WithKeyPrefix(redisKeyPrefix).
			WithBreaker(breaker)
	}

	a.Listings = listing.NewService(a.listingRepo, sequence, owners, listing.Options{
		PageSize:         cfg.Listings.PageSize,
		MatchAllSentinel: cfg.Listings.MatchAllSentinel,
		Categories:       cfg.Listings.Categories,
		SequenceBackend:  cfg.Listings.SequenceBackend,
	}, reg.Catalog, log)
	a.Users = user.NewService(a.userRepo, log)
	return a, nil
}

func (a *App) sequence() (listing.Sequence, error) {
	switch a.Config.Listings.SequenceBackend {
	case config.SequenceBackendMongoDB:
		if a.Stores.Mongo == nil {
			return nil, fmt.Errorf("listings.sequence_backend mongodb requires a mongodb database")
		}
		return listing.NewMongoSequence(a.Stores.Mongo), nil
	case config.SequenceBackendRedis:
		if a.Stores.Redis == nil {
			return nil, fmt.Errorf("listings.sequence_backend redis requires the cache")
		}
		return listing.NewRedisSequence(a.Stores.Redis, redisKeyPrefix), nil
	case config.SequenceBackendMemory:
		return listing.NewMemorySequence(), nil
	default:
		return nil, fmt.Errorf("unsupported listings.sequence_backend %q", a.Config.Listings.SequenceBackend)
	}
}

// RegisterRoutes mounts the public API on r.
func (a *App) RegisterRoutes(r router.Router) {
	api.Register(r, api.Handlers{
		Listings: api.NewListingHandler(a.Listings),
		Users:    api.NewUserHandler(a.Users),
	}, a.writeMiddleware()...)
}

func (a *App) writeMiddleware() []router.MiddlewareFunc {
	rl := a.Config.RateLimit
	if !rl.Enabled {
		return nil
	}
	var limiter ratelimit.RateLimiter
	if rl.Backend == config.RateLimitBackendRedis && a.Stores.Redis != nil {
		limiter = ratelimit.NewRedisRateLimiter(a.Stores.Redis.Client(), rl.RequestsPerSecond, rl.Burst, time.Second, a.Logger).
			WithKeyPrefix(redisKeyPrefix)
	} else {
		limiter = ratelimit.NewTokenBucketLimiter(rl.RequestsPerSecond, rl.Burst)
	}
	return []router.MiddlewareFunc{ratelimit.RateLimit(limiter, nil, a.Logger)}
}

// EnsureIndexes creates the collection indexes. It is a no-op for the
// memory database.
func (a *App) EnsureIndexes(ctx context.Context) error {
	if a.Stores.Mongo == nil {
		a.Logger.Info("memory database has no indexes to create")
		return nil
	}
	for _, set := range []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{listing.DefaultCollection, listing.Indexes()},
		{user.DefaultCollection, user.Indexes()},
	} {
		names, err := a.Stores.Mongo.EnsureIndexes(ctx, set.collection, set.models)
		if err != nil {
			return fmt.Errorf("ensure %s indexes: %w", set.collection, err)
		}
		a.Logger.Info("indexes ensured", "collection", set.collection, "indexes", names)
	}
	return nil
}

// Close releases the stores.
func (a *App) Close() error {
	return a.Stores.Close()
}
