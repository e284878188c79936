package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mealboard/marketplace/pkg/config"
	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/store/mongodb"
	"github.com/mealboard/marketplace/pkg/store/redis"
)

// Stores holds the adapters opened for a process. Either field may be nil:
// Mongo is nil for the memory database type, Redis when the cache is disabled.
type Stores struct {
	Mongo *mongodb.Adapter
	Redis *redis.Adapter
}

// Open connects the stores selected by cfg. On failure anything already
// opened is closed again.
func Open(cfg *config.Config, log logger.Logger) (*Stores, error) {
	stores := &Stores{}

	switch strings.ToLower(strings.TrimSpace(cfg.Database.Type)) {
	case config.DatabaseTypeMongoDB:
		adapter, err := mongodb.NewAdapter(mongodb.Config{
			URI:              cfg.Database.MongoURI(),
			Database:         cfg.Database.DatabaseName,
			ConnectTimeout:   cfg.Database.ConnectTimeout,
			OperationTimeout: cfg.Database.OperationTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		stores.Mongo = adapter
	case config.DatabaseTypeMemory:
		log.Warn("using in-memory database, data is lost on restart")
	default:
		return nil, fmt.Errorf("unsupported database.type %q (supported: mongodb, memory)", cfg.Database.Type)
	}

	if cfg.Cache.Enabled {
		adapter, err := redis.NewAdapter(redis.Config{
			URL:              cfg.Cache.URL,
			MaxConns:         cfg.Cache.MaxConns,
			OperationTimeout: cfg.Cache.OperationTimeout,
		}, log)
		if err != nil {
			_ = stores.Close()
			return nil, err
		}
		stores.Redis = adapter
	}

	return stores, nil
}

// Adapters lists the opened adapters keyed by name, for health checks.
func (s *Stores) Adapters() map[string]Adapter {
	out := make(map[string]Adapter, 2)
	if s.Mongo != nil {
		out["mongodb"] = s.Mongo
	}
	if s.Redis != nil {
		out["redis"] = s.Redis
	}
	return out
}

// Close closes every opened adapter and joins their errors.
func (s *Stores) Close() error {
	var errs []error
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Mongo != nil {
		if err := s.Mongo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
