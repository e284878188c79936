// Package mongodb wraps the MongoDB driver with connection lifecycle,
// per-operation timeouts and tracing spans.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/observability/tracing"
)

// ErrNoDocuments is returned by FindOne and FindOneAndUpdate when nothing matched.
var ErrNoDocuments = mongo.ErrNoDocuments

// ErrClosed is returned once Close has been called.
var ErrClosed = errors.New("mongodb adapter is closed")

// Adapter provides MongoDB connectivity.
type Adapter struct {
	client   *mongo.Client
	database string
	logger   logger.Logger
	timeout  time.Duration
	mu       sync.RWMutex
	closed   bool
}

// Config holds MongoDB adapter configuration.
type Config struct {
	// URI is the full connection string, database path and parameters included
	URI              string
	Database         string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
}

// NewAdapter connects to MongoDB and verifies connectivity with a ping.
// It does not create collections or indexes.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb database is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Info("MongoDB connection established", "database", cfg.Database)
	return &Adapter{
		client:   client,
		database: cfg.Database,
		logger:   log,
		timeout:  cfg.OperationTimeout,
	}, nil
}

func (a *Adapter) Client() *mongo.Client {
	return a.client
}

func (a *Adapter) Database() *mongo.Database {
	return a.client.Database(a.database)
}

func (a *Adapter) Collection(name string) *mongo.Collection {
	return a.Database().Collection(name)
}

func (a *Adapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return a.client.Ping(ctx, readpref.Primary())
}

// HealthCheck pings the primary with a two second budget.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	hcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.Ping(hcCtx); err != nil {
		a.logger.Error("MongoDB health check failed", "error", err)
		return fmt.Errorf("mongodb health check failed: %w", err)
	}
	return nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to close mongodb connection: %w", err)
	}
	a.logger.Info("MongoDB connection closed")
	return nil
}

func (a *Adapter) InsertOne(ctx context.Context, collection string, doc interface{}) (*mongo.InsertOneResult, error) {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	ctx, span := tracing.StartDatabaseSpan(opCtx, tracing.SpanOperationDBInsert, collection)
	result, err := a.Collection(collection).InsertOne(ctx, doc)
	tracing.End(span, err)
	return result, err
}

// FindOne decodes the first match into result. ErrNoDocuments is returned
// unwrapped so callers can test for it with errors.Is.
func (a *Adapter) FindOne(ctx context.Context, collection string, filter interface{}, result interface{}, opts ...*options.FindOneOptions) error {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	ctx, span := tracing.StartDatabaseSpan(opCtx, tracing.SpanOperationDBQuery, collection)
	err := a.Collection(collection).FindOne(ctx, filter, opts...).Decode(result)
	tracing.End(span, ignoreNoDocuments(err))
	return err
}

// Find decodes every match into results, which must be a pointer to a slice.
func (a *Adapter) Find(ctx context.Context, collection string, filter interface{}, results interface{}, opts ...*options.FindOptions) error {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	ctx, span := tracing.StartDatabaseSpan(opCtx, tracing.SpanOperationDBQuery, collection)
	cursor, err := a.Collection(collection).Find(ctx, filter, opts...)
	if err != nil {
		tracing.End(span, err)
		return err
	}
	err = cursor.All(ctx, results)
	tracing.End(span, err)
	return err
}

func (a *Adapter) CountDocuments(ctx context.Context, collection string, filter interface{}) (int64, error) {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	ctx, span := tracing.StartDatabaseSpan(opCtx, tracing.SpanOperationDBCount, collection)
	n, err := a.Collection(collection).CountDocuments(ctx, filter)
	tracing.End(span, err)
	return n, err
}

func (a *Adapter) UpdateOne(ctx context.Context, collection string, filter, update interface{}) (*mongo.UpdateResult, error) {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	ctx, span := tracing.StartDatabaseSpan(opCtx, tracing.SpanOperationDBUpdate, collection)
	result, err := a.Collection(collection).UpdateOne(ctx, filter, update)
	tracing.End(span, err)
	return result, err
}

// FindOneAndUpdate applies update and decodes the document as it is after
// the update.
func (a *Adapter) FindOneAndUpdate(ctx context.Context, collection string, filter, update interface{}, result interface{}, upsert bool) error {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	ctx, span := tracing.StartDatabaseSpan(opCtx, tracing.SpanOperationDBUpdate, collection)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(upsert)
	err := a.Collection(collection).FindOneAndUpdate(ctx, filter, update, opts).Decode(result)
	tracing.End(span, ignoreNoDocuments(err))
	return err
}

func (a *Adapter) DeleteOne(ctx context.Context, collection string, filter interface{}) (*mongo.DeleteResult, error) {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	ctx, span := tracing.StartDatabaseSpan(opCtx, tracing.SpanOperationDBDelete, collection)
	result, err := a.Collection(collection).DeleteOne(ctx, filter)
	tracing.End(span, err)
	return result, err
}

// EnsureIndexes creates the given indexes on collection. Existing indexes
// with identical definitions are left alone by the server.
func (a *Adapter) EnsureIndexes(ctx context.Context, collection string, models []mongo.IndexModel) ([]string, error) {
	if len(models) == 0 {
		return nil, nil
	}
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	names, err := a.Collection(collection).Indexes().CreateMany(opCtx, models)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes on %s: %w", collection, err)
	}
	a.logger.Info("MongoDB indexes ensured", "collection", collection, "indexes", names)
	return names, nil
}

func (a *Adapter) EnsureCollection(ctx context.Context, name string) error {
	opCtx, cancel := a.withOperationTimeout(ctx)
	defer cancel()
	_, err := a.Database().Collection(name).CountDocuments(opCtx, bson.D{})
	return err
}

func (a *Adapter) withOperationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}

func ignoreNoDocuments(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return err
}
