package document

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongostore "github.com/mealboard/marketplace/pkg/store/mongodb"
)

// ErrNotFound is returned when no document matches a single-document operation.
var ErrNotFound = errors.New("document not found")

// MongoExecutor defines a minimal document execution contract for MongoDB-backed repositories.
type MongoExecutor interface {
	// Find decodes the filtered, sorted page into results (a pointer to a slice).
	Find(ctx context.Context, collection string, opts QueryOptions, results interface{}) error
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	// FindOne decodes the first match into result. When fields are given only
	// those fields (and _id) are loaded.
	FindOne(ctx context.Context, collection string, filter Filter, result interface{}, fields ...string) error
	InsertOne(ctx context.Context, collection string, document interface{}) (interface{}, error)
	// FindOneAndUpdate applies update and decodes the updated document.
	FindOneAndUpdate(ctx context.Context, collection string, filter Filter, update Filter, result interface{}) error
	DeleteOne(ctx context.Context, collection string, filter Filter) (int64, error)
}

// MongoDBExecutor adapts store/mongodb adapter to the repository/document executor contract.
type MongoDBExecutor struct {
	adapter *mongostore.Adapter
}

// NewMongoDBExecutor creates a new MongoDBExecutor instance.
func NewMongoDBExecutor(adapter *mongostore.Adapter) (*MongoDBExecutor, error) {
	if adapter == nil {
		return nil, fmt.Errorf("mongodb adapter is required")
	}
	return &MongoDBExecutor{adapter: adapter}, nil
}

func (e *MongoDBExecutor) Find(ctx context.Context, collection string, opts QueryOptions, results interface{}) error {
	return e.adapter.Find(ctx, collection, toBSON(opts.Filter), results, FindOptions(opts))
}

func (e *MongoDBExecutor) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	return e.adapter.CountDocuments(ctx, collection, toBSON(filter))
}

func (e *MongoDBExecutor) FindOne(ctx context.Context, collection string, filter Filter, result interface{}, fields ...string) error {
	opts := options.FindOne()
	if len(fields) > 0 {
		opts.SetProjection(Projection(fields))
	}
	err := e.adapter.FindOne(ctx, collection, toBSON(filter), result, opts)
	if errors.Is(err, mongostore.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (e *MongoDBExecutor) InsertOne(ctx context.Context, collection string, document interface{}) (interface{}, error) {
	result, err := e.adapter.InsertOne(ctx, collection, document)
	if err != nil {
		return nil, err
	}
	return result.InsertedID, nil
}

func (e *MongoDBExecutor) FindOneAndUpdate(ctx context.Context, collection string, filter Filter, update Filter, result interface{}) error {
	err := e.adapter.FindOneAndUpdate(ctx, collection, toBSON(filter), toBSON(update), result, false)
	if errors.Is(err, mongostore.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (e *MongoDBExecutor) DeleteOne(ctx context.Context, collection string, filter Filter) (int64, error) {
	result, err := e.adapter.DeleteOne(ctx, collection, toBSON(filter))
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// FindOptions translates sort and pagination into driver options. A zero
// page size means no limit.
func FindOptions(opts QueryOptions) *options.FindOptions {
	find := options.Find()
	if opts.Sort.Field != "" {
		direction := -1
		if opts.Sort.Order == SortAsc {
			direction = 1
		}
		find.SetSort(bson.D{{Key: opts.Sort.Field, Value: direction}})
	}
	if opts.Pagination.PageSize > 0 {
		find.SetSkip(opts.Pagination.Offset())
		find.SetLimit(int64(opts.Pagination.PageSize))
	}
	return find
}

// Projection builds an inclusion projection for fields.
func Projection(fields []string) bson.D {
	projection := make(bson.D, 0, len(fields))
	for _, field := range fields {
		projection = append(projection, bson.E{Key: field, Value: 1})
	}
	return projection
}

func toBSON(filter Filter) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return bson.M(filter)
}
