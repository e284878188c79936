package listing

import (
	"context"
	"fmt"
	"sync/atomic"

	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
)

// Sequence allocates listing sequence numbers. Next is safe for concurrent
// callers and never returns the same value twice.
type Sequence interface {
	Next(ctx context.Context) (int64, error)
	// EnsureAtLeast raises the counter so that the next value exceeds floor.
	EnsureAtLeast(ctx context.Context, floor int64) error
}

// SequenceName identifies the listings counter in every backend.
const SequenceName = "listing_sequence"

// MemorySequence is an in-process counter.
type MemorySequence struct {
	value atomic.Int64
}

func NewMemorySequence() *MemorySequence {
	return &MemorySequence{}
}

func (s *MemorySequence) Next(context.Context) (int64, error) {
	return s.value.Add(1), nil
}

func (s *MemorySequence) EnsureAtLeast(_ context.Context, floor int64) error {
	for {
		current := s.value.Load()
		if current >= floor || s.value.CompareAndSwap(current, floor) {
			return nil
		}
	}
}

// counterStore is satisfied by the MongoDB store adapter.
type counterStore interface {
	FindOneAndUpdate(ctx context.Context, collection string, filter, update interface{}, result interface{}, upsert bool) error
}

// CountersCollection holds one document per named counter.
const CountersCollection = "counters"

// MongoSequence increments a counter document atomically with an upsert.
type MongoSequence struct {
	store counterStore
	name  string
}

func NewMongoSequence(store counterStore) *MongoSequence {
	return &MongoSequence{store: store, name: SequenceName}
}

type counterDocument struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

func (s *MongoSequence) Next(ctx context.Context) (int64, error) {
	var doc counterDocument
	err := s.store.FindOneAndUpdate(ctx, CountersCollection,
		bson.M{"_id": s.name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		&doc, true)
	if err != nil {
		return 0, internal("failed to allocate sequence number", err)
	}
	return doc.Value, nil
}

func (s *MongoSequence) EnsureAtLeast(ctx context.Context, floor int64) error {
	var doc counterDocument
	err := s.store.FindOneAndUpdate(ctx, CountersCollection,
		bson.M{"_id": s.name},
		bson.M{"$max": bson.M{"value": floor}},
		&doc, true)
	if err != nil {
		return internal("failed to raise sequence floor", err)
	}
	return nil
}

// scriptRunner is satisfied by the Redis store adapter.
type scriptRunner interface {
	Incr(ctx context.Context, key string) (int64, error)
	RunScript(ctx context.Context, script *goredis.Script, keys []string, args ...interface{}) (interface{}, error)
}

var raiseFloorScript = goredis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local floor = tonumber(ARGV[1])
if current < floor then
  redis.call("SET", KEYS[1], ARGV[1])
  return floor
end
return current
`)

// RedisSequence uses INCR on a single key.
type RedisSequence struct {
	redis scriptRunner
	key   string
}

func NewRedisSequence(redis scriptRunner, keyPrefix string) *RedisSequence {
	return &RedisSequence{redis: redis, key: keyPrefix + SequenceName}
}

func (s *RedisSequence) Next(ctx context.Context) (int64, error) {
	n, err := s.redis.Incr(ctx, s.key)
	if err != nil {
		return 0, internal("failed to allocate sequence number", err)
	}
	return n, nil
}

func (s *RedisSequence) EnsureAtLeast(ctx context.Context, floor int64) error {
	if _, err := s.redis.RunScript(ctx, raiseFloorScript, []string{s.key}, fmt.Sprint(floor)); err != nil {
		return internal("failed to raise sequence floor", err)
	}
	return nil
}
