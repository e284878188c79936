package listing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mealboard/marketplace/pkg/observability/logger"
	redisstore "github.com/mealboard/marketplace/pkg/store/redis"
)

func assertUniqueSequence(t *testing.T, seq Sequence, n int) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := seq.Next(context.Background())
			if err != nil {
				t.Errorf("Next() error = %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[v] {
				t.Errorf("duplicate sequence number %d", v)
			}
			seen[v] = true
		}()
	}
	wg.Wait()
	for i := int64(1); i <= int64(n); i++ {
		if !seen[i] {
			t.Fatalf("sequence number %d never allocated", i)
		}
	}
}

func TestMemorySequence(t *testing.T) {
	seq := NewMemorySequence()
	assertUniqueSequence(t, seq, 200)

	if err := seq.EnsureAtLeast(context.Background(), 50); err != nil {
		t.Fatalf("EnsureAtLeast() error = %v", err)
	}
	if v, _ := seq.Next(context.Background()); v != 201 {
		t.Fatalf("floor below current must not lower the counter, got %d", v)
	}

	if err := seq.EnsureAtLeast(context.Background(), 1000); err != nil {
		t.Fatalf("EnsureAtLeast() error = %v", err)
	}
	if v, _ := seq.Next(context.Background()); v != 1001 {
		t.Fatalf("Next() after floor = %d, want 1001", v)
	}
}

func TestRedisSequence(t *testing.T) {
	mr := miniredis.RunT(t)
	adapter, err := redisstore.NewAdapter(redisstore.Config{URL: "redis://" + mr.Addr()}, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	defer adapter.Close()

	seq := NewRedisSequence(adapter, "marketplace:")
	ctx := context.Background()

	if err := seq.EnsureAtLeast(ctx, 10); err != nil {
		t.Fatalf("EnsureAtLeast() error = %v", err)
	}
	if v, _ := seq.Next(ctx); v != 11 {
		t.Fatalf("Next() = %d, want 11", v)
	}
	if err := seq.EnsureAtLeast(ctx, 3); err != nil {
		t.Fatalf("EnsureAtLeast() error = %v", err)
	}
	if v, _ := seq.Next(ctx); v != 12 {
		t.Fatalf("lower floor changed the counter: Next() = %d, want 12", v)
	}
	if got, _ := mr.Get("marketplace:" + SequenceName); got != "12" {
		t.Fatalf("stored counter = %q, want 12", got)
	}

	mr.FlushAll()
	assertUniqueSequence(t, seq, 100)

	mr.Close()
	if _, err := seq.Next(ctx); err == nil {
		t.Fatal("expected error when redis is down")
	}
}

// fakeCounterStore mimics $inc and $max upserts on a single counter.
type fakeCounterStore struct {
	mu    sync.Mutex
	value int64
	err   error
}

func (f *fakeCounterStore) FindOneAndUpdate(_ context.Context, collection string, _, update interface{}, result interface{}, upsert bool) error {
	if f.err != nil {
		return f.err
	}
	if collection != CountersCollection || !upsert {
		return errors.New("unexpected counter call")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	u := update.(bson.M)
	if inc, ok := u["$inc"]; ok {
		f.value += inc.(bson.M)["value"].(int64)
	}
	if floor, ok := u["$max"]; ok {
		if v := floor.(bson.M)["value"].(int64); v > f.value {
			f.value = v
		}
	}
	*(result.(*counterDocument)) = counterDocument{ID: SequenceName, Value: f.value}
	return nil
}

func TestMongoSequence(t *testing.T) {
	store := &fakeCounterStore{}
	seq := NewMongoSequence(store)
	assertUniqueSequence(t, seq, 50)

	if err := seq.EnsureAtLeast(context.Background(), 99); err != nil {
		t.Fatalf("EnsureAtLeast() error = %v", err)
	}
	if v, _ := seq.Next(context.Background()); v != 100 {
		t.Fatalf("Next() = %d, want 100", v)
	}

	store.err = errors.New("no primary")
	if _, err := seq.Next(context.Background()); err == nil {
		t.Fatal("expected allocation error")
	}
}
