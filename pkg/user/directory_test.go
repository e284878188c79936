package user

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/mealboard/marketplace/pkg/listing"
	"github.com/mealboard/marketplace/pkg/middleware/testutil"
	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/resilience"
	redisstore "github.com/mealboard/marketplace/pkg/store/redis"
)

type countingDirectory struct {
	calls atomic.Int32
	names map[string]string
}

func (d *countingDirectory) FirstName(_ context.Context, id string) (string, error) {
	d.calls.Add(1)
	name, ok := d.names[id]
	if !ok {
		return "", listing.ErrOwnerNotFound
	}
	return name, nil
}

func TestDirectory_FirstName(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	id, _ := repo.Insert(ctx, &User{FirstName: "Ada", Email: "ada@example.com", PasswordHash: "h"})
	dir := NewDirectory(repo)

	name, err := dir.FirstName(ctx, id)
	if err != nil || name != "Ada" {
		t.Fatalf("FirstName() = %q, %v", name, err)
	}
	if _, err := dir.FirstName(ctx, "missing"); !errors.Is(err, listing.ErrOwnerNotFound) {
		t.Fatalf("expected listing.ErrOwnerNotFound, got %v", err)
	}
}

func TestCachedDirectory(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := redisstore.NewAdapter(redisstore.Config{URL: "redis://" + mr.Addr()}, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	next := &countingDirectory{names: map[string]string{"u1": "Ada"}}
	log := testutil.NewMockLogger()
	dir := NewCachedDirectory(next, cache, time.Minute, log)

	for i := 0; i < 3; i++ {
		name, err := dir.FirstName(ctx, "u1")
		if err != nil || name != "Ada" {
			t.Fatalf("FirstName() = %q, %v", name, err)
		}
	}
	if got := next.calls.Load(); got != 1 {
		t.Fatalf("backing directory called %d times, want 1", got)
	}
	if cached, _ := mr.Get("user:u1:firstname"); cached != "Ada" {
		t.Fatalf("cached value = %q", cached)
	}

	mr.FastForward(2 * time.Minute)
	_, _ = dir.FirstName(ctx, "u1")
	if got := next.calls.Load(); got != 2 {
		t.Fatalf("expired entry should reload, calls = %d", got)
	}

	if _, err := dir.FirstName(ctx, "ghost"); !errors.Is(err, listing.ErrOwnerNotFound) {
		t.Fatalf("expected listing.ErrOwnerNotFound, got %v", err)
	}
	if mr.Exists("user:ghost:firstname") {
		t.Fatal("unknown owners must not be cached")
	}

	mr.Close()
	name, err := dir.FirstName(ctx, "u1")
	if err != nil || name != "Ada" {
		t.Fatalf("cache outage should fall back, got %q, %v", name, err)
	}
	if _, ok := log.Find("owner cache read failed"); !ok {
		t.Fatal("expected cache read failure to be logged")
	}
}

func TestCachedDirectory_BreakerSkipsDeadCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := redisstore.NewAdapter(redisstore.Config{URL: "redis://" + mr.Addr()}, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	next := &countingDirectory{names: map[string]string{"u1": "Ada", "u2": "Alan"}}
	log := testutil.NewMockLogger()
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Name: "owner-cache", MaxFailures: 1, Cooldown: time.Hour}, log)
	dir := NewCachedDirectory(next, cache, time.Minute, log).WithBreaker(breaker)

	// Misses do not trip the breaker.
	for _, id := range []string{"u1", "u2"} {
		if _, err := dir.FirstName(ctx, id); err != nil {
			t.Fatalf("FirstName(%s) error = %v", id, err)
		}
	}
	if breaker.State() != resilience.StateClosed {
		t.Fatalf("breaker = %s after cache misses", breaker.State())
	}

	mr.Close()
	for i := 0; i < 3; i++ {
		name, err := dir.FirstName(ctx, "u1")
		if err != nil || name != "Ada" {
			t.Fatalf("FirstName() = %q, %v", name, err)
		}
	}
	if breaker.State() != resilience.StateOpen {
		t.Fatalf("breaker = %s, want open", breaker.State())
	}

	failures := 0
	for _, e := range log.Entries() {
		if e.Msg == "owner cache read failed" {
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("logged %d cache read failures, want 1 before the breaker opened", failures)
	}
}

func TestCachedDirectory_KeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := redisstore.NewAdapter(redisstore.Config{URL: "redis://" + mr.Addr()}, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	defer cache.Close()

	next := &countingDirectory{names: map[string]string{"u1": "Ada"}}
	dir := NewCachedDirectory(next, cache, time.Minute, logger.NewNopLogger()).WithKeyPrefix("marketplace:")
	if _, err := dir.FirstName(context.Background(), "u1"); err != nil {
		t.Fatalf("FirstName() error = %v", err)
	}
	if cached, _ := mr.Get("marketplace:user:u1:firstname"); cached != "Ada" {
		t.Fatalf("keys = %v, want marketplace:user:u1:firstname", mr.Keys())
	}
}
