package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"

	"github.com/mealboard/marketplace/pkg/observability/logger"
)

func TestNewAdapter_Validation(t *testing.T) {
	log := logger.NewNopLogger()

	if _, err := NewAdapter(Config{}, log); err == nil {
		t.Fatal("expected error for empty URI and database")
	}
	if _, err := NewAdapter(Config{URI: "mongodb://localhost:27017"}, log); err == nil {
		t.Fatal("expected error for empty database")
	}
}

func TestPing_WhenClosed(t *testing.T) {
	a := &Adapter{closed: true}
	if err := a.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestClose_IdempotentWhenAlreadyClosed(t *testing.T) {
	a := &Adapter{closed: true}
	if err := a.Close(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestWithOperationTimeout(t *testing.T) {
	t.Run("applies adapter timeout", func(t *testing.T) {
		a := &Adapter{timeout: 2 * time.Second}
		ctx, cancel := a.withOperationTimeout(context.Background())
		defer cancel()

		deadline, ok := ctx.Deadline()
		if !ok {
			t.Fatal("expected deadline from operation timeout")
		}
		if remaining := time.Until(deadline); remaining <= 0 || remaining > 2*time.Second {
			t.Fatalf("unexpected remaining timeout: %v", remaining)
		}
	})

	t.Run("keeps caller deadline", func(t *testing.T) {
		a := &Adapter{timeout: 2 * time.Second}
		parent, parentCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer parentCancel()

		ctx, cancel := a.withOperationTimeout(parent)
		defer cancel()

		want, _ := parent.Deadline()
		got, _ := ctx.Deadline()
		if !got.Equal(want) {
			t.Fatalf("deadline = %v, want %v", got, want)
		}
	})

	t.Run("no timeout configured", func(t *testing.T) {
		a := &Adapter{}
		ctx, cancel := a.withOperationTimeout(context.Background())
		defer cancel()
		if _, ok := ctx.Deadline(); ok {
			t.Fatal("expected no deadline")
		}
	})
}

func TestIgnoreNoDocuments(t *testing.T) {
	if ignoreNoDocuments(ErrNoDocuments) != nil {
		t.Fatal("ErrNoDocuments should not be reported as a span error")
	}
	other := errors.New("boom")
	if ignoreNoDocuments(other) != other {
		t.Fatal("other errors must pass through")
	}
}

func TestProperty_ClosePreventsPing(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 20
	properties := gopter.NewProperties(params)

	properties.Property("closed adapter always fails ping", prop.ForAll(
		func() bool {
			a := &Adapter{closed: true}
			return a.Ping(context.Background()) != nil
		},
	))

	properties.TestingRun(t)
}
