// Package resilience guards calls to optional dependencies.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mealboard/marketplace/pkg/observability/logger"
)

// State is the position of a Breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a single probe through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned without calling the guarded function while the
// breaker is open.
var ErrOpen = errors.New("circuit breaker is open")

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the breaker. Values below 1 mean 1.
	MaxFailures int
	// Cooldown is how long the breaker stays open before a probe.
	Cooldown time.Duration
}

// Breaker counts consecutive failures of a dependency and stops calling it
// once MaxFailures is reached. After Cooldown one probe call decides whether
// it closes again.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	log         logger.Logger
	now         func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

func NewBreaker(cfg BreakerConfig, log logger.Logger) *Breaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 1
	}
	return &Breaker{
		name:        cfg.Name,
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		log:         log,
		now:         time.Now,
	}
}

// Execute calls fn unless the breaker is open. Errors for which ignore
// returns true count as successes; a cache miss is not an outage.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error, ignore ...func(error) bool) error {
	if !b.acquire() {
		return ErrOpen
	}
	err := fn(ctx)
	failed := err != nil
	for _, skip := range ignore {
		if failed && skip(err) {
			failed = false
		}
	}
	b.record(ctx, failed, err)
	return err
}

// State returns the current state, moving open to half-open when the
// cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

func (b *Breaker) acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()

	switch b.state {
	case StateOpen:
		return false
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
	}
	return true
}

func (b *Breaker) advance() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = StateHalfOpen
		b.probing = false
	}
}

func (b *Breaker) record(ctx context.Context, failed bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !failed {
		if b.state != StateClosed {
			b.log.WithContext(ctx).Info("circuit breaker closed", "breaker", b.name)
		}
		b.state = StateClosed
		b.failures = 0
		b.probing = false
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		if b.state != StateOpen {
			b.log.WithContext(ctx).Warn("circuit breaker opened", "breaker", b.name, "failures", b.failures, "error", err)
		}
		b.state = StateOpen
		b.openedAt = b.now()
		b.probing = false
	}
}
