// Package resilience provides the failure-isolation primitives used around
// external providers: a three-state circuit breaker and a provider chain
// that walks past unhealthy entries.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Run] while the breaker is open and
// the cooldown has not yet elapsed.
var ErrBreakerOpen = errors.New("breaker is open")

// BreakerState is the operating mode of a [Breaker].
type BreakerState int

const (
	// BreakerClosed forwards every call.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects calls with [ErrBreakerOpen] until the cooldown
	// elapses.
	BreakerOpen

	// BreakerProbing admits a bounded number of trial calls after the
	// cooldown. Enough successes close the breaker, one failure re-opens it.
	BreakerProbing
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerProbing:
		return "probing"
	default:
		return "unknown"
	}
}

// BreakerConfig holds the tuning knobs for a [Breaker]. Zero values are
// replaced with defaults by [NewBreaker].
type BreakerConfig struct {
	// Name labels the breaker in log output.
	Name string

	// TripAfter is the consecutive failure count that opens the breaker.
	// Default: 5.
	TripAfter int

	// Cooldown is how long the breaker stays open before probing.
	// Default: 30s.
	Cooldown time.Duration

	// ProbeBudget is how many trial calls the probing state admits.
	// Default: 3.
	ProbeBudget int
}

// Breaker is a three-state circuit breaker. A run of failures opens it;
// after the cooldown it admits a few probe calls and closes again once they
// all succeed.
type Breaker struct {
	name        string
	tripAfter   int
	cooldown    time.Duration
	probeBudget int

	mu          sync.Mutex
	state       BreakerState
	failStreak  int
	openedAt    time.Time
	probesUsed  int
	probeFailed bool
}

// NewBreaker creates a closed [Breaker] from cfg.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.ProbeBudget <= 0 {
		cfg.ProbeBudget = 3
	}
	return &Breaker{
		name:        cfg.Name,
		tripAfter:   cfg.TripAfter,
		cooldown:    cfg.Cooldown,
		probeBudget: cfg.ProbeBudget,
	}
}

// Run executes fn unless the breaker rejects the call. The returned error is
// either [ErrBreakerOpen] or whatever fn returned.
func (b *Breaker) Run(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case BreakerOpen:
		if time.Since(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.state = BreakerProbing
		b.probesUsed = 0
		b.probeFailed = false
		slog.Info("breaker probing", "name", b.name)

	case BreakerProbing:
		if b.probesUsed >= b.probeBudget {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
	}

	probing := b.state == BreakerProbing
	if probing {
		b.probesUsed++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probing)
	} else {
		b.onSuccess(probing)
	}
	return err
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure(probing bool) {
	b.openedAt = time.Now()

	if probing {
		b.probeFailed = true
		b.state = BreakerOpen
		b.failStreak = b.tripAfter
		slog.Warn("breaker re-opened during probe", "name", b.name)
		return
	}

	b.failStreak++
	if b.failStreak >= b.tripAfter {
		b.state = BreakerOpen
		slog.Warn("breaker opened", "name", b.name, "fail_streak", b.failStreak)
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess(probing bool) {
	if probing {
		if !b.probeFailed && b.probesUsed >= b.probeBudget {
			b.state = BreakerClosed
			b.failStreak = 0
			b.probesUsed = 0
			slog.Info("breaker closed after probes", "name", b.name)
		}
		return
	}
	b.failStreak = 0
}

// State reports the breaker state. An open breaker whose cooldown has
// elapsed is reported as probing; the actual transition happens on the next
// [Breaker.Run].
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.cooldown {
		return BreakerProbing
	}
	return b.state
}

// Reset forces the breaker back to closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failStreak = 0
	b.probesUsed = 0
	b.probeFailed = false
	slog.Info("breaker reset", "name", b.name)
}
