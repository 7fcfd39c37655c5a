package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrChainExhausted is returned when every entry in a [Chain] fails or is
// behind an open breaker.
var ErrChainExhausted = errors.New("all providers in chain failed")

// ChainConfig configures the per-entry breaker a [Chain] creates for each
// provider.
type ChainConfig struct {
	Breaker BreakerConfig
}

type chainEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Chain walks an ordered list of same-typed providers: the primary first,
// then each fallback, skipping any whose breaker is open. It is safe for
// concurrent use once assembled.
type Chain[T any] struct {
	entries []chainEntry[T]
	cfg     ChainConfig
}

// NewChain creates a [Chain] with primary as the first entry.
func NewChain[T any](name string, primary T, cfg ChainConfig) *Chain[T] {
	c := &Chain[T]{cfg: cfg}
	c.Add(name, primary)
	return c
}

// Add appends a fallback provider. Entries are tried in insertion order.
func (c *Chain[T]) Add(name string, value T) {
	bcfg := c.cfg.Breaker
	bcfg.Name = name
	c.entries = append(c.entries, chainEntry[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(bcfg),
	})
}

// Len reports how many providers the chain holds.
func (c *Chain[T]) Len() int { return len(c.entries) }

// Do runs fn against each entry in order until one succeeds. Entries with
// an open breaker are skipped. When every entry fails, the returned error
// wraps [ErrChainExhausted] together with the last failure.
func (c *Chain[T]) Do(fn func(T) error) error {
	var lastErr error
	for i := range c.entries {
		entry := &c.entries[i]
		err := entry.breaker.Run(func() error {
			return fn(entry.value)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping provider, breaker open", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", entry.name, "error", err)
		}
	}
	return fmt.Errorf("%w: %v", ErrChainExhausted, lastErr)
}

// DoWithResult is [Chain.Do] for calls that produce a value. It is a
// package-level function because methods cannot introduce type parameters.
func DoWithResult[T, R any](c *Chain[T], fn func(T) (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	for i := range c.entries {
		entry := &c.entries[i]
		var result R
		err := entry.breaker.Run(func() error {
			var callErr error
			result, callErr = fn(entry.value)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping provider, breaker open", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", entry.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrChainExhausted, lastErr)
}
