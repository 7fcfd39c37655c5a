package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/resilience"
)

type speaker struct {
	name string
	err  error
}

func TestChain_PrimaryWins(t *testing.T) {
	t.Parallel()

	c := resilience.NewChain("primary", &speaker{name: "primary"}, resilience.ChainConfig{})
	c.Add("fallback", &speaker{name: "fallback"})

	var used string
	err := c.Do(func(s *speaker) error {
		used = s.name
		return s.err
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if used != "primary" {
		t.Errorf("used=%q, want primary", used)
	}
}

func TestChain_FallsBackOnFailure(t *testing.T) {
	t.Parallel()

	c := resilience.NewChain("primary", &speaker{name: "primary", err: errBoom}, resilience.ChainConfig{})
	c.Add("fallback", &speaker{name: "fallback"})

	var attempts []string
	err := c.Do(func(s *speaker) error {
		attempts = append(attempts, s.name)
		return s.err
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(attempts) != 2 || attempts[1] != "fallback" {
		t.Errorf("attempts=%v, want [primary fallback]", attempts)
	}
}

func TestChain_AllFail(t *testing.T) {
	t.Parallel()

	c := resilience.NewChain("primary", &speaker{err: errBoom}, resilience.ChainConfig{})
	c.Add("fallback", &speaker{err: errBoom})

	err := c.Do(func(s *speaker) error { return s.err })
	if !errors.Is(err, resilience.ErrChainExhausted) {
		t.Errorf("err=%v, want ErrChainExhausted", err)
	}
}

func TestChain_SkipsOpenBreaker(t *testing.T) {
	t.Parallel()

	c := resilience.NewChain("primary", &speaker{name: "primary", err: errBoom}, resilience.ChainConfig{
		Breaker: resilience.BreakerConfig{TripAfter: 1, Cooldown: time.Hour},
	})
	c.Add("fallback", &speaker{name: "fallback"})

	// Trip the primary's breaker.
	if err := c.Do(func(s *speaker) error { return s.err }); err != nil {
		t.Fatalf("first Do: %v", err)
	}

	var attempts []string
	err := c.Do(func(s *speaker) error {
		attempts = append(attempts, s.name)
		return s.err
	})
	if err != nil {
		t.Fatalf("second Do: %v", err)
	}
	if len(attempts) != 1 || attempts[0] != "fallback" {
		t.Errorf("attempts=%v, want [fallback] only", attempts)
	}
}

func TestDoWithResult(t *testing.T) {
	t.Parallel()

	c := resilience.NewChain("primary", &speaker{err: errBoom}, resilience.ChainConfig{})
	c.Add("fallback", &speaker{name: "fallback"})

	got, err := resilience.DoWithResult(c, func(s *speaker) (string, error) {
		return s.name, s.err
	})
	if err != nil {
		t.Fatalf("DoWithResult: %v", err)
	}
	if got != "fallback" {
		t.Errorf("result=%q, want fallback", got)
	}
}

func TestDoWithResult_Exhausted(t *testing.T) {
	t.Parallel()

	c := resilience.NewChain("only", &speaker{err: errBoom}, resilience.ChainConfig{})
	got, err := resilience.DoWithResult(c, func(s *speaker) (string, error) {
		return "value", s.err
	})
	if !errors.Is(err, resilience.ErrChainExhausted) {
		t.Fatalf("err=%v, want ErrChainExhausted", err)
	}
	if got != "" {
		t.Errorf("result=%q, want zero value", got)
	}
}
