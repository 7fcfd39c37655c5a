package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/resilience"
)

var errBoom = errors.New("boom")

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := resilience.NewBreaker(resilience.BreakerConfig{
		Name:      "test",
		TripAfter: 3,
		Cooldown:  time.Hour,
	})

	fail := func() error { return errBoom }
	for i := 0; i < 3; i++ {
		if err := b.Run(fail); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err=%v, want errBoom", i, err)
		}
	}

	if got := b.State(); got != resilience.BreakerOpen {
		t.Fatalf("state=%v, want open", got)
	}
	if err := b.Run(fail); !errors.Is(err, resilience.ErrBreakerOpen) {
		t.Errorf("err=%v, want ErrBreakerOpen", err)
	}
}

func TestBreaker_SuccessResetsStreak(t *testing.T) {
	t.Parallel()

	b := resilience.NewBreaker(resilience.BreakerConfig{
		Name:      "test",
		TripAfter: 2,
		Cooldown:  time.Hour,
	})

	_ = b.Run(func() error { return errBoom })
	_ = b.Run(func() error { return nil })
	_ = b.Run(func() error { return errBoom })

	if got := b.State(); got != resilience.BreakerClosed {
		t.Errorf("state=%v, want closed (streak was broken by a success)", got)
	}
}

func TestBreaker_ProbesAndCloses(t *testing.T) {
	t.Parallel()

	b := resilience.NewBreaker(resilience.BreakerConfig{
		Name:        "test",
		TripAfter:   1,
		Cooldown:    time.Nanosecond,
		ProbeBudget: 2,
	})

	_ = b.Run(func() error { return errBoom })
	time.Sleep(time.Millisecond)

	if got := b.State(); got != resilience.BreakerProbing {
		t.Fatalf("state after cooldown=%v, want probing", got)
	}
	for i := 0; i < 2; i++ {
		if err := b.Run(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}
	if got := b.State(); got != resilience.BreakerClosed {
		t.Errorf("state after probes=%v, want closed", got)
	}
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	t.Parallel()

	b := resilience.NewBreaker(resilience.BreakerConfig{
		Name:        "test",
		TripAfter:   1,
		Cooldown:    50 * time.Millisecond,
		ProbeBudget: 3,
	})

	_ = b.Run(func() error { return errBoom })
	time.Sleep(60 * time.Millisecond)

	_ = b.Run(func() error { return errBoom })
	if err := b.Run(func() error { return nil }); !errors.Is(err, resilience.ErrBreakerOpen) {
		// The breaker just re-opened so its cooldown restarts.
		t.Errorf("err=%v, want ErrBreakerOpen right after a failed probe", err)
	}
}

func TestBreaker_Reset(t *testing.T) {
	t.Parallel()

	b := resilience.NewBreaker(resilience.BreakerConfig{
		Name:      "test",
		TripAfter: 1,
		Cooldown:  time.Hour,
	})

	_ = b.Run(func() error { return errBoom })
	if got := b.State(); got != resilience.BreakerOpen {
		t.Fatalf("state=%v, want open", got)
	}

	b.Reset()
	if err := b.Run(func() error { return nil }); err != nil {
		t.Errorf("Run after Reset: %v", err)
	}
}
