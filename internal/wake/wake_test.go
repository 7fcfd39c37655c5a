package wake_test

import (
	"testing"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/wake"
)

func TestGate_Check(t *testing.T) {
	t.Parallel()

	g := wake.New(wake.WithPhrases([]string{"cade", "kade", "kate", "k4"}))

	tests := []struct {
		transcript string
		want       bool
	}{
		{"cade", true},
		{"hey cade", true},
		{"cade what time is it", true},
		{"okay cade turn the volume up", true},
		{"hey kate", true}, // phonetic near-miss for "cade"
		{"CADE!", true},
		{"k4 are you awake", true},
		{"hey kyle", false},
		{"what time is it", false},
		{"", false},
		{"the cascade effect", false}, // embedded, not a standalone token
	}
	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			t.Parallel()
			_, got := g.Check(tt.transcript)
			if got != tt.want {
				t.Errorf("Check(%q)=%v, want %v", tt.transcript, got, tt.want)
			}
		})
	}
}

func TestGate_Strip(t *testing.T) {
	t.Parallel()

	g := wake.New(wake.WithPhrases([]string{"cade"}))

	tests := []struct {
		transcript string
		want       string
	}{
		{"cade what time is it", "what time is it"},
		{"hey cade what time is it", "what time is it"},
		{"cade", ""},
		{"hey cade", ""},
	}
	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			t.Parallel()
			if got := g.Strip(tt.transcript); got != tt.want {
				t.Errorf("Strip(%q)=%q, want %q", tt.transcript, got, tt.want)
			}
		})
	}
}

func TestGate_IsShutdown(t *testing.T) {
	t.Parallel()

	g := wake.New()

	tests := []struct {
		transcript string
		want       bool
	}{
		{"go to sleep", true},
		{"okay go to sleep now", true},
		{"goodbye", true},
		{"stand by", true},
		{"shutdown", true},
		{"what's the weather", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			t.Parallel()
			if got := g.IsShutdown(tt.transcript); got != tt.want {
				t.Errorf("IsShutdown(%q)=%v, want %v", tt.transcript, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Hey, Cade!", "hey cade"},
		{"  WHAT'S   up  ", "what s up"},
		{"K4-D3", "k4 d3"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := wake.Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGate_CustomThresholds(t *testing.T) {
	t.Parallel()

	// A maximal phonetic threshold disables near-miss tolerance entirely.
	strict := wake.New(
		wake.WithPhrases([]string{"cade"}),
		wake.WithPhoneticThreshold(0.99),
		wake.WithFuzzyThreshold(0.99),
	)
	if _, ok := strict.Check("hey kate"); ok {
		t.Error("strict gate matched a phonetic near-miss")
	}
	if _, ok := strict.Check("hey cade"); !ok {
		t.Error("strict gate rejected an exact match")
	}
}
