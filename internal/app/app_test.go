package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/app"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/brain"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/config"
	audiomock "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio/mock"
	playermock "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio/player/mock"
	eyemock "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/eye/mock"
	memorymock "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/memory/mock"
	llmmock "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/llm/mock"
	sttmock "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/stt/mock"
	ttsmock "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/tts/mock"
)

const testFrameDur = 30 * time.Millisecond

var errBoom = errors.New("boom")

func testConfig() *config.Config {
	return &config.Config{
		Audio: config.AudioConfig{
			SampleRate:      16000,
			FrameDuration:   config.Duration(testFrameDur),
			TrailingSilence: config.Duration(60 * time.Millisecond),
			MaxUtterance:    config.Duration(2 * time.Second),
		},
		Assistant: config.AssistantConfig{
			Name:           "Cade",
			Persona:        "You are Cade, a small desk droid.",
			BackendTimeout: config.Duration(time.Second),
		},
	}
}

type fixture struct {
	app    *app.App
	source *audiomock.Source
	stt    *sttmock.Provider
	llm    *llmmock.Provider
	player *playermock.Player
	eye    *eyemock.Eye
	mem    *memorymock.Store
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()

	f := &fixture{
		source: audiomock.New(256),
		stt:    &sttmock.Provider{},
		llm:    &llmmock.Provider{},
		player: &playermock.Player{},
		eye:    &eyemock.Eye{},
		mem:    &memorymock.Store{},
	}

	a, err := app.New(context.Background(), cfg, &app.Providers{
		LLM:    f.llm,
		STT:    f.stt,
		TTS:    &ttsmock.Provider{},
		Player: f.player,
		Eye:    f.eye,
		Memory: f.mem,
	}, app.WithSource(f.source))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.app = a
	return f
}

// pushUtterance feeds loud frames followed by enough silence to close the
// capture window.
func (f *fixture) pushUtterance() {
	for i := 0; i < 5; i++ {
		f.source.Push(audiomock.Frame(uint64(i), 8000, testFrameDur, 16000))
	}
	for i := 5; i < 10; i++ {
		f.source.Push(audiomock.Frame(uint64(i), 0, testFrameDur, 16000))
	}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRun_FullTurn(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testConfig())
	f.stt.Transcripts = []string{"cade what time is it"}
	f.llm.Responses = []string{"MODE:CHAT\nIt's noon."}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.app.Run(ctx) }()

	f.pushUtterance()

	// Wake tone plus the synthesized reply.
	waitFor(t, func() bool { return len(f.player.Played()) >= 2 }, "playback")
	waitFor(t, func() bool { return f.app.State() == brain.StateListening }, "listening state")

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}

	if got := len(f.llm.Requests()); got != 1 {
		t.Errorf("llm requests = %d, want 1", got)
	}
}

func TestRun_NoWakeStaysIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testConfig())
	f.stt.Transcripts = []string{"just talking to myself"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.app.Run(ctx) }()

	f.pushUtterance()

	// The utterance must be transcribed and then discarded.
	waitFor(t, func() bool { return len(f.stt.Clips()) == 1 }, "transcription")
	time.Sleep(50 * time.Millisecond)

	if got := f.app.State(); got != brain.StateIdle {
		t.Errorf("state = %v, want IDLE", got)
	}
	if got := len(f.player.Played()); got != 0 {
		t.Errorf("played %d clips, want none", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}

func TestRun_SourceFailureStopsApp(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testConfig())

	done := make(chan error, 1)
	go func() { done <- f.app.Run(context.Background()) }()

	f.source.SetErr(errBoom)
	f.source.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Run returned nil after source failure")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after source failure")
	}
}

func TestNew_RequiresProviders(t *testing.T) {
	t.Parallel()

	_, err := app.New(context.Background(), testConfig(), nil)
	if err == nil {
		t.Fatal("expected error for nil providers, got nil")
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := f.app.Shutdown(ctx); err != nil {
		t.Errorf("first Shutdown: %v", err)
	}
	if err := f.app.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
	if f.player.Stopped() == 0 {
		t.Error("Shutdown did not stop playback")
	}
}
