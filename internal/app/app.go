// Package app wires all assistant subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the audio and conversation loops, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithSource, WithDispatcher). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/action"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/brain"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/config"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/console"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/output"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/resilience"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/wake"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio/player"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio/vad"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/eye"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/memory"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/llm"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/stt"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/tts"
)

// eventQueueDepth bounds the audio-to-brain hand-off. Utterances arriving
// while the brain is busy are dropped, not queued indefinitely.
const eventQueueDepth = 4

// Providers holds one interface value per provider slot. Populated by
// main.go via the config registry. TTSFallback and Eye may be nil.
type Providers struct {
	LLM         llm.Provider
	STT         stt.Provider
	TTS         tts.Provider
	TTSFallback tts.Provider
	Player      player.Player
	Eye         eye.Eye
	Memory      memory.Store
}

// App owns all subsystem lifetimes and runs the voice pipeline.
type App struct {
	cfg       *config.Config
	providers *Providers

	source   audio.Source
	detector *vad.Detector
	capture  *vad.Capture
	states   *brain.Holder
	brain    *brain.Brain
	out      *output.Coordinator
	actions  brain.Dispatcher
	hub      *console.Hub
	console  *console.Server
	events   chan brain.Event

	// closers are called in reverse order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSource injects a frame source instead of opening the ALSA device.
func WithSource(s audio.Source) Option {
	return func(a *App) { a.source = s }
}

// WithDispatcher injects an action dispatcher instead of building one from
// config.
func WithDispatcher(d brain.Dispatcher) Option {
	return func(a *App) { a.actions = d }
}

// New creates an App by wiring all subsystems together. The providers
// struct comes from main.go (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		return nil, errors.New("app: providers are required")
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
		states:    &brain.Holder{},
		events:    make(chan brain.Event, eventQueueDepth),
		hub:       console.NewHub(),
	}
	for _, o := range opts {
		o(a)
	}

	if providers.Eye == nil {
		providers.Eye = &eye.Log{}
	}

	if err := a.initAudio(); err != nil {
		return nil, fmt.Errorf("app: init audio: %w", err)
	}
	if err := a.initActions(ctx); err != nil {
		return nil, fmt.Errorf("app: init actions: %w", err)
	}
	if err := a.initOutput(); err != nil {
		return nil, fmt.Errorf("app: init output: %w", err)
	}
	if err := a.initBrain(); err != nil {
		return nil, fmt.Errorf("app: init brain: %w", err)
	}
	a.initConsole()

	return a, nil
}

// initAudio opens the capture device and builds the activity detector and
// utterance capture from config.
func (a *App) initAudio() error {
	if a.source == nil {
		src, err := audio.NewALSASource(audio.SourceConfig{
			Device:        a.cfg.Audio.Device,
			SampleRate:    a.cfg.Audio.SampleRate,
			FrameDuration: a.cfg.Audio.FrameDuration.Std(),
		})
		if err != nil {
			return err
		}
		a.source = src
		a.closers = append(a.closers, src.Close)
	}

	a.detector = vad.NewDetector(vad.DetectorConfig{
		ThresholdMultiplier: a.cfg.Audio.ThresholdMultiplier,
		FloorAlpha:          a.cfg.Audio.FloorAlpha,
	})
	a.capture = vad.NewCapture(vad.CaptureConfig{
		TrailingSilence: a.cfg.Audio.TrailingSilence.Std(),
		MaxDuration:     a.cfg.Audio.MaxUtterance.Std(),
		IdleTimeout:     a.cfg.Audio.IdleTimeout.Std(),
	})
	return nil
}

// initActions builds the dispatcher, registers built-in actions, and
// connects MCP tool servers.
func (a *App) initActions(ctx context.Context) error {
	if a.actions != nil {
		return nil
	}

	var dopts []action.Option
	if d := a.cfg.Actions.Timeout.Std(); d > 0 {
		dopts = append(dopts, action.WithTimeout(d))
	}
	d := action.NewDispatcher(dopts...)

	bc := action.BuiltinConfig{
		SourceDir:     a.cfg.Actions.SourceDir,
		CameraCommand: a.cfg.Actions.CameraCommand,
		MixerControl:  a.cfg.Actions.MixerControl,
	}
	if vision, ok := a.providers.LLM.(llm.VisionDescriber); ok {
		bc.Vision = vision
	}
	if err := action.RegisterBuiltins(d, bc); err != nil {
		return err
	}

	if len(a.cfg.Actions.MCP) > 0 {
		servers := make([]action.MCPServer, 0, len(a.cfg.Actions.MCP))
		for _, srv := range a.cfg.Actions.MCP {
			servers = append(servers, srv.Action())
		}
		closers, err := action.RegisterMCP(ctx, d, servers)
		a.closers = append(a.closers, closers...)
		if err != nil {
			return err
		}
	}

	a.actions = d
	return nil
}

// initOutput builds the synthesizer chain and the output coordinator.
func (a *App) initOutput() error {
	chain := resilience.NewChain[tts.Provider]("tts", a.providers.TTS, resilience.ChainConfig{
		Breaker: resilience.BreakerConfig{Name: a.cfg.Providers.TTS.Name},
	})
	if a.providers.TTSFallback != nil {
		chain.Add(a.cfg.Providers.TTSFallback.Name, a.providers.TTSFallback)
	}

	out, err := output.New(chain, a.providers.Player, a.providers.Eye, output.Config{
		Voice:          a.cfg.Assistant.Voice,
		MaxSpeechChars: a.cfg.Assistant.MaxSpeechChars,
	})
	if err != nil {
		return err
	}
	a.out = out
	return nil
}

// initBrain assembles the conversation loop and feeds its transitions to
// the console stream.
func (a *App) initBrain() error {
	gate := wake.New(
		wake.WithPhrases(a.cfg.Wake.Phrases),
		wake.WithShutdownPhrases(a.cfg.Wake.ShutdownPhrases),
		wake.WithPhoneticThreshold(a.cfg.Wake.PhoneticThreshold),
		wake.WithFuzzyThreshold(a.cfg.Wake.FuzzyThreshold),
	)

	b, err := brain.New(brain.Config{
		AssistantName:   a.cfg.Assistant.Name,
		Persona:         a.cfg.Assistant.Persona,
		Apology:         a.cfg.Assistant.Apology,
		ConfirmPrompt:   a.cfg.Assistant.ConfirmPrompt,
		Goodbye:         a.cfg.Assistant.Goodbye,
		MaxHistoryTurns: a.cfg.Assistant.MaxHistoryTurns,
		BackendTimeout:  a.cfg.Assistant.BackendTimeout.Std(),
	}, brain.Deps{
		STT:     &transcriptTap{inner: a.providers.STT, hub: a.hub},
		LLM:     a.providers.LLM,
		Gate:    gate,
		Memory:  a.providers.Memory,
		Output:  &speechTap{inner: a.out, hub: a.hub},
		Actions: a.actions,
		States:  a.states,
		OnTransition: func(from, to brain.State, cause string) {
			a.hub.Publish(console.Event{
				Kind:  console.KindTransition,
				From:  from.String(),
				To:    to.String(),
				Cause: cause,
			})
		},
	})
	if err != nil {
		return err
	}
	a.brain = b
	return nil
}

// initConsole builds the console server when a listen address is set.
func (a *App) initConsole() {
	if a.cfg.Server.ListenAddr == "" {
		return
	}
	a.console = console.New(a.cfg.Server.ListenAddr, a.hub,
		console.Check{Name: "memory", Probe: func(ctx context.Context) error {
			_, err := a.providers.Memory.Recall(ctx)
			return err
		}},
	)
}

// Run starts the audio loop, the conversation loop, and the console server,
// and blocks until ctx is cancelled or a loop fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.audioLoop(gctx) })
	g.Go(func() error { return a.brain.Run(gctx, a.events) })
	if a.console != nil {
		g.Go(func() error { return a.console.Run(gctx) })
	}

	slog.Info("assistant running",
		"name", a.cfg.Assistant.Name,
		"console", a.cfg.Server.ListenAddr,
	)

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown stops playback and tears down subsystems in reverse-init order.
// It respects the context deadline: if ctx expires before all closers
// finish, the remaining closers are skipped.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.out.Stop()

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// State reports the current conversation state.
func (a *App) State() brain.State { return a.states.Load() }

// Hub exposes the console event hub, e.g. for additional publishers.
func (a *App) Hub() *console.Hub { return a.hub }

// transcriptTap publishes every transcript to the console stream.
type transcriptTap struct {
	inner stt.Provider
	hub   *console.Hub
}

func (t *transcriptTap) Transcribe(ctx context.Context, clip stt.Clip) (string, error) {
	text, err := t.inner.Transcribe(ctx, clip)
	if err == nil && text != "" {
		t.hub.Publish(console.Event{Kind: console.KindTranscript, Text: text})
	}
	return text, err
}

// speechTap publishes every spoken reply to the console stream.
type speechTap struct {
	inner brain.Output
	hub   *console.Hub
}

func (t *speechTap) Speak(ctx context.Context, text string) error {
	t.hub.Publish(console.Event{Kind: console.KindSpeech, Text: text})
	return t.inner.Speak(ctx, text)
}

func (t *speechTap) PlayWakeTone(ctx context.Context) error { return t.inner.PlayWakeTone(ctx) }

func (t *speechTap) SetEyeMode(m eye.Mode) { t.inner.SetEyeMode(m) }
