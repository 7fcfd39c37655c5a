// Package output owns everything the assistant emits: synthesized speech,
// the wake chime, and eye mode changes. Speech is serialized so two replies
// never overlap, and the audio capture side polls [Coordinator.Suppressed]
// to avoid transcribing the assistant's own voice.
package output

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/observe"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/resilience"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio/player"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/eye"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/tts"
)

const (
	defaultMaxSpeechChars = 500

	wakeToneFreq     = 880.0
	wakeToneDuration = 150 * time.Millisecond
	wakeToneRate     = 16000
)

// Config tunes a [Coordinator].
type Config struct {
	// Voice is passed to the synthesizer. Empty uses the provider default.
	Voice string

	// MaxSpeechChars truncates replies before synthesis so a runaway model
	// response cannot monopolize the speaker. Default 500.
	MaxSpeechChars int
}

// Coordinator drives the speaker and the eye.
type Coordinator struct {
	synths *resilience.Chain[tts.Provider]
	player player.Player
	eye    eye.Eye

	voice    string
	maxChars int
	wakeWAV  []byte

	// speakMu serializes speech; speaking is the capture-suppression flag
	// readable without the lock.
	speakMu  sync.Mutex
	speaking atomic.Bool
}

// New assembles a Coordinator. synths must hold at least one provider.
func New(synths *resilience.Chain[tts.Provider], p player.Player, e eye.Eye, cfg Config) (*Coordinator, error) {
	if synths == nil || synths.Len() == 0 {
		return nil, fmt.Errorf("output: at least one synthesizer is required")
	}
	if p == nil {
		return nil, fmt.Errorf("output: player is required")
	}
	if e == nil {
		e = &eye.Log{}
	}

	maxChars := cfg.MaxSpeechChars
	if maxChars <= 0 {
		maxChars = defaultMaxSpeechChars
	}

	return &Coordinator{
		synths:   synths,
		player:   p,
		eye:      e,
		voice:    cfg.Voice,
		maxChars: maxChars,
		wakeWAV:  audio.EncodeWAV(audio.Tone(wakeToneFreq, wakeToneDuration, wakeToneRate), wakeToneRate, 1),
	}, nil
}

// Speak synthesizes text and blocks until playback finishes. Capture
// suppression is active for the whole window, including synthesis, so the
// microphone never hears the start of playback.
func (c *Coordinator) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	text = truncate(text, c.maxChars)

	c.speakMu.Lock()
	defer c.speakMu.Unlock()
	c.speaking.Store(true)
	defer c.speaking.Store(false)

	c.eye.SetMode(eye.ModeSpeaking)

	start := time.Now()
	wav, err := resilience.DoWithResult(c.synths, func(p tts.Provider) ([]byte, error) {
		return p.Synthesize(ctx, text, c.voice)
	})
	observe.DefaultMetrics().SynthesisDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		observe.DefaultMetrics().RecordProviderError(ctx, "chain", "tts")
		return fmt.Errorf("output: synthesize: %w", err)
	}

	if err := c.player.Play(ctx, wav); err != nil {
		return fmt.Errorf("output: play: %w", err)
	}
	return nil
}

// PlayWakeTone plays the short acknowledgement chime. The tone is built once
// at construction, so this never fails on synthesis.
func (c *Coordinator) PlayWakeTone(ctx context.Context) error {
	c.speakMu.Lock()
	defer c.speakMu.Unlock()
	c.speaking.Store(true)
	defer c.speaking.Store(false)

	if err := c.player.Play(ctx, c.wakeWAV); err != nil {
		return fmt.Errorf("output: wake tone: %w", err)
	}
	return nil
}

// Suppressed reports whether the assistant is currently producing sound and
// capture should discard frames.
func (c *Coordinator) Suppressed() bool {
	return c.speaking.Load()
}

// SetEyeMode forwards a mode change to the eye. It never blocks.
func (c *Coordinator) SetEyeMode(m eye.Mode) {
	c.eye.SetMode(m)
}

// Stop aborts any in-flight playback.
func (c *Coordinator) Stop() {
	c.player.Stop()
}

// truncate cuts s to at most max runes.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
