package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/brain"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/observe"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio/vad"
)

// audioLoop drains the frame source, classifies frames, and hands finished
// utterances to the brain. It is the only goroutine touching the detector
// and capture.
func (a *App) audioLoop(ctx context.Context) error {
	frames := a.source.Frames()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				if err := a.source.Err(); err != nil {
					return fmt.Errorf("app: audio source failed: %w", err)
				}
				return nil
			}

			// The assistant must not hear itself. Frames captured while
			// speech is playing are discarded, and any partial capture is
			// thrown away.
			if a.out.Suppressed() {
				a.capture.Reset()
				continue
			}

			class := a.detector.Classify(frame)
			utt, ev := a.capture.Feed(frame, class)

			switch ev {
			case vad.EventDone:
				a.handOff(ctx, brain.Event{Kind: brain.EventUtterance, Utterance: *utt})
			case vad.EventAbandoned:
				if a.states.Load() != brain.StateIdle {
					a.handOff(ctx, brain.Event{Kind: brain.EventIdleTimeout})
				}
			}
		}
	}
}

// handOff delivers an event to the brain without ever blocking the audio
// loop. When the queue is full the event is dropped and counted.
func (a *App) handOff(ctx context.Context, ev brain.Event) {
	state := a.states.Load()
	if ev.Kind == brain.EventUtterance {
		switch state {
		case brain.StateThinking, brain.StateActing, brain.StateSpeaking:
			slog.Debug("dropping utterance, brain busy", "state", state)
			observe.DefaultMetrics().DroppedEvents.Add(ctx, 1)
			return
		}
	}

	select {
	case a.events <- ev:
	default:
		slog.Warn("dropping event, hand-off queue full", "kind", ev.Kind, "state", state)
		observe.DefaultMetrics().DroppedEvents.Add(ctx, 1)
	}
}
