// Package brain implements the assistant's conversation loop: a state
// machine fed by captured utterances that decides when to wake, what to ask
// the language model, which actions to run, and what to say back.
package brain

import "sync/atomic"

// State is the session state. The audio side reads it through [Holder] to
// decide whether a captured utterance should be handed over or dropped.
type State int32

const (
	StateIdle State = iota
	StateAwaitingWakeConfirm
	StateListening
	StateThinking
	StateActing
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitingWakeConfirm:
		return "AWAITING_WAKE_CONFIRM"
	case StateListening:
		return "LISTENING"
	case StateThinking:
		return "THINKING"
	case StateActing:
		return "ACTING"
	case StateSpeaking:
		return "SPEAKING"
	default:
		return "UNKNOWN"
	}
}

// Holder publishes the current state across goroutines.
type Holder struct {
	v atomic.Int32
}

// Load returns the current state.
func (h *Holder) Load() State {
	return State(h.v.Load())
}

// Store replaces the current state.
func (h *Holder) Store(s State) {
	h.v.Store(int32(s))
}
