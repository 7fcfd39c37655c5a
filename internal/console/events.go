// Package console serves the assistant's operational surface: liveness and
// readiness probes, the Prometheus scrape endpoint, and a websocket stream
// of session events for a monitoring UI.
package console

import (
	"sync"
	"time"
)

// subscriberBuffer is each subscriber's queue depth. A subscriber that
// cannot keep up loses events rather than stalling the brain.
const subscriberBuffer = 16

// Event is one entry on the console stream.
type Event struct {
	Time  time.Time `json:"time"`
	Kind  string    `json:"kind"`
	From  string    `json:"from,omitempty"`
	To    string    `json:"to,omitempty"`
	Cause string    `json:"cause,omitempty"`
	Text  string    `json:"text,omitempty"`
}

// Event kinds.
const (
	KindTransition = "transition"
	KindTranscript = "transcript"
	KindSpeech     = "speech"
)

// Hub fans events out to websocket subscribers. Publishing never blocks.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel function must
// be called exactly once; it closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber with room in its queue.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop rather than block the publisher.
		}
	}
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
