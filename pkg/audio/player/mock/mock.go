// Package mock provides an in-memory Player for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio/player"
)

// Compile-time assertion that Player satisfies player.Player.
var _ player.Player = (*Player)(nil)

// Player records every WAV asset it is asked to play. An optional Delay
// simulates playback time so tests can observe the blocking window.
type Player struct {
	// Delay is how long each Play call blocks. Zero returns immediately.
	Delay time.Duration

	// Err, when non-nil, is returned by every Play call.
	Err error

	mu      sync.Mutex
	played  [][]byte
	stopped int
}

// Play implements player.Player.
func (p *Player) Play(ctx context.Context, wav []byte) error {
	p.mu.Lock()
	cp := make([]byte, len(wav))
	copy(cp, wav)
	p.played = append(p.played, cp)
	p.mu.Unlock()

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.Err
}

// Stop implements player.Player.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped++
}

// Played returns a copy of all WAV assets played so far.
func (p *Player) Played() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.played))
	copy(out, p.played)
	return out
}

// Stopped returns how many times Stop was called.
func (p *Player) Stopped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}
