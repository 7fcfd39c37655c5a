// Package player provides the playback device abstraction used by the output
// coordinator: play a WAV asset and block until it finishes, or stop it.
package player

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// Player is the playback device interface. Play blocks until playback
// completes or ctx is cancelled; Stop aborts any in-flight playback.
type Player interface {
	Play(ctx context.Context, wav []byte) error
	Stop()
}

// Compile-time assertion that APlay satisfies Player.
var _ Player = (*APlay)(nil)

// APlay plays WAV audio through the ALSA aplay binary. One playback runs at
// a time; the output coordinator serializes callers.
type APlay struct {
	device string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewAPlay creates an APlay writing to the given ALSA device. Empty device
// means the system default. Returns an error if aplay is not installed.
func NewAPlay(device string) (*APlay, error) {
	if _, err := exec.LookPath("aplay"); err != nil {
		return nil, fmt.Errorf("player: aplay not found in PATH: %w", err)
	}
	return &APlay{device: device}, nil
}

// Play implements Player. It feeds the WAV bytes to aplay over stdin and
// waits for the process to exit.
func (p *APlay) Play(ctx context.Context, wav []byte) error {
	args := []string{"-q"}
	if p.device != "" {
		args = append(args, "-D", p.device)
	}

	cmd := exec.CommandContext(ctx, "aplay", args...)
	cmd.Stdin = bytes.NewReader(wav)

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.cmd = nil
		p.mu.Unlock()
	}()

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("player: aplay: %w", err)
	}
	return nil
}

// Stop implements Player. It kills the running aplay process, if any.
// The corresponding Play call returns with the process error.
func (p *APlay) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}
