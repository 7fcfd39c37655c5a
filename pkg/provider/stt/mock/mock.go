// Package mock provides a scripted STT provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/stt"
)

// Compile-time assertion that Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider returns scripted transcripts in order. Once the script runs out
// it returns "" (the no-speech signal).
type Provider struct {
	// Transcripts is the script, consumed front to back.
	Transcripts []string

	// Err, when non-nil, is returned by every call.
	Err error

	mu    sync.Mutex
	clips []stt.Clip
	next  int
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(_ context.Context, clip stt.Clip) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clips = append(p.clips, clip)

	if p.Err != nil {
		return "", p.Err
	}
	if p.next < len(p.Transcripts) {
		text := p.Transcripts[p.next]
		p.next++
		return text, nil
	}
	return "", nil
}

// Clips returns a copy of every clip received so far.
func (p *Provider) Clips() []stt.Clip {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]stt.Clip, len(p.clips))
	copy(out, p.clips)
	return out
}
