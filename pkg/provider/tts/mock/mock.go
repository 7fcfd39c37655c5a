// Package mock provides a scripted TTS provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/tts"
)

// Compile-time assertion that Provider satisfies tts.Provider.
var _ tts.Provider = (*Provider)(nil)

// Provider returns a fixed WAV payload and records every synthesis request.
type Provider struct {
	// WAV is returned by every Synthesize call. Default: a tiny placeholder.
	WAV []byte

	// Err, when non-nil, is returned by every call.
	Err error

	mu    sync.Mutex
	texts []string
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	p.mu.Lock()
	p.texts = append(p.texts, text)
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	if p.WAV != nil {
		return p.WAV, nil
	}
	return []byte("RIFF"), nil
}

// Texts returns a copy of every synthesized text in order.
func (p *Provider) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.texts))
	copy(out, p.texts)
	return out
}
