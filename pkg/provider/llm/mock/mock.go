// Package mock provides a scripted LLM provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/llm"
)

// Compile-time assertions.
var (
	_ llm.Provider        = (*Provider)(nil)
	_ llm.VisionDescriber = (*Provider)(nil)
)

// Provider returns scripted responses in order. When the script is
// exhausted it returns the Fallback response. A nil CompleteFunc uses the
// script; setting CompleteFunc overrides everything.
type Provider struct {
	// Responses is the script, consumed front to back.
	Responses []string

	// Fallback is returned once Responses runs out. Default: "".
	Fallback string

	// Err, when non-nil, is returned by every call.
	Err error

	// CompleteFunc, when set, handles calls directly. Useful for simulating
	// timeouts.
	CompleteFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

	// SceneDescription is returned by DescribeImage.
	SceneDescription string

	mu       sync.Mutex
	requests []llm.Request
	next     int
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.CompleteFunc != nil {
		return p.CompleteFunc(ctx, req)
	}
	if p.Err != nil {
		return nil, p.Err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.next < len(p.Responses) {
		content := p.Responses[p.next]
		p.next++
		return &llm.Response{Content: content}, nil
	}
	return &llm.Response{Content: p.Fallback}, nil
}

// DescribeImage implements llm.VisionDescriber.
func (p *Provider) DescribeImage(_ context.Context, _ string, _ []byte) (string, error) {
	if p.Err != nil {
		return "", p.Err
	}
	return p.SceneDescription, nil
}

// Requests returns a copy of every request received so far.
func (p *Provider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.Request, len(p.requests))
	copy(out, p.requests)
	return out
}
