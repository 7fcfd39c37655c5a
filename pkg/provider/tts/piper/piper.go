// Package piper implements speech synthesis via the local piper CLI.
// It is fully offline and serves as the fallback voice when the network
// synthesizer is unavailable.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/tts"
)

// Compile-time assertion that Provider satisfies tts.Provider.
var _ tts.Provider = (*Provider)(nil)

// Provider shells out to piper with text on stdin and reads the WAV from
// stdout. Each Synthesize call spawns a fresh process.
type Provider struct {
	binary    string
	modelPath string
}

// Option configures the provider.
type Option func(*Provider)

// WithBinary overrides the piper executable name or path.
func WithBinary(path string) Option {
	return func(p *Provider) { p.binary = path }
}

// New creates a Provider for the given voice model (.onnx file). The piper
// binary must be resolvable in PATH at construction time.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("piper: voice model path is required")
	}

	p := &Provider{binary: "piper", modelPath: modelPath}
	for _, opt := range opts {
		opt(p)
	}

	if _, err := exec.LookPath(p.binary); err != nil {
		return nil, fmt.Errorf("piper: binary not found: %w", err)
	}
	return p, nil
}

// Synthesize implements tts.Provider. The voice argument is ignored; piper
// voices are baked into the model file.
func (p *Provider) Synthesize(ctx context.Context, text, _ string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("piper: empty text")
	}

	var out bytes.Buffer
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, p.binary, "--model", p.modelPath, "--output_file", "-")
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("piper: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("piper: %w", err)
	}

	if out.Len() == 0 {
		return nil, errors.New("piper: no audio produced")
	}
	return out.Bytes(), nil
}
