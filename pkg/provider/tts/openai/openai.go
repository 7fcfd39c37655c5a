// Package openai implements speech synthesis backed by the OpenAI
// audio/speech endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/tts"
)

const (
	defaultModel = "gpt-4o-mini-tts"
	defaultVoice = "onyx"
)

// Compile-time assertion that Provider satisfies tts.Provider.
var _ tts.Provider = (*Provider)(nil)

// Provider synthesizes speech through the OpenAI API and returns WAV audio.
type Provider struct {
	client oai.Client
	model  string
	voice  string
}

// Option configures the provider.
type Option func(*settings)

type settings struct {
	model   string
	voice   string
	baseURL string
	timeout time.Duration
}

// WithModel overrides the default speech model.
func WithModel(model string) Option {
	return func(s *settings) { s.model = model }
}

// WithVoice overrides the default voice used when a request does not name one.
func WithVoice(voice string) Option {
	return func(s *settings) { s.voice = voice }
}

// WithBaseURL points the client at an alternative API endpoint.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// New creates a Provider. apiKey must not be empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai tts: API key is required")
	}

	s := settings{
		model:   defaultModel,
		voice:   defaultVoice,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&s)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(s.timeout),
	}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  s.model,
		voice:  s.voice,
	}, nil
}

// Synthesize implements tts.Provider. The returned bytes are a complete
// WAV container.
func (p *Provider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("openai tts: empty text")
	}
	if voice == "" {
		voice = p.voice
	}

	resp, err := p.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model:          oai.SpeechModel(p.model),
		Voice:          oai.AudioSpeechNewParamsVoice(voice),
		Input:          text,
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		return nil, fmt.Errorf("openai tts: speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai tts: unexpected status %d", resp.StatusCode)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai tts: read audio: %w", err)
	}
	if len(wav) == 0 {
		return nil, errors.New("openai tts: empty audio response")
	}
	return wav, nil
}
