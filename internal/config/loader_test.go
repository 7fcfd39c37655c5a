package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/config"
)

const minimalYAML = `
providers:
  llm:
    name: openai
    model: gpt-4o-mini
  stt:
    name: whisper
    base_url: http://localhost:8080
  tts:
    name: openai
`

func TestLoadFromReader_Minimal(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm model = %q, want gpt-4o-mini", cfg.Providers.LLM.Model)
	}
}

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8090"
  log_level: debug
audio:
  device: "plughw:1,0"
  sample_rate: 16000
  frame_duration: 30ms
  trailing_silence: 800ms
  max_utterance: 30s
  idle_timeout: 20s
wake:
  phrases: ["cade", "kate"]
  phonetic_threshold: 0.6
  fuzzy_threshold: 0.85
assistant:
  name: Cade
  persona: A small desk droid.
  backend_timeout: 30s
  max_speech_chars: 500
  voice: onyx
providers:
  llm:
    name: openai
  stt:
    name: whisper-native
    model: /models/ggml-base.en.bin
  tts:
    name: openai
  tts_fallback:
    name: piper
    model: /models/en_US-lessac-medium.onnx
memory:
  file_path: /var/lib/cade/memory.json
actions:
  timeout: 10s
  mixer_control: Master
  mcp:
    - name: files
      transport: stdio
      command: "mcp-files --root /home"
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Audio.TrailingSilence.Std(); got != 800*time.Millisecond {
		t.Errorf("trailing_silence = %v, want 800ms", got)
	}
	if got := cfg.Assistant.BackendTimeout.Std(); got != 30*time.Second {
		t.Errorf("backend_timeout = %v, want 30s", got)
	}
	if len(cfg.Actions.MCP) != 1 || cfg.Actions.MCP[0].Name != "files" {
		t.Errorf("mcp servers = %+v, want one named files", cfg.Actions.MCP)
	}
	srv := cfg.Actions.MCP[0].Action()
	if srv.Transport != "stdio" || srv.Command == "" {
		t.Errorf("converted MCP server = %+v", srv)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := minimalYAML + `
banana: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown top-level field, got nil")
	}
}

func TestLoadFromReader_BadDuration(t *testing.T) {
	t.Parallel()
	yaml := minimalYAML + `
audio:
  trailing_silence: "eight hundred"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unparseable duration, got nil")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error should mention the duration, got: %v", err)
	}
}

func TestValidate_MissingProviders(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader(`server: {log_level: info}`))
	if err == nil {
		t.Fatal("expected errors for missing providers, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"providers.stt.name", "providers.llm.name", "providers.tts.name"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := minimalYAML + `
server:
  log_level: loud
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for bad log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_WakeThresholdRange(t *testing.T) {
	t.Parallel()
	yaml := minimalYAML + `
wake:
  fuzzy_threshold: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range threshold, got nil")
	}
	if !strings.Contains(err.Error(), "fuzzy_threshold") {
		t.Errorf("error should mention fuzzy_threshold, got: %v", err)
	}
}

func TestValidate_MCPServerRequirements(t *testing.T) {
	t.Parallel()
	yaml := minimalYAML + `
actions:
  mcp:
    - name: files
      transport: stdio
    - name: remote
      transport: streamable-http
    - transport: carrier-pigeon
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors for malformed MCP entries, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"command is required", "url is required", "transport", "name is required"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	for _, kind := range []string{"llm", "stt", "tts"} {
		if len(config.ValidProviderNames[kind]) == 0 {
			t.Errorf("ValidProviderNames[%q] should not be empty", kind)
		}
	}
}
