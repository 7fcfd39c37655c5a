// Command cade is the main entry point for the Cade desk assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/app"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/config"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/observe"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio/player"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/eye"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/memory"
	memoryfile "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/memory/file"
	memorypg "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/memory/postgres"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/llm"
	llmanyllm "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/llm/anyllm"
	llmopenai "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/llm/openai"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/stt"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/stt/whisper"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/tts"
	ttsopenai "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/tts/openai"
	ttspiper "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/tts/piper"
)

// Version metadata, set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("cade %s (%s)\n", version, commit)
		return 0
	}

	// A .env file is a convenience for API keys; absence is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "cade: load .env: %v\n", err)
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "cade: config file %q not found, copy config.example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "cade: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("cade starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	defer func() {
		if err := providers.Memory.Close(); err != nil {
			slog.Warn("memory close error", "err", err)
		}
		if c, ok := providers.Eye.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Warn("eye close error", "err", err)
			}
		}
	}()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("assistant ready, press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────

	// The native OpenAI client also serves as the vision describer for the
	// SEE action, so "openai" does not go through any-llm.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []llmopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		return llmopenai.New(apiKey(entry), entry.Model, opts...)
	})

	// anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile all
	// share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return llmanyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return llmanyllm.New("ollama", entry.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = entry.StringOption("model_path", "")
		}
		var opts []whisper.NativeOption
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []ttsopenai.Option
		if entry.Model != "" {
			opts = append(opts, ttsopenai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, ttsopenai.WithBaseURL(entry.BaseURL))
		}
		if voice := entry.StringOption("voice", ""); voice != "" {
			opts = append(opts, ttsopenai.WithVoice(voice))
		}
		return ttsopenai.New(apiKey(entry), opts...)
	})

	reg.RegisterTTS("piper", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []ttspiper.Option
		if bin := entry.StringOption("binary", ""); bin != "" {
			opts = append(opts, ttspiper.WithBinary(bin))
		}
		return ttspiper.New(entry.Model, opts...)
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct.
func buildProviders(ctx context.Context, cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	p, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	ps.LLM = p
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name)

	s, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	ps.STT = s
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	t, err := reg.CreateTTS(cfg.Providers.TTS)
	if err != nil {
		return nil, fmt.Errorf("create tts provider %q: %w", cfg.Providers.TTS.Name, err)
	}
	ps.TTS = t
	slog.Info("provider created", "kind", "tts", "name", cfg.Providers.TTS.Name)

	if name := cfg.Providers.TTSFallback.Name; name != "" {
		fb, err := reg.CreateTTS(cfg.Providers.TTSFallback)
		if err != nil {
			return nil, fmt.Errorf("create tts fallback %q: %w", name, err)
		}
		ps.TTSFallback = fb
		slog.Info("provider created", "kind", "tts-fallback", "name", name)
	}

	ps.Player, err = player.NewAPlay(cfg.Audio.OutputDevice)
	if err != nil {
		return nil, fmt.Errorf("create audio player: %w", err)
	}

	ps.Eye = buildEye()

	ps.Memory, err = buildMemory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create memory store: %w", err)
	}

	return ps, nil
}

// buildEye picks the LED pipe when it exists, otherwise logs mode changes.
func buildEye() eye.Eye {
	const pipePath = "/tmp/cade-eye"
	if _, err := os.Stat(pipePath); err == nil {
		slog.Info("eye pipe found", "path", pipePath)
		return eye.NewPipe(pipePath)
	}
	return &eye.Log{}
}

// buildMemory picks the Postgres store when a DSN is configured, the JSON
// file store when a path is configured, and an in-process no-op otherwise.
func buildMemory(ctx context.Context, cfg *config.Config) (memory.Store, error) {
	switch {
	case cfg.Memory.PostgresDSN != "":
		var opts []memorypg.Option
		if cfg.Memory.RecallLimit > 0 {
			opts = append(opts, memorypg.WithRecallLimit(cfg.Memory.RecallLimit))
		}
		return memorypg.New(ctx, cfg.Memory.PostgresDSN, opts...)
	case cfg.Memory.FilePath != "":
		return memoryfile.New(cfg.Memory.FilePath)
	default:
		return memory.Discard{}, nil
	}
}

// apiKey returns the configured key or falls back to OPENAI_API_KEY.
func apiKey(entry config.ProviderEntry) string {
	if entry.APIKey != "" {
		return entry.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Cade — startup summary        ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("TTS fallback", cfg.Providers.TTSFallback.Name, cfg.Providers.TTSFallback.Model)
	memBackend := "(disabled)"
	switch {
	case cfg.Memory.PostgresDSN != "":
		memBackend = "postgres"
	case cfg.Memory.FilePath != "":
		memBackend = "file"
	}
	fmt.Printf("║  Memory          : %-19s ║\n", memBackend)
	fmt.Printf("║  MCP servers     : %-19d ║\n", len(cfg.Actions.MCP))
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Console addr    : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
