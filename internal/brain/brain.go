package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/action"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/observe"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/wake"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio/vad"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/eye"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/memory"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/llm"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/stt"
)

const (
	defaultBackendTimeout = 30 * time.Second

	defaultApology       = "Sorry, I couldn't reach my brain backend just now. Ask me again in a moment."
	defaultConfirmPrompt = "I'm here. What can I do for you?"
	defaultGoodbye       = "Okay, going into standby mode."
	defaultEmptyReply    = "I'm not sure what to say."
)

// Output is what the brain needs from the output coordinator.
type Output interface {
	Speak(ctx context.Context, text string) error
	PlayWakeTone(ctx context.Context) error
	SetEyeMode(m eye.Mode)
}

// Dispatcher is what the brain needs from the action registry.
type Dispatcher interface {
	Dispatch(ctx context.Context, name, args string) action.Result
	Handlers() []action.Handler
}

// TransitionFunc observes state transitions, e.g. to feed the console's
// event stream. It must not block.
type TransitionFunc func(from, to State, cause string)

// EventKind discriminates hand-off events from the audio task.
type EventKind int

const (
	// EventUtterance carries a captured utterance to transcribe.
	EventUtterance EventKind = iota

	// EventIdleTimeout reports that the listening window expired with no
	// speech.
	EventIdleTimeout
)

// Event is one message on the audio-to-brain queue.
type Event struct {
	Kind      EventKind
	Utterance vad.Utterance
}

// Config tunes the conversation loop.
type Config struct {
	// AssistantName is used in log output and the startup banner.
	AssistantName string

	// Persona is the base system prompt.
	Persona string

	// Apology is spoken when the language model fails or times out.
	Apology string

	// ConfirmPrompt is spoken after a wake phrase that carried no command.
	ConfirmPrompt string

	// Goodbye is spoken when a shutdown phrase ends the session.
	Goodbye string

	// MaxHistoryTurns bounds the conversation window.
	MaxHistoryTurns int

	// BackendTimeout caps each language model call.
	BackendTimeout time.Duration
}

// Deps are the brain's collaborators. All fields except OnTransition are
// required.
type Deps struct {
	STT          stt.Provider
	LLM          llm.Provider
	Gate         *wake.Gate
	Memory       memory.Store
	Output       Output
	Actions      Dispatcher
	States       *Holder
	OnTransition TransitionFunc
}

// Brain runs the conversation loop. It is driven from a single goroutine;
// only [Holder] is shared with the audio side.
type Brain struct {
	cfg  Config
	deps Deps

	history *History
}

// New validates deps and returns a Brain in the idle state.
func New(cfg Config, deps Deps) (*Brain, error) {
	switch {
	case deps.STT == nil:
		return nil, fmt.Errorf("brain: STT provider is required")
	case deps.LLM == nil:
		return nil, fmt.Errorf("brain: LLM provider is required")
	case deps.Gate == nil:
		return nil, fmt.Errorf("brain: wake gate is required")
	case deps.Memory == nil:
		return nil, fmt.Errorf("brain: memory store is required")
	case deps.Output == nil:
		return nil, fmt.Errorf("brain: output coordinator is required")
	case deps.Actions == nil:
		return nil, fmt.Errorf("brain: action dispatcher is required")
	case deps.States == nil:
		return nil, fmt.Errorf("brain: state holder is required")
	}

	if cfg.Apology == "" {
		cfg.Apology = defaultApology
	}
	if cfg.ConfirmPrompt == "" {
		cfg.ConfirmPrompt = defaultConfirmPrompt
	}
	if cfg.Goodbye == "" {
		cfg.Goodbye = defaultGoodbye
	}
	if cfg.BackendTimeout <= 0 {
		cfg.BackendTimeout = defaultBackendTimeout
	}

	deps.States.Store(StateIdle)
	return &Brain{cfg: cfg, deps: deps}, nil
}

// Run consumes events until ctx is cancelled or the channel closes.
func (b *Brain) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			b.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent processes one hand-off event synchronously. Exported so tests
// can drive the machine without goroutines.
func (b *Brain) HandleEvent(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventIdleTimeout:
		if s := b.deps.States.Load(); s == StateListening || s == StateAwaitingWakeConfirm {
			b.endSession(ctx, "listening window timed out")
		}

	case EventUtterance:
		text, err := b.transcribe(ctx, ev.Utterance)
		if err != nil {
			slog.Warn("transcription failed", "error", err)
			observe.DefaultMetrics().RecordProviderError(ctx, "stt", "stt")
			return
		}
		if text == "" {
			return
		}
		slog.Debug("utterance transcribed", "text", text, "state", b.deps.States.Load())

		switch b.deps.States.Load() {
		case StateIdle:
			b.handleIdle(ctx, text)
		case StateListening, StateAwaitingWakeConfirm:
			b.handleCommand(ctx, text)
		default:
			// The audio task should have dropped this; count it anyway.
			observe.DefaultMetrics().DroppedEvents.Add(ctx, 1)
		}
	}
}

func (b *Brain) transcribe(ctx context.Context, utt vad.Utterance) (string, error) {
	start := time.Now()
	text, err := b.deps.STT.Transcribe(ctx, stt.Clip{
		PCM:        utt.PCM,
		SampleRate: utt.SampleRate,
		Channels:   utt.Channels,
	})
	observe.DefaultMetrics().TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
	return strings.TrimSpace(text), err
}

// handleIdle applies the wake gate while no session is live.
func (b *Brain) handleIdle(ctx context.Context, text string) {
	phrase, ok := b.deps.Gate.Check(text)
	if !ok {
		slog.Debug("no wake phrase", "text", text)
		return
	}
	slog.Debug("wake phrase matched", "phrase", phrase)

	m := observe.DefaultMetrics()
	m.WakeMatches.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)

	recalled, err := b.deps.Memory.Recall(ctx)
	if err != nil {
		slog.Warn("memory recall failed", "error", err)
		m.RecordProviderError(ctx, "memory", "memory")
		recalled = ""
	}
	b.history = NewHistory(b.systemPrompt(recalled), b.cfg.MaxHistoryTurns)

	b.deps.Output.SetEyeMode(eye.ModeWake)
	if err := b.deps.Output.PlayWakeTone(ctx); err != nil {
		slog.Warn("wake tone failed", "error", err)
	}

	command := b.deps.Gate.Strip(text)
	if command == "" {
		b.transition(ctx, StateAwaitingWakeConfirm, "wake phrase without command")
		b.speak(ctx, b.cfg.ConfirmPrompt, "wake confirmation")
		b.transition(ctx, StateListening, "awaiting command")
		return
	}

	b.transition(ctx, StateListening, "wake phrase with command")
	b.respond(ctx, command)
}

// handleCommand processes an utterance inside a live session.
func (b *Brain) handleCommand(ctx context.Context, text string) {
	if b.deps.Gate.IsShutdown(text) {
		b.speak(ctx, b.cfg.Goodbye, "shutdown phrase")
		b.persistMemories(ctx)
		b.deps.Output.SetEyeMode(eye.ModeSleep)
		b.endSession(ctx, "shutdown phrase")
		return
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "your internal ip") || strings.Contains(lower, "your local ip") {
		res := b.deps.Actions.Dispatch(ctx, "INTERNAL_IP", "")
		b.speak(ctx, res.Output, "internal ip shortcut")
		b.transition(ctx, StateListening, "turn complete")
		return
	}

	// A repeated wake phrase mid-session is just noise; strip it.
	if _, ok := b.deps.Gate.Check(text); ok {
		text = b.deps.Gate.Strip(text)
		if text == "" {
			return
		}
	}

	b.respond(ctx, text)
}

// respond runs one full user turn: think, optionally act, then speak.
func (b *Brain) respond(ctx context.Context, userText string) {
	b.transition(ctx, StateThinking, "user command")
	b.deps.Output.SetEyeMode(eye.ModeThinking)
	b.history.Add(llm.RoleUser, userText)

	reply, err := b.complete(ctx)
	if err != nil {
		b.apologize(ctx, err)
		return
	}
	b.history.Add(llm.RoleAssistant, reply)

	d := ParseDirective(reply)
	if d.Mode == ModeAct {
		b.act(ctx, d)
		return
	}

	speech := d.Speech
	if speech == "" {
		speech = defaultEmptyReply
	}
	b.speak(ctx, speech, "model reply")
	b.transition(ctx, StateListening, "turn complete")
}

// act executes the model's requested action and forces exactly one spoken
// follow-up: the action result is fed back as a synthetic turn, and if the
// model tries to chain another action the result itself is spoken instead.
func (b *Brain) act(ctx context.Context, d Directive) {
	b.transition(ctx, StateActing, "model requested "+d.Action)
	res := b.deps.Actions.Dispatch(ctx, d.Action, d.Args)

	followup := fmt.Sprintf(
		"You previously requested ACTION:%s.\nResult:\n%s\n\nNow respond to the user in CHAT mode, briefly.",
		d.Action, res.Output,
	)
	b.history.Add(llm.RoleUser, followup)

	b.transition(ctx, StateThinking, "action result follow-up")
	reply, err := b.complete(ctx)
	if err != nil {
		b.apologize(ctx, err)
		return
	}
	b.history.Add(llm.RoleAssistant, reply)

	d2 := ParseDirective(reply)
	speech := d2.Speech
	if d2.Mode == ModeAct || speech == "" {
		speech = res.Output
	}
	b.speak(ctx, speech, "action follow-up")
	b.transition(ctx, StateListening, "turn complete")
}

// apologize delivers the canned failure line and returns to listening. The
// apology is recorded as an assistant turn so the history stays alternating
// for the next call.
func (b *Brain) apologize(ctx context.Context, cause error) {
	slog.Warn("backend call failed", "error", cause)
	observe.DefaultMetrics().RecordProviderError(ctx, "llm", "llm")
	b.history.Add(llm.RoleAssistant, b.cfg.Apology)
	b.speak(ctx, b.cfg.Apology, "backend failure")
	b.transition(ctx, StateListening, "apology delivered")
}

// speak transitions to SPEAKING for the duration of playback.
func (b *Brain) speak(ctx context.Context, text, cause string) {
	b.transition(ctx, StateSpeaking, cause)
	if err := b.deps.Output.Speak(ctx, text); err != nil {
		slog.Error("speech output failed", "error", err)
	}
}

// complete calls the language model with the bounded history window.
func (b *Brain) complete(ctx context.Context) (string, error) {
	tctx, cancel := context.WithTimeout(ctx, b.cfg.BackendTimeout)
	defer cancel()

	start := time.Now()
	resp, err := b.deps.LLM.Complete(tctx, llm.Request{Messages: b.history.Messages()})
	observe.DefaultMetrics().BackendDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// endSession drops back to idle.
func (b *Brain) endSession(ctx context.Context, cause string) {
	b.history = nil
	observe.DefaultMetrics().ActiveSessions.Add(ctx, -1)
	b.transition(ctx, StateIdle, cause)
	b.deps.Output.SetEyeMode(eye.ModeIdle)
}

// transition moves to a new state, logging the cause and notifying the
// observer. Self-transitions are dropped.
func (b *Brain) transition(ctx context.Context, to State, cause string) {
	from := b.deps.States.Load()
	if from == to {
		return
	}
	b.deps.States.Store(to)

	slog.Info("state transition", "from", from, "to", to, "cause", cause)
	observe.DefaultMetrics().RecordStateTransition(ctx, from.String(), to.String())
	if b.deps.OnTransition != nil {
		b.deps.OnTransition(from, to, cause)
	}

	switch to {
	case StateListening:
		b.deps.Output.SetEyeMode(eye.ModeListening)
	case StateThinking, StateActing:
		b.deps.Output.SetEyeMode(eye.ModeThinking)
	}
}

// systemPrompt assembles the session system message: persona, the reply
// contract with the available actions, and any recalled memories.
func (b *Brain) systemPrompt(memories string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(b.cfg.Persona))
	sb.WriteString("\n\nReply in exactly one of two frames.\n\n")
	sb.WriteString("MODE:CHAT\n<what to say out loud>\n\n")
	sb.WriteString("MODE:ACT\nACTION:<NAME>\nARGS:<JSON object>\n\n")
	sb.WriteString("Use MODE:ACT only for the actions listed below; everything else is MODE:CHAT.\n")
	sb.WriteString("Available actions:\n")
	for _, h := range b.deps.Actions.Handlers() {
		sb.WriteString("- ")
		sb.WriteString(h.Name)
		if h.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(h.Description)
		}
		sb.WriteByte('\n')
	}
	if memories != "" {
		sb.WriteString("\nYou also remember these facts from earlier conversations. ")
		sb.WriteString("Use them when relevant; do not invent additional details.\n")
		sb.WriteString(memories)
	}
	return sb.String()
}

// memoryExtractionPrompt asks the model to distil a finished conversation
// into a few durable notes.
const memoryExtractionPrompt = "You distil conversations for a voice assistant. " +
	"From the transcript, pick up to five concise, durable facts or preferences about the user " +
	"or their ongoing projects that will matter in future conversations. Skip small talk. " +
	"Return ONLY a JSON array of strings."

// persistMemories asks the model to extract durable notes from the finished
// session and stores them. Best effort; failures are logged and dropped.
func (b *Brain) persistMemories(ctx context.Context) {
	if b.history == nil || b.history.Len() == 0 {
		return
	}

	var transcript strings.Builder
	for _, msg := range b.history.Messages()[1:] {
		switch msg.Role {
		case llm.RoleUser:
			transcript.WriteString("User: ")
		case llm.RoleAssistant:
			transcript.WriteString("Assistant: ")
		default:
			continue
		}
		transcript.WriteString(msg.Content)
		transcript.WriteByte('\n')
	}

	tctx, cancel := context.WithTimeout(ctx, b.cfg.BackendTimeout)
	defer cancel()

	resp, err := b.deps.LLM.Complete(tctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: memoryExtractionPrompt},
			{Role: llm.RoleUser, Content: transcript.String()},
		},
	})
	if err != nil {
		slog.Warn("memory extraction failed", "error", err)
		return
	}

	var notes []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &notes); err != nil {
		slog.Debug("memory extraction returned non-JSON, dropping", "error", err)
		return
	}
	for _, note := range notes {
		if note = strings.TrimSpace(note); note == "" {
			continue
		}
		if err := b.deps.Memory.Remember(ctx, note); err != nil {
			slog.Warn("memory write failed", "error", err)
			return
		}
	}
}
