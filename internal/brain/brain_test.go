package brain_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/action"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/brain"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/wake"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio/vad"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/eye"
	memmock "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/memory/mock"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/llm"
	llmmock "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/llm/mock"
	sttmock "github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/stt/mock"
)

// fakeOutput records everything the brain asks the output side to do.
type fakeOutput struct {
	mu     sync.Mutex
	spoken []string
	tones  int
	modes  []eye.Mode
}

func (f *fakeOutput) Speak(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeOutput) PlayWakeTone(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tones++
	return nil
}

func (f *fakeOutput) SetEyeMode(m eye.Mode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes = append(f.modes, m)
}

func (f *fakeOutput) Spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

// fakeDispatcher records dispatches and returns a fixed result.
type fakeDispatcher struct {
	mu      sync.Mutex
	calls   []string
	result  action.Result
	entries []action.Handler
}

func (f *fakeDispatcher) Dispatch(_ context.Context, name, args string) action.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name+" "+args)
	return f.result
}

func (f *fakeDispatcher) Handlers() []action.Handler { return f.entries }

func (f *fakeDispatcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fixture struct {
	brain  *brain.Brain
	states *brain.Holder
	stt    *sttmock.Provider
	llm    *llmmock.Provider
	out    *fakeOutput
	disp   *fakeDispatcher
	mem    *memmock.Store
}

func newFixture(t *testing.T, transcripts, responses []string) *fixture {
	t.Helper()

	f := &fixture{
		states: &brain.Holder{},
		stt:    &sttmock.Provider{Transcripts: transcripts},
		llm:    &llmmock.Provider{Responses: responses},
		out:    &fakeOutput{},
		disp:   &fakeDispatcher{result: action.Result{OK: true, Output: "the device's internal IP address is 10.0.0.7."}},
		mem:    &memmock.Store{},
	}

	b, err := brain.New(brain.Config{
		AssistantName:  "Cade",
		Persona:        "You are Cade, a small desk droid.",
		BackendTimeout: 100 * time.Millisecond,
	}, brain.Deps{
		STT:     f.stt,
		LLM:     f.llm,
		Gate:    wake.New(),
		Memory:  f.mem,
		Output:  f.out,
		Actions: f.disp,
		States:  f.states,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.brain = b
	return f
}

func utterance() brain.Event {
	return brain.Event{
		Kind: brain.EventUtterance,
		Utterance: vad.Utterance{
			PCM:        make([]byte, 320),
			SampleRate: 16000,
			Channels:   1,
		},
	}
}

func TestWakeWithCommand_FullTurn(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		[]string{"hey cade what time is it"},
		[]string{"MODE:CHAT\nIt is around noon."},
	)

	f.brain.HandleEvent(context.Background(), utterance())

	spoken := f.out.Spoken()
	if len(spoken) != 1 || spoken[0] != "It is around noon." {
		t.Errorf("spoken=%v, want the model reply", spoken)
	}
	if got := f.states.Load(); got != brain.StateListening {
		t.Errorf("state=%v, want LISTENING", got)
	}
	if f.out.tones != 1 {
		t.Errorf("wake tones=%d, want 1", f.out.tones)
	}
}

func TestWakeWithoutCommand_ConfirmPrompt(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"cade"}, nil)

	f.brain.HandleEvent(context.Background(), utterance())

	spoken := f.out.Spoken()
	if len(spoken) != 1 || !strings.Contains(spoken[0], "What can I do for you") {
		t.Errorf("spoken=%v, want the confirmation prompt", spoken)
	}
	if got := f.states.Load(); got != brain.StateListening {
		t.Errorf("state=%v, want LISTENING", got)
	}
	if len(f.llm.Requests()) != 0 {
		t.Error("confirmation prompt went through the model")
	}
}

func TestNoWakePhrase_StaysIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"the cascade effect is fascinating"}, nil)

	f.brain.HandleEvent(context.Background(), utterance())

	if len(f.out.Spoken()) != 0 {
		t.Errorf("spoken=%v, want nothing", f.out.Spoken())
	}
	if got := f.states.Load(); got != brain.StateIdle {
		t.Errorf("state=%v, want IDLE", got)
	}
}

func TestMidSessionWakePhrase_Stripped(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		[]string{"cade", "cade turn on the lamp", "cade"},
		[]string{"MODE:CHAT\nLamp is on."},
	)

	ctx := context.Background()
	f.brain.HandleEvent(ctx, utterance())
	f.brain.HandleEvent(ctx, utterance())

	// The repeated wake phrase must not reach the model.
	reqs := f.llm.Requests()
	if len(reqs) != 1 {
		t.Fatalf("llm requests=%d, want 1", len(reqs))
	}
	msgs := reqs[0].Messages
	userTurn := msgs[len(msgs)-1].Content
	if strings.Contains(strings.ToLower(userTurn), "cade") {
		t.Errorf("user turn %q still carries the wake phrase", userTurn)
	}

	// A bare wake phrase mid-session is noise and triggers nothing.
	f.brain.HandleEvent(ctx, utterance())
	if got := len(f.llm.Requests()); got != 1 {
		t.Errorf("llm requests=%d after bare wake phrase, want still 1", got)
	}
	if got := f.states.Load(); got != brain.StateListening {
		t.Errorf("state=%v, want LISTENING", got)
	}
}

func TestAct_ExactlyOneSpokenFollowUp(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		[]string{"cade what do you see"},
		[]string{
			"MODE:ACT\nACTION:SEE\nARGS:{}",
			"MODE:CHAT\nI can see a desk with two mugs on it.",
		},
	)
	f.disp.result = action.Result{OK: true, Output: "The camera sees: a desk with two mugs."}

	f.brain.HandleEvent(context.Background(), utterance())

	calls := f.disp.Calls()
	if len(calls) != 1 || !strings.HasPrefix(calls[0], "SEE") {
		t.Fatalf("dispatches=%v, want one SEE call", calls)
	}
	spoken := f.out.Spoken()
	if len(spoken) != 1 || spoken[0] != "I can see a desk with two mugs on it." {
		t.Errorf("spoken=%v, want exactly the follow-up reply", spoken)
	}
	if got := f.states.Load(); got != brain.StateListening {
		t.Errorf("state=%v, want LISTENING", got)
	}
}

func TestAct_ChainedActDegradesToResult(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		[]string{"cade check the volume"},
		[]string{
			"MODE:ACT\nACTION:SET_VOLUME\nARGS:{\"level\": 40}",
			"MODE:ACT\nACTION:SET_VOLUME\nARGS:{\"level\": 45}",
		},
	)
	f.disp.result = action.Result{OK: true, Output: "Volume set to 40 percent."}

	f.brain.HandleEvent(context.Background(), utterance())

	// Only the first action runs; the second ACT frame is refused and the
	// first result is spoken instead.
	if calls := f.disp.Calls(); len(calls) != 1 {
		t.Fatalf("dispatches=%v, want exactly one", calls)
	}
	spoken := f.out.Spoken()
	if len(spoken) != 1 || spoken[0] != "Volume set to 40 percent." {
		t.Errorf("spoken=%v, want the action result", spoken)
	}
}

func TestBackendTimeout_ApologyThenRecovers(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{
		"cade tell me a story",
		"try again",
		"one more time",
	}, nil)

	var mu sync.Mutex
	calls := 0
	f.llm.CompleteFunc = func(ctx context.Context, _ llm.Request) (*llm.Response, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n <= 2 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &llm.Response{Content: "MODE:CHAT\nBack online."}, nil
	}

	ctx := context.Background()
	f.brain.HandleEvent(ctx, utterance())
	f.brain.HandleEvent(ctx, utterance())
	f.brain.HandleEvent(ctx, utterance())

	spoken := f.out.Spoken()
	if len(spoken) != 3 {
		t.Fatalf("spoken=%v, want two apologies then the reply", spoken)
	}
	if !strings.Contains(spoken[0], "Sorry") || !strings.Contains(spoken[1], "Sorry") {
		t.Errorf("spoken=%v, first two should be apologies", spoken)
	}
	if spoken[2] != "Back online." {
		t.Errorf("spoken[2]=%q, want the recovered reply", spoken[2])
	}
	if got := f.states.Load(); got != brain.StateListening {
		t.Errorf("state=%v, want LISTENING after recovery", got)
	}

	// The history stays ordered across failures: the third call must carry
	// the apology turns in place, alternating user/assistant.
	reqs := f.llm.Requests()
	last := reqs[len(reqs)-1].Messages
	for i := 1; i < len(last); i++ {
		wantRole := llm.RoleUser
		if i%2 == 0 {
			wantRole = llm.RoleAssistant
		}
		if last[i].Role != wantRole {
			t.Errorf("message %d role=%s, want %s", i, last[i].Role, wantRole)
		}
	}
}

func TestShutdownPhrase_EndsSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		[]string{"cade", "i usually say goodnight around eleven", "okay you can go to sleep"},
		[]string{
			"MODE:CHAT\nNoted.",
			`["user says goodnight around eleven"]`,
		},
	)

	ctx := context.Background()
	f.brain.HandleEvent(ctx, utterance())
	f.brain.HandleEvent(ctx, utterance())
	f.brain.HandleEvent(ctx, utterance())

	spoken := f.out.Spoken()
	if len(spoken) != 3 || !strings.Contains(spoken[2], "standby") {
		t.Errorf("spoken=%v, want the goodbye line last", spoken)
	}
	if got := f.states.Load(); got != brain.StateIdle {
		t.Errorf("state=%v, want IDLE", got)
	}
	// The session transcript was distilled into memory.
	notes := f.mem.Notes()
	if len(notes) != 1 || !strings.Contains(notes[0], "goodnight") {
		t.Errorf("notes=%v, want the extracted memory", notes)
	}
}

func TestInternalIPShortcut_SkipsModel(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		[]string{"cade", "what is your internal ip"},
		nil,
	)

	ctx := context.Background()
	f.brain.HandleEvent(ctx, utterance())
	f.brain.HandleEvent(ctx, utterance())

	calls := f.disp.Calls()
	if len(calls) != 1 || !strings.HasPrefix(calls[0], "INTERNAL_IP") {
		t.Fatalf("dispatches=%v, want one INTERNAL_IP call", calls)
	}
	spoken := f.out.Spoken()
	if got := spoken[len(spoken)-1]; !strings.Contains(got, "10.0.0.7") {
		t.Errorf("spoken=%q, want the IP answer", got)
	}
	if len(f.llm.Requests()) != 0 {
		t.Error("IP shortcut went through the model")
	}
}

func TestIdleTimeout_ReturnsToIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"cade"}, nil)

	ctx := context.Background()
	f.brain.HandleEvent(ctx, utterance())
	if got := f.states.Load(); got != brain.StateListening {
		t.Fatalf("state=%v, want LISTENING", got)
	}

	f.brain.HandleEvent(ctx, brain.Event{Kind: brain.EventIdleTimeout})
	if got := f.states.Load(); got != brain.StateIdle {
		t.Errorf("state=%v, want IDLE after the timeout", got)
	}
}

func TestIdleTimeout_IgnoredWhenIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, nil)
	f.brain.HandleEvent(context.Background(), brain.Event{Kind: brain.EventIdleTimeout})
	if got := f.states.Load(); got != brain.StateIdle {
		t.Errorf("state=%v, want IDLE", got)
	}
}

func TestTransitionsReported(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []string{"cade hello"}, []string{"MODE:CHAT\nHi."})

	var mu sync.Mutex
	var causes []string
	// Rebuild the brain with a transition observer.
	b, err := brain.New(brain.Config{Persona: "droid"}, brain.Deps{
		STT:     f.stt,
		LLM:     f.llm,
		Gate:    wake.New(),
		Memory:  f.mem,
		Output:  f.out,
		Actions: f.disp,
		States:  f.states,
		OnTransition: func(from, to brain.State, cause string) {
			mu.Lock()
			causes = append(causes, from.String()+">"+to.String()+":"+cause)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	b.HandleEvent(context.Background(), utterance())

	mu.Lock()
	defer mu.Unlock()
	if len(causes) == 0 {
		t.Fatal("no transitions reported")
	}
	for _, c := range causes {
		if !strings.Contains(c, ":") || strings.HasSuffix(c, ":") {
			t.Errorf("transition %q has no cause", c)
		}
	}
}
