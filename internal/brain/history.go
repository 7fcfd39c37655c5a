package brain

import (
	"sync"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/llm"
)

// defaultMaxTurns bounds the conversation window. The system message never
// counts toward the limit and is never trimmed.
const defaultMaxTurns = 24

// History is one conversation's message window. It keeps the system message
// pinned and trims the oldest turns once the window overflows.
type History struct {
	mu     sync.Mutex
	system llm.Message
	turns  []llm.Message
	max    int
}

// NewHistory starts a conversation with the given system prompt. maxTurns
// of zero or less uses the default.
func NewHistory(systemPrompt string, maxTurns int) *History {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &History{
		system: llm.Message{Role: llm.RoleSystem, Content: systemPrompt},
		max:    maxTurns,
	}
}

// Add appends one turn, trimming the oldest turns when the window is full.
func (h *History) Add(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, llm.Message{Role: role, Content: content})
	if len(h.turns) > h.max {
		h.turns = append([]llm.Message(nil), h.turns[len(h.turns)-h.max:]...)
	}
}

// Messages returns the system message followed by the turns, as a copy safe
// to hand to a provider.
func (h *History) Messages() []llm.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]llm.Message, 0, len(h.turns)+1)
	out = append(out, h.system)
	out = append(out, h.turns...)
	return out
}

// Len reports the number of turns, excluding the system message.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
