package brain_test

import (
	"testing"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/brain"
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/provider/llm"
)

func TestHistory_SystemMessageFirst(t *testing.T) {
	t.Parallel()

	h := brain.NewHistory("you are a droid", 4)
	h.Add(llm.RoleUser, "hello")

	msgs := h.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len=%d, want 2", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem || msgs[0].Content != "you are a droid" {
		t.Errorf("first message=%+v, want the system prompt", msgs[0])
	}
}

func TestHistory_TrimsOldestKeepsSystem(t *testing.T) {
	t.Parallel()

	h := brain.NewHistory("system", 4)
	for _, text := range []string{"one", "two", "three", "four", "five", "six"} {
		h.Add(llm.RoleUser, text)
	}

	msgs := h.Messages()
	if msgs[0].Role != llm.RoleSystem {
		t.Fatal("system message was trimmed")
	}
	if h.Len() != 4 {
		t.Fatalf("Len=%d, want 4", h.Len())
	}
	if msgs[1].Content != "three" || msgs[len(msgs)-1].Content != "six" {
		t.Errorf("window=%v, want the newest four turns", msgs[1:])
	}
}

func TestHistory_MessagesReturnsCopy(t *testing.T) {
	t.Parallel()

	h := brain.NewHistory("system", 4)
	h.Add(llm.RoleUser, "hello")

	msgs := h.Messages()
	msgs[0].Content = "mutated"

	if got := h.Messages()[0].Content; got != "system" {
		t.Errorf("internal state mutated through the returned slice: %q", got)
	}
}
