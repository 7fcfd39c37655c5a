package file_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/memory/file"
)

func TestStore_RememberAndRecall(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "memory.json")
	s, err := file.New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := s.Remember(ctx, "the user's name is Sam"); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if err := s.Remember(ctx, "prefers metric units"); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	got, err := s.Recall(ctx)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	want := "- the user's name is Sam\n- prefers metric units\n"
	if got != want {
		t.Errorf("Recall = %q, want %q", got, want)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "memory.json")
	ctx := context.Background()

	s, err := file.New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Remember(ctx, "lives in Rotterdam"); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	reopened, err := file.New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Recall(ctx)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if !strings.Contains(got, "lives in Rotterdam") {
		t.Errorf("Recall after reopen = %q, note lost", got)
	}
}

func TestStore_PrunesOldNotes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "memory.json")
	s, err := file.New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 61; i++ {
		if err := s.Remember(ctx, fmt.Sprintf("note %02d", i)); err != nil {
			t.Fatalf("Remember %d: %v", i, err)
		}
	}

	got, err := s.Recall(ctx)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	lines := strings.Count(got, "\n")
	if lines != 40 {
		t.Errorf("note count after prune = %d, want 40", lines)
	}
	if strings.Contains(got, "note 00") {
		t.Error("oldest note survived the prune")
	}
	if !strings.Contains(got, "note 60") {
		t.Error("newest note missing after the prune")
	}
}

func TestStore_IgnoresEmptyNotes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "memory.json")
	s, err := file.New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := s.Remember(ctx, "   "); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	got, err := s.Recall(ctx)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if got != "" {
		t.Errorf("Recall = %q, want empty", got)
	}
}

func TestNew_RejectsCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "memory.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := file.New(path); err == nil {
		t.Fatal("New accepted a corrupt note file")
	}
}
