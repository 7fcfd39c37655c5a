// Package mock provides an in-memory note store for tests.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/memory"
)

// Compile-time assertion that Store satisfies memory.Store.
var _ memory.Store = (*Store)(nil)

// Store keeps notes in a slice and renders Recall as a bullet list, matching
// the file-backed store's output shape.
type Store struct {
	// RecallErr and RememberErr, when non-nil, are returned by the
	// corresponding methods.
	RecallErr   error
	RememberErr error

	mu    sync.Mutex
	notes []string
}

// Recall implements memory.Store.
func (s *Store) Recall(_ context.Context) (string, error) {
	if s.RecallErr != nil {
		return "", s.RecallErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.notes) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, n := range s.notes {
		b.WriteString("- ")
		b.WriteString(n)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Remember implements memory.Store.
func (s *Store) Remember(_ context.Context, note string) error {
	if s.RememberErr != nil {
		return s.RememberErr
	}
	if note == "" {
		return nil
	}
	s.mu.Lock()
	s.notes = append(s.notes, note)
	s.mu.Unlock()
	return nil
}

// Close implements memory.Store.
func (s *Store) Close() error { return nil }

// Notes returns a copy of the stored notes in insertion order.
func (s *Store) Notes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.notes))
	copy(out, s.notes)
	return out
}
