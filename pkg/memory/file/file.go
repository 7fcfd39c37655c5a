// Package file provides a JSON-file-backed note store. It is the default
// backend on devices without a database and survives restarts through an
// atomic write-then-rename on every change.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/memory"
)

const (
	// pruneThreshold and pruneKeep bound the file size. When the note count
	// exceeds pruneThreshold, only the newest pruneKeep notes are retained.
	pruneThreshold = 60
	pruneKeep      = 40
)

// Compile-time assertion that Store satisfies memory.Store.
var _ memory.Store = (*Store)(nil)

type note struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Store persists notes to a single JSON file.
type Store struct {
	path string

	mu    sync.Mutex
	notes []note
}

// New opens or creates the note file at path. A missing file is not an
// error; a corrupt one is, so that stored notes are never silently lost.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("file memory: path is required")
	}

	s := &Store{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("file memory: read %s: %w", path, err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.notes); err != nil {
			return nil, fmt.Errorf("file memory: parse %s: %w", path, err)
		}
	}
	return s, nil
}

// Recall implements memory.Store. Notes are rendered oldest first as a
// bullet list.
func (s *Store) Recall(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.notes) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, n := range s.notes {
		b.WriteString("- ")
		b.WriteString(n.Text)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Remember implements memory.Store. The note is appended, the list pruned
// if oversized, and the file rewritten atomically.
func (s *Store) Remember(_ context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes = append(s.notes, note{Text: text, At: time.Now()})
	if len(s.notes) > pruneThreshold {
		s.notes = append([]note(nil), s.notes[len(s.notes)-pruneKeep:]...)
	}
	return s.flushLocked()
}

// Close implements memory.Store.
func (s *Store) Close() error { return nil }

func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.notes, "", "  ")
	if err != nil {
		return fmt.Errorf("file memory: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".memory-*.json")
	if err != nil {
		return fmt.Errorf("file memory: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file memory: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file memory: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file memory: rename: %w", err)
	}
	return nil
}
