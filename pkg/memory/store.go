// Package memory defines the long-term note store the assistant uses to
// carry facts across conversations. Notes are short free-form strings; the
// store owns persistence and pruning, callers own the content.
//
// Every implementation must be safe for concurrent use.
package memory

import "context"

// Store is the durable note store.
type Store interface {
	// Recall returns the stored notes rendered as a single block of text
	// suitable for injection into a system prompt. It returns an empty
	// string when no notes exist.
	Recall(ctx context.Context) (string, error)

	// Remember appends a note. Implementations may prune old notes to keep
	// the store bounded. Empty notes are ignored without error.
	Remember(ctx context.Context, note string) error

	// Close releases any resources held by the store.
	Close() error
}

// Discard is a Store that remembers nothing. Used when no memory backend
// is configured.
type Discard struct{}

var _ Store = Discard{}

func (Discard) Recall(context.Context) (string, error) { return "", nil }
func (Discard) Remember(context.Context, string) error { return nil }
func (Discard) Close() error                           { return nil }
