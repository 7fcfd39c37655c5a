// Package postgres provides a PostgreSQL-backed note store. It is the
// preferred backend when the assistant runs alongside a database, since
// notes survive device reflashes.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/memory"
)

const defaultRecallLimit = 40

const ddlNotes = `
CREATE TABLE IF NOT EXISTS assistant_memory (
    id        BIGSERIAL    PRIMARY KEY,
    note      TEXT         NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_assistant_memory_created_at
    ON assistant_memory (created_at);
`

// Compile-time assertion that Store satisfies memory.Store.
var _ memory.Store = (*Store)(nil)

// Store keeps notes in an assistant_memory table. All methods are safe for
// concurrent use.
type Store struct {
	pool        *pgxpool.Pool
	recallLimit int
}

// Option configures the store.
type Option func(*Store)

// WithRecallLimit caps how many of the newest notes Recall returns.
func WithRecallLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.recallLimit = n
		}
	}
}

// New connects to the database at dsn, verifies connectivity, and ensures
// the notes table exists.
func New(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres memory: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres memory: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres memory: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, ddlNotes); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres memory: migrate: %w", err)
	}

	s := &Store{pool: pool, recallLimit: defaultRecallLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Recall implements memory.Store. It returns the newest notes rendered as a
// bullet list, oldest first.
func (s *Store) Recall(ctx context.Context) (string, error) {
	const q = `
		SELECT note
		FROM   (SELECT note, created_at
		        FROM   assistant_memory
		        ORDER  BY created_at DESC
		        LIMIT  $1) recent
		ORDER  BY created_at`

	rows, err := s.pool.Query(ctx, q, s.recallLimit)
	if err != nil {
		return "", fmt.Errorf("postgres memory: recall: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var note string
		if err := rows.Scan(&note); err != nil {
			return "", fmt.Errorf("postgres memory: scan: %w", err)
		}
		b.WriteString("- ")
		b.WriteString(note)
		b.WriteByte('\n')
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("postgres memory: recall: %w", err)
	}
	return b.String(), nil
}

// Remember implements memory.Store.
func (s *Store) Remember(ctx context.Context, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `INSERT INTO assistant_memory (note) VALUES ($1)`, note); err != nil {
		return fmt.Errorf("postgres memory: remember: %w", err)
	}
	return nil
}

// Close implements memory.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
