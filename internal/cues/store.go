// Package cues stores the phrase list the stage types, the cue sheet,
// and watches it for edits so a running performance picks up new
// phrases without a restart.
package cues

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/domstage/dbopen"
)

const schema = `
CREATE TABLE IF NOT EXISTS cues (
	position   INTEGER PRIMARY KEY,
	text       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Store is the SQLite-backed cue sheet. Phrases are ordered by
// position and replaced as a whole list, never edited row by row.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	ownsDB bool
}

// Open creates or opens a cue store at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("cues: %w", err)
	}
	s := New(db, logger)
	s.ownsDB = true
	return s, nil
}

// New wraps an existing database handle, applying the cue schema.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := db.Exec(schema); err != nil {
		logger.Error("cues: apply schema", "error", err)
	}
	return &Store{db: db, logger: logger}
}

// Phrases returns the cue sheet in order.
func (s *Store) Phrases(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT text FROM cues ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("cues: load: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("cues: scan: %w", err)
		}
		out = append(out, text)
	}
	return out, rows.Err()
}

// Replace swaps the entire cue sheet in one transaction. The list must
// be non-empty and contain no empty phrases: an empty sheet would stall
// the typewriter.
func (s *Store) Replace(ctx context.Context, phrases []string) error {
	if len(phrases) == 0 {
		return errors.New("cues: phrase list must not be empty")
	}
	for _, p := range phrases {
		if p == "" {
			return errors.New("cues: phrases must not be empty strings")
		}
	}
	// Nanoseconds so two replacements in quick succession still produce
	// distinct version tokens for the watcher.
	now := time.Now().UnixNano()
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cues`); err != nil {
			return fmt.Errorf("cues: clear: %w", err)
		}
		for i, p := range phrases {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO cues (position, text, updated_at) VALUES (?,?,?)`, i, p, now); err != nil {
				return fmt.Errorf("cues: insert: %w", err)
			}
		}
		return nil
	})
}

// Seed writes phrases only when the store is empty. Lets a deployment
// ship a default cue sheet without clobbering operator edits.
func (s *Store) Seed(ctx context.Context, phrases []string) error {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cues`).Scan(&n); err != nil {
		return fmt.Errorf("cues: count: %w", err)
	}
	if n > 0 {
		return nil
	}
	return s.Replace(ctx, phrases)
}

// Close releases the database if the store opened it.
func (s *Store) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// version reads the store's change token. It moves on any replacement
// (fresh updated_at stamps) and on any row-count change, so external
// edits with stale timestamps are still noticed.
func (s *Store) version(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(updated_at), 0) + COUNT(*) FROM cues`).Scan(&v)
	return v, err
}
