// Package journal persists the stage event stream to SQLite so past
// performances can be inspected and replayed. It plugs into the sink
// fan-out like any other backend.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/domstage/dbopen"
	"github.com/hazyhaar/domstage/event"
)

const schema = `
CREATE TABLE IF NOT EXISTS stage_events (
	event_id   TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	page_url   TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	kind       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stage_events_session ON stage_events(session_id, seq);
CREATE INDEX IF NOT EXISTS idx_stage_events_created ON stage_events(created_at);
`

// Journal writes events to SQLite. Writes never propagate errors: a
// failing journal store must not stall a running stage, so failures are
// logged and dropped.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
	ownsDB bool
}

// Open creates or opens a journal database at path.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	j := New(db, logger)
	j.ownsDB = true
	return j, nil
}

// New wraps an existing database handle, applying the journal schema.
func New(db *sql.DB, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := db.Exec(schema); err != nil {
		logger.Error("journal: apply schema", "error", err)
	}
	return &Journal{db: db, logger: logger}
}

// Send records one event.
func (j *Journal) Send(ctx context.Context, e event.Event) error {
	payload, err := event.Marshal(&e)
	if err != nil {
		j.logger.Error("journal: marshal event", "error", err, "kind", e.Kind)
		return nil
	}
	_, err = dbopen.Exec(ctx, j.db, `
		INSERT INTO stage_events (
			event_id, session_id, page_url, seq, kind, payload, created_at
		) VALUES (?,?,?,?,?,?,?)`,
		e.ID, e.SessionID, e.PageURL, e.Seq, string(e.Kind), string(payload), e.Timestamp)
	if err != nil {
		j.logger.Error("journal: insert event", "error", err, "kind", e.Kind)
	}
	return nil
}

// Close releases the database if the journal opened it.
func (j *Journal) Close() error {
	if j.ownsDB {
		return j.db.Close()
	}
	return nil
}

// SessionSummary aggregates what the journal knows about one session.
type SessionSummary struct {
	SessionID string `json:"session_id"`
	PageURL   string `json:"page_url"`
	Events    int64  `json:"events"`
	FirstAt   int64  `json:"first_at"`
	LastAt    int64  `json:"last_at"`
}

// Sessions lists the sessions on record, most recently active first.
func (j *Journal) Sessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session_id, page_url, COUNT(*), MIN(created_at), MAX(created_at)
		FROM stage_events
		GROUP BY session_id, page_url
		ORDER BY MAX(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("journal: sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.SessionID, &s.PageURL, &s.Events, &s.FirstAt, &s.LastAt); err != nil {
			return nil, fmt.Errorf("journal: scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Recent returns the latest events for a session, newest first.
func (j *Journal) Recent(ctx context.Context, sessionID string, limit int) ([]event.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT payload FROM stage_events
		WHERE session_id = ?
		ORDER BY seq DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("journal: scan event: %w", err)
		}
		e, err := event.Unmarshal([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("journal: decode event: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Cleanup deletes events older than the retention window. Zero days
// means keep everything.
func (j *Journal) Cleanup(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()
	if _, err := dbopen.Exec(ctx, j.db, `DELETE FROM stage_events WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("journal: cleanup: %w", err)
	}
	return nil
}
