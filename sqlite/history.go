// Package sqlite indexes session turns in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/changescope"
	"github.com/sahilm/fuzzy"
	_ "modernc.org/sqlite"
)

// Compile-time interface verification.
var _ changescope.HistoryIndex = (*History)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
  session_id TEXT NOT NULL,
  idx INTEGER NOT NULL,
  agent TEXT NOT NULL,
  query TEXT NOT NULL,
  structured INTEGER NOT NULL,
  report TEXT NOT NULL,
  report_path TEXT NOT NULL,
  asked_at INTEGER NOT NULL,
  PRIMARY KEY(session_id, idx)
);
CREATE INDEX IF NOT EXISTS idx_turns_asked_at ON turns(asked_at);
`

// History records turns across sessions.
type History struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(ctx context.Context, path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating history: %w", err)
	}
	return &History{db: db}, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record stores turn, replacing an earlier record of the same session and index.
func (h *History) Record(ctx context.Context, turn changescope.Turn) error {
	structured := 0
	if turn.Structured {
		structured = 1
	}
	_, err := h.db.ExecContext(ctx, `
INSERT OR REPLACE INTO turns (session_id, idx, agent, query, structured, report, report_path, asked_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.SessionID, turn.Index, string(turn.Agent), turn.Query, structured,
		turn.Report, turn.ReportPath, turn.AskedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("recording turn: %w", err)
	}
	return nil
}

// Recent returns up to limit turns, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]changescope.Turn, error) {
	return h.query(ctx, limit)
}

// Search returns up to limit turns whose query fuzzy-matches pattern, best match first.
// An empty pattern behaves like Recent.
func (h *History) Search(ctx context.Context, pattern string, limit int) ([]changescope.Turn, error) {
	if pattern == "" {
		return h.Recent(ctx, limit)
	}
	all, err := h.query(ctx, 0)
	if err != nil {
		return nil, err
	}

	queries := make([]string, len(all))
	for i, t := range all {
		queries[i] = t.Query
	}
	matches := fuzzy.Find(pattern, queries)

	n := len(matches)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]changescope.Turn, n)
	for i := range out {
		out[i] = all[matches[i].Index]
	}
	return out, nil
}

// query returns turns newest first. A non-positive limit returns all turns.
func (h *History) query(ctx context.Context, limit int) ([]changescope.Turn, error) {
	q := `SELECT session_id, idx, agent, query, structured, report, report_path, asked_at
FROM turns ORDER BY asked_at DESC, idx DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var turns []changescope.Turn
	for rows.Next() {
		var (
			t          changescope.Turn
			agent      string
			structured int
			askedAt    int64
		)
		if err := rows.Scan(&t.SessionID, &t.Index, &agent, &t.Query, &structured, &t.Report, &t.ReportPath, &askedAt); err != nil {
			return nil, err
		}
		t.Agent = changescope.Agent(agent)
		t.Structured = structured == 1
		t.AskedAt = time.Unix(0, askedAt)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
