package changescope

import (
	"context"
	"time"
)

// Turn is one answered question of a session.
type Turn struct {
	SessionID  string    `json:"session_id"`
	Index      int       `json:"index"` // 1-based position within the session
	Agent      Agent     `json:"agent"`
	Query      string    `json:"query"`
	Changes    []Change  `json:"changes,omitempty"`
	Prompt     string    `json:"prompt"`
	Response   string    `json:"response"` // Raw model response
	Structured bool      `json:"structured"`
	Report     string    `json:"report"` // Rendered Markdown
	ReportPath string    `json:"report_path"`
	AskedAt    time.Time `json:"asked_at"`
}

// Session is an interactive question and answer loop over a code base.
type Session interface {
	// Ask runs one turn for a free-form question.
	Ask(ctx context.Context, query string) (*Turn, error)
	// AskChanges runs one turn for a set of requested changes.
	AskChanges(ctx context.Context, changes []Change) (*Turn, error)
	// ReportPath returns the path of the session's Markdown report.
	ReportPath() string
}

// TurnStore persists the turns of a session.
type TurnStore interface {
	Append(turn Turn) error
	Load() ([]Turn, error)
}

// HistoryIndex records turns across sessions for later lookup.
type HistoryIndex interface {
	Record(ctx context.Context, turn Turn) error
	Recent(ctx context.Context, limit int) ([]Turn, error)
	Search(ctx context.Context, pattern string, limit int) ([]Turn, error)
}
