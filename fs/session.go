package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/changescope"
)

// SessionLayout names the session directory after its start time.
const SessionLayout = "2006_01_02_15_04_05"

// Session file names.
const (
	ReportFile     = "result.md"
	TranscriptFile = "transcript.jsonl"
	DebugDir       = "debug"
)

// SessionDir is the on-disk layout of one session:
// <root>/<agent>/<timestamp>/{result.md,transcript.jsonl,debug/}.
type SessionDir struct {
	agent changescope.Agent
	stamp string
	dir   string
}

// NewSessionDir returns the layout for a session of agent started at start.
// Nothing is created until Create is called.
func NewSessionDir(root string, agent changescope.Agent, start time.Time) *SessionDir {
	stamp := start.Format(SessionLayout)
	return &SessionDir{
		agent: agent,
		stamp: stamp,
		dir:   filepath.Join(root, string(agent), stamp),
	}
}

// ID identifies the session across the history index.
func (s *SessionDir) ID() string {
	return string(s.agent) + "/" + s.stamp
}

// Dir returns the session directory.
func (s *SessionDir) Dir() string { return s.dir }

// ReportPath returns the path of the Markdown report.
func (s *SessionDir) ReportPath() string { return filepath.Join(s.dir, ReportFile) }

// TranscriptPath returns the path of the JSONL transcript.
func (s *SessionDir) TranscriptPath() string { return filepath.Join(s.dir, TranscriptFile) }

// Create makes the session and debug directories and starts the report with
// the agent heading. An existing report is left untouched.
func (s *SessionDir) Create() error {
	if err := os.MkdirAll(filepath.Join(s.dir, DebugDir), 0755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	f, err := os.OpenFile(s.ReportPath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if os.IsExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "# Agent: %s\n", s.agent); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}
	return nil
}

// AppendReport appends text to the report.
func (s *SessionDir) AppendReport(text string) error {
	f, err := os.OpenFile(s.ReportPath(), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("opening report: %w", err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return fmt.Errorf("appending to report: %w", err)
	}
	return f.Close()
}

// WriteDebug writes content to debug/<kind>_<n>.txt and returns the path.
func (s *SessionDir) WriteDebug(kind string, n int, content string) (string, error) {
	path := filepath.Join(s.dir, DebugDir, fmt.Sprintf("%s_%d.txt", kind, n))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return path, nil
}
