package mock

import (
	"context"

	"github.com/fwojciec/changescope"
)

// Compile-time interface verification.
var (
	_ changescope.Session     = (*Session)(nil)
	_ changescope.Previewer   = (*Previewer)(nil)
	_ changescope.Clipboard   = (*Clipboard)(nil)
	_ changescope.RubricJudge = (*RubricJudge)(nil)
)

// Session is a mock implementation of changescope.Session.
type Session struct {
	AskFn        func(ctx context.Context, query string) (*changescope.Turn, error)
	AskChangesFn func(ctx context.Context, changes []changescope.Change) (*changescope.Turn, error)
	ReportPathFn func() string
}

func (s *Session) Ask(ctx context.Context, query string) (*changescope.Turn, error) {
	return s.AskFn(ctx, query)
}

func (s *Session) AskChanges(ctx context.Context, changes []changescope.Change) (*changescope.Turn, error) {
	return s.AskChangesFn(ctx, changes)
}

func (s *Session) ReportPath() string {
	return s.ReportPathFn()
}

// Previewer is a mock implementation of changescope.Previewer.
type Previewer struct {
	PreviewFn func(markdown string, width int) (string, error)
}

func (p *Previewer) Preview(markdown string, width int) (string, error) {
	return p.PreviewFn(markdown, width)
}

// Clipboard is a mock implementation of changescope.Clipboard.
type Clipboard struct {
	CopyFn func(content string) error
}

func (c *Clipboard) Copy(content string) error {
	return c.CopyFn(content)
}

// RubricJudge is a mock implementation of changescope.RubricJudge.
type RubricJudge struct {
	JudgeFn func(ctx context.Context, criterion, output string) (*changescope.RubricResult, error)
}

func (j *RubricJudge) Judge(ctx context.Context, criterion, output string) (*changescope.RubricResult, error) {
	return j.JudgeFn(ctx, criterion, output)
}
