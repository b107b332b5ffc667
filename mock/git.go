package mock

import (
	"context"
	"io"

	"github.com/fwojciec/changescope"
)

// Compile-time interface verification.
var (
	_ changescope.GitRunner = (*GitRunner)(nil)
	_ changescope.Parser    = (*Parser)(nil)
)

// GitRunner is a mock implementation of changescope.GitRunner.
type GitRunner struct {
	DiffFn    func(ctx context.Context, repoPath string) (string, error)
	HistoryFn func(ctx context.Context, repoPath string, limit int) (string, error)
}

func (g *GitRunner) Diff(ctx context.Context, repoPath string) (string, error) {
	return g.DiffFn(ctx, repoPath)
}

func (g *GitRunner) History(ctx context.Context, repoPath string, limit int) (string, error) {
	return g.HistoryFn(ctx, repoPath, limit)
}

// Parser is a mock implementation of changescope.Parser.
type Parser struct {
	ParseFn func(r io.Reader) (*changescope.Diff, error)
}

func (p *Parser) Parse(r io.Reader) (*changescope.Diff, error) {
	return p.ParseFn(r)
}
