package mock

import (
	"context"

	"github.com/fwojciec/changescope"
)

// Compile-time interface verification.
var _ changescope.Analyzer = (*Analyzer)(nil)

// Analyzer is a mock implementation of changescope.Analyzer.
type Analyzer struct {
	AnalyzeFn func(ctx context.Context, prompt string) (string, error)
}

func (a *Analyzer) Analyze(ctx context.Context, prompt string) (string, error) {
	return a.AnalyzeFn(ctx, prompt)
}
