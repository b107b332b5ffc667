package mock

import (
	"context"

	"github.com/fwojciec/changescope"
)

// Compile-time interface verification.
var (
	_ changescope.SourceReader     = (*SourceReader)(nil)
	_ changescope.LanguageDetector = (*LanguageDetector)(nil)
)

// SourceReader is a mock implementation of changescope.SourceReader.
type SourceReader struct {
	ReadSourcesFn func(ctx context.Context) ([]changescope.SourceFile, error)
}

func (s *SourceReader) ReadSources(ctx context.Context) ([]changescope.SourceFile, error) {
	return s.ReadSourcesFn(ctx)
}

// LanguageDetector is a mock implementation of changescope.LanguageDetector.
type LanguageDetector struct {
	DetectFromPathFn func(path string) string
}

func (d *LanguageDetector) DetectFromPath(path string) string {
	return d.DetectFromPathFn(path)
}
