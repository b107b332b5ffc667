package fs

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/fwojciec/changescope"
	"github.com/zeebo/blake3"
)

// Compile-time interface verification.
var _ changescope.Analyzer = (*Analyzer)(nil)

// Analyzer wraps an Analyzer with file-based response caching.
// Entries are keyed by agent and prompt.
type Analyzer struct {
	inner    changescope.Analyzer
	agent    changescope.Agent
	cacheDir string
}

// NewAnalyzer creates a new caching analyzer.
func NewAnalyzer(inner changescope.Analyzer, agent changescope.Agent, cacheDir string) *Analyzer {
	return &Analyzer{
		inner:    inner,
		agent:    agent,
		cacheDir: cacheDir,
	}
}

// Analyze returns a cached response or delegates to the inner analyzer.
func (a *Analyzer) Analyze(ctx context.Context, prompt string) (string, error) {
	key := a.key(prompt)

	if cached, err := os.ReadFile(a.cachePath(key)); err == nil {
		return string(cached), nil
	}

	resp, err := a.inner.Analyze(ctx, prompt)
	if err != nil {
		return "", err
	}

	// Store in cache (best-effort)
	_ = a.save(key, resp)

	return resp, nil
}

func (a *Analyzer) key(prompt string) string {
	h := blake3.New()
	_, _ = h.Write([]byte(a.agent))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

func (a *Analyzer) cachePath(key string) string {
	return filepath.Join(a.cacheDir, "responses", key+".txt")
}

func (a *Analyzer) save(key, resp string) error {
	path := a.cachePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(resp), 0644)
}
