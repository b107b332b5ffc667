// Package glamour renders Markdown reports for the terminal.
package glamour

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/fwojciec/changescope"
)

// DefaultStyle is the glamour style used when none is configured.
const DefaultStyle = "dark"

// Compile-time interface verification.
var _ changescope.Previewer = (*Previewer)(nil)

// Previewer implements changescope.Previewer using glamour. Renderers are
// cached per width since building one parses the whole style sheet.
type Previewer struct {
	style string

	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
}

// NewPreviewer creates a Previewer with the named standard style
// ("dark", "light", "dracula", "notty", ...). An empty name uses DefaultStyle.
func NewPreviewer(style string) *Previewer {
	if style == "" {
		style = DefaultStyle
	}
	return &Previewer{style: style, renderers: make(map[int]*glamour.TermRenderer)}
}

// Preview renders markdown wrapped to width columns. A width of zero or less
// disables wrapping.
func (p *Previewer) Preview(markdown string, width int) (string, error) {
	r, err := p.renderer(width)
	if err != nil {
		return "", err
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

func (p *Previewer) renderer(width int) (*glamour.TermRenderer, error) {
	if width < 0 {
		width = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.renderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(p.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s renderer: %w", p.style, err)
	}
	p.renderers[width] = r
	return r, nil
}
