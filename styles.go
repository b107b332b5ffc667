package changescope

// Palette holds the semantic colors of the interactive session.
// Colors are hex strings in "#RRGGBB" format. Empty strings are valid and
// indicate no color override (use terminal default).
type Palette struct {
	Background string
	Foreground string

	Accent  string // Input prompt and spinner
	Success string // Completed turns
	Error   string // Failed turns
	Muted   string // Help text and hints

	UIBackground string // Status bar background
	UIForeground string // Status bar separators
}

// Theme provides colors for the interactive session.
// Different implementations can provide light/dark variants.
type Theme interface {
	Palette() Palette
	// PreviewStyle names the glamour style matching the theme.
	PreviewStyle() string
}
