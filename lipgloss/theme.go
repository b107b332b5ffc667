// Package lipgloss provides theme implementations using the Lipgloss styling library.
package lipgloss

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/changescope"
)

// Compile-time interface verification.
var _ changescope.Theme = (*Theme)(nil)

// Theme implements changescope.Theme with Lipgloss-compatible colors.
type Theme struct {
	palette      changescope.Palette
	previewStyle string
}

// Palette returns the semantic color palette for this theme.
func (t *Theme) Palette() changescope.Palette {
	return t.palette
}

// PreviewStyle returns the glamour style matching this theme.
func (t *Theme) PreviewStyle() string {
	return t.previewStyle
}

// DefaultTheme returns the theme matching the terminal background.
func DefaultTheme() *Theme {
	if lipgloss.HasDarkBackground() {
		return DarkTheme()
	}
	return LightTheme()
}

// ThemeByName returns the named theme: "dark", "light" or "auto".
func ThemeByName(name string) *Theme {
	switch name {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	default:
		return DefaultTheme()
	}
}

// DarkTheme returns a theme optimized for dark terminal backgrounds.
func DarkTheme() *Theme {
	return &Theme{
		palette: changescope.Palette{
			// Base colors (Catppuccin Mocha)
			Background: "#1e1e2e",
			Foreground: "#cdd6f4",

			Accent:  "#89b4fa", // Blue
			Success: "#a6e3a1", // Green
			Error:   "#f38ba8", // Red
			Muted:   "#6c7086", // Gray

			UIBackground: "#313244",
			UIForeground: "#a6adc8",
		},
		previewStyle: "dark",
	}
}

// LightTheme returns a theme optimized for light terminal backgrounds.
func LightTheme() *Theme {
	return &Theme{
		palette: changescope.Palette{
			// Base colors (Catppuccin Latte)
			Background: "#eff1f5",
			Foreground: "#4c4f69",

			Accent:  "#1e66f5",
			Success: "#40a02b",
			Error:   "#d20f39",
			Muted:   "#9ca0b0",

			UIBackground: "#e6e9ef",
			UIForeground: "#6c6f85",
		},
		previewStyle: "light",
	}
}
