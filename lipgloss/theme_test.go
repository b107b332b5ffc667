package lipgloss_test

import (
	"testing"

	"github.com/fwojciec/changescope"
	"github.com/fwojciec/changescope/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestDarkTheme(t *testing.T) {
	t.Parallel()

	t.Run("implements Theme interface", func(t *testing.T) {
		t.Parallel()

		var _ changescope.Theme = lipgloss.DarkTheme()
	})

	t.Run("returns palette for every session element", func(t *testing.T) {
		t.Parallel()

		palette := lipgloss.DarkTheme().Palette()

		assert.NotEmpty(t, palette.Accent)
		assert.NotEmpty(t, palette.Success)
		assert.NotEmpty(t, palette.Error)
		assert.NotEmpty(t, palette.Muted)
		assert.NotEmpty(t, palette.UIBackground)
	})

	t.Run("previews with dark glamour style", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "dark", lipgloss.DarkTheme().PreviewStyle())
	})
}

func TestLightTheme(t *testing.T) {
	t.Parallel()

	t.Run("returns palette for every session element", func(t *testing.T) {
		t.Parallel()

		palette := lipgloss.LightTheme().Palette()

		assert.NotEmpty(t, palette.Accent)
		assert.NotEmpty(t, palette.Error)
		assert.NotEqual(t, lipgloss.DarkTheme().Palette(), palette)
	})

	t.Run("previews with light glamour style", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "light", lipgloss.LightTheme().PreviewStyle())
	})
}

func TestThemeByName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, lipgloss.DarkTheme(), lipgloss.ThemeByName("dark"))
	assert.Equal(t, lipgloss.LightTheme(), lipgloss.ThemeByName("light"))
	assert.NotNil(t, lipgloss.ThemeByName("auto"))
}
