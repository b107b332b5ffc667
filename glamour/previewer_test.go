package glamour_test

import (
	"testing"

	"github.com/fwojciec/changescope/glamour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewer_Preview(t *testing.T) {
	t.Parallel()

	t.Run("renders headings and tables as plain text", func(t *testing.T) {
		t.Parallel()

		p := glamour.NewPreviewer("notty")

		out, err := p.Preview("### Dependencies\n| Module | Dependency Type |\n|---|---|\n| cli | direct |\n", 80)

		require.NoError(t, err)
		assert.Contains(t, out, "Dependencies")
		assert.Contains(t, out, "cli")
		assert.Contains(t, out, "direct")
		assert.NotContains(t, out, "|---|")
	})

	t.Run("reuses renderer across calls", func(t *testing.T) {
		t.Parallel()

		p := glamour.NewPreviewer("notty")

		first, err := p.Preview("hello", 40)
		require.NoError(t, err)
		second, err := p.Preview("hello", 40)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("unknown style", func(t *testing.T) {
		t.Parallel()

		_, err := glamour.NewPreviewer("no-such-style").Preview("x", 80)

		assert.Error(t, err)
	})
}
