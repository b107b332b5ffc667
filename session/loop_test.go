package session_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fwojciec/changescope"
	"github.com/fwojciec/changescope/mock"
	"github.com/fwojciec/changescope/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLines(t *testing.T) {
	t.Parallel()

	t.Run("asks each line until exit", func(t *testing.T) {
		t.Parallel()

		var queries []string
		s := &mock.Session{
			AskFn: func(_ context.Context, q string) (*changescope.Turn, error) {
				queries = append(queries, q)
				return &changescope.Turn{Index: len(queries), Query: q}, nil
			},
			ReportPathFn: func() string { return "results/openai/x/result.md" },
		}
		var out bytes.Buffer

		err := session.RunLines(context.Background(), s, strings.NewReader("first\n\nsecond\nExit\nignored\n"), &out)

		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, queries)
		assert.Equal(t,
			"Enter your questions/changes (type 'exit' to quit):\n"+
				"1> Response has been written to results/openai/x/result.md\n"+
				"2> 2> Response has been written to results/openai/x/result.md\n"+
				"3> ",
			out.String())
	})

	t.Run("errors are printed and the loop continues", func(t *testing.T) {
		t.Parallel()

		calls := 0
		s := &mock.Session{
			AskFn: func(_ context.Context, q string) (*changescope.Turn, error) {
				calls++
				if calls == 1 {
					return nil, errors.New("timeout")
				}
				return &changescope.Turn{Index: 1, Query: q}, nil
			},
			ReportPathFn: func() string { return "r.md" },
		}
		var out bytes.Buffer

		err := session.RunLines(context.Background(), s, strings.NewReader("a\nb\n"), &out)

		require.NoError(t, err)
		assert.Contains(t, out.String(), "1> Error: timeout\n1> Response has been written to r.md\n2> \n")
	})

	t.Run("cancellation stops the loop", func(t *testing.T) {
		t.Parallel()

		s := &mock.Session{
			AskFn: func(ctx context.Context, _ string) (*changescope.Turn, error) {
				return nil, context.Canceled
			},
		}

		err := session.RunLines(context.Background(), s, strings.NewReader("a\n"), &bytes.Buffer{})

		assert.ErrorIs(t, err, context.Canceled)
	})
}
