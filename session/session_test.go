package session_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/changescope"
	"github.com/fwojciec/changescope/fs"
	"github.com/fwojciec/changescope/jsonl"
	"github.com/fwojciec/changescope/mock"
	"github.com/fwojciec/changescope/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func sources() *mock.SourceReader {
	return &mock.SourceReader{
		ReadSourcesFn: func(context.Context) ([]changescope.SourceFile, error) {
			return []changescope.SourceFile{{Path: "fibonacci.py", Content: "def fib(n): pass"}}, nil
		},
	}
}

func replying(replies ...string) *mock.Analyzer {
	var mu sync.Mutex
	i := 0
	return &mock.Analyzer{
		AnalyzeFn: func(context.Context, string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			reply := replies[i%len(replies)]
			i++
			return reply, nil
		},
	}
}

func newRunner(t *testing.T, analyzer changescope.Analyzer, opts ...session.Option) (*session.Runner, *fs.SessionDir) {
	t.Helper()
	dir := fs.NewSessionDir(t.TempDir(), changescope.AgentOpenAI, start)
	opts = append([]session.Option{
		session.WithRenderer(&changescope.MarkdownRenderer{OmitTimestamp: true}),
		session.WithClock(func() time.Time { return start }),
	}, opts...)
	r := session.New(changescope.AgentOpenAI, analyzer, sources(), dir, opts...)
	require.NoError(t, r.Open())
	return r, dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunner_Ask(t *testing.T) {
	t.Parallel()

	t.Run("appends numbered turns to the report", func(t *testing.T) {
		t.Parallel()

		r, dir := newRunner(t, replying(`{"notes": "first"}`, "plain answer"))

		turn, err := r.Ask(context.Background(), "What does fib do?")
		require.NoError(t, err)
		assert.Equal(t, 1, turn.Index)
		assert.True(t, turn.Structured)
		assert.Equal(t, "### Notes\nfirst\n\n", turn.Report)
		assert.Equal(t, "openai/2024_03_05_14_07_09", turn.SessionID)
		assert.Empty(t, turn.Changes)

		turn, err = r.Ask(context.Background(), "  And then?  ")
		require.NoError(t, err)
		assert.Equal(t, 2, turn.Index)
		assert.False(t, turn.Structured)
		assert.Equal(t, "And then?", turn.Query)

		assert.Equal(t,
			"# Agent: openai\n"+
				"\n### 1. What does fib do?\n"+
				"\n### Notes\nfirst\n\n\n"+
				"\n### 2. And then?\n"+
				"\nplain answer\n",
			readFile(t, dir.ReportPath()))
		assert.Equal(t, 2, r.Turns())
	})

	t.Run("writes prompt and response debug files", func(t *testing.T) {
		t.Parallel()

		r, dir := newRunner(t, replying("```json\n{\"notes\": \"x\"}\n```"))

		turn, err := r.Ask(context.Background(), "Explain")
		require.NoError(t, err)

		prompt := readFile(t, filepath.Join(dir.Dir(), fs.DebugDir, "prompt_1.txt"))
		assert.Equal(t, turn.Prompt, prompt)
		assert.Contains(t, prompt, "user_query:\nExplain")
		assert.Contains(t, prompt, "def fib(n): pass")
		assert.Equal(t, "```json\n{\"notes\": \"x\"}\n```",
			readFile(t, filepath.Join(dir.Dir(), fs.DebugDir, "response_1.txt")))
	})

	t.Run("empty query is rejected", func(t *testing.T) {
		t.Parallel()

		r, dir := newRunner(t, replying("x"))

		_, err := r.Ask(context.Background(), "   ")

		assert.ErrorIs(t, err, changescope.ErrEmptyQuery)
		assert.Equal(t, "# Agent: openai\n", readFile(t, dir.ReportPath()))
	})

	t.Run("analyzer failure keeps the counter", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("rate limited")
		calls := 0
		analyzer := &mock.Analyzer{
			AnalyzeFn: func(context.Context, string) (string, error) {
				calls++
				if calls == 1 {
					return "", boom
				}
				return "ok", nil
			},
		}
		r, dir := newRunner(t, analyzer)

		_, err := r.Ask(context.Background(), "first try")
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, r.Turns())

		turn, err := r.Ask(context.Background(), "second try")
		require.NoError(t, err)
		assert.Equal(t, 1, turn.Index)

		report := readFile(t, dir.ReportPath())
		assert.Contains(t, report, "\n### 1. first try\n\n_Turn 1 failed: analyzing with openai: rate limited_\n")
		assert.Contains(t, report, "\n### 1. second try\n\nok\n")
	})

	t.Run("source failure is reported", func(t *testing.T) {
		t.Parallel()

		dir := fs.NewSessionDir(t.TempDir(), changescope.AgentClaude, start)
		r := session.New(changescope.AgentClaude, replying("x"), &mock.SourceReader{
			ReadSourcesFn: func(context.Context) ([]changescope.SourceFile, error) {
				return nil, changescope.ErrNoSources
			},
		}, dir)
		require.NoError(t, r.Open())

		_, err := r.Ask(context.Background(), "anything")

		assert.ErrorIs(t, err, changescope.ErrNoSources)
		assert.Contains(t, readFile(t, dir.ReportPath()), "_Turn 1 failed: reading sources")
	})
}

func TestRunner_AskChanges(t *testing.T) {
	t.Parallel()

	t.Run("describes changes by path", func(t *testing.T) {
		t.Parallel()

		var prompt string
		r, _ := newRunner(t, &mock.Analyzer{
			AnalyzeFn: func(_ context.Context, p string) (string, error) {
				prompt = p
				return "{}", nil
			},
		})
		changes := []changescope.Change{{Path: "fibonacci.py", Text: "use memoization"}}

		turn, err := r.AskChanges(context.Background(), changes)

		require.NoError(t, err)
		assert.Equal(t, "Changes to fibonacci.py", turn.Query)
		assert.Equal(t, changes, turn.Changes)
		assert.Contains(t, prompt, "fibonacci.py:\nuse memoization")
		assert.Contains(t, prompt, "- fibonacci.py\n")
	})

	t.Run("no changes", func(t *testing.T) {
		t.Parallel()

		r, _ := newRunner(t, replying("x"))

		_, err := r.AskChanges(context.Background(), []changescope.Change{{Path: "a.py", Text: " "}})

		assert.ErrorIs(t, err, changescope.ErrEmptyQuery)
	})
}

func TestRunner_GitContext(t *testing.T) {
	t.Parallel()

	t.Run("adds diff summary and history", func(t *testing.T) {
		t.Parallel()

		git := &mock.GitRunner{
			DiffFn: func(_ context.Context, repo string) (string, error) {
				assert.Equal(t, "/repo", repo)
				return "diff --git a/fibonacci.py b/fibonacci.py\n", nil
			},
			HistoryFn: func(_ context.Context, _ string, limit int) (string, error) {
				assert.Equal(t, 3, limit)
				return "commit abc123", nil
			},
		}
		parser := &mock.Parser{
			ParseFn: func(r io.Reader) (*changescope.Diff, error) {
				return &changescope.Diff{Files: []changescope.FileDiff{{
					NewPath: "fibonacci.py",
					Hunks: []changescope.Hunk{{Lines: []changescope.Line{
						{Type: changescope.LineAdded, Content: "x"},
					}}},
				}}}, nil
			},
		}
		var prompt string
		r, _ := newRunner(t, &mock.Analyzer{
			AnalyzeFn: func(_ context.Context, p string) (string, error) {
				prompt = p
				return "ok", nil
			},
		}, session.WithGit(git, parser, "/repo"), session.WithHistoryLimit(3))

		_, err := r.Ask(context.Background(), "q")

		require.NoError(t, err)
		assert.Contains(t, prompt, "Unstaged Changes:\n- fibonacci.py (modified, +1 -0)\n")
		assert.Contains(t, prompt, "diff --git a/fibonacci.py")
		assert.Contains(t, prompt, "Recent Commit History:\ncommit abc123")
	})

	t.Run("git errors are ignored", func(t *testing.T) {
		t.Parallel()

		git := &mock.GitRunner{
			DiffFn: func(context.Context, string) (string, error) {
				return "", errors.New("not a git repository")
			},
			HistoryFn: func(context.Context, string, int) (string, error) {
				return "", errors.New("not a git repository")
			},
		}
		var prompt string
		r, _ := newRunner(t, &mock.Analyzer{
			AnalyzeFn: func(_ context.Context, p string) (string, error) {
				prompt = p
				return "ok", nil
			},
		}, session.WithGit(git, nil, "."))

		_, err := r.Ask(context.Background(), "q")

		require.NoError(t, err)
		assert.False(t, strings.Contains(prompt, "Unstaged Changes"))
		assert.False(t, strings.Contains(prompt, "Recent Commit History"))
	})
}

func TestRunner_Persistence(t *testing.T) {
	t.Parallel()

	var recorded []changescope.Turn
	history := &mock.HistoryIndex{
		RecordFn: func(_ context.Context, turn changescope.Turn) error {
			recorded = append(recorded, turn)
			return nil
		},
	}
	dir := fs.NewSessionDir(t.TempDir(), changescope.AgentOpenAI, start)
	store := jsonl.NewTurnStore(dir.TranscriptPath())
	r := session.New(changescope.AgentOpenAI, replying(`{"notes": "n"}`), sources(), dir,
		session.WithTurnStore(store),
		session.WithHistoryIndex(history),
		session.WithClock(func() time.Time { return start }))
	require.NoError(t, r.Open())

	_, err := r.Ask(context.Background(), "one")
	require.NoError(t, err)
	_, err = r.Ask(context.Background(), "two")
	require.NoError(t, err)

	turns, err := store.Load()
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "one", turns[0].Query)
	assert.Equal(t, "two", turns[1].Query)
	assert.Equal(t, dir.ReportPath(), turns[1].ReportPath)
	assert.True(t, turns[0].AskedAt.Equal(start))
	require.Len(t, recorded, 2)
	assert.Equal(t, 2, recorded[1].Index)
}

func TestRunner_PersistsTurn(t *testing.T) {
	t.Parallel()

	t.Run("stores the full turn", func(t *testing.T) {
		t.Parallel()

		var saved []changescope.Turn
		store := &mock.TurnStore{
			AppendFn: func(turn changescope.Turn) error {
				saved = append(saved, turn)
				return nil
			},
		}
		r, dir := newRunner(t, replying(`{"notes": "n"}`), session.WithTurnStore(store))

		turn, err := r.AskChanges(context.Background(), []changescope.Change{{Path: "fibonacci.py", Text: "memoize"}})

		require.NoError(t, err)
		require.Len(t, saved, 1)
		got := saved[0]
		assert.Equal(t, *turn, got)
		assert.Equal(t, dir.ID(), got.SessionID)
		assert.Equal(t, 1, got.Index)
		assert.Equal(t, changescope.AgentOpenAI, got.Agent)
		assert.Equal(t, []changescope.Change{{Path: "fibonacci.py", Text: "memoize"}}, got.Changes)
		assert.Equal(t, `{"notes": "n"}`, got.Response)
		assert.True(t, got.Structured)
		assert.Equal(t, "### Notes\nn\n\n", got.Report)
		assert.Contains(t, got.Prompt, "memoize")
		assert.True(t, got.AskedAt.Equal(start))
	})

	t.Run("store failure does not fail the turn", func(t *testing.T) {
		t.Parallel()

		store := &mock.TurnStore{
			AppendFn: func(changescope.Turn) error { return errors.New("disk full") },
		}
		r, _ := newRunner(t, replying("plain answer"), session.WithTurnStore(store))

		turn, err := r.Ask(context.Background(), "why?")

		require.NoError(t, err)
		assert.False(t, turn.Structured)
		assert.Equal(t, 1, r.Turns())
	})
}
