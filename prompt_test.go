package changescope_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/changescope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptBuilder_Build(t *testing.T) {
	t.Parallel()

	files := []changescope.SourceFile{
		{Path: "fibonacci.py", Content: "def fib(n): pass"},
		{Path: "main.py", Content: "import fibonacci.py"},
	}

	t.Run("fills every placeholder", func(t *testing.T) {
		t.Parallel()

		b := &changescope.PromptBuilder{Template: "F:{file_system}|C:{changes}|A:{affected_files}|D:{git_diff}|H:{git_history}"}

		got := b.Build(changescope.PromptInput{
			Files:      files,
			Changes:    []changescope.Change{{Path: "fibonacci.py", Text: "use memoization"}},
			GitDiff:    "diff --git a/x b/x",
			DiffStats:  "x +1 -0",
			GitHistory: "commit abc",
		})

		assert.Equal(t,
			"F:\nfibonacci.py:\ndef fib(n): pass\n\nmain.py:\nimport fibonacci.py\n"+
				"|C:\nfibonacci.py:\nuse memoization\n"+
				"|A:- fibonacci.py\n- main.py\n"+
				"|D:\nUnstaged Changes:\nx +1 -0\ndiff --git a/x b/x\n"+
				"|H:\nRecent Commit History:\ncommit abc\n",
			got)
	})

	t.Run("drops empty git sections", func(t *testing.T) {
		t.Parallel()

		b := &changescope.PromptBuilder{Template: "[{git_diff}{git_history}]"}

		assert.Equal(t, "[]", b.Build(changescope.PromptInput{}))
	})

	t.Run("default template asks for the report keys", func(t *testing.T) {
		t.Parallel()

		got := changescope.NewPromptBuilder().Build(changescope.PromptInput{
			Files:   files,
			Changes: []changescope.Change{{Path: changescope.UserQueryPath, Text: "What does fib do?"}},
		})

		assert.Contains(t, got, "user_query:\nWhat does fib do?")
		assert.Contains(t, got, "def fib(n): pass")
		for _, key := range []string{changescope.KeyChangesRequired, changescope.KeyImpactAnalysis, changescope.KeyDependencies} {
			assert.Contains(t, got, key)
		}
		assert.False(t, strings.Contains(got, "{file_system}"))
	})
}

func TestLoadPromptBuilder(t *testing.T) {
	t.Parallel()

	t.Run("empty path uses default template", func(t *testing.T) {
		t.Parallel()

		b, err := changescope.LoadPromptBuilder("")

		require.NoError(t, err)
		assert.Equal(t, changescope.DefaultTemplate(), b.Template)
	})

	t.Run("reads template file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "prompt.txt")
		require.NoError(t, os.WriteFile(path, []byte("custom {changes}"), 0o644))

		b, err := changescope.LoadPromptBuilder(path)

		require.NoError(t, err)
		assert.Equal(t, "custom \na:\nb\n", b.Build(changescope.PromptInput{
			Changes: []changescope.Change{{Path: "a", Text: "b"}},
		}))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := changescope.LoadPromptBuilder(filepath.Join(t.TempDir(), "missing.txt"))

		assert.Error(t, err)
	})
}

func TestAffectedFiles(t *testing.T) {
	t.Parallel()

	files := []changescope.SourceFile{
		{Path: "util.py", Content: "x = 1"},
		{Path: "app.py", Content: "from util.py import x"},
		{Path: "other.py", Content: "print('hi')"},
	}

	t.Run("includes changed and referencing files", func(t *testing.T) {
		t.Parallel()

		got := changescope.AffectedFiles(files, []changescope.Change{{Path: "util.py", Text: "x = 2"}})

		assert.Equal(t, []string{"app.py", "util.py"}, got)
	})

	t.Run("user query names no file", func(t *testing.T) {
		t.Parallel()

		got := changescope.AffectedFiles(files, []changescope.Change{{Path: changescope.UserQueryPath, Text: "util.py?"}})

		assert.Empty(t, got)
	})

	t.Run("changed file outside sources", func(t *testing.T) {
		t.Parallel()

		got := changescope.AffectedFiles(nil, []changescope.Change{{Path: "new.py", Text: "created"}})

		assert.Equal(t, []string{"new.py"}, got)
	})
}

func TestParseAgent(t *testing.T) {
	t.Parallel()

	for _, a := range changescope.Agents() {
		got, err := changescope.ParseAgent(string(a))
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	_, err := changescope.ParseAgent("gpt-5000")
	assert.ErrorIs(t, err, changescope.ErrUnsupportedAgent)
}

func TestParseChanges(t *testing.T) {
	t.Parallel()

	t.Run("keeps file order", func(t *testing.T) {
		t.Parallel()

		got, err := changescope.ParseChanges(`{"util.py": "rename x", "app.py": "update import", "user_query": "safe?"}`)

		require.NoError(t, err)
		assert.Equal(t, []changescope.Change{
			{Path: "util.py", Text: "rename x"},
			{Path: "app.py", Text: "update import"},
			{Path: changescope.UserQueryPath, Text: "safe?"},
		}, got)
	})

	t.Run("array is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := changescope.ParseChanges(`["util.py"]`)

		assert.ErrorIs(t, err, changescope.ErrNotObject)
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()

		_, err := changescope.ParseChanges(`{"a": `)

		assert.Error(t, err)
	})
}
