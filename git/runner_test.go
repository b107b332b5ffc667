package git_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/changescope/git"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates a temporary git repository with one commit.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()

	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")

	writeFile(t, dir, "fibonacci.py", "def fib(n):\n    return n\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "Initial commit")

	return dir
}

// runGit executes a git command in the given directory.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "command git %v failed: %s", args, string(output))
	return string(output)
}

// writeFile creates a file with the given content.
func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
	require.NoError(t, err)
}

func TestRunner_Diff(t *testing.T) {
	t.Parallel()

	t.Run("returns unstaged changes", func(t *testing.T) {
		t.Parallel()
		dir := setupTestRepo(t)
		writeFile(t, dir, "fibonacci.py", "def fib(n):\n    return n if n < 2 else fib(n-1) + fib(n-2)\n")

		diff, err := git.NewRunner().Diff(context.Background(), dir)

		require.NoError(t, err)
		assert.Contains(t, diff, "diff --git a/fibonacci.py b/fibonacci.py")
		assert.Contains(t, diff, "+    return n if n < 2")
	})

	t.Run("returns empty diff for clean tree", func(t *testing.T) {
		t.Parallel()
		dir := setupTestRepo(t)

		diff, err := git.NewRunner().Diff(context.Background(), dir)

		require.NoError(t, err)
		assert.Empty(t, diff)
	})

	t.Run("fails outside a repository", func(t *testing.T) {
		t.Parallel()
		if _, err := exec.LookPath("git"); err != nil {
			t.Skip("git not installed")
		}

		_, err := git.NewRunner().Diff(context.Background(), t.TempDir())

		assert.ErrorContains(t, err, "git diff failed")
	})
}

func TestRunner_History(t *testing.T) {
	t.Parallel()

	t.Run("returns recent commits with patches", func(t *testing.T) {
		t.Parallel()
		dir := setupTestRepo(t)
		writeFile(t, dir, "main.py", "import fibonacci\n")
		runGit(t, dir, "add", ".")
		runGit(t, dir, "commit", "-m", "Add entry point")

		history, err := git.NewRunner().History(context.Background(), dir, 5)

		require.NoError(t, err)
		assert.Contains(t, history, "Add entry point")
		assert.Contains(t, history, "Initial commit")
		assert.Contains(t, history, "+import fibonacci")
		assert.Less(t, strings.Index(history, "Add entry point"), strings.Index(history, "Initial commit"))
	})

	t.Run("respects limit", func(t *testing.T) {
		t.Parallel()
		dir := setupTestRepo(t)
		writeFile(t, dir, "main.py", "import fibonacci\n")
		runGit(t, dir, "add", ".")
		runGit(t, dir, "commit", "-m", "Add entry point")

		history, err := git.NewRunner().History(context.Background(), dir, 1)

		require.NoError(t, err)
		assert.Contains(t, history, "Add entry point")
		assert.NotContains(t, history, "Initial commit")
	})
}
