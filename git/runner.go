// Package git provides access to git operations via shell commands.
package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/fwojciec/changescope"
)

// Compile-time interface verification.
var _ changescope.GitRunner = (*Runner)(nil)

// Runner executes git commands via shell.
type Runner struct{}

// NewRunner creates a new git runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Diff returns the unstaged changes of the working tree at repoPath.
func (r *Runner) Diff(ctx context.Context, repoPath string) (string, error) {
	return r.run(ctx, "diff", "-C", repoPath, "diff", "--no-color", "--no-ext-diff")
}

// History returns the last limit commits at repoPath with their patches,
// newest first.
func (r *Runner) History(ctx context.Context, repoPath string, limit int) (string, error) {
	return r.run(ctx, "log", "-C", repoPath, "log", "--no-color", "--patch",
		"--format=commit %H%nAuthor: %an%nDate:   %ad%n%n    %s%n", fmt.Sprintf("-n%d", limit))
}

func (r *Runner) run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git %s failed: %s", name, string(exitErr.Stderr))
		}
		return "", fmt.Errorf("git %s failed: %w", name, err)
	}
	return string(output), nil
}
