package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/changescope"
)

// ExitCommand ends a line session.
const ExitCommand = "exit"

// RunLines runs a session over plain line input, for when stdin is not a
// terminal. It prompts with the turn number, asks each non-empty line and
// stops at "exit" or end of input.
func RunLines(ctx context.Context, s changescope.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Enter your questions/changes (type 'exit' to quit):")
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	next := 1
	for {
		fmt.Fprintf(out, "%d> ", next)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, ExitCommand) {
			return nil
		}
		if line == "" {
			continue
		}

		turn, err := s.Ask(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		next = turn.Index + 1
		fmt.Fprintln(out, "Response has been written to", s.ReportPath())
	}
}
