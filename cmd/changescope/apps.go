package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/changescope"
	"github.com/fwojciec/changescope/github"
)

// ErrNoInput is returned when a command has nothing to work on.
var ErrNoInput = errors.New("no input: pass --query, --changes-file or pipe a response")

// AskApp runs a single session turn and prints its report.
type AskApp struct {
	Session changescope.Session
	Output  io.Writer
	Query   string
	Changes []changescope.Change
}

// Run asks the query, or the changes when any are set.
func (a *AskApp) Run(ctx context.Context) error {
	var (
		turn *changescope.Turn
		err  error
	)
	switch {
	case len(a.Changes) > 0:
		turn, err = a.Session.AskChanges(ctx, a.Changes)
	case a.Query != "":
		turn, err = a.Session.Ask(ctx, a.Query)
	default:
		return ErrNoInput
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.Output, turn.Report)
	return err
}

// RenderApp normalizes a raw model response and prints it as Markdown.
type RenderApp struct {
	Input    io.Reader
	Output   io.Writer
	Renderer changescope.ReportRenderer
	Logger   *slog.Logger
}

// Run reads the whole input and renders it.
func (a *RenderApp) Run() error {
	data, err := io.ReadAll(a.Input)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if len(data) == 0 {
		return ErrNoInput
	}
	n := &changescope.Normalizer{Logger: a.Logger}
	_, err = fmt.Fprintln(a.Output, a.Renderer.Render(n.Normalize(string(data))))
	return err
}

// ReplayApp re-renders the turns of a saved transcript in report form.
type ReplayApp struct {
	Store         changescope.TurnStore
	Output        io.Writer
	OmitTimestamp bool
	Logger        *slog.Logger
}

// Run prints the report of every turn, timestamped with the time it was asked.
func (a *ReplayApp) Run() error {
	turns, err := a.Store.Load()
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return ErrNoInput
	}
	n := &changescope.Normalizer{Logger: a.Logger}
	fmt.Fprintf(a.Output, "# Agent: %s\n", turns[0].Agent)
	for _, turn := range turns {
		askedAt := turn.AskedAt
		r := &changescope.MarkdownRenderer{
			Now:           func() time.Time { return askedAt },
			OmitTimestamp: a.OmitTimestamp,
			Logger:        a.Logger,
		}
		fmt.Fprintf(a.Output, "\n### %d. %s\n", turn.Index, turn.Query)
		if _, err := fmt.Fprintf(a.Output, "\n%s\n", r.Render(n.Normalize(turn.Response))); err != nil {
			return err
		}
	}
	return nil
}

// HistoryLayout formats turn times in history listings.
const HistoryLayout = "2006-01-02 15:04"

// HistoryApp lists recorded turns.
type HistoryApp struct {
	Index   changescope.HistoryIndex
	Output  io.Writer
	Pattern string
	Limit   int
}

// Run prints recent turns, or those whose query matches Pattern.
func (a *HistoryApp) Run(ctx context.Context) error {
	var (
		turns []changescope.Turn
		err   error
	)
	if a.Pattern == "" {
		turns, err = a.Index.Recent(ctx, a.Limit)
	} else {
		turns, err = a.Index.Search(ctx, a.Pattern, a.Limit)
	}
	if err != nil {
		return err
	}
	for _, t := range turns {
		fmt.Fprintf(a.Output, "%s  %-8s %3d. %s\n", t.AskedAt.Format(HistoryLayout), t.Agent, t.Index, t.Query)
		if t.ReportPath != "" {
			fmt.Fprintf(a.Output, "%22s%s\n", "", t.ReportPath)
		}
	}
	return nil
}

// RepoReader reads a remote repository.
type RepoReader interface {
	changescope.SourceReader
	FetchFile(ctx context.Context, path string) (string, error)
	RecentCommits(ctx context.Context, limit int) ([]github.Commit, error)
}

// FetchApp prints content from a remote repository.
type FetchApp struct {
	Reader  RepoReader
	Output  io.Writer
	File    string // Print this file
	Commits int    // Print this many recent commits
}

// Run prints the file, the commits, or the list of source files.
func (a *FetchApp) Run(ctx context.Context) error {
	switch {
	case a.File != "":
		content, err := a.Reader.FetchFile(ctx, a.File)
		if err != nil {
			return err
		}
		_, err = io.WriteString(a.Output, content)
		return err
	case a.Commits > 0:
		commits, err := a.Reader.RecentCommits(ctx, a.Commits)
		if err != nil {
			return err
		}
		_, err = io.WriteString(a.Output, github.FormatCommits(commits))
		return err
	}

	files, err := a.Reader.ReadSources(ctx)
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.Language != "" {
			fmt.Fprintf(a.Output, "%s (%s, %d bytes)\n", f.Path, f.Language, len(f.Content))
			continue
		}
		fmt.Fprintf(a.Output, "%s (%d bytes)\n", f.Path, len(f.Content))
	}
	return nil
}
