package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fwojciec/changescope"
	"github.com/fwojciec/changescope/bubbletea"
	"github.com/fwojciec/changescope/clipboard"
	"github.com/fwojciec/changescope/config"
	"github.com/fwojciec/changescope/glamour"
	"github.com/fwojciec/changescope/jsonl"
	"github.com/fwojciec/changescope/lipgloss"
	"github.com/fwojciec/changescope/session"
	"github.com/spf13/cobra"
)

func newSessionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Start an interactive question and answer session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app := c.app
			runner, err := app.Session(ctx, time.Now())
			if err != nil {
				return err
			}

			if !isTerminal(c.stdin) {
				return session.RunLines(ctx, runner, c.stdin, c.stdout)
			}

			theme := lipgloss.ThemeByName(app.Config.Theme)
			style := app.Config.Preview.Style
			if style == "" {
				style = theme.PreviewStyle()
			}
			if err := bubbletea.RunSession(ctx, runner,
				bubbletea.WithTheme(theme),
				bubbletea.WithPreviewer(glamour.NewPreviewer(style)),
				bubbletea.WithClipboard(clipboard.NewSystem()),
			); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "%d turn(s) written to %s\n", runner.Turns(), runner.ReportPath())
			return nil
		},
	}
}

func newAskCmd(c *cli) *cobra.Command {
	var query, changesFile string
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask one question and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ask := &AskApp{Output: c.stdout, Query: query}
			if changesFile != "" {
				data, err := os.ReadFile(changesFile)
				if err != nil {
					return fmt.Errorf("reading changes file: %w", err)
				}
				if ask.Changes, err = changescope.ParseChanges(string(data)); err != nil {
					return err
				}
			}
			if ask.Query == "" && len(ask.Changes) == 0 {
				return ErrNoInput
			}

			runner, err := c.app.Session(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			ask.Session = runner
			return ask.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "question to ask")
	cmd.Flags().StringVar(&changesFile, "changes-file", "", `JSON file of {"path": "change"} entries`)
	return cmd
}

func newRenderCmd(c *cli) *cobra.Command {
	var noTimestamp bool
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render a raw model response as a Markdown report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			input := c.stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				input = f
			} else if isTerminal(c.stdin) {
				return ErrNoInput
			}
			renderer := c.app.Renderer()
			renderer.OmitTimestamp = renderer.OmitTimestamp || noTimestamp
			app := &RenderApp{Input: input, Output: c.stdout, Renderer: renderer, Logger: c.app.Logger}
			return app.Run()
		},
	}
	cmd.Flags().BoolVar(&noTimestamp, "no-timestamp", false, "omit the analysis time line")
	return cmd
}

func newReplayCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <transcript.jsonl>",
		Short: "Re-render the turns of a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			app := &ReplayApp{
				Store:         jsonl.NewTurnStore(args[0]),
				Output:        c.stdout,
				OmitTimestamp: !c.app.Config.Report.Timestamp,
				Logger:        c.app.Logger,
			}
			return app.Run()
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [pattern]",
		Short: "List recent questions, or fuzzy-search them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := c.app.History(cmd.Context())
			if err != nil {
				return err
			}
			app := &HistoryApp{Index: index, Output: c.stdout, Limit: limit}
			if len(args) == 1 {
				app.Pattern = args[0]
			}
			return app.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of turns")
	return cmd
}

func newFetchCmd(c *cli) *cobra.Command {
	var file string
	var commits int
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Show files or commits of the configured GitHub repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo := c.app.Config.GitHub.Repo
			if repo == "" {
				return fmt.Errorf("fetch: --repo is required")
			}
			reader, err := c.app.GitHub(repo)
			if err != nil {
				return err
			}
			app := &FetchApp{Reader: reader, Output: c.stdout, File: file, Commits: commits}
			return app.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "print this file")
	cmd.Flags().IntVar(&commits, "commits", 0, "print this many recent commits with their changed files")
	return cmd
}

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			out, err := config.Render(c.app.Viper)
			if err != nil {
				return err
			}
			_, err = io.WriteString(c.stdout, out)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Print a config file with every option at its default",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			out, err := config.RenderDefault()
			if err != nil {
				return err
			}
			_, err = io.WriteString(c.stdout, out)
			return err
		},
	})
	return cmd
}
