package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// flagKeys maps persistent flags to the configuration keys they override.
var flagKeys = map[string]string{
	"agent":       "agent",
	"model":       "model",
	"timeout":     "timeout",
	"dir":         "dir",
	"ext":         "extensions",
	"repo":        "github.repo",
	"branch":      "github.branch",
	"results-dir": "results_dir",
	"cache":       "cache.enabled",
	"log-level":   "log.level",
}

// cli carries state shared by the commands of one invocation.
type cli struct {
	stdin  io.Reader
	stdout io.Writer

	viper      *viper.Viper
	configPath string
	envFile    string
	app        *App
}

// NewRootCmd constructs the root command. Running it without a subcommand
// starts an interactive session.
func NewRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout, viper: viper.New()}

	cmd := &cobra.Command{
		Use:           "changescope",
		Short:         "Ask a language model how a change affects your code base",
		SilenceUsage:  true, // don't show usage on runtime errors
		SilenceErrors: true, // let main print errors once
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(c.viper, cmd.Flags()); err != nil {
				return err
			}
			app, err := NewApp(c.viper, c.configPath, c.envFile)
			if err != nil {
				return err
			}
			c.app = app
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return c.close()
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to config file (yaml)")
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file with API keys")
	flags.String("agent", "", "model provider: openai, claude, deepseek, gemini, ollama")
	flags.String("model", "", "model name (provider default if empty)")
	flags.Duration("timeout", 0, "per-call model timeout")
	flags.String("dir", "", "directory containing the files to analyze")
	flags.StringSlice("ext", nil, "file extensions to include")
	flags.String("repo", "", "read files from a GitHub repository (owner/name)")
	flags.String("branch", "", "GitHub branch")
	flags.String("results-dir", "", "root of session report directories")
	flags.Bool("cache", false, "reuse responses for identical prompts")
	flags.String("log-level", "", "debug, info, warn or error")

	session := newSessionCmd(c)
	cmd.RunE = session.RunE
	cmd.AddCommand(session)
	cmd.AddCommand(newAskCmd(c))
	cmd.AddCommand(newRenderCmd(c))
	cmd.AddCommand(newReplayCmd(c))
	cmd.AddCommand(newHistoryCmd(c))
	cmd.AddCommand(newFetchCmd(c))
	cmd.AddCommand(newConfigCmd(c))

	return cmd
}

// close releases the app. Failed commands skip PersistentPostRunE and leave
// cleanup to process exit.
func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

// bindFlags makes changed flags override configuration.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
