package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fwojciec/changescope"
	"github.com/fwojciec/changescope/anthropic"
	"github.com/fwojciec/changescope/chroma"
	"github.com/fwojciec/changescope/config"
	"github.com/fwojciec/changescope/deepseek"
	"github.com/fwojciec/changescope/fs"
	"github.com/fwojciec/changescope/gemini"
	"github.com/fwojciec/changescope/git"
	"github.com/fwojciec/changescope/gitdiff"
	"github.com/fwojciec/changescope/github"
	"github.com/fwojciec/changescope/jsonl"
	"github.com/fwojciec/changescope/logging"
	"github.com/fwojciec/changescope/ollama"
	"github.com/fwojciec/changescope/openai"
	"github.com/fwojciec/changescope/session"
	"github.com/fwojciec/changescope/sqlite"
	"github.com/spf13/viper"
)

// App holds the resolved configuration and shared services of one command.
type App struct {
	Viper  *viper.Viper
	Config *config.Config
	Logger *slog.Logger

	closers []func() error
}

// NewApp loads configuration and opens the log.
func NewApp(v *viper.Viper, configPath, envFile string) (*App, error) {
	cfg, err := config.Load(v, configPath, envFile)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.New(logging.Config{
		File:   cfg.Log.File,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, err
	}
	return &App{Viper: v, Config: cfg, Logger: logger, closers: []func() error{closeLog}}, nil
}

// Close releases resources opened by the app, in reverse order.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// Agent returns the configured agent.
func (a *App) Agent() changescope.Agent {
	agent, _ := changescope.ParseAgent(a.Config.Agent)
	return agent
}

// Analyzer builds the analyzer for the configured agent, wrapped in the
// response cache when enabled.
func (a *App) Analyzer(ctx context.Context) (changescope.Analyzer, error) {
	agent := a.Agent()
	cfg := a.Config
	key := cfg.APIKey(agent)

	var analyzer changescope.Analyzer
	switch agent {
	case changescope.AgentOpenAI:
		an, err := openai.NewAnalyzer(key, openai.WithTimeout(cfg.Timeout), openai.WithModel(cfg.Model))
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		analyzer = an
	case changescope.AgentDeepSeek:
		an, err := deepseek.NewAnalyzer(key, openai.WithTimeout(cfg.Timeout), openai.WithModel(cfg.Model))
		if err != nil {
			return nil, fmt.Errorf("deepseek: %w", err)
		}
		analyzer = an
	case changescope.AgentClaude:
		an, err := anthropic.NewAnalyzer(key, anthropic.WithTimeout(cfg.Timeout), anthropic.WithModel(cfg.Model))
		if err != nil {
			return nil, fmt.Errorf("claude: %w", err)
		}
		analyzer = an
	case changescope.AgentGemini:
		if key == "" {
			return nil, fmt.Errorf("gemini: %w", changescope.ErrMissingAPIKey)
		}
		client, err := gemini.NewClient(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		analyzer = gemini.NewAnalyzer(client, gemini.WithTimeout(cfg.Timeout), gemini.WithModel(cfg.Model))
	case changescope.AgentOllama:
		an, err := ollama.NewAnalyzerFromEnvironment(
			ollama.WithModel(cfg.Model),
			ollama.WithTimeout(max(cfg.Timeout, ollama.DefaultTimeout)),
		)
		if err != nil {
			return nil, fmt.Errorf("ollama: %w", err)
		}
		analyzer = an
	default:
		return nil, fmt.Errorf("%w: %q", changescope.ErrUnsupportedAgent, agent)
	}

	if cfg.Cache.Enabled {
		analyzer = fs.NewAnalyzer(analyzer, agent, cfg.Cache.Dir)
	}
	return analyzer, nil
}

// Renderer returns the report renderer, stamping reports with the analysis
// time unless report.timestamp is off.
func (a *App) Renderer() *changescope.MarkdownRenderer {
	r := changescope.NewMarkdownRenderer(a.Logger)
	r.OmitTimestamp = !a.Config.Report.Timestamp
	return r
}

// GitHub returns a reader for the configured GitHub repository.
func (a *App) GitHub(repo string) (*github.SourceReader, error) {
	owner, name, err := github.ParseRepo(repo)
	if err != nil {
		return nil, err
	}
	cfg := a.Config
	return github.NewSourceReader(&http.Client{Timeout: cfg.Timeout}, cfg.Keys.GitHub, owner, name,
		github.WithBranch(cfg.GitHub.Branch),
		github.WithExtensions(cfg.Extensions...),
		github.WithMaxFileSize(int(cfg.MaxFileSize)),
		github.WithDetector(chroma.NewDetector()),
	), nil
}

// Sources returns the configured source reader: the GitHub repository when
// one is set, otherwise the local directory.
func (a *App) Sources() (changescope.SourceReader, error) {
	if a.Config.GitHub.Repo != "" {
		return a.GitHub(a.Config.GitHub.Repo)
	}
	return fs.NewSourceReader(a.Config.Dir,
		fs.WithExtensions(a.Config.Extensions...),
		fs.WithMaxFileSize(a.Config.MaxFileSize),
		fs.WithDetector(chroma.NewDetector()),
	), nil
}

// History opens the cross-session history index.
func (a *App) History(ctx context.Context) (*sqlite.History, error) {
	h, err := sqlite.Open(ctx, a.Config.History.DB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, h.Close)
	return h, nil
}

// Session creates and opens a session runner for the configured agent.
func (a *App) Session(ctx context.Context, start time.Time) (*session.Runner, error) {
	analyzer, err := a.Analyzer(ctx)
	if err != nil {
		return nil, err
	}
	sources, err := a.Sources()
	if err != nil {
		return nil, err
	}
	prompt, err := changescope.LoadPromptBuilder(a.Config.PromptTemplate)
	if err != nil {
		return nil, err
	}

	dir := fs.NewSessionDir(a.Config.ResultsDir, a.Agent(), start)
	opts := []session.Option{
		session.WithPromptBuilder(prompt),
		session.WithRenderer(a.Renderer()),
		session.WithHistoryLimit(a.Config.HistoryLimit),
		session.WithTurnStore(jsonl.NewTurnStore(dir.TranscriptPath())),
		session.WithLogger(a.Logger),
	}
	if a.Config.GitHub.Repo == "" {
		repo, err := filepath.Abs(a.Config.Dir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, session.WithGit(git.NewRunner(), gitdiff.NewParser(), repo))
	}
	if history, err := a.History(ctx); err != nil {
		a.Logger.Warn("history index unavailable", "error", err)
	} else {
		opts = append(opts, session.WithHistoryIndex(history))
	}

	runner := session.New(a.Agent(), analyzer, sources, dir, opts...)
	if err := runner.Open(); err != nil {
		return nil, err
	}
	a.Logger.Info("session started", "session", dir.ID(), "report", dir.ReportPath())
	return runner, nil
}
