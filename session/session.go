// Package session runs question and answer turns against a code base and
// records them in a session directory.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/changescope"
)

// DefaultHistoryLimit is the number of commits included in prompts.
const DefaultHistoryLimit = 5

// Compile-time interface verification.
var _ changescope.Session = (*Runner)(nil)

// Workspace is where a session writes its report and debug files.
type Workspace interface {
	ID() string
	ReportPath() string
	Create() error
	AppendReport(text string) error
	WriteDebug(kind string, n int, content string) (string, error)
}

// Runner implements changescope.Session.
type Runner struct {
	agent     changescope.Agent
	analyzer  changescope.Analyzer
	sources   changescope.SourceReader
	workspace Workspace

	git          changescope.GitRunner
	parser       changescope.Parser
	repoPath     string
	historyLimit int

	prompt     *changescope.PromptBuilder
	normalizer *changescope.Normalizer
	renderer   changescope.ReportRenderer
	store      changescope.TurnStore
	history    changescope.HistoryIndex
	logger     *slog.Logger
	now        func() time.Time

	mu    sync.Mutex
	turns int
}

// Option configures a Runner.
type Option func(*Runner)

// WithGit adds the unstaged diff and recent history of repoPath to prompts.
// The parser, if non-nil, summarizes the diff per file.
func WithGit(git changescope.GitRunner, parser changescope.Parser, repoPath string) Option {
	return func(r *Runner) {
		r.git = git
		r.parser = parser
		r.repoPath = repoPath
	}
}

// WithHistoryLimit sets the number of commits included in prompts.
func WithHistoryLimit(n int) Option {
	return func(r *Runner) {
		r.historyLimit = n
	}
}

// WithPromptBuilder replaces the default prompt template.
func WithPromptBuilder(b *changescope.PromptBuilder) Option {
	return func(r *Runner) {
		r.prompt = b
	}
}

// WithRenderer replaces the default Markdown renderer.
func WithRenderer(rr changescope.ReportRenderer) Option {
	return func(r *Runner) {
		r.renderer = rr
	}
}

// WithTurnStore appends every answered turn to s.
func WithTurnStore(s changescope.TurnStore) Option {
	return func(r *Runner) {
		r.store = s
	}
}

// WithHistoryIndex records every answered turn in h.
func WithHistoryIndex(h changescope.HistoryIndex) Option {
	return func(r *Runner) {
		r.history = h
	}
}

// WithLogger sets the logger shared with the normalizer and renderer.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New creates a Runner. Call Open before the first turn.
func New(agent changescope.Agent, analyzer changescope.Analyzer, sources changescope.SourceReader, ws Workspace, opts ...Option) *Runner {
	r := &Runner{
		agent:        agent,
		analyzer:     analyzer,
		sources:      sources,
		workspace:    ws,
		historyLimit: DefaultHistoryLimit,
		prompt:       changescope.NewPromptBuilder(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	r.normalizer = &changescope.Normalizer{Logger: r.logger}
	if r.renderer == nil {
		r.renderer = changescope.NewMarkdownRenderer(r.logger)
	}
	return r
}

// Open creates the session directory and report.
func (r *Runner) Open() error {
	return r.workspace.Create()
}

// ReportPath returns the path of the session's Markdown report.
func (r *Runner) ReportPath() string {
	return r.workspace.ReportPath()
}

// Turns returns the number of answered turns.
func (r *Runner) Turns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.turns
}

// Ask runs one turn for a free-form question.
func (r *Runner) Ask(ctx context.Context, query string) (*changescope.Turn, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, changescope.ErrEmptyQuery
	}
	return r.run(ctx, query, []changescope.Change{{Path: changescope.UserQueryPath, Text: query}})
}

// AskChanges runs one turn for a set of requested changes.
func (r *Runner) AskChanges(ctx context.Context, changes []changescope.Change) (*changescope.Turn, error) {
	var paths []string
	for _, c := range changes {
		if strings.TrimSpace(c.Text) != "" {
			paths = append(paths, c.Path)
		}
	}
	if len(paths) == 0 {
		return nil, changescope.ErrEmptyQuery
	}
	return r.run(ctx, "Changes to "+strings.Join(paths, ", "), changes)
}

func (r *Runner) run(ctx context.Context, query string, changes []changescope.Change) (*changescope.Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.turns + 1
	log := r.logger.With("session", r.workspace.ID(), "turn", n)

	if err := r.workspace.AppendReport(fmt.Sprintf("\n### %d. %s\n", n, query)); err != nil {
		return nil, err
	}

	files, err := r.sources.ReadSources(ctx)
	if err != nil {
		return nil, r.fail(n, fmt.Errorf("reading sources: %w", err))
	}

	in := changescope.PromptInput{Files: files, Changes: changes}
	r.addGitContext(ctx, log, &in)
	prompt := r.prompt.Build(in)
	if _, err := r.workspace.WriteDebug("prompt", n, prompt); err != nil {
		log.Warn("saving prompt", "error", err)
	}

	start := r.now()
	raw, err := r.analyzer.Analyze(ctx, prompt)
	if err != nil {
		return nil, r.fail(n, fmt.Errorf("analyzing with %s: %w", r.agent, err))
	}
	log.Info("analysis complete", "agent", r.agent, "elapsed", r.now().Sub(start))
	if _, err := r.workspace.WriteDebug("response", n, raw); err != nil {
		log.Warn("saving response", "error", err)
	}

	result := r.normalizer.Normalize(raw)
	report := r.renderer.Render(result)
	if err := r.workspace.AppendReport("\n" + report + "\n"); err != nil {
		return nil, err
	}
	r.turns = n

	turn := &changescope.Turn{
		SessionID:  r.workspace.ID(),
		Index:      n,
		Agent:      r.agent,
		Query:      query,
		Prompt:     prompt,
		Response:   raw,
		Structured: result.IsStructured(),
		Report:     report,
		ReportPath: r.workspace.ReportPath(),
		AskedAt:    start,
	}
	if len(changes) != 1 || changes[0].Path != changescope.UserQueryPath {
		turn.Changes = changes
	}
	r.persist(ctx, log, *turn)
	return turn, nil
}

// addGitContext fills the git sections of in. Git is optional context, so
// failures are logged and the sections left empty.
func (r *Runner) addGitContext(ctx context.Context, log *slog.Logger, in *changescope.PromptInput) {
	if r.git == nil {
		return
	}
	diff, err := r.git.Diff(ctx, r.repoPath)
	if err != nil {
		log.Warn("getting git diff", "error", err)
	} else {
		in.GitDiff = diff
		if r.parser != nil && diff != "" {
			parsed, err := r.parser.Parse(strings.NewReader(diff))
			if err != nil {
				log.Warn("parsing git diff", "error", err)
			} else {
				in.DiffStats = parsed.Summary()
			}
		}
	}
	if r.historyLimit <= 0 {
		return
	}
	history, err := r.git.History(ctx, r.repoPath, r.historyLimit)
	if err != nil {
		log.Warn("getting git history", "error", err)
		return
	}
	in.GitHistory = history
}

func (r *Runner) fail(n int, err error) error {
	if werr := r.workspace.AppendReport(fmt.Sprintf("\n_Turn %d failed: %v_\n", n, err)); werr != nil {
		r.logger.Warn("recording failure", "error", werr)
	}
	return err
}

func (r *Runner) persist(ctx context.Context, log *slog.Logger, turn changescope.Turn) {
	if r.store != nil {
		if err := r.store.Append(turn); err != nil {
			log.Warn("saving transcript", "error", err)
		}
	}
	if r.history != nil {
		if err := r.history.Record(ctx, turn); err != nil {
			log.Warn("recording history", "error", err)
		}
	}
}
