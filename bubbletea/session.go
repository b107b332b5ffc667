package bubbletea

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/changescope"
)

// ExitCommand ends the session when typed at the prompt.
const ExitCommand = "exit"

const welcome = "Enter your questions/changes (type 'exit' to quit)."

// turnDoneMsg carries the outcome of a session turn.
type turnDoneMsg struct {
	query string
	turn  *changescope.Turn
	err   error
}

// SessionModel is the Bubble Tea model for an interactive session.
type SessionModel struct {
	// Collaborators
	session   changescope.Session
	previewer changescope.Previewer
	clipboard changescope.Clipboard
	ctx       context.Context

	// UI Components
	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	// State
	next    int // Number of the next turn
	last    *changescope.Turn
	pending string
	status  string
	failed  bool
	ready   bool
	width   int

	// Rendering
	palette  changescope.Palette
	renderer *lipgloss.Renderer
	keymap   SessionKeyMap
}

// SessionModelOption configures a SessionModel.
type SessionModelOption func(*SessionModel)

// WithPreviewer renders reports through p before display.
func WithPreviewer(p changescope.Previewer) SessionModelOption {
	return func(m *SessionModel) {
		m.previewer = p
	}
}

// WithClipboard enables copying the last report.
func WithClipboard(c changescope.Clipboard) SessionModelOption {
	return func(m *SessionModel) {
		m.clipboard = c
	}
}

// WithTheme sets the session colors.
func WithTheme(t changescope.Theme) SessionModelOption {
	return func(m *SessionModel) {
		m.palette = t.Palette()
	}
}

// WithRenderer sets a custom lipgloss renderer for the model.
func WithRenderer(r *lipgloss.Renderer) SessionModelOption {
	return func(m *SessionModel) {
		m.renderer = r
	}
}

// WithContext sets the context passed to session turns.
func WithContext(ctx context.Context) SessionModelOption {
	return func(m *SessionModel) {
		m.ctx = ctx
	}
}

// NewSessionModel creates a SessionModel driving s.
func NewSessionModel(s changescope.Session, opts ...SessionModelOption) SessionModel {
	m := SessionModel{
		session: s,
		ctx:     context.Background(),
		next:    1,
		status:  welcome,
		keymap:  DefaultSessionKeyMap(),
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.input = textinput.New()
	m.input.Prompt = m.promptText()
	m.input.PromptStyle = m.newStyle().Foreground(lipgloss.Color(m.palette.Accent))
	m.input.Focus()

	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.spinner.Style = m.newStyle().Foreground(lipgloss.Color(m.palette.Accent))
	return m
}

// Init implements tea.Model.
func (m SessionModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeys(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)

	case turnDoneMsg:
		return m.handleTurnDone(msg)

	case spinner.TickMsg:
		if m.pending == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m SessionModel) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keymap.HalfPageUp):
		m.viewport.HalfPageUp()
		return m, nil

	case key.Matches(msg, m.keymap.HalfPageDown):
		m.viewport.HalfPageDown()
		return m, nil

	case key.Matches(msg, m.keymap.GotoTop):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keymap.GotoBottom):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keymap.CopyReport):
		m.copyReport()
		return m, nil

	case key.Matches(msg, m.keymap.Submit):
		return m.submit()
	}

	// Input is frozen while a turn runs.
	if m.pending != "" {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m SessionModel) submit() (tea.Model, tea.Cmd) {
	if m.pending != "" {
		return m, nil
	}
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return m, nil
	}
	if strings.EqualFold(query, ExitCommand) {
		return m, tea.Quit
	}

	m.input.Reset()
	m.pending = query
	m.failed = false
	m.status = fmt.Sprintf("Analyzing %q...", query)
	return m, tea.Batch(m.spinner.Tick, m.ask(query))
}

func (m SessionModel) ask(query string) tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		turn, err := s.Ask(ctx, query)
		return turnDoneMsg{query: query, turn: turn, err: err}
	}
}

func (m SessionModel) handleTurnDone(msg turnDoneMsg) (tea.Model, tea.Cmd) {
	m.pending = ""
	if msg.err != nil {
		m.failed = true
		m.status = fmt.Sprintf("Error: %v", msg.err)
		return m, nil
	}

	m.last = msg.turn
	m.next = msg.turn.Index + 1
	m.input.Prompt = m.promptText()
	m.status = "Response has been written to " + m.session.ReportPath()
	m.updateViewportContent()
	return m, nil
}

func (m *SessionModel) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	// Reserve: status bar (1), input line (1)
	height := msg.Height - 2
	if height < 1 {
		height = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, height)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = height
	}
	m.input.Width = msg.Width - lipgloss.Width(m.input.Prompt) - 1
	m.updateViewportContent()
	return m, nil
}

func (m *SessionModel) updateViewportContent() {
	if !m.ready {
		return
	}
	if m.last == nil {
		m.viewport.SetContent(m.newStyle().Foreground(lipgloss.Color(m.palette.Muted)).Render(welcome))
		return
	}

	heading := fmt.Sprintf("### %d. %s\n\n", m.last.Index, m.last.Query)
	content := heading + m.last.Report
	if m.previewer != nil {
		if out, err := m.previewer.Preview(content, m.width); err == nil {
			m.viewport.SetContent(out)
			m.viewport.GotoTop()
			return
		}
	}
	m.viewport.SetContent(ExpandTabs(content, 0))
	m.viewport.GotoTop()
}

func (m *SessionModel) copyReport() {
	if m.clipboard == nil || m.last == nil {
		return
	}
	if err := m.clipboard.Copy(m.last.Report); err != nil {
		m.failed = true
		m.status = fmt.Sprintf("Error: copying report: %v", err)
		return
	}
	m.failed = false
	m.status = fmt.Sprintf("Copied report %d to clipboard", m.last.Index)
}

func (m SessionModel) promptText() string {
	return fmt.Sprintf("%d> ", m.next)
}

// newStyle creates a new lipgloss style using the model's renderer.
func (m SessionModel) newStyle() lipgloss.Style {
	if m.renderer != nil {
		return m.renderer.NewStyle()
	}
	return lipgloss.NewStyle()
}

// View implements tea.Model.
func (m SessionModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var input string
	if m.pending != "" {
		input = m.spinner.View() + " " + m.pending
	} else {
		input = m.input.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.statusBarView(), input)
}

// statusBarView renders the status message and key hints.
func (m SessionModel) statusBarView() string {
	fg := m.palette.Foreground
	switch {
	case m.failed:
		fg = m.palette.Error
	case m.last != nil && m.pending == "":
		fg = m.palette.Success
	}
	barStyle := m.newStyle().
		Background(lipgloss.Color(m.palette.UIBackground)).
		Foreground(lipgloss.Color(fg))
	dimStyle := m.newStyle().
		Background(lipgloss.Color(m.palette.UIBackground)).
		Foreground(lipgloss.Color(m.palette.Muted))
	sepStyle := m.newStyle().
		Background(lipgloss.Color(m.palette.UIBackground)).
		Foreground(lipgloss.Color(m.palette.UIForeground))

	content := barStyle.Render(m.status) +
		sepStyle.Render(" │ ") +
		dimStyle.Render(fmt.Sprintf("%3.f%%  pgup/pgdn:scroll  ctrl+y:copy  exit:quit", m.viewport.ScrollPercent()*100))

	contentWidth := lipgloss.Width(content)
	if m.width > contentWidth {
		content += barStyle.Render(strings.Repeat(" ", m.width-contentWidth))
	}
	return content
}

// RunSession runs the interactive session until the user exits.
func RunSession(ctx context.Context, s changescope.Session, opts ...SessionModelOption) error {
	opts = append(opts, WithContext(ctx))
	p := tea.NewProgram(NewSessionModel(s, opts...),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
