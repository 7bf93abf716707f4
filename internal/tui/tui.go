// Package tui implements the Bubble Tea terminal user interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sprite-ai/repolens/internal/app"
	"github.com/sprite-ai/repolens/internal/logging"
)

// Runner drives a run that the UI has started.
type Runner interface {
	Execute(s *app.Session, run app.Run, root string) error
}

// ModelLister lists the models that can be selected with the model key.
type ModelLister interface {
	Models(ctx context.Context) ([]string, error)
}

type stateMsg app.State

// startMsg asks Update to begin a run.
type startMsg struct{}

type runDoneMsg struct{ err error }

type modelsMsg struct {
	names []string
	err   error
}

// Model is the top-level Bubble Tea model for repolens. It only reads
// pipeline-owned state from the session; scroll and model selection are
// the fields it writes.
type Model struct {
	session *app.Session
	runner  Runner
	lister  ModelLister
	root    string

	updates     <-chan app.State
	unsubscribe func()

	state   app.State
	lines   []string
	spinner spinner.Model

	// UI state
	width      int
	height     int
	viewHeight int
	showHelp   bool
	notice     string
}

// New creates a TUI model observing s. lister may be nil.
func New(s *app.Session, r Runner, lister ModelLister, root string) Model {
	updates, unsubscribe := s.Subscribe()
	m := Model{
		session:     s,
		runner:      r,
		lister:      lister,
		root:        root,
		updates:     updates,
		unsubscribe: unsubscribe,
		state:       s.Snapshot(),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
	}
	return m
}

// Init implements tea.Model. The first run starts as soon as Update sees
// startMsg.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForState(m.updates), startRun, m.loadModels())
}

func startRun() tea.Msg { return startMsg{} }

func waitForState(ch <-chan app.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

// start begins a run and returns the command that executes it.
func (m *Model) start() tea.Cmd {
	run, err := m.session.Start(context.Background())
	if err != nil {
		m.notice = err.Error()
		return nil
	}
	m.notice = ""
	m.state = m.session.Snapshot()
	m.relayout()
	runner, session, root := m.runner, m.session, m.root
	return func() tea.Msg {
		return runDoneMsg{err: runner.Execute(session, run, root)}
	}
}

func (m Model) loadModels() tea.Cmd {
	if m.lister == nil {
		return nil
	}
	lister := m.lister
	return func() tea.Msg {
		names, err := lister.Models(context.Background())
		return modelsMsg{names: names, err: err}
	}
}

func (m *Model) relayout() {
	m.lines = contentLines(m.state, m.contentWidth())
	m.clampScroll()
}

func (m Model) contentWidth() int {
	return m.width - 4 // borders + padding
}

func (m Model) maxScroll() int {
	return max(0, len(m.lines)-m.viewHeight)
}

func (m *Model) clampScroll() {
	if m.state.Scroll > m.maxScroll() {
		m.scrollTo(m.maxScroll())
	}
}

func (m *Model) scrollTo(n int) {
	n = min(max(n, 0), m.maxScroll())
	m.session.SetScroll(n)
	m.state.Scroll = n
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewHeight = max(1, m.height-6) // header + status bar + help bar + borders
		m.relayout()
		return m, nil

	case stateMsg:
		m.state = app.State(msg)
		m.relayout()
		return m, waitForState(m.updates)

	case startMsg:
		cmd := m.start()
		return m, cmd

	case runDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, app.ErrStaleRun) {
			logging.Debugf("run finished: %v", msg.err)
		}
		return m, nil

	case modelsMsg:
		if msg.err != nil {
			m.notice = "cannot list models: " + msg.err.Error()
			return m, nil
		}
		m.session.SetAvailableModels(msg.names)
		m.state = m.session.Snapshot()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		if m.state.Status.Status.InFlight() {
			_ = m.session.Cancel("quit")
		}
		m.unsubscribe()
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, keys.Down):
		m.scrollTo(m.state.Scroll + 1)

	case key.Matches(msg, keys.Up):
		m.scrollTo(m.state.Scroll - 1)

	case key.Matches(msg, keys.PageDown):
		m.scrollTo(m.state.Scroll + m.viewHeight)

	case key.Matches(msg, keys.PageUp):
		m.scrollTo(m.state.Scroll - m.viewHeight)

	case key.Matches(msg, keys.Top):
		m.scrollTo(0)

	case key.Matches(msg, keys.Bottom):
		m.scrollTo(m.maxScroll())

	case key.Matches(msg, keys.Rerun):
		if m.state.Status.Status.InFlight() {
			_ = m.session.Cancel("restarted")
		}
		cmd := m.start()
		return m, cmd

	case key.Matches(msg, keys.Model):
		if err := m.session.NextModel(); err != nil {
			m.notice = err.Error()
		} else {
			m.state = m.session.Snapshot()
			m.notice = fmt.Sprintf("model %s selected; press r to re-run", m.state.Model)
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	header := m.renderHeader()
	body := m.renderBody()
	status := m.renderStatusBar()
	help := helpBarStyle.Render(" ↑/↓ scroll  r re-run  m model  ? help  q quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, body, status, help)
}

func (m Model) renderHeader() string {
	short := titleStyle.Render("repolens") + "  " + modeStyle.Render(m.state.Mode.String())
	left := short + "  " + descStyle.Render(m.state.Mode.Description())
	right := modelNameStyle.Render(m.state.Model)
	if m.width-lipgloss.Width(left)-lipgloss.Width(right) < 1 {
		left = short
	}
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderBody() string {
	start := min(m.state.Scroll, len(m.lines))
	end := min(start+m.viewHeight, len(m.lines))
	visible := strings.Join(m.lines[start:end], "\n")
	return bodyStyle.Width(m.width - 2).Height(m.viewHeight).Render(visible)
}

func (m Model) renderStatusBar() string {
	left := m.state.Status.String()
	if m.state.Status.Status.InFlight() {
		left = m.spinner.View() + " " + left
	}
	if m.notice != "" {
		left += "  " + noticeStyle.Render(m.notice)
	}

	right := ""
	if len(m.lines) > m.viewHeight {
		right = fmt.Sprintf("%d/%d", m.state.Scroll+1, len(m.lines))
	}

	gap := max(0, m.width-2-lipgloss.Width(left)-lipgloss.Width(right))
	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderHelp() string {
	var b strings.Builder

	b.WriteString(helpHeaderStyle.Render("repolens: Keyboard Shortcuts"))
	b.WriteString("\n\n")

	bindings := []key.Binding{keys.Up, keys.Down, keys.PageUp, keys.PageDown, keys.Top, keys.Bottom, keys.Rerun, keys.Model, keys.Help, keys.Quit}
	for _, kb := range bindings {
		h := kb.Help()
		fmt.Fprintf(&b, "  %s  %s\n", helpKeyStyle.Width(12).Render(h.Key), h.Desc)
	}

	b.WriteString("\n")
	b.WriteString(descStyle.Render(m.state.Mode.String() + ": " + m.state.Mode.Description()))
	b.WriteString("\n\n")
	b.WriteString(helpBarStyle.Render("Press ? to close help"))
	return b.String()
}

// Run starts the TUI and blocks until the user quits.
func Run(s *app.Session, r Runner, lister ModelLister, root string) error {
	m := New(s, r, lister, root)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
