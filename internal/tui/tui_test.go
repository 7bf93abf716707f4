package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sprite-ai/repolens/internal/app"
	"github.com/sprite-ai/repolens/internal/model"
)

type fakeRunner struct {
	runs  []app.Run
	block bool
	fail  error
	rc    model.ReviewContext
	out   model.ReviewOutput
}

func (f *fakeRunner) Execute(s *app.Session, run app.Run, root string) error {
	f.runs = append(f.runs, run)
	if f.block {
		return nil
	}
	if f.fail != nil {
		return s.Fail(run.ID, f.fail)
	}
	s.ScanComplete(run.ID)
	s.GraphComplete(run.ID, f.rc)
	return s.QueryComplete(run.ID, f.out)
}

func sampleContext(nFiles int) model.ReviewContext {
	rc := model.ReviewContext{
		TotalLines:   1234,
		Languages:    []model.LanguageCount{{Language: "rust", Files: nFiles}},
		CircularDeps: [][]string{{"src/a.rs", "src/b.rs"}},
		Mode:         model.ModeInformative,
		Model:        "llama3.1",
	}
	for i := 0; i < nFiles; i++ {
		rc.TopFiles = append(rc.TopFiles, model.FileEntry{Path: fmt.Sprintf("src/f%02d.rs", i), Lines: 100 - i, Language: "rust"})
	}
	rc.TotalFiles = nFiles
	return rc
}

func setupModel(t *testing.T, r *fakeRunner) (Model, *app.Session) {
	t.Helper()
	s := app.NewSession("llama3.1", model.ModeInformative)
	m := New(s, r, nil, "/repo")
	// Simulate window size
	newM, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	return newM.(Model), s
}

func press(t *testing.T, m Model, r rune) (Model, tea.Cmd) {
	t.Helper()
	newM, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	return newM.(Model), cmd
}

// runToCompletion presses r, executes the run and feeds back the result.
func runToCompletion(t *testing.T, m Model, s *app.Session) Model {
	t.Helper()
	m, cmd := press(t, m, 'r')
	if cmd == nil {
		t.Fatal("expected a run command")
	}
	if _, ok := cmd().(runDoneMsg); !ok {
		t.Fatal("expected runDoneMsg")
	}
	newM, _ := m.Update(stateMsg(s.Snapshot()))
	return newM.(Model)
}

func TestModelInit(t *testing.T) {
	m, s := setupModel(t, &fakeRunner{})
	if m.state.Status.Status != model.StatusIdle {
		t.Errorf("expected idle, got %s", m.state.Status.Status)
	}
	if !strings.Contains(m.View(), "Ready") {
		t.Error("expected view to show Ready")
	}
	if s.Snapshot().Status.Status != model.StatusIdle {
		t.Error("New must not start a run")
	}
}

func TestInitStartsFirstRun(t *testing.T) {
	m, s := setupModel(t, &fakeRunner{block: true})
	if m.Init() == nil {
		t.Fatal("expected Init commands")
	}
	if msg := startRun(); msg != (startMsg{}) {
		t.Fatalf("startRun() = %#v", msg)
	}

	newM, cmd := m.Update(startMsg{})
	m = newM.(Model)
	if cmd == nil {
		t.Fatal("expected a run command")
	}
	if m.state.Status.Status != model.StatusScanning {
		t.Errorf("model state = %s, want scanning", m.state.Status.Status)
	}
	if s.Snapshot().Status.Status != model.StatusScanning {
		t.Errorf("session = %s, want scanning", s.Snapshot().Status.Status)
	}
}

func TestStartFailureShowsNotice(t *testing.T) {
	m, s := setupModel(t, &fakeRunner{})
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	newM, cmd := m.Update(startMsg{})
	m = newM.(Model)
	if cmd != nil {
		t.Error("expected no run command while another run is in flight")
	}
	if !strings.Contains(m.notice, app.ErrRunInFlight.Error()) {
		t.Errorf("notice = %q, want it to mention the run in flight", m.notice)
	}
	if !strings.Contains(m.View(), m.notice) {
		t.Error("expected the notice in the view")
	}
}

func TestRunShowsReview(t *testing.T) {
	r := &fakeRunner{
		rc:  sampleContext(3),
		out: model.ReviewOutput{Architecture: "Layers look clean.", Security: "No secrets.", Raw: "raw"},
	}
	m, s := setupModel(t, r)

	m, cmd := press(t, m, 'r')
	if got := s.Snapshot().Status.Status; got != model.StatusScanning {
		t.Fatalf("status after r = %s, want scanning", got)
	}
	if !strings.Contains(m.View(), "Scanning repository...") {
		t.Error("expected scanning status in view")
	}

	cmd()
	newM, _ := m.Update(stateMsg(s.Snapshot()))
	m = newM.(Model)

	view := m.View()
	for _, want := range []string{"Review complete", "Files: 3", "Architecture", "Layers look clean.", "src/a.rs -> src/b.rs -> src/a.rs"} {
		if !strings.Contains(strings.Join(m.lines, "\n")+view, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	if strings.Contains(strings.Join(m.lines, "\n"), "Performance") {
		t.Error("empty sections should not be shown")
	}
}

func TestRawOnlyReview(t *testing.T) {
	r := &fakeRunner{rc: sampleContext(1), out: model.ReviewOutput{Raw: "Just a paragraph of feedback."}}
	m, s := setupModel(t, r)
	m = runToCompletion(t, m, s)

	body := strings.Join(m.lines, "\n")
	if !strings.Contains(body, "Review") || !strings.Contains(body, "Just a paragraph of feedback.") {
		t.Errorf("raw reply not shown:\n%s", body)
	}
}

func TestErrorView(t *testing.T) {
	m, s := setupModel(t, &fakeRunner{fail: errors.New("scan: permission denied")})
	m = runToCompletion(t, m, s)

	if !strings.Contains(m.View(), "Error: scan: permission denied") {
		t.Errorf("expected error in view:\n%s", m.View())
	}
	if m.state.Context != nil {
		t.Error("failed run should have no context")
	}
}

func TestRerunCancelsInFlight(t *testing.T) {
	r := &fakeRunner{block: true}
	m, s := setupModel(t, r)

	m, cmd := press(t, m, 'r')
	cmd()
	first := r.runs[0]

	m, cmd = press(t, m, 'r')
	if cmd == nil {
		t.Fatal("expected a second run")
	}
	if first.Ctx.Err() == nil {
		t.Error("first run should be cancelled")
	}
	if got := s.Snapshot().Status.Status; got != model.StatusScanning {
		t.Errorf("status = %s, want scanning", got)
	}
	if err := s.ScanComplete(first.ID); !errors.Is(err, app.ErrStaleRun) {
		t.Errorf("late result of first run = %v, want ErrStaleRun", err)
	}
}

func TestScrolling(t *testing.T) {
	m, s := setupModel(t, &fakeRunner{rc: sampleContext(40)})
	m = runToCompletion(t, m, s)

	m, _ = press(t, m, 'j')
	if m.state.Scroll != 1 || s.Snapshot().Scroll != 1 {
		t.Errorf("expected scroll 1, got %d/%d", m.state.Scroll, s.Snapshot().Scroll)
	}

	m, _ = press(t, m, 'k')
	if m.state.Scroll != 0 {
		t.Errorf("expected scroll 0, got %d", m.state.Scroll)
	}

	// Can't scroll above 0
	m, _ = press(t, m, 'k')
	if m.state.Scroll != 0 {
		t.Errorf("expected scroll 0 at top, got %d", m.state.Scroll)
	}

	m, _ = press(t, m, 'G')
	if m.state.Scroll != m.maxScroll() || m.maxScroll() == 0 {
		t.Errorf("expected scroll at bottom %d, got %d", m.maxScroll(), m.state.Scroll)
	}

	// Can't scroll past the end
	m, _ = press(t, m, 'j')
	if m.state.Scroll != m.maxScroll() {
		t.Errorf("scrolled past end: %d", m.state.Scroll)
	}
}

func TestModelCycle(t *testing.T) {
	m, s := setupModel(t, &fakeRunner{})

	newM, _ := m.Update(modelsMsg{names: []string{"llama3.1", "qwen2.5-coder"}})
	m = newM.(Model)

	m, _ = press(t, m, 'm')
	if s.Snapshot().Model != "qwen2.5-coder" {
		t.Errorf("model = %q, want qwen2.5-coder", s.Snapshot().Model)
	}
	if !strings.Contains(m.View(), "qwen2.5-coder") {
		t.Error("expected view to show the selected model")
	}
}

func TestModelCycleWithoutModels(t *testing.T) {
	m, _ := setupModel(t, &fakeRunner{})
	m, _ = press(t, m, 'm')
	if m.notice == "" {
		t.Error("expected a notice when no models are available")
	}
}

func TestHelpToggle(t *testing.T) {
	m, _ := setupModel(t, &fakeRunner{})

	m, _ = press(t, m, '?')
	if !m.showHelp {
		t.Error("expected help to be shown")
	}
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Error("expected help view to contain shortcuts")
	}
}

func TestQuitCancelsRun(t *testing.T) {
	r := &fakeRunner{block: true}
	m, s := setupModel(t, r)
	m, cmd := press(t, m, 'r')
	cmd()

	_, cmd = press(t, m, 'q')
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if got := s.Snapshot().Status.Message; got != "cancelled: quit" {
		t.Errorf("status message = %q", got)
	}
}
