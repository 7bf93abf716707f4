package app

import (
	"context"
	"errors"
	"testing"

	"github.com/sprite-ai/repolens/internal/model"
)

func TestNewState(t *testing.T) {
	st := NewState("llama3.1", model.ModeCalm)
	if st.Status.Status != model.StatusIdle {
		t.Errorf("Status = %s, want idle", st.Status.Status)
	}
	if st.Context != nil || st.Output != nil {
		t.Error("Context and Output should start unset")
	}
	if st.Model != "llama3.1" || st.Mode != model.ModeCalm {
		t.Errorf("Model/Mode = %q/%s", st.Model, st.Mode)
	}
	if st.Status.String() != "Ready" {
		t.Errorf("Status.String() = %q, want %q", st.Status.String(), "Ready")
	}
}

func TestSessionHappyPath(t *testing.T) {
	s := NewSession("m", model.ModeInformative)
	run, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if run.Model != "m" || run.Mode != model.ModeInformative {
		t.Errorf("run = %+v", run)
	}

	steps := []struct {
		do   func() error
		want model.Status
	}{
		{func() error { return s.ScanComplete(run.ID) }, model.StatusBuildingGraph},
		{func() error { return s.GraphComplete(run.ID, model.ReviewContext{TotalFiles: 2}) }, model.StatusQueryingOllama},
		{func() error { return s.QueryComplete(run.ID, model.ReviewOutput{Raw: "r"}) }, model.StatusDone},
	}
	for _, step := range steps {
		if err := step.do(); err != nil {
			t.Fatalf("transition to %s: %v", step.want, err)
		}
		if got := s.Snapshot().Status.Status; got != step.want {
			t.Fatalf("Status = %s, want %s", got, step.want)
		}
	}

	st := s.Snapshot()
	if st.Context == nil || st.Context.TotalFiles != 2 {
		t.Errorf("Context = %+v", st.Context)
	}
	if st.Output == nil || st.Output.Raw != "r" {
		t.Errorf("Output = %+v", st.Output)
	}
	if err := run.Ctx.Err(); err == nil {
		t.Error("run context should be released after Done")
	}
}

func TestSessionRejectsSkippedTransitions(t *testing.T) {
	s := NewSession("m", model.ModeInformative)
	run, _ := s.Start(context.Background())

	if err := s.GraphComplete(run.ID, model.ReviewContext{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("GraphComplete from scanning = %v, want ErrInvalidTransition", err)
	}
	if err := s.QueryComplete(run.ID, model.ReviewOutput{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("QueryComplete from scanning = %v, want ErrInvalidTransition", err)
	}
	st := s.Snapshot()
	if st.Status.Status != model.StatusScanning || st.Context != nil || st.Output != nil {
		t.Errorf("state changed by rejected transitions: %+v", st)
	}
}

func TestSessionStartWhileInFlight(t *testing.T) {
	s := NewSession("m", model.ModeInformative)
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Start(context.Background()); !errors.Is(err, ErrRunInFlight) {
		t.Errorf("second Start = %v, want ErrRunInFlight", err)
	}
}

func TestSessionFail(t *testing.T) {
	s := NewSession("m", model.ModeInformative)
	run, _ := s.Start(context.Background())
	if err := s.Fail(run.ID, errors.New("scan: permission denied")); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	st := s.Snapshot()
	if st.Status.String() != "Error: scan: permission denied" {
		t.Errorf("Status = %q", st.Status.String())
	}
	if st.Context != nil || st.Output != nil {
		t.Error("failed scan must not set Context or Output")
	}
	if err := s.Fail(run.ID, errors.New("again")); !errors.Is(err, ErrStaleRun) {
		t.Errorf("second Fail = %v, want ErrStaleRun", err)
	}
}

func TestSessionCancelDiscardsLateResults(t *testing.T) {
	s := NewSession("m", model.ModeInformative)
	old, _ := s.Start(context.Background())
	if err := s.ScanComplete(old.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Cancel("restarted"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !errors.Is(old.Ctx.Err(), context.Canceled) {
		t.Error("cancelled run context should be done")
	}
	if got := s.Snapshot().Status.String(); got != "Error: cancelled: restarted" {
		t.Errorf("Status = %q", got)
	}

	fresh, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start after cancel: %v", err)
	}
	if err := s.GraphComplete(old.ID, model.ReviewContext{TotalFiles: 99}); !errors.Is(err, ErrStaleRun) {
		t.Errorf("late GraphComplete = %v, want ErrStaleRun", err)
	}
	if st := s.Snapshot(); st.Context != nil || st.Status.Status != model.StatusScanning {
		t.Errorf("stale result leaked into new run: %+v", st)
	}
	if fresh.ID == old.ID {
		t.Error("run ids must differ")
	}
}

func TestSessionCancelWhenIdle(t *testing.T) {
	s := NewSession("m", model.ModeInformative)
	if err := s.Cancel("nothing"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Cancel = %v, want ErrInvalidTransition", err)
	}
}

func TestSessionRestartClearsResults(t *testing.T) {
	s := NewSession("m", model.ModeInformative)
	run, _ := s.Start(context.Background())
	s.ScanComplete(run.ID)
	s.GraphComplete(run.ID, model.ReviewContext{})
	s.QueryComplete(run.ID, model.ReviewOutput{})
	s.ScrollBy(5)

	if _, err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := s.Snapshot()
	if st.Context != nil || st.Output != nil || st.Scroll != 0 {
		t.Errorf("Start did not reset: %+v", st)
	}
}

func TestSessionScroll(t *testing.T) {
	s := NewSession("m", model.ModeInformative)
	s.ScrollBy(3)
	s.ScrollBy(-10)
	if got := s.Snapshot().Scroll; got != 0 {
		t.Errorf("Scroll = %d, want 0", got)
	}
	s.SetScroll(7)
	if got := s.Snapshot().Scroll; got != 7 {
		t.Errorf("Scroll = %d, want 7", got)
	}
}

func TestSessionModels(t *testing.T) {
	s := NewSession("b", model.ModeInformative)
	s.SetAvailableModels([]string{"a", "b", "c"})
	if got := s.Snapshot().SelectedModel; got != 1 {
		t.Errorf("SelectedModel = %d, want 1", got)
	}
	if err := s.NextModel(); err != nil {
		t.Fatal(err)
	}
	if st := s.Snapshot(); st.Model != "c" || st.SelectedModel != 2 {
		t.Errorf("after NextModel: %q/%d", st.Model, st.SelectedModel)
	}
	if err := s.NextModel(); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Model; got != "a" {
		t.Errorf("NextModel did not wrap: %q", got)
	}
	if err := s.SelectModel(9); err == nil {
		t.Error("expected out-of-range error")
	}

	run, _ := s.Start(context.Background())
	if err := s.SelectModel(1); !errors.Is(err, ErrRunInFlight) {
		t.Errorf("SelectModel in flight = %v, want ErrRunInFlight", err)
	}
	if err := s.SetMode(model.ModeHardcore); !errors.Is(err, ErrRunInFlight) {
		t.Errorf("SetMode in flight = %v, want ErrRunInFlight", err)
	}
	if run.Model != "a" {
		t.Errorf("run.Model = %q, want a", run.Model)
	}
}

func TestSubscribeLatestWins(t *testing.T) {
	s := NewSession("m", model.ModeInformative)
	ch, unsubscribe := s.Subscribe()

	first := <-ch
	if first.Status.Status != model.StatusIdle {
		t.Errorf("initial snapshot status = %s", first.Status.Status)
	}

	run, _ := s.Start(context.Background())
	s.ScanComplete(run.ID)
	s.Fail(run.ID, errors.New("boom"))

	got := <-ch
	if got.Status.Status != model.StatusError {
		t.Errorf("latest snapshot status = %s, want error", got.Status.Status)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected queued snapshot %s", extra.Status.Status)
	default:
	}

	unsubscribe()
	unsubscribe()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	s.ScrollBy(1) // must not panic on a closed channel
}

func TestSessionSetModel(t *testing.T) {
	s := NewSession("a", model.ModeInformative)
	s.SetAvailableModels([]string{"a", "b"})
	if err := s.SetModel("b"); err != nil {
		t.Fatal(err)
	}
	if st := s.Snapshot(); st.Model != "b" || st.SelectedModel != 1 {
		t.Errorf("after SetModel(b): %q/%d", st.Model, st.SelectedModel)
	}
	if err := s.SetModel("custom:latest"); err != nil {
		t.Fatal(err)
	}
	if st := s.Snapshot(); st.SelectedModel != -1 {
		t.Errorf("SelectedModel = %d, want -1 for an unlisted model", st.SelectedModel)
	}
	if err := s.SetModel(""); err == nil {
		t.Error("expected error for empty name")
	}
}
