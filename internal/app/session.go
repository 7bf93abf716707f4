package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sprite-ai/repolens/internal/model"
)

var (
	// ErrRunInFlight is returned when a run is requested while one is active.
	ErrRunInFlight = errors.New("a review is already running")
	// ErrStaleRun is returned for results of a run that was cancelled or
	// has already finished.
	ErrStaleRun = errors.New("stale run")
	// ErrInvalidTransition is returned for a transition the state machine
	// does not allow from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Run identifies one pipeline run and carries what it needs from the
// session at start.
type Run struct {
	ID    uint64
	Ctx   context.Context
	Model string
	Mode  model.ReviewMode
}

// Session guards a State. Pipeline transitions are keyed by run id so that
// results of a cancelled run cannot overwrite a newer one.
type Session struct {
	mu      sync.Mutex
	state   State
	active  uint64
	lastRun uint64
	cancel  context.CancelFunc
	subs    map[chan State]struct{}
}

// NewSession creates a session in the Idle state.
func NewSession(modelName string, mode model.ReviewMode) *Session {
	return &Session{
		state: NewState(modelName, mode),
		subs:  make(map[chan State]struct{}),
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe returns a channel that receives a snapshot after every change,
// starting with the current state. Slow readers only see the latest
// snapshot. The returned func unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- s.state.clone()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// notify must be called with s.mu held.
func (s *Session) notify() {
	for ch := range s.subs {
		snap := s.state.clone()
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Start moves Idle, Done or Error to Scanning and clears the previous
// run's context and output.
func (s *Session) Start(ctx context.Context) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status.Status.InFlight() {
		return Run{}, ErrRunInFlight
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.lastRun++
	s.active = s.lastRun
	s.cancel = cancel

	s.state.Status = model.AppStatus{Status: model.StatusScanning}
	s.state.Context = nil
	s.state.Output = nil
	s.state.Scroll = 0
	s.notify()

	return Run{ID: s.active, Ctx: runCtx, Model: s.state.Model, Mode: s.state.Mode}, nil
}

func (s *Session) advance(run uint64, from, to model.Status, apply func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run == 0 || run != s.active {
		return ErrStaleRun
	}
	if s.state.Status.Status != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state.Status.Status, to)
	}
	s.state.Status = model.AppStatus{Status: to}
	if apply != nil {
		apply(&s.state)
	}
	if to.Terminal() {
		s.finish()
	}
	s.notify()
	return nil
}

// finish releases the active run. Must be called with s.mu held.
func (s *Session) finish() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.active = 0
}

// ScanComplete moves Scanning to BuildingGraph.
func (s *Session) ScanComplete(run uint64) error {
	return s.advance(run, model.StatusScanning, model.StatusBuildingGraph, nil)
}

// GraphComplete moves BuildingGraph to QueryingOllama and records rc.
func (s *Session) GraphComplete(run uint64, rc model.ReviewContext) error {
	return s.advance(run, model.StatusBuildingGraph, model.StatusQueryingOllama, func(st *State) {
		st.Context = &rc
	})
}

// QueryComplete moves QueryingOllama to Done and records out.
func (s *Session) QueryComplete(run uint64, out model.ReviewOutput) error {
	return s.advance(run, model.StatusQueryingOllama, model.StatusDone, func(st *State) {
		st.Output = &out
	})
}

// Fail moves any in-flight status to Error carrying err's message.
func (s *Session) Fail(run uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run == 0 || run != s.active {
		return ErrStaleRun
	}
	if !s.state.Status.Status.InFlight() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state.Status.Status, model.StatusError)
	}
	s.state.Status = model.AppStatus{Status: model.StatusError, Message: err.Error()}
	s.finish()
	s.notify()
	return nil
}

// Cancel ends the in-flight run with an Error status and cancels its
// context. Late results of that run are rejected with ErrStaleRun.
func (s *Session) Cancel(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Status.Status.InFlight() {
		return fmt.Errorf("%w: nothing to cancel in status %s", ErrInvalidTransition, s.state.Status.Status)
	}
	s.state.Status = model.AppStatus{Status: model.StatusError, Message: "cancelled: " + reason}
	s.finish()
	s.notify()
	return nil
}

// ScrollBy moves the scroll offset by delta, never below zero.
func (s *Session) ScrollBy(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setScroll(s.state.Scroll + delta)
}

// SetScroll sets the scroll offset, never below zero.
func (s *Session) SetScroll(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setScroll(n)
}

func (s *Session) setScroll(n int) {
	if n < 0 {
		n = 0
	}
	if n == s.state.Scroll {
		return
	}
	s.state.Scroll = n
	s.notify()
}

// SetAvailableModels records the models offered for selection. The
// selection follows the current model when it is in the list.
func (s *Session) SetAvailableModels(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.AvailableModels = append([]string(nil), names...)
	s.state.SelectedModel = -1
	for i, n := range names {
		if n == s.state.Model {
			s.state.SelectedModel = i
			break
		}
	}
	s.notify()
}

// SelectModel picks AvailableModels[idx] for the next run.
func (s *Session) SelectModel(idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status.Status.InFlight() {
		return ErrRunInFlight
	}
	if idx < 0 || idx >= len(s.state.AvailableModels) {
		return fmt.Errorf("model index %d out of range (%d available)", idx, len(s.state.AvailableModels))
	}
	s.state.SelectedModel = idx
	s.state.Model = s.state.AvailableModels[idx]
	s.notify()
	return nil
}

// SetModel sets the model used by the next run. The selection index
// follows when the name is among AvailableModels.
func (s *Session) SetModel(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status.Status.InFlight() {
		return ErrRunInFlight
	}
	if name == "" {
		return errors.New("model name must not be empty")
	}
	s.state.Model = name
	s.state.SelectedModel = -1
	for i, n := range s.state.AvailableModels {
		if n == name {
			s.state.SelectedModel = i
			break
		}
	}
	s.notify()
	return nil
}

// NextModel selects the model after the current one, wrapping around.
func (s *Session) NextModel() error {
	s.mu.Lock()
	n, cur := len(s.state.AvailableModels), s.state.SelectedModel
	s.mu.Unlock()

	if n == 0 {
		return errors.New("no models available")
	}
	return s.SelectModel((cur + 1) % n)
}

// SetMode changes the mode used by the next run.
func (s *Session) SetMode(mode model.ReviewMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status.Status.InFlight() {
		return ErrRunInFlight
	}
	s.state.Mode = mode
	s.notify()
	return nil
}
