// Package app owns the review session: its state machine and the pipeline
// that drives a run from scan to review.
package app

import (
	"github.com/sprite-ai/repolens/internal/model"
)

// State is the session record shown by the UI. Context is set once the
// graph stage completes and Output once the query completes.
type State struct {
	Status  model.AppStatus      `json:"status"`
	Context *model.ReviewContext `json:"context,omitempty"`
	Output  *model.ReviewOutput  `json:"output,omitempty"`

	// UI-local fields.
	Scroll          int              `json:"scroll"`
	Model           string           `json:"model"`
	Mode            model.ReviewMode `json:"mode"`
	AvailableModels []string         `json:"available_models"`
	SelectedModel   int              `json:"selected_model"`
}

// NewState returns an Idle state for the given model and mode.
func NewState(modelName string, mode model.ReviewMode) State {
	return State{
		Status:        model.AppStatus{Status: model.StatusIdle},
		Model:         modelName,
		Mode:          mode,
		SelectedModel: -1,
	}
}

func (s State) clone() State {
	if s.AvailableModels != nil {
		s.AvailableModels = append([]string(nil), s.AvailableModels...)
	}
	return s
}
