package review

import (
	"context"
	"fmt"

	"github.com/sprite-ai/repolens/internal/model"
)

// Chatter sends one system/user exchange to a model.
type Chatter interface {
	Chat(ctx context.Context, model, system, user string) (string, error)
}

// Engine queries a model with prompts built from a ReviewContext.
type Engine struct {
	chat Chatter
}

// NewEngine wraps c.
func NewEngine(c Chatter) *Engine {
	return &Engine{chat: c}
}

// Query returns the model's raw reply for rc, using rc.Model and rc.Mode.
func (e *Engine) Query(ctx context.Context, rc model.ReviewContext) (string, error) {
	if rc.Model == "" {
		return "", fmt.Errorf("no model selected")
	}
	reply, err := e.chat.Chat(ctx, rc.Model, BuildSystemPrompt(rc.Mode), BuildUserPrompt(rc))
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", rc.Model, err)
	}
	return reply, nil
}
