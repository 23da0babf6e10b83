package llm

import (
	"context"

	"github.com/sevigo/goframe/llms"
)

// ModelCompleter adapts a goframe llms.Model, which takes a single prompt, to
// the Completer interface.
type ModelCompleter struct {
	name  string
	model llms.Model
}

// NewModelCompleter wraps model.
func NewModelCompleter(name string, model llms.Model) *ModelCompleter {
	return &ModelCompleter{name: name, model: model}
}

// Name returns the backend identifier.
func (m *ModelCompleter) Name() string {
	return m.name
}

// Complete folds the system prompt into the single prompt goframe expects.
func (m *ModelCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m.model, system+"\n\n"+user)
}
