// Package analysis implements the bug-to-code relevance pipeline: signal
// extraction, keyword pre-filtering, per-chunk model judgments, ranking and
// fix suggestion synthesis.
package analysis

import (
	"context"
	"fmt"

	"github.com/sevigo/bug-warden/internal/llm"
)

// LLM is the model capability the stages depend on.
//
//go:generate mockgen -destination=../../mocks/mock_llm.go -package=mocks . LLM
type LLM interface {
	Submit(ctx context.Context, req llm.Request, out any) error
}

// asker renders a prompt template and submits it.
type asker struct {
	llm      LLM
	prompts  *llm.PromptManager
	provider llm.ModelProvider
}

func (a asker) ask(ctx context.Context, key llm.PromptKey, data any, schema string, out any) error {
	prompt, err := a.prompts.Render(key, a.provider, data)
	if err != nil {
		return fmt.Errorf("could not render prompt '%s': %w", key, err)
	}
	return a.llm.Submit(ctx, llm.Request{Name: string(key), Prompt: prompt, Schema: schema}, out)
}
