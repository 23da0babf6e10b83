package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sevigo/bug-warden/internal/metrics"
)

// Language names used in translation prompts.
const (
	Korean  = "Korean"
	English = "English"
)

// Translator moves free text between Korean and English on its own model, so
// a Korean report can be analysed by a code model that reasons in English.
type Translator struct {
	gateway *Gateway
}

// NewTranslator creates a translator that talks through gateway.
func NewTranslator(gateway *Gateway) *Translator {
	return &Translator{gateway: gateway}
}

// ToEnglish translates Korean text into English.
func (t *Translator) ToEnglish(ctx context.Context, text string) (string, error) {
	return t.translate(ctx, text, Korean, English)
}

// ToKorean translates English text into Korean.
func (t *Translator) ToKorean(ctx context.Context, text string) (string, error) {
	return t.translate(ctx, text, English, Korean)
}

// Ping checks the translation model is reachable.
func (t *Translator) Ping(ctx context.Context) error {
	return t.gateway.Ping(ctx)
}

func (t *Translator) translate(ctx context.Context, text, from, to string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	g := t.gateway
	data := map[string]string{"From": from, "To": to, "Text": text}
	system, err := g.prompts.Render(TranslatorSystemPrompt, g.provider, data)
	if err != nil {
		return "", fmt.Errorf("could not render translator system prompt: %w", err)
	}
	prompt, err := g.prompts.Render(TranslatePrompt, g.provider, data)
	if err != nil {
		return "", fmt.Errorf("could not render translate prompt: %w", err)
	}

	name := string(TranslatePrompt)
	reply, err := g.call(ctx, name, system, prompt)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		metrics.LLMRequestsTotal.WithLabelValues(name, "malformed").Inc()
		return "", fmt.Errorf("empty translation from %s", g.completer.Name())
	}
	metrics.LLMRequestsTotal.WithLabelValues(name, "ok").Inc()
	return reply, nil
}
