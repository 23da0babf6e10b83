// Package llm wraps the language model service: prompt templates, the
// completion backends, and the gateway that retries calls and parses replies.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sevigo/bug-warden/internal/config"
	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/metrics"
)

// Request is one structured question to the model.
type Request struct {
	// Name labels the request in logs and metrics, e.g. "bug_signals".
	Name   string
	Prompt string
	// Schema is a JSON example of the expected reply, repeated in the
	// corrective re-prompt.
	Schema string
}

// Gateway submits prompts to a Completer, retrying transport failures with
// exponential backoff and re-prompting once when the reply does not parse.
type Gateway struct {
	completer Completer
	prompts   *PromptManager
	provider  ModelProvider
	cfg       config.LLMConfig
	logger    *slog.Logger
	system    string
}

// NewGateway creates a gateway. The system prompt is rendered once.
func NewGateway(completer Completer, prompts *PromptManager, cfg config.LLMConfig, logger *slog.Logger) (*Gateway, error) {
	provider := ModelProvider(cfg.Provider)
	system, err := prompts.Render(SystemPrompt, provider, nil)
	if err != nil {
		return nil, fmt.Errorf("could not render system prompt: %w", err)
	}
	return &Gateway{
		completer: completer,
		prompts:   prompts,
		provider:  provider,
		cfg:       cfg,
		logger:    logger,
		system:    system,
	}, nil
}

// Prompts returns the prompt manager used by the gateway.
func (g *Gateway) Prompts() *PromptManager {
	return g.prompts
}

// Provider returns the provider name used to select prompt variants.
func (g *Gateway) Provider() ModelProvider {
	return g.provider
}

// Submit sends req and decodes the reply into out. It returns an error
// wrapping core.ErrServiceUnavailable when every attempt failed,
// core.ErrMalformedResponse when neither the reply nor the corrective
// re-prompt parsed, or the context error when ctx ended first.
func (g *Gateway) Submit(ctx context.Context, req Request, out any) error {
	raw, err := g.call(ctx, req.Name, g.system, req.Prompt)
	if err != nil {
		return err
	}
	parseErr := DecodeJSON(raw, out)
	if parseErr == nil {
		metrics.LLMRequestsTotal.WithLabelValues(req.Name, "ok").Inc()
		return nil
	}

	g.logger.Warn("model reply did not parse, sending corrective prompt",
		"request", req.Name, "error", parseErr, "reply_chars", len(raw))
	metrics.LLMCorrectiveReprompts.WithLabelValues(req.Name).Inc()

	corrective, err := g.prompts.Render(CorrectivePrompt, g.provider, map[string]string{
		"Error":  parseErr.Error(),
		"Schema": req.Schema,
		"Prompt": req.Prompt,
	})
	if err != nil {
		return fmt.Errorf("could not render corrective prompt: %w", err)
	}

	raw, err = g.call(ctx, req.Name, g.system, corrective)
	if err != nil {
		return err
	}
	// Fields of the rejected reply must not leak into the corrected one.
	resetValue(out)
	if parseErr = DecodeJSON(raw, out); parseErr != nil {
		metrics.LLMRequestsTotal.WithLabelValues(req.Name, "malformed").Inc()
		return fmt.Errorf("%w: %s: %w", core.ErrMalformedResponse, req.Name, parseErr)
	}
	metrics.LLMRequestsTotal.WithLabelValues(req.Name, "ok").Inc()
	return nil
}

func resetValue(out any) {
	v := reflect.ValueOf(out)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().SetZero()
	}
}

// Ping sends a trivial prompt once, without retries, to check the service is
// reachable.
func (g *Gateway) Ping(ctx context.Context) error {
	prompt, err := g.prompts.Render(ConnectionPrompt, g.provider, nil)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()
	if _, err := g.completer.Complete(ctx, g.system, prompt); err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrServiceUnavailable, g.completer.Name(), err)
	}
	return nil
}

// call performs one logical call with up to MaxAttempts transport attempts.
func (g *Gateway) call(ctx context.Context, name, system, prompt string) (string, error) {
	var (
		reply    string
		attempts int
	)
	operation := func() error {
		attempts++
		start := time.Now()
		reqCtx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
		defer cancel()

		resp, err := g.completer.Complete(reqCtx, system, prompt)
		metrics.LLMRequestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			g.logger.Warn("model call failed",
				"request", name,
				"attempt", attempts,
				"max_attempts", g.cfg.MaxAttempts,
				"kind", failureKind(err),
				"error", err)
			return err
		}
		reply = resp
		return nil
	}

	if err := backoff.Retry(operation, g.newBackOff(ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.LLMRequestsTotal.WithLabelValues(name, "canceled").Inc()
			return "", ctxErr
		}
		metrics.LLMRequestsTotal.WithLabelValues(name, "unavailable").Inc()
		return "", fmt.Errorf("%w: %s failed after %d attempts: %w", core.ErrServiceUnavailable, name, attempts, err)
	}

	g.logger.Debug("model call succeeded", "request", name, "attempts", attempts, "reply_chars", len(reply))
	return reply, nil
}

func (g *Gateway) newBackOff(ctx context.Context) backoff.BackOff {
	retries := uint64(max(g.cfg.MaxAttempts-1, 0))
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if g.cfg.RetryBackoff > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = g.cfg.RetryBackoff
		eb.MaxInterval = 30 * time.Second
		eb.MaxElapsedTime = 0
		b = eb
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)
}

func failureKind(err error) string {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("status_%d", statusErr.Code)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}
