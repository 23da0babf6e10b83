package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/sevigo/bug-warden/internal/config"
)

// Completer sends one system+user exchange to a model backend and returns the
// raw text reply.
//
//go:generate mockgen -destination=../../mocks/mock_completer.go -package=mocks . Completer
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

// StatusError is returned by backends when the service answered with a
// non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm service returned status %d: %s", e.Code, e.Message)
}

// NewCompleter creates the backend selected by cfg.Provider.
func NewCompleter(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Completer, error) {
	switch cfg.Provider {
	case "openai", "":
		logger.Info("using OpenAI-compatible provider", "base_url", cfg.BaseURL, "model", cfg.Model)
		return NewOpenAICompleter(cfg, newHTTPClient(cfg.RequestTimeout)), nil

	case "ollama":
		logger.Info("using Ollama provider", "base_url", cfg.BaseURL, "model", cfg.Model)
		model, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
			ollama.WithHTTPClient(newHTTPClient(cfg.RequestTimeout)),
			ollama.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return NewModelCompleter("ollama/"+cfg.Model, model), nil

	case "gemini":
		logger.Info("using Gemini provider", "model", cfg.Model)
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm.api_key is required for the gemini provider")
		}
		model, err := gemini.New(ctx,
			gemini.WithModel(cfg.Model),
			gemini.WithAPIKey(cfg.APIKey),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return NewModelCompleter("gemini/"+cfg.Model, model), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// newHTTPClient creates an HTTP client for slow local model servers. The
// per-request deadline is enforced by the gateway's context; the client
// timeout only guards against a hung connection.
func newHTTPClient(requestTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   requestTimeout + 30*time.Second,
	}
}
