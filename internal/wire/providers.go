package wire

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/wire"

	"github.com/sevigo/bug-warden/internal/analysis"
	"github.com/sevigo/bug-warden/internal/app"
	"github.com/sevigo/bug-warden/internal/config"
	"github.com/sevigo/bug-warden/internal/core"
	"github.com/sevigo/bug-warden/internal/gitutil"
	"github.com/sevigo/bug-warden/internal/jobs"
	"github.com/sevigo/bug-warden/internal/llm"
	"github.com/sevigo/bug-warden/internal/logger"
	"github.com/sevigo/bug-warden/internal/server"
)

// RuntimeSet builds everything an in-process analysis needs.
var RuntimeSet = wire.NewSet(
	app.NewRuntime,
	config.LoadConfig,
	provideLoggerConfig,
	provideLogWriter,
	provideSlogLogger,
	provideLLMConfig,
	provideCompleter,
	llm.NewPromptManager,
	llm.NewGateway,
	gitutil.NewClient,
	provideTranslator,
	providePipelineOptions,
	analysis.NewPipeline,
	wire.Bind(new(analysis.LLM), new(*llm.Gateway)),
)

// AppSet adds the HTTP server and its job dispatcher.
var AppSet = wire.NewSet(
	RuntimeSet,
	app.NewApp,
	server.NewServer,
	provideServerConfig,
	provideResultStore,
	jobs.NewAnalysisJob,
	jobs.NewDispatcher,
	wire.Bind(new(jobs.Analyzer), new(*analysis.Pipeline)),
	wire.Bind(new(core.Job), new(*jobs.AnalysisJob)),
	wire.Bind(new(core.JobDispatcher), new(*jobs.Dispatcher)),
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg logger.Config) (io.Writer, func()) {
	return logger.NewWriter(cfg)
}

func provideSlogLogger(cfg logger.Config, writer io.Writer) *slog.Logger {
	log := logger.NewLogger(cfg, writer)
	slog.SetDefault(log)
	return log
}

func provideLLMConfig(cfg *config.Config) config.LLMConfig {
	return cfg.LLM
}

func provideServerConfig(cfg *config.Config) config.ServerConfig {
	return cfg.Server
}

func provideCompleter(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	completer, err := llm.NewCompleter(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm backend: %w", err)
	}
	return completer, nil
}

// newStageGateway builds a gateway for one stage-specific endpoint.
func newStageGateway(ctx context.Context, cfg config.LLMConfig, prompts *llm.PromptManager, logger *slog.Logger) (*llm.Gateway, error) {
	completer, err := provideCompleter(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return llm.NewGateway(completer, prompts, cfg, logger)
}

// provideTranslator returns nil when translation is disabled or the run is
// offline.
func provideTranslator(ctx context.Context, cfg *config.Config, prompts *llm.PromptManager, logger *slog.Logger) (*llm.Translator, error) {
	if !cfg.LLM.Translator.Enabled || cfg.Offline {
		return nil, nil
	}
	gateway, err := newStageGateway(ctx, cfg.LLM.With(cfg.LLM.Translator.LLMEndpoint), prompts, logger.With("stage", "translator"))
	if err != nil {
		return nil, fmt.Errorf("translator: %w", err)
	}
	return llm.NewTranslator(gateway), nil
}

// providePipelineOptions gives the matcher and suggester their own model when
// llm.matcher or llm.suggester override the endpoint.
func providePipelineOptions(ctx context.Context, cfg *config.Config, prompts *llm.PromptManager, translator *llm.Translator, logger *slog.Logger) ([]analysis.Option, error) {
	var opts []analysis.Option
	if translator != nil {
		opts = append(opts, analysis.WithTranslator(translator))
	}
	if cfg.Offline {
		return opts, nil
	}
	if cfg.LLM.Matcher.IsSet() {
		gateway, err := newStageGateway(ctx, cfg.LLM.With(cfg.LLM.Matcher), prompts, logger.With("stage", "matcher"))
		if err != nil {
			return nil, fmt.Errorf("matcher: %w", err)
		}
		opts = append(opts, analysis.WithMatcherModel(gateway))
	}
	if cfg.LLM.Suggester.IsSet() {
		gateway, err := newStageGateway(ctx, cfg.LLM.With(cfg.LLM.Suggester), prompts, logger.With("stage", "suggester"))
		if err != nil {
			return nil, fmt.Errorf("suggester: %w", err)
		}
		opts = append(opts, analysis.WithSuggesterModel(gateway))
	}
	return opts, nil
}

func provideResultStore(cfg config.ServerConfig) *jobs.ResultStore {
	return jobs.NewResultStore(cfg.MaxResults)
}
