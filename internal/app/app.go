// Package app holds the assembled Bug-Warden components: the Runtime used by
// one-shot CLI commands and the App that serves analyses over HTTP.
package app

import (
	"log/slog"

	"github.com/sevigo/bug-warden/internal/analysis"
	"github.com/sevigo/bug-warden/internal/config"
	"github.com/sevigo/bug-warden/internal/jobs"
	"github.com/sevigo/bug-warden/internal/llm"
	"github.com/sevigo/bug-warden/internal/server"
)

// Runtime is everything needed to run analyses in-process.
type Runtime struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Gateway *llm.Gateway
	// Translator is nil unless llm.translator.enabled is set.
	Translator *llm.Translator
	Pipeline   *analysis.Pipeline
}

// NewRuntime bundles the analysis components and reports the effective
// configuration.
func NewRuntime(cfg *config.Config, logger *slog.Logger, gateway *llm.Gateway, translator *llm.Translator, pipeline *analysis.Pipeline) *Runtime {
	logger.Info("bug-warden initialized", cfg.Summary()...)
	return &Runtime{
		Cfg:        cfg,
		Logger:     logger,
		Gateway:    gateway,
		Translator: translator,
		Pipeline:   pipeline,
	}
}

// App is the long-running server: HTTP API in front of the job dispatcher.
type App struct {
	*Runtime
	server     *server.Server
	dispatcher *jobs.Dispatcher
}

// NewApp sets up the server application.
func NewApp(rt *Runtime, srv *server.Server, dispatcher *jobs.Dispatcher) *App {
	return &App{
		Runtime:    rt,
		server:     srv,
		dispatcher: dispatcher,
	}
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.Logger.Info("starting Bug-Warden server",
		"server_port", a.Cfg.Server.Port,
		"max_workers", a.Cfg.Server.MaxWorkers,
		"queue_size", a.Cfg.Server.QueueSize)

	if err := a.server.Start(); err != nil {
		a.Logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.Logger.Info("shutting down Bug-Warden services")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.Logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	// Running analyses are cancelled and keep their partial results.
	a.dispatcher.Stop()

	if serverErr != nil {
		a.Logger.Error("Bug-Warden stopped with errors", "error", serverErr)
		return serverErr
	}
	a.Logger.Info("Bug-Warden stopped successfully")
	return nil
}
