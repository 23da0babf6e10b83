package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/bug-warden/internal/wire"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the HTTP API that queues analyses on a worker pool",
	Long: `Runs the HTTP API:

  POST /api/v1/analyses        queue an analysis, answers 202 with its id
  GET  /api/v1/analyses        list known analyses
  GET  /api/v1/analyses/{id}   status and, once finished, the result
  GET  /health, GET /metrics

Results live in memory for the lifetime of the process only.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return serve(configFile)
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	serveCmd.Flags().String("port", "", "HTTP port (default 8080)")
	if err := viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
	rootCmd.AddCommand(serveCmd)
}

func serve(configFile string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, cleanup, err := wire.InitializeApp(ctx, configFile)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	go func() {
		if err := app.Start(); err != nil {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		slog.Info("received shutdown signal")
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	if err := app.Stop(); err != nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}
	return nil
}
