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

var configFile string

var rootCmd = &cobra.Command{
	Use:   "bug-warden-server",
	Short: "Serves bug analyses over HTTP",
	Long: `bug-warden-server runs the analysis job queue behind the HTTP API.

It is the standalone form of "bug-warden serve" for deployments that ship the
server without the CLI. Configuration is read from bug-warden.yaml,
BW_-prefixed environment variables and command-line flags.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		return run(configFile)
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file (default ./bug-warden.yaml)")
	rootCmd.Flags().String("port", "", "HTTP port (default 8080)")
	rootCmd.Flags().String("log-level", "", "Log level: debug, info, warn or error")
	for key, flag := range map[string]string{"server.port": "port", "logging.level": "log-level"} {
		if err := viper.BindPFlag(key, rootCmd.Flags().Lookup(flag)); err != nil {
			slog.Error("Error binding flag", "flag", flag, "error", err)
			os.Exit(1)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("application failed to run", "error", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, cleanup, err := wire.InitializeApp(ctx, configFile)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	slog.Info("starting Bug-Warden application")

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
		slog.Error("failed to stop application", "error", err)
		return fmt.Errorf("failed to stop application: %w", err)
	}
	return nil
}
