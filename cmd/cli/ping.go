package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/bug-warden/internal/wire"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Checks that the configured LLM service answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, cleanup, err := wire.InitializeRuntime(cmd.Context(), configFile)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer cleanup()

		start := time.Now()
		if err := rt.Gateway.Ping(cmd.Context()); err != nil {
			errorColor.Printf("✗ %s at %s is not reachable\n", rt.Cfg.LLM.Model, rt.Cfg.LLM.BaseURL)
			return err
		}
		successColor.Printf("✓ %s answered in %s\n", rt.Cfg.LLM.Model, time.Since(start).Round(time.Millisecond))

		if rt.Translator == nil {
			return nil
		}
		tr := rt.Cfg.LLM.With(rt.Cfg.LLM.Translator.LLMEndpoint)
		start = time.Now()
		if err := rt.Translator.Ping(cmd.Context()); err != nil {
			errorColor.Printf("✗ translator %s at %s is not reachable\n", tr.Model, tr.BaseURL)
			return err
		}
		successColor.Printf("✓ translator %s answered in %s\n", tr.Model, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(pingCmd)
}
