package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "bug-warden",
	Short: "bug-warden links a bug report to the code most likely responsible for it.",
	Long: `bug-warden reads a free-text bug report, cuts a source tree into chunks and asks a
locally hosted language model which chunks explain the bug, guided by curated
developer knowledge. It prints a ranked list of locations and fix suggestions.

Configuration is read from bug-warden.yaml, BW_-prefixed environment variables
and command-line flags, in increasing order of precedence.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ./bug-warden.yaml)")
	rootCmd.PersistentFlags().String("provider", "", "LLM provider: openai, ollama or gemini")
	rootCmd.PersistentFlags().String("base-url", "", "LLM service base URL")
	rootCmd.PersistentFlags().String("model", "", "LLM model name")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")

	bindFlag("llm.provider", "provider")
	bindFlag("llm.base_url", "base-url")
	bindFlag("llm.model", "model")
	bindFlag("logging.level", "log-level")
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		slog.Error("Error binding flag", "flag", flag, "error", err)
		os.Exit(1)
	}
}
