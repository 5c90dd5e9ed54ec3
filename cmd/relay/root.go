package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Mercator Relay - session-pooled gateway for chat completion APIs",
	Long: `Mercator Relay sits between clients and an OpenAI-compatible chat
completions API.

It provides:
  - A bounded pool of upstream sessions keyed by caller credential
  - Single-shot and streaming dispatch with per-request cancellation
  - Classification of upstream failures into stable error categories
  - Prometheus metrics, OpenTelemetry traces and a usage ledger

Configuration comes from an optional YAML file plus environment variables
(OPENAI_API_KEY, OPENAI_BASE_URL, BIG_MODEL, RELAY_POOL_MAX_SESSIONS, ...).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
