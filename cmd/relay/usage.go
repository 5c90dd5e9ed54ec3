package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/usage"
)

var usageFlags struct {
	db     string
	since  time.Duration
	format string
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Summarize recorded usage",
	Long: `Summarize the SQLite usage ledger per key prefix and model.

Examples:
  # Last 24 hours from the configured ledger
  relay usage --config config.yaml

  # Last week from an explicit database, as CSV
  relay usage --db data/usage.db --since 168h --format csv`,
	RunE: runUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.Flags().StringVar(&usageFlags.db, "db", "", "SQLite ledger path (defaults to usage.sqlite.path)")
	usageCmd.Flags().DurationVar(&usageFlags.since, "since", 24*time.Hour, "how far back to summarize")
	usageCmd.Flags().StringVar(&usageFlags.format, "format", "text", "output format: text, json, csv")
}

// usageReport renders summaries as a table.
type usageReport []usage.Summary

func (r usageReport) Table() cli.Table {
	table := cli.Table{
		Headers: []string{"KEY", "MODEL", "REQUESTS", "FAILURES", "PROMPT_TOKENS", "COMPLETION_TOKENS"},
	}
	for _, s := range r {
		table.Rows = append(table.Rows, []string{
			s.KeyPrefix,
			s.Model,
			strconv.FormatInt(s.Requests, 10),
			strconv.FormatInt(s.Failures, 10),
			strconv.FormatInt(s.PromptTokens, 10),
			strconv.FormatInt(s.CompletionTokens, 10),
		})
	}
	return table
}

func runUsage(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(usageFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	if usageFlags.since <= 0 {
		return cli.NewConfigError("since", "must be positive")
	}

	path := usageFlags.db
	if path == "" {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return cli.WrapConfigError(err)
		}
		path = cfg.Usage.SQLite.Path
	}

	store, err := usage.NewSQLiteStore(usage.SQLiteConfig{Path: path})
	if err != nil {
		return cli.NewCommandError("usage", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	summaries, err := store.Summarize(ctx, time.Now().Add(-usageFlags.since))
	if err != nil {
		return cli.NewCommandError("usage", err)
	}

	out := cmd.OutOrStdout()
	if len(summaries) == 0 && format == cli.FormatText {
		fmt.Fprintf(out, "No usage recorded in the last %s\n", usageFlags.since)
		return nil
	}
	return cli.NewFormatter(format).FormatTo(out, usageReport(summaries))
}
