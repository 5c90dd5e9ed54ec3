package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/proxy/middleware"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect relay configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Load the configuration file and environment overrides, validate them and
print a short summary. Exits with status 2 when the configuration is invalid.

Examples:
  relay config validate --config config.yaml
  OPENAI_API_KEY=sk-... relay config validate`,
	RunE: validateConfig,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.WrapConfigError(err)
	}

	policy := middleware.NewCredentialPolicy(cfg.Upstream, cfg.Auth)
	models := cfg.Models

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Configuration valid")
	fmt.Fprintf(out, "  listen:        %s\n", cfg.Proxy.ListenAddress)
	fmt.Fprintf(out, "  upstream:      %s\n", cfg.Upstream.BaseURL)
	fmt.Fprintf(out, "  key mode:      %s\n", policy.Mode())
	fmt.Fprintf(out, "  pool:          %d sessions, idle ttl %s\n", cfg.Pool.MaxSessions, cfg.Pool.IdleTTL)
	fmt.Fprintf(out, "  models:        big=%s middle=%s small=%s\n", models.Big, models.MiddleModel(), models.Small)
	fmt.Fprintf(out, "  usage ledger:  %s\n", usageSummary(cfg.Usage))

	if policy.Static() && !policy.UpstreamKeyValid() {
		fmt.Fprintln(out, "! upstream.api_key does not look like an OpenAI key (expected sk- prefix)")
	}
	return nil
}

func usageSummary(cfg config.UsageConfig) string {
	switch {
	case !cfg.Enabled:
		return "disabled"
	case cfg.Backend == "sqlite":
		return "sqlite " + cfg.SQLite.Path
	default:
		return cfg.Backend
	}
}
