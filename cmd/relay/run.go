package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/dispatch"
	"mercator-hq/relay/pkg/processing/tokens"
	"mercator-hq/relay/pkg/providerfactory"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/server"
	"mercator-hq/relay/pkg/session"
	"mercator-hq/relay/pkg/telemetry/logging"
	"mercator-hq/relay/pkg/telemetry/metrics"
	"mercator-hq/relay/pkg/telemetry/tracing"
	"mercator-hq/relay/pkg/usage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay server",
	Long: `Start the relay server with the specified configuration.

When a configuration file is given it is watched; log level and model
mapping changes apply without a restart. Pool sizing changes need one.

Examples:
  # Start with environment configuration only
  OPENAI_API_KEY=sk-... relay run

  # Start with a config file
  relay run --config /etc/relay/config.yaml

  # Override listen address
  relay run --listen 0.0.0.0:8080

  # Validate config without starting server
  relay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.WrapConfigError(err)
	}

	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return cli.WrapConfigError(err)
	}

	logger, err := logging.New(logging.Config{
		Level:         cfg.Telemetry.Logging.Level,
		Format:        cfg.Telemetry.Logging.Format,
		AddSource:     cfg.Telemetry.Logging.AddSource,
		RedactSecrets: cfg.Telemetry.Logging.RedactSecrets,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Logger)

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	printBanner(cmd, cfg)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer tracer.Shutdown(context.Background())

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	pool, err := session.NewPool(session.Config{
		MaxSessions:   cfg.Pool.MaxSessions,
		IdleTTL:       cfg.Pool.IdleTTL,
		SweepInterval: cfg.Pool.SweepInterval,
		Factory: providerfactory.Transport{
			MaxIdleConns:        cfg.Upstream.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.Upstream.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.Upstream.IdleConnTimeout,
		}.Factory(),
		Observer: collector,
	})
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to create session pool: %w", err))
	}
	defer pool.Shutdown()

	observers := []dispatch.Observer{collector}
	if cfg.Usage.Enabled {
		store, err := openUsageStore(cfg.Usage)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer store.Close()

		recorder := usage.NewRecorder(store, usage.RecorderConfig{
			BufferSize:   cfg.Usage.BufferSize,
			WriteTimeout: cfg.Usage.WriteTimeout,
		})
		defer recorder.Close()

		observers = append(observers, recorder)
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Usage ledger initialized (%s)\n", usageSummary(cfg.Usage))
	}

	dispatcher := dispatch.New(dispatch.Config{
		Observers: observers,
		Tracer:    tracer,
	})
	mapper := proxy.NewModelMapper(cfg.Models)
	policy := middleware.NewCredentialPolicy(cfg.Upstream, cfg.Auth)

	srv, err := server.New(cfg, server.Dependencies{
		Pool:       pool,
		Dispatcher: dispatcher,
		Mapper:     mapper,
		Policy:     policy,
		Estimator:  tokens.NewCharEstimator(tokens.DefaultCharsPerToken),
		Metrics:    collector,
		Version:    Version,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if cfgFile != "" {
		watcher, err := config.NewWatcher(cfgFile, func(next *config.Config) {
			if err := logger.SetLevel(next.Telemetry.Logging.Level); err != nil {
				slog.Warn("ignoring reloaded log level", "error", err)
			}
			mapper.Update(next.Models)
			slog.Info("configuration reloaded",
				"log_level", next.Telemetry.Logging.Level,
				"big_model", next.Models.Big,
				"middle_model", next.Models.MiddleModel(),
				"small_model", next.Models.Small,
			)
		})
		if err != nil {
			slog.Warn("config hot reload disabled", "error", err)
		} else {
			go func() {
				if err := watcher.Watch(ctx); err != nil {
					slog.Error("config watcher stopped", "error", err)
				}
			}()
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on %s (key mode: %s)\n", cfg.Proxy.ListenAddress, policy.Mode())
	fmt.Fprintln(cmd.OutOrStdout(), "\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
	return nil
}

func openUsageStore(cfg config.UsageConfig) (usage.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		store, err := usage.NewSQLiteStore(usage.SQLiteConfig{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open usage store: %w", err)
		}
		return store, nil
	case "memory", "":
		return usage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported usage backend: %s", cfg.Backend)
	}
}

func printBanner(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Mercator Relay v%s\n", Version)
	if cfgFile != "" {
		fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)
	}
	fmt.Fprintln(out, "✓ Configuration loaded")

	slog.Debug("relay configuration",
		"upstream", cfg.Upstream.BaseURL,
		"azure", cfg.Upstream.APIVersion != "",
		"pool_max_sessions", cfg.Pool.MaxSessions,
		"pool_idle_ttl", cfg.Pool.IdleTTL,
		"metrics_enabled", cfg.Telemetry.Metrics.Enabled,
		"tracing_enabled", cfg.Telemetry.Tracing.Enabled,
	)
}
