package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RELAY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of Default(), so omitted fields keep their
// defaults. An empty path yields the defaults alone. The result is validated.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides for
// that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides.
//
// The loading sequence is:
// 1. Default values
// 2. YAML file (if path is not empty)
// 3. Legacy process variables (OPENAI_API_KEY, PORT, BIG_MODEL, ...)
// 4. RELAY_SECTION_FIELD variables
// 5. Validation
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	applyLegacyEnv(cfg)
	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// applyLegacyEnv honours the variable names used by earlier deployments.
func applyLegacyEnv(cfg *Config) {
	setString("OPENAI_API_KEY", &cfg.Upstream.APIKey)
	setString("OPENAI_BASE_URL", &cfg.Upstream.BaseURL)
	setString("AZURE_API_VERSION", &cfg.Upstream.APIVersion)
	setString("ANTHROPIC_API_KEY", &cfg.Auth.ClientAPIKey)
	setString("LOG_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("BIG_MODEL", &cfg.Models.Big)
	setString("MIDDLE_MODEL", &cfg.Models.Middle)
	setString("SMALL_MODEL", &cfg.Models.Small)
	setInt("MAX_TOKENS_LIMIT", &cfg.Models.MaxTokensLimit)
	setInt("MIN_TOKENS_LIMIT", &cfg.Models.MinTokensLimit)

	// REQUEST_TIMEOUT is a number of seconds.
	if val := os.Getenv("REQUEST_TIMEOUT"); val != "" {
		if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
			cfg.Upstream.Timeout = time.Duration(secs) * time.Second
		}
	}

	host, port := os.Getenv("HOST"), os.Getenv("PORT")
	if host != "" || port != "" {
		curHost, curPort, err := net.SplitHostPort(cfg.Proxy.ListenAddress)
		if err != nil {
			curHost, curPort = "0.0.0.0", "8082"
		}
		if host != "" {
			curHost = host
		}
		if port != "" {
			curPort = port
		}
		cfg.Proxy.ListenAddress = net.JoinHostPort(curHost, curPort)
	}
}

// applyEnvOverrides applies RELAY_SECTION_FIELD overrides. Unparseable values
// are ignored.
func applyEnvOverrides(cfg *Config) {
	// Proxy overrides
	setString(EnvPrefix+"PROXY_LISTEN_ADDRESS", &cfg.Proxy.ListenAddress)
	setDuration(EnvPrefix+"PROXY_READ_TIMEOUT", &cfg.Proxy.ReadTimeout)
	setDuration(EnvPrefix+"PROXY_WRITE_TIMEOUT", &cfg.Proxy.WriteTimeout)
	setDuration(EnvPrefix+"PROXY_IDLE_TIMEOUT", &cfg.Proxy.IdleTimeout)
	setDuration(EnvPrefix+"PROXY_SHUTDOWN_TIMEOUT", &cfg.Proxy.ShutdownTimeout)
	setBool(EnvPrefix+"PROXY_CORS_ENABLED", &cfg.Proxy.CORS.Enabled)

	// Upstream overrides
	setString(EnvPrefix+"UPSTREAM_BASE_URL", &cfg.Upstream.BaseURL)
	setString(EnvPrefix+"UPSTREAM_API_KEY", &cfg.Upstream.APIKey)
	setString(EnvPrefix+"UPSTREAM_API_VERSION", &cfg.Upstream.APIVersion)
	setDuration(EnvPrefix+"UPSTREAM_TIMEOUT", &cfg.Upstream.Timeout)

	// Auth overrides
	setString(EnvPrefix+"AUTH_CLIENT_API_KEY", &cfg.Auth.ClientAPIKey)

	// Pool overrides
	setInt(EnvPrefix+"POOL_MAX_SESSIONS", &cfg.Pool.MaxSessions)
	setDuration(EnvPrefix+"POOL_IDLE_TTL", &cfg.Pool.IdleTTL)
	setDuration(EnvPrefix+"POOL_SWEEP_INTERVAL", &cfg.Pool.SweepInterval)

	// Model overrides
	setString(EnvPrefix+"MODELS_BIG", &cfg.Models.Big)
	setString(EnvPrefix+"MODELS_MIDDLE", &cfg.Models.Middle)
	setString(EnvPrefix+"MODELS_SMALL", &cfg.Models.Small)
	setInt(EnvPrefix+"MODELS_MAX_TOKENS_LIMIT", &cfg.Models.MaxTokensLimit)
	setInt(EnvPrefix+"MODELS_MIN_TOKENS_LIMIT", &cfg.Models.MinTokensLimit)

	// Usage overrides
	setBool(EnvPrefix+"USAGE_ENABLED", &cfg.Usage.Enabled)
	setString(EnvPrefix+"USAGE_BACKEND", &cfg.Usage.Backend)
	setString(EnvPrefix+"USAGE_SQLITE_PATH", &cfg.Usage.SQLite.Path)

	// Telemetry overrides
	setString(EnvPrefix+"TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	setString(EnvPrefix+"TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	setBool(EnvPrefix+"TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	setString(EnvPrefix+"TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	setBool(EnvPrefix+"TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	setString(EnvPrefix+"TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	setString(EnvPrefix+"TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func setString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
