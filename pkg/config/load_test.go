package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// clearLegacyEnv blanks variables a developer machine may export.
func clearLegacyEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "AZURE_API_VERSION", "ANTHROPIC_API_KEY",
		"HOST", "PORT", "LOG_LEVEL", "REQUEST_TIMEOUT", "MAX_TOKENS_LIMIT",
		"MIN_TOKENS_LIMIT", "BIG_MODEL", "MIDDLE_MODEL", "SMALL_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
proxy:
  listen_address: "127.0.0.1:9000"
  read_timeout: 60s
upstream:
  base_url: "https://example.openai.azure.com"
  api_version: "2024-02-01"
pool:
  max_sessions: 5
  idle_ttl: 10m
models:
  big: "gpt-4.1"
usage:
  enabled: false
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Proxy.ListenAddress != "127.0.0.1:9000" {
		t.Errorf("ListenAddress = %q, want %q", cfg.Proxy.ListenAddress, "127.0.0.1:9000")
	}
	if cfg.Proxy.ReadTimeout != 60*time.Second {
		t.Errorf("ReadTimeout = %v, want 60s", cfg.Proxy.ReadTimeout)
	}
	if cfg.Upstream.APIVersion != "2024-02-01" {
		t.Errorf("APIVersion = %q, want 2024-02-01", cfg.Upstream.APIVersion)
	}
	if cfg.Pool.MaxSessions != 5 || cfg.Pool.IdleTTL != 10*time.Minute {
		t.Errorf("Pool = %+v, want max 5 ttl 10m", cfg.Pool)
	}
	if cfg.Pool.SweepInterval != DefaultPoolSweepInterval {
		t.Errorf("SweepInterval = %v, want default %v", cfg.Pool.SweepInterval, DefaultPoolSweepInterval)
	}
	if cfg.Models.MiddleModel() != "gpt-4.1" {
		t.Errorf("MiddleModel() = %q, want big model", cfg.Models.MiddleModel())
	}
	if cfg.Usage.Enabled {
		t.Error("Usage.Enabled = true, want explicit false to survive")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want default true")
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error = %v", err)
	}

	if cfg.Proxy.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %q, want %q", cfg.Proxy.ListenAddress, DefaultListenAddress)
	}
	if cfg.Upstream.BaseURL != DefaultUpstreamBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.Upstream.BaseURL, DefaultUpstreamBaseURL)
	}
	if cfg.Pool.MaxSessions != 50 || cfg.Pool.IdleTTL != time.Hour {
		t.Errorf("Pool = %+v, want 50 sessions and 1h TTL", cfg.Pool)
	}
	if cfg.Upstream.StaticMode() {
		t.Error("StaticMode() = true without an upstream key")
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "proxy: [unterminated")
		if _, err := LoadConfig(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfig(t, "pool:\n  max_sessions: -1\n")
		_, err := LoadConfig(path)
		var verr ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
		if verr.Errors[0].Field != "pool.max_sessions" {
			t.Errorf("field = %q, want pool.max_sessions", verr.Errors[0].Field)
		}
	})
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	clearLegacyEnv(t)
	path := writeConfig(t, `
pool:
  max_sessions: 5
models:
  small: "file-small"
`)

	t.Setenv("RELAY_POOL_MAX_SESSIONS", "7")
	t.Setenv("RELAY_POOL_IDLE_TTL", "30m")
	t.Setenv("RELAY_USAGE_BACKEND", "sqlite")
	t.Setenv("RELAY_TELEMETRY_METRICS_ENABLED", "false")
	t.Setenv("RELAY_UPSTREAM_TIMEOUT", "not-a-duration")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Pool.MaxSessions != 7 {
		t.Errorf("MaxSessions = %d, want 7", cfg.Pool.MaxSessions)
	}
	if cfg.Pool.IdleTTL != 30*time.Minute {
		t.Errorf("IdleTTL = %v, want 30m", cfg.Pool.IdleTTL)
	}
	if cfg.Usage.Backend != "sqlite" {
		t.Errorf("Backend = %q, want sqlite", cfg.Usage.Backend)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
	if cfg.Upstream.Timeout != DefaultUpstreamTimeout {
		t.Errorf("Timeout = %v, want unparseable override ignored", cfg.Upstream.Timeout)
	}
	if cfg.Models.Small != "file-small" {
		t.Errorf("Small = %q, want file value", cfg.Models.Small)
	}
}

func TestLoadConfigWithEnvOverrides_Legacy(t *testing.T) {
	clearLegacyEnv(t)

	t.Setenv("OPENAI_API_KEY", "sk-upstream-key")
	t.Setenv("ANTHROPIC_API_KEY", "client-key")
	t.Setenv("PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT", "30")
	t.Setenv("BIG_MODEL", "gpt-4.1")
	t.Setenv("SMALL_MODEL", "gpt-4.1-mini")
	t.Setenv("MAX_TOKENS_LIMIT", "8192")
	t.Setenv("LOG_LEVEL", "WARNING")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if !cfg.Upstream.StaticMode() || cfg.Upstream.APIKey != "sk-upstream-key" {
		t.Errorf("APIKey = %q, want static mode with legacy key", cfg.Upstream.APIKey)
	}
	if cfg.Auth.ClientAPIKey != "client-key" {
		t.Errorf("ClientAPIKey = %q, want client-key", cfg.Auth.ClientAPIKey)
	}
	if cfg.Proxy.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("ListenAddress = %q, want 0.0.0.0:9090", cfg.Proxy.ListenAddress)
	}
	if cfg.Upstream.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Upstream.Timeout)
	}
	if cfg.Models.MiddleModel() != "gpt-4.1" {
		t.Errorf("MiddleModel() = %q, want gpt-4.1", cfg.Models.MiddleModel())
	}
	if cfg.Models.MaxTokensLimit != 8192 {
		t.Errorf("MaxTokensLimit = %d, want 8192", cfg.Models.MaxTokensLimit)
	}

	t.Run("prefixed variables win", func(t *testing.T) {
		t.Setenv("RELAY_MODELS_BIG", "prefixed-big")
		cfg, err := LoadConfigWithEnvOverrides("")
		if err != nil {
			t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
		}
		if cfg.Models.Big != "prefixed-big" {
			t.Errorf("Big = %q, want prefixed-big", cfg.Models.Big)
		}
	})
}
