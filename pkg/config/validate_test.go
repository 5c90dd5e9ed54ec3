package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{name: "defaults are valid"},
		{
			name:      "empty listen address",
			modify:    func(c *Config) { c.Proxy.ListenAddress = "" },
			wantField: "proxy.listen_address",
		},
		{
			name:      "base url without scheme",
			modify:    func(c *Config) { c.Upstream.BaseURL = "api.openai.com/v1" },
			wantField: "upstream.base_url",
		},
		{
			name:      "ftp base url",
			modify:    func(c *Config) { c.Upstream.BaseURL = "ftp://api.openai.com" },
			wantField: "upstream.base_url",
		},
		{
			name:      "zero upstream timeout",
			modify:    func(c *Config) { c.Upstream.Timeout = 0 },
			wantField: "upstream.timeout",
		},
		{
			name:      "zero capacity",
			modify:    func(c *Config) { c.Pool.MaxSessions = 0 },
			wantField: "pool.max_sessions",
		},
		{
			name:      "sub-second sweep",
			modify:    func(c *Config) { c.Pool.SweepInterval = 500 * time.Millisecond },
			wantField: "pool.sweep_interval",
		},
		{
			name: "token limits inverted",
			modify: func(c *Config) {
				c.Models.MinTokensLimit = 500
				c.Models.MaxTokensLimit = 100
			},
			wantField: "models.max_tokens_limit",
		},
		{
			name:      "unknown usage backend",
			modify:    func(c *Config) { c.Usage.Backend = "postgres" },
			wantField: "usage.backend",
		},
		{
			name:      "unknown log level",
			modify:    func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "metrics path without slash",
			modify:    func(c *Config) { c.Telemetry.Metrics.Path = "metrics" },
			wantField: "telemetry.metrics.path",
		},
		{
			name:      "tracing without endpoint",
			modify:    func(c *Config) { c.Telemetry.Tracing.Enabled = true },
			wantField: "telemetry.tracing.endpoint",
		},
		{
			name:      "sample ratio out of range",
			modify:    func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			wantField: "telemetry.tracing.sample_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if tt.modify != nil {
				tt.modify(cfg)
			}

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() errors = %v, want field %q", verr.Errors, tt.wantField)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "pool.max_sessions", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: pool.max_sessions: bad" {
		t.Errorf("Error() = %q", got)
	}

	multi := ValidationError{Errors: []FieldError{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}}
	if got := multi.Error(); !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: y") {
		t.Errorf("Error() = %q", got)
	}
}
