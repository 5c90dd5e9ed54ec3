package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "pool.max_sessions").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field error found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All field errors are
// collected and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validatePool(&cfg.Pool)...)
	errs = append(errs, validateModels(&cfg.Models)...)
	errs = append(errs, validateUsage(&cfg.Usage)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "proxy.listen_address", Message: "listen address is required"})
	}
	errs = append(errs, nonNegative("proxy.read_timeout", cfg.ReadTimeout)...)
	errs = append(errs, nonNegative("proxy.write_timeout", cfg.WriteTimeout)...)
	errs = append(errs, nonNegative("proxy.idle_timeout", cfg.IdleTimeout)...)
	errs = append(errs, nonNegative("proxy.shutdown_timeout", cfg.ShutdownTimeout)...)

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "proxy.max_header_bytes", Message: "max header bytes must be non-negative"})
	}
	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{Field: "proxy.cors.max_age", Message: "max age must be non-negative"})
	}

	return errs
}

func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	u, err := url.Parse(cfg.BaseURL)
	switch {
	case cfg.BaseURL == "":
		errs = append(errs, FieldError{Field: "upstream.base_url", Message: "base URL is required"})
	case err != nil:
		errs = append(errs, FieldError{Field: "upstream.base_url", Message: fmt.Sprintf("invalid URL: %v", err)})
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, FieldError{Field: "upstream.base_url", Message: "URL scheme must be http or https"})
	case u.Host == "":
		errs = append(errs, FieldError{Field: "upstream.base_url", Message: "URL host is required"})
	}

	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "upstream.timeout", Message: "timeout must be positive"})
	}
	if cfg.MaxIdleConns < 0 {
		errs = append(errs, FieldError{Field: "upstream.max_idle_conns", Message: "must be non-negative"})
	}
	if cfg.MaxIdleConnsPerHost < 0 {
		errs = append(errs, FieldError{Field: "upstream.max_idle_conns_per_host", Message: "must be non-negative"})
	}

	return errs
}

func validatePool(cfg *PoolConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxSessions <= 0 {
		errs = append(errs, FieldError{Field: "pool.max_sessions", Message: "max sessions must be positive"})
	}
	if cfg.IdleTTL <= 0 {
		errs = append(errs, FieldError{Field: "pool.idle_ttl", Message: "idle TTL must be positive"})
	}
	if cfg.SweepInterval < time.Second {
		errs = append(errs, FieldError{Field: "pool.sweep_interval", Message: "sweep interval must be at least 1s"})
	}

	return errs
}

func validateModels(cfg *ModelsConfig) []FieldError {
	var errs []FieldError

	if cfg.Big == "" {
		errs = append(errs, FieldError{Field: "models.big", Message: "big model is required"})
	}
	if cfg.Small == "" {
		errs = append(errs, FieldError{Field: "models.small", Message: "small model is required"})
	}
	if cfg.MinTokensLimit <= 0 {
		errs = append(errs, FieldError{Field: "models.min_tokens_limit", Message: "must be positive"})
	}
	if cfg.MaxTokensLimit < cfg.MinTokensLimit {
		errs = append(errs, FieldError{
			Field:   "models.max_tokens_limit",
			Message: fmt.Sprintf("must be at least min_tokens_limit (%d)", cfg.MinTokensLimit),
		})
	}

	return errs
}

func validateUsage(cfg *UsageConfig) []FieldError {
	var errs []FieldError

	if !slices.Contains([]string{"memory", "sqlite"}, cfg.Backend) {
		errs = append(errs, FieldError{
			Field:   "usage.backend",
			Message: fmt.Sprintf("unknown backend %q (valid: memory, sqlite)", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{Field: "usage.sqlite.path", Message: "path is required for the sqlite backend"})
	}
	if cfg.BufferSize <= 0 {
		errs = append(errs, FieldError{Field: "usage.buffer_size", Message: "buffer size must be positive"})
	}
	errs = append(errs, nonNegative("usage.write_timeout", cfg.WriteTimeout)...)

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	level := strings.ToLower(cfg.Logging.Level)
	if !slices.Contains([]string{"debug", "info", "warn", "warning", "error", "critical"}, level) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q (valid: debug, info, warn, error)", cfg.Logging.Level),
		})
	}
	if !slices.Contains([]string{"json", "text", "console"}, cfg.Logging.Format) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q (valid: json, text, console)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with /"})
	}

	tr := cfg.Tracing
	if tr.Enabled {
		if tr.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
		}
		if tr.Exporter != "otlp" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.exporter",
				Message: fmt.Sprintf("unsupported exporter %q (valid: otlp)", tr.Exporter),
			})
		}
	}
	if !slices.Contains([]string{"always", "never", "ratio"}, tr.Sampler) {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("unknown sampler %q (valid: always, never, ratio)", tr.Sampler),
		})
	}
	if tr.SampleRatio < 0 || tr.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0.0 and 1.0"})
	}

	return errs
}

func nonNegative(field string, d time.Duration) []FieldError {
	if d < 0 {
		return []FieldError{{Field: field, Message: "must be non-negative"}}
	}
	return nil
}
