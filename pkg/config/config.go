package config

import "time"

// Config is the root configuration structure for the relay.
type Config struct {
	// Proxy contains HTTP server configuration including listen address,
	// timeouts, and CORS.
	Proxy ProxyConfig `yaml:"proxy"`

	// Upstream describes the OpenAI-compatible API every session talks to.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Auth contains client credential checks.
	Auth AuthConfig `yaml:"auth"`

	// Pool contains session pool sizing.
	Pool PoolConfig `yaml:"pool"`

	// Models maps requested model families onto upstream models and bounds
	// max_tokens.
	Models ModelsConfig `yaml:"models"`

	// Usage contains usage ledger configuration.
	Usage UsageConfig `yaml:"usage"`

	// Telemetry contains configuration for logging, metrics, and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProxyConfig contains configuration for the HTTP server.
type ProxyConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "0.0.0.0:8082"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds response writes. Streaming responses can run for
	// minutes, so zero (no timeout) is the default.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are added.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is the list of allowed origins. "*" allows all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedHeaders is the list of headers clients may send.
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is how long preflight results may be cached, in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// UpstreamConfig describes the upstream API.
type UpstreamConfig struct {
	// BaseURL is the API root including the version segment.
	// Default: "https://api.openai.com/v1"
	BaseURL string `yaml:"base_url"`

	// APIKey is the upstream credential. When set, every caller shares it
	// (static mode). When empty, each caller's own key is used upstream
	// (dynamic mode).
	APIKey string `yaml:"api_key"`

	// APIVersion selects the Azure OpenAI variant when set.
	APIVersion string `yaml:"api_version"`

	// Timeout is the per-request upstream timeout.
	// Default: 90s
	Timeout time.Duration `yaml:"timeout"`

	// MaxIdleConns is the idle connection limit of each session's transport.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the per-host idle connection limit.
	// Default: 10
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout closes idle transport connections.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// StaticMode reports whether one configured upstream key serves every caller.
func (u UpstreamConfig) StaticMode() bool {
	return u.APIKey != ""
}

// AuthConfig contains client credential checks.
type AuthConfig struct {
	// ClientAPIKey, when set, is the key callers must present in static mode.
	ClientAPIKey string `yaml:"client_api_key"`
}

// PoolConfig contains session pool sizing.
type PoolConfig struct {
	// MaxSessions is the pool capacity.
	// Default: 50
	MaxSessions int `yaml:"max_sessions"`

	// IdleTTL is how long an unused session is kept.
	// Default: 1h
	IdleTTL time.Duration `yaml:"idle_ttl"`

	// SweepInterval is how often idle sessions are removed.
	// Default: 5m
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// ModelsConfig maps model families and bounds max_tokens.
type ModelsConfig struct {
	// Big serves "opus" requests.
	// Default: "gpt-4o"
	Big string `yaml:"big"`

	// Middle serves "sonnet" requests. Empty means Big, see MiddleModel.
	Middle string `yaml:"middle"`

	// Small serves "haiku" requests.
	// Default: "gpt-4o-mini"
	Small string `yaml:"small"`

	// MaxTokensLimit is the upper clamp for max_tokens.
	// Default: 4096
	MaxTokensLimit int `yaml:"max_tokens_limit"`

	// MinTokensLimit is the lower clamp for max_tokens.
	// Default: 100
	MinTokensLimit int `yaml:"min_tokens_limit"`
}

// MiddleModel returns Middle, falling back to Big.
func (m ModelsConfig) MiddleModel() string {
	if m.Middle != "" {
		return m.Middle
	}
	return m.Big
}

// UsageConfig contains usage ledger configuration.
type UsageConfig struct {
	// Enabled controls whether finished dispatches are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend is the storage backend.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// BufferSize is the capacity of the async record queue.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// WriteTimeout bounds both the wait for queue space and each store write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// SQLiteConfig contains SQLite usage store configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/usage.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks credentials in log output.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "relay"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the trace exporter to use.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "mercator-relay"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
