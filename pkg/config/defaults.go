package config

import "time"

// Default values for configuration fields.
const (
	// Proxy defaults
	DefaultListenAddress   = "0.0.0.0:8082"
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultCORSMaxAge      = 3600

	// Upstream defaults
	DefaultUpstreamBaseURL     = "https://api.openai.com/v1"
	DefaultUpstreamTimeout     = 90 * time.Second
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second

	// Pool defaults
	DefaultPoolMaxSessions   = 50
	DefaultPoolIdleTTL       = time.Hour
	DefaultPoolSweepInterval = 5 * time.Minute

	// Model defaults
	DefaultBigModel       = "gpt-4o"
	DefaultSmallModel     = "gpt-4o-mini"
	DefaultMaxTokensLimit = 4096
	DefaultMinTokensLimit = 100

	// Usage defaults
	DefaultUsageBackend      = "memory"
	DefaultUsageSQLitePath   = "data/usage.db"
	DefaultUsageBusyTimeout  = 5 * time.Second
	DefaultUsageBufferSize   = 1000
	DefaultUsageWriteTimeout = 5 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "relay"
	DefaultTracingSampler     = "always"
	DefaultTracingExporter    = "otlp"
	DefaultTracingServiceName = "mercator-relay"
	DefaultOTLPTimeout        = 10 * time.Second
)

// Default returns a configuration with every default applied, including the
// boolean switches that ApplyDefaults cannot tell apart from an explicit
// false. Files are decoded on top of it.
func Default() *Config {
	cfg := &Config{}
	cfg.Proxy.CORS.Enabled = true
	cfg.Usage.Enabled = true
	cfg.Telemetry.Logging.RedactSecrets = true
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Tracing.OTLP.Insecure = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// It is idempotent.
func ApplyDefaults(cfg *Config) {
	// Proxy defaults
	if cfg.Proxy.ListenAddress == "" {
		cfg.Proxy.ListenAddress = DefaultListenAddress
	}
	if cfg.Proxy.ReadTimeout == 0 {
		cfg.Proxy.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Proxy.IdleTimeout == 0 {
		cfg.Proxy.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Proxy.MaxHeaderBytes == 0 {
		cfg.Proxy.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if len(cfg.Proxy.CORS.AllowedOrigins) == 0 {
		cfg.Proxy.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.Proxy.CORS.AllowedHeaders) == 0 {
		cfg.Proxy.CORS.AllowedHeaders = []string{"Content-Type", "Authorization", "X-API-Key", "X-Request-ID"}
	}
	if cfg.Proxy.CORS.MaxAge == 0 {
		cfg.Proxy.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Upstream defaults
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if cfg.Upstream.MaxIdleConns == 0 {
		cfg.Upstream.MaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.Upstream.MaxIdleConnsPerHost == 0 {
		cfg.Upstream.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if cfg.Upstream.IdleConnTimeout == 0 {
		cfg.Upstream.IdleConnTimeout = DefaultIdleConnTimeout
	}

	// Pool defaults
	if cfg.Pool.MaxSessions == 0 {
		cfg.Pool.MaxSessions = DefaultPoolMaxSessions
	}
	if cfg.Pool.IdleTTL == 0 {
		cfg.Pool.IdleTTL = DefaultPoolIdleTTL
	}
	if cfg.Pool.SweepInterval == 0 {
		cfg.Pool.SweepInterval = DefaultPoolSweepInterval
	}

	// Model defaults
	if cfg.Models.Big == "" {
		cfg.Models.Big = DefaultBigModel
	}
	if cfg.Models.Small == "" {
		cfg.Models.Small = DefaultSmallModel
	}
	if cfg.Models.MaxTokensLimit == 0 {
		cfg.Models.MaxTokensLimit = DefaultMaxTokensLimit
	}
	if cfg.Models.MinTokensLimit == 0 {
		cfg.Models.MinTokensLimit = DefaultMinTokensLimit
	}

	// Usage defaults
	if cfg.Usage.Backend == "" {
		cfg.Usage.Backend = DefaultUsageBackend
	}
	if cfg.Usage.SQLite.Path == "" {
		cfg.Usage.SQLite.Path = DefaultUsageSQLitePath
	}
	if cfg.Usage.SQLite.BusyTimeout == 0 {
		cfg.Usage.SQLite.BusyTimeout = DefaultUsageBusyTimeout
	}
	if cfg.Usage.BufferSize == 0 {
		cfg.Usage.BufferSize = DefaultUsageBufferSize
	}
	if cfg.Usage.WriteTimeout == 0 {
		cfg.Usage.WriteTimeout = DefaultUsageWriteTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.Exporter == "" {
		cfg.Telemetry.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
}
