package providers

import "time"

// ConnConfig describes how to build one upstream connection.
type ConnConfig struct {
	// Credential is the upstream API key the connection authenticates with.
	Credential string

	// BaseURL is the API endpoint base URL (e.g. https://api.openai.com/v1).
	BaseURL string

	// APIVersion selects the Azure variant when non-empty.
	APIVersion string

	// Timeout bounds each phase of an upstream call: dialing, the wait for
	// response headers, a whole single-shot call, and each stream read.
	Timeout time.Duration

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration
}

// Connection pool defaults used when ConnConfig leaves them zero.
const (
	DefaultTimeout             = 90 * time.Second
	DefaultMaxIdleConns        = 100
	DefaultMaxIdleConnsPerHost = 10
	DefaultIdleConnTimeout     = 90 * time.Second
)

// IsAzure reports whether the config selects the Azure variant.
func (c ConnConfig) IsAzure() bool {
	return c.APIVersion != ""
}

// withDefaults returns a copy with zero tuning fields filled in.
func (c ConnConfig) withDefaults() ConnConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = DefaultIdleConnTimeout
	}
	return c
}
