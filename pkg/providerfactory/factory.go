package providerfactory

import (
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/relay/pkg/providers"
)

// Func builds one upstream connection. The session pool calls it on every
// cache miss.
type Func func(config providers.ConnConfig) (providers.Conn, error)

// NewConn creates a new upstream connection from the configuration.
// The variant is chosen from the config:
//   - APIVersion set: Azure OpenAI
//   - otherwise: standard OpenAI-compatible API
//
// Construction failures (missing credential, malformed endpoint) are returned
// as *providers.ConfigError wrapped with context.
//
// Example:
//
//	conn, err := NewConn(providers.ConnConfig{
//	    Credential: "sk-...",
//	    BaseURL:    "https://api.openai.com/v1",
//	    Timeout:    90 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
func NewConn(config providers.ConnConfig) (providers.Conn, error) {
	variant := variantName(config)

	slog.Debug("creating upstream connection",
		"variant", variant,
		"base_url", config.BaseURL,
	)

	var (
		conn providers.Conn
		err  error
	)

	switch variant {
	case "azure":
		conn, err = providers.NewAzureConn(config)
	default:
		conn, err = providers.NewOpenAIConn(config)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s connection: %w", variant, err)
	}

	return conn, nil
}

// Transport holds HTTP pooling parameters applied to every connection a
// factory creates.
type Transport struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// Factory returns a Func that applies the transport tuning and calls NewConn.
// Fields set on the incoming config take precedence.
func (t Transport) Factory() Func {
	return func(config providers.ConnConfig) (providers.Conn, error) {
		if config.MaxIdleConns == 0 {
			config.MaxIdleConns = t.MaxIdleConns
		}
		if config.MaxIdleConnsPerHost == 0 {
			config.MaxIdleConnsPerHost = t.MaxIdleConnsPerHost
		}
		if config.IdleConnTimeout == 0 {
			config.IdleConnTimeout = t.IdleConnTimeout
		}
		return NewConn(config)
	}
}

func variantName(config providers.ConnConfig) string {
	if config.IsAzure() {
		return "azure"
	}
	return "openai"
}
