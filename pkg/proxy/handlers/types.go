package handlers

import (
	"time"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/session"
)

// Upstream is the upstream endpoint every session is opened against.
type Upstream struct {
	// Endpoint is the upstream base URL.
	Endpoint string

	// Variant is the Azure API version, or empty for the standard API.
	Variant string

	// Timeout bounds each upstream call.
	Timeout time.Duration
}

// UpstreamFromConfig extracts the session parameters shared by all callers.
func UpstreamFromConfig(cfg config.UpstreamConfig) Upstream {
	return Upstream{
		Endpoint: cfg.BaseURL,
		Variant:  cfg.APIVersion,
		Timeout:  cfg.Timeout,
	}
}

// Params returns the session parameters for credential.
func (u Upstream) Params(credential string) session.Params {
	return session.Params{
		Credential: credential,
		Endpoint:   u.Endpoint,
		Variant:    u.Variant,
		Timeout:    u.Timeout,
	}
}
