package types

import "mercator-hq/relay/pkg/session"

// CountTokensResponse is returned by the token counting endpoint.
type CountTokensResponse struct {
	InputTokens int `json:"input_tokens"`
}

// CancelResponse reports whether an in-flight request was found and
// signalled.
type CancelResponse struct {
	RequestID string `json:"request_id"`
	Cancelled bool   `json:"cancelled"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status                string `json:"status"`
	Timestamp             string `json:"timestamp"`
	UpstreamKeyConfigured bool   `json:"openai_api_configured"`
	UpstreamKeyValid      bool   `json:"api_key_valid"`
	ClientKeyValidation   bool   `json:"client_api_key_validation"`
	ActiveSessions        int    `json:"active_sessions"`
	UpstreamVariant       string `json:"upstream_variant,omitempty"`
}

// TestConnectionResponse is returned by GET /test-connection.
type TestConnectionResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	ModelUsed   string   `json:"model_used,omitempty"`
	ResponseID  string   `json:"response_id,omitempty"`
	ErrorType   string   `json:"error_type,omitempty"`
	Timestamp   string   `json:"timestamp"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// PoolResponse is returned by GET /v1/pool.
type PoolResponse struct {
	Pool     session.Metrics       `json:"client_manager"`
	Sessions []session.SessionInfo `json:"sessions"`
	KeyMode  string                `json:"key_mode"`
}

// RootResponse is the service banner returned by GET /.
type RootResponse struct {
	Message   string            `json:"message"`
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Config    RootConfig        `json:"config"`
	Endpoints map[string]string `json:"endpoints"`
}

// RootConfig summarizes the running configuration without secrets.
type RootConfig struct {
	UpstreamBaseURL       string `json:"openai_base_url"`
	MaxTokensLimit        int    `json:"max_tokens_limit"`
	MinTokensLimit        int    `json:"min_tokens_limit"`
	UpstreamKeyConfigured bool   `json:"api_key_configured"`
	DynamicKeys           bool   `json:"dynamic_keys_enabled"`
	ClientKeyValidation   bool   `json:"client_api_key_validation"`
	BigModel              string `json:"big_model"`
	MiddleModel           string `json:"middle_model"`
	SmallModel            string `json:"small_model"`
}
