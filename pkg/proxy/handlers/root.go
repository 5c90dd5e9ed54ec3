package handlers

import (
	"log/slog"
	"net/http"

	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/proxy/types"
)

// Endpoint paths served by the relay.
const (
	PathChatCompletions = "/v1/chat/completions"
	PathCountTokens     = "/v1/messages/count_tokens"
	PathCancel          = "/v1/requests/{" + CancelPathParam + "}/cancel"
	PathPool            = "/v1/pool"
	PathHealth          = "/health"
	PathTestConnection  = "/test-connection"
)

// RootHandler serves the service banner at GET /.
type RootHandler struct {
	version     string
	upstream    Upstream
	mapper      *proxy.ModelMapper
	policy      *middleware.CredentialPolicy
	metricsPath string
}

// NewRootHandler creates the banner handler. An empty metricsPath omits the
// metrics endpoint from the listing.
func NewRootHandler(version string, upstream Upstream, mapper *proxy.ModelMapper, policy *middleware.CredentialPolicy, metricsPath string) *RootHandler {
	return &RootHandler{
		version:     version,
		upstream:    upstream,
		mapper:      mapper,
		policy:      policy,
		metricsPath: metricsPath,
	}
}

// ServeHTTP implements http.Handler.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(r.Context(), w, r.Method, http.MethodGet)
		return
	}

	models := h.mapper.Config()
	endpoints := map[string]string{
		"chat_completions": PathChatCompletions,
		"count_tokens":     PathCountTokens,
		"cancel":           PathCancel,
		"pool":             PathPool,
		"health":           PathHealth,
		"test_connection":  PathTestConnection,
	}
	if h.metricsPath != "" {
		endpoints["metrics"] = h.metricsPath
	}

	response := types.RootResponse{
		Message: "Mercator Relay " + h.version,
		Status:  "running",
		Version: h.version,
		Config: types.RootConfig{
			UpstreamBaseURL:       h.upstream.Endpoint,
			MaxTokensLimit:        models.MaxTokensLimit,
			MinTokensLimit:        models.MinTokensLimit,
			UpstreamKeyConfigured: h.policy.Static(),
			DynamicKeys:           !h.policy.Static(),
			ClientKeyValidation:   h.policy.ClientValidation(),
			BigModel:              models.Big,
			MiddleModel:           models.MiddleModel(),
			SmallModel:            models.Small,
		},
		Endpoints: endpoints,
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, response); err != nil {
		slog.Error("failed to write root response", "error", err)
	}
}
