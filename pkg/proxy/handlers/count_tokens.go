package handlers

import (
	"net/http"

	"mercator-hq/relay/pkg/processing/tokens"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/telemetry/logging"
)

// CountTokensHandler serves POST /v1/messages/count_tokens with a local
// estimate. The upstream is never called.
type CountTokensHandler struct {
	estimator tokens.Estimator
}

// NewCountTokensHandler creates a token counting handler.
func NewCountTokensHandler(estimator tokens.Estimator) *CountTokensHandler {
	return &CountTokensHandler{estimator: estimator}
}

// ServeHTTP implements http.Handler.
func (h *CountTokensHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeMethodNotAllowed(ctx, w, r.Method, http.MethodPost)
		return
	}

	req, err := proxy.ParseCountTokensRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	resp := types.CountTokensResponse{InputTokens: h.estimator.EstimateRequest(req)}
	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "failed to write response", "error", err)
	}
}
