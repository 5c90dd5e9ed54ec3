package handlers

import (
	"log/slog"
	"net/http"

	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/session"
)

// PoolHandler serves GET /v1/pool: the pool counters, one line per cached
// session (key prefixes only) and the key mode.
type PoolHandler struct {
	pool   *session.Pool
	policy *middleware.CredentialPolicy
}

// NewPoolHandler creates a pool snapshot handler.
func NewPoolHandler(pool *session.Pool, policy *middleware.CredentialPolicy) *PoolHandler {
	return &PoolHandler{pool: pool, policy: policy}
}

// ServeHTTP implements http.Handler.
func (h *PoolHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(r.Context(), w, r.Method, http.MethodGet)
		return
	}

	response := types.PoolResponse{
		Pool:     h.pool.Metrics(),
		Sessions: h.pool.Sessions(),
		KeyMode:  h.policy.Mode(),
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, response); err != nil {
		slog.Error("failed to write pool response", "error", err)
	}
}
