package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/session"
)

// HealthHandler handles liveness checks. It reports configuration state
// only and never calls the upstream.
type HealthHandler struct {
	policy   *middleware.CredentialPolicy
	pool     *session.Pool
	upstream Upstream
	now      func() time.Time
}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler(policy *middleware.CredentialPolicy, pool *session.Pool, upstream Upstream) *HealthHandler {
	return &HealthHandler{
		policy:   policy,
		pool:     pool,
		upstream: upstream,
		now:      time.Now,
	}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(r.Context(), w, r.Method, http.MethodGet)
		return
	}

	response := types.HealthResponse{
		Status:                "healthy",
		Timestamp:             h.now().UTC().Format(time.RFC3339),
		UpstreamKeyConfigured: h.policy.Static(),
		UpstreamKeyValid:      h.policy.UpstreamKeyValid(),
		ClientKeyValidation:   h.policy.ClientValidation(),
		ActiveSessions:        h.pool.Len(),
		UpstreamVariant:       h.upstream.Variant,
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, response); err != nil {
		slog.Error("failed to write health response", "error", err)
	}
}
