package handlers

import (
	"net/http"

	"mercator-hq/relay/pkg/dispatch"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/session"
	"mercator-hq/relay/pkg/telemetry/logging"
)

// CancelPathParam is the path wildcard holding the request ID.
const CancelPathParam = "id"

// CancelHandler serves POST /v1/requests/{id}/cancel. It only reaches
// requests running on the caller's own session handle, and never creates a
// session.
type CancelHandler struct {
	pool       *session.Pool
	dispatcher *dispatch.Dispatcher
}

// NewCancelHandler creates a cancellation handler.
func NewCancelHandler(pool *session.Pool, dispatcher *dispatch.Dispatcher) *CancelHandler {
	return &CancelHandler{pool: pool, dispatcher: dispatcher}
}

// ServeHTTP implements http.Handler.
func (h *CancelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeMethodNotAllowed(ctx, w, r.Method, http.MethodPost)
		return
	}

	requestID := r.PathValue(CancelPathParam)
	if requestID == "" {
		writeError(ctx, w, &proxy.RequestError{
			Message: "request id is required",
			Code:    types.CodeMissingField,
			Param:   CancelPathParam,
		})
		return
	}

	cancelled := false
	if handle, ok := h.pool.Lookup(middleware.GetCredential(ctx)); ok {
		cancelled = h.dispatcher.Cancel(handle, requestID)
	}

	logging.FromContext(ctx).InfoContext(ctx, "cancel requested",
		"target_request_id", requestID,
		"cancelled", cancelled,
	)

	resp := types.CancelResponse{RequestID: requestID, Cancelled: cancelled}
	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "failed to write response", "error", err)
	}
}
