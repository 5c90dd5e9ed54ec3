package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"mercator-hq/relay/pkg/dispatch"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/session"
	"mercator-hq/relay/pkg/telemetry/logging"
)

// ChatHandler serves POST /v1/chat/completions.
//
// The caller's upstream credential comes from CredentialMiddleware and
// selects the session handle. Single-shot requests return the upstream
// response as JSON; streaming requests are relayed as Server-Sent Events.
// When the client disconnects the in-flight request is cancelled through
// the dispatcher.
type ChatHandler struct {
	pool       *session.Pool
	dispatcher *dispatch.Dispatcher
	mapper     *proxy.ModelMapper
	upstream   Upstream
}

// NewChatHandler creates a chat completion handler.
func NewChatHandler(pool *session.Pool, dispatcher *dispatch.Dispatcher, mapper *proxy.ModelMapper, upstream Upstream) *ChatHandler {
	return &ChatHandler{
		pool:       pool,
		dispatcher: dispatcher,
		mapper:     mapper,
		upstream:   upstream,
	}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if r.Method != http.MethodPost {
		writeMethodNotAllowed(ctx, w, r.Method, http.MethodPost)
		return
	}

	req, err := proxy.ParseChatRequest(r)
	if err != nil {
		logger.WarnContext(ctx, "failed to parse request", "error", err)
		writeError(ctx, w, err)
		return
	}

	requested := req.Model
	h.mapper.Apply(&req)

	handle, err := h.pool.Acquire(ctx, h.upstream.Params(middleware.GetCredential(ctx)))
	if err != nil {
		logger.ErrorContext(ctx, "failed to acquire session", "error", err)
		writeError(ctx, w, err)
		return
	}

	requestID := middleware.GetRequestID(ctx)
	stop := context.AfterFunc(ctx, func() {
		if h.dispatcher.Cancel(handle, requestID) {
			logger.Info("client disconnected, request cancelled")
		}
	})
	defer stop()

	logger.DebugContext(ctx, "processing chat completion request",
		"requested_model", requested,
		"model", req.Model,
		"stream", req.Stream,
		"messages", len(req.Messages),
	)

	if req.Stream {
		h.serveStream(ctx, w, handle, req, requestID)
		return
	}

	resp, err := h.dispatcher.Execute(ctx, handle, req, requestID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		logger.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// serveStream relays frames until the stream ends. Errors before the first
// frame become ordinary JSON error responses; later ones become a final
// error event.
func (h *ChatHandler) serveStream(ctx context.Context, w http.ResponseWriter, handle *session.Handle, req providers.Request, requestID string) {
	logger := logging.FromContext(ctx)

	sse, err := proxy.NewSSEWriter(w)
	if err != nil {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(ctx, w, err)
		return
	}

	stream, err := h.dispatcher.ExecuteStream(ctx, handle, req, requestID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	defer stream.Close()

	for {
		frame, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if !sse.Started() {
				writeError(ctx, w, err)
				return
			}
			if writeErr := sse.WriteError(proxy.HandleError(err)); writeErr != nil {
				logger.DebugContext(ctx, "failed to write stream error", "error", writeErr)
			}
			return
		}

		if err := sse.WriteFrame(string(frame)); err != nil {
			logger.InfoContext(ctx, "client went away mid-stream",
				"frames", stream.Frames(),
				"error", err,
			)
			return
		}
	}
}

// writeError writes err as an OpenAI-compatible error response.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if writeErr := proxy.WriteErrorResponse(w, proxy.HandleError(err)); writeErr != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "failed to write error response", "error", writeErr)
	}
}

// writeMethodNotAllowed answers 405 with an Allow header.
func writeMethodNotAllowed(ctx context.Context, w http.ResponseWriter, method, allowed string) {
	w.Header().Set("Allow", allowed)
	errResp := types.NewInvalidRequestError(
		"Method "+method+" not allowed. Use "+allowed+" instead.",
		"method",
		types.CodeMethodNotAllowed,
	)
	errResp.Status = http.StatusMethodNotAllowed
	if err := proxy.WriteErrorResponse(w, errResp); err != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "failed to write error response", "error", err)
	}
}
