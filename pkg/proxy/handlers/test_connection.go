package handlers

import (
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"mercator-hq/relay/pkg/dispatch"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/session"
	"mercator-hq/relay/pkg/telemetry/logging"
)

// testConnectionMaxTokens keeps the probe completion as cheap as possible.
const testConnectionMaxTokens = 5

var testConnectionSuggestions = []string{
	"Check your OPENAI_API_KEY is valid",
	"Verify your API key has the necessary permissions",
	"Check if you have reached rate limits",
}

// TestConnectionHandler serves GET /test-connection by sending one tiny
// completion to the small model. In static key mode the configured key is
// used; in dynamic mode the caller must present a key the policy accepts.
type TestConnectionHandler struct {
	pool       *session.Pool
	dispatcher *dispatch.Dispatcher
	mapper     *proxy.ModelMapper
	policy     *middleware.CredentialPolicy
	upstream   Upstream
	now        func() time.Time
}

// NewTestConnectionHandler creates a connectivity probe handler.
func NewTestConnectionHandler(pool *session.Pool, dispatcher *dispatch.Dispatcher, mapper *proxy.ModelMapper, policy *middleware.CredentialPolicy, upstream Upstream) *TestConnectionHandler {
	return &TestConnectionHandler{
		pool:       pool,
		dispatcher: dispatcher,
		mapper:     mapper,
		policy:     policy,
		upstream:   upstream,
		now:        time.Now,
	}
}

// ServeHTTP implements http.Handler.
func (h *TestConnectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if r.Method != http.MethodGet {
		writeMethodNotAllowed(ctx, w, r.Method, http.MethodGet)
		return
	}

	model := h.mapper.Config().Small

	credential, ok := h.policy.ProbeCredential(proxy.ExtractAPIKey(r))
	if !ok {
		h.fail(w, r, model, errors.New("no usable upstream API key: configure OPENAI_API_KEY or send a valid key"))
		return
	}

	handle, err := h.pool.Acquire(ctx, h.upstream.Params(credential))
	if err != nil {
		h.fail(w, r, model, err)
		return
	}

	req := providers.Request{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hello"},
		},
		MaxTokens: testConnectionMaxTokens,
	}

	resp, err := h.dispatcher.Execute(ctx, handle, req, middleware.GetRequestID(ctx))
	if err != nil {
		logger.ErrorContext(ctx, "API connectivity test failed", "error", err)
		h.fail(w, r, model, err)
		return
	}

	responseID := resp.ID
	if responseID == "" {
		responseID = "unknown"
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, types.TestConnectionResponse{
		Status:     "success",
		Message:    "Successfully connected to upstream API",
		ModelUsed:  model,
		ResponseID: responseID,
		Timestamp:  h.now().UTC().Format(time.RFC3339),
	}); err != nil {
		logger.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

func (h *TestConnectionHandler) fail(w http.ResponseWriter, r *http.Request, model string, err error) {
	ctx := r.Context()

	message := err.Error()
	var dispatchErr *providers.Error
	if errors.As(err, &dispatchErr) {
		message = dispatchErr.Message
	}

	if writeErr := proxy.WriteJSONResponse(w, http.StatusServiceUnavailable, types.TestConnectionResponse{
		Status:      "failed",
		ErrorType:   "API Error",
		Message:     message,
		ModelUsed:   model,
		Timestamp:   h.now().UTC().Format(time.RFC3339),
		Suggestions: testConnectionSuggestions,
	}); writeErr != nil {
		logging.FromContext(ctx).ErrorContext(ctx, "failed to write response", "error", writeErr)
	}
}
