package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"mercator-hq/relay/internal/mockupstream"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
)

func decodeCancel(t *testing.T, body []byte) types.CancelResponse {
	t.Helper()
	var resp types.CancelResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("cancel response is not JSON: %v", err)
	}
	return resp
}

func TestCancelHandler_CancelsInFlightRequest(t *testing.T) {
	env := newTestEnv(t, "")
	gate := make(chan struct{})
	defer close(gate)
	env.upstream.SetResponse(mockupstream.ChatPath, mockupstream.Response{
		Gate: gate,
		Body: mockupstream.Completion("late", "gpt-4o"),
	})

	headers := callerHeaders()
	headers["X-Request-ID"] = "req-cancel-1"

	statusCh := make(chan int, 1)
	go func() {
		statusCh <- env.do(http.MethodPost, PathChatCompletions, chatBody, headers).Code
	}()

	waitFor(t, "request to register", func() bool { return env.activeOn(testCallerKey) == 1 })

	w := env.do(http.MethodPost, "/v1/requests/req-cancel-1/cancel", "", callerHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body = %s", w.Code, w.Body.String())
	}
	if resp := decodeCancel(t, w.Body.Bytes()); !resp.Cancelled || resp.RequestID != "req-cancel-1" {
		t.Errorf("cancel response = %+v", resp)
	}

	if status := <-statusCh; status != providers.StatusRequestCancelled {
		t.Errorf("chat status = %d, want %d", status, providers.StatusRequestCancelled)
	}

	w = env.do(http.MethodPost, "/v1/requests/req-cancel-1/cancel", "", callerHeaders())
	if resp := decodeCancel(t, w.Body.Bytes()); resp.Cancelled {
		t.Error("cancelling a finished request should report false")
	}
}

func TestCancelHandler_UnknownCaller(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(http.MethodPost, "/v1/requests/nope/cancel", "", callerHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeCancel(t, w.Body.Bytes()); resp.Cancelled {
		t.Error("expected cancelled=false without a session")
	}
	if env.pool.Len() != 0 {
		t.Error("cancel must not create a session")
	}
}

func TestCancelHandler_OtherCallersRequestsUnreachable(t *testing.T) {
	env := newTestEnv(t, "")
	gate := make(chan struct{})
	env.upstream.SetResponse(mockupstream.ChatPath, mockupstream.Response{
		Gate: gate,
		Body: mockupstream.Completion("done", "gpt-4o"),
	})

	headers := callerHeaders()
	headers["X-Request-ID"] = "req-private"

	statusCh := make(chan int, 1)
	go func() {
		statusCh <- env.do(http.MethodPost, PathChatCompletions, chatBody, headers).Code
	}()
	waitFor(t, "request to register", func() bool { return env.activeOn(testCallerKey) == 1 })

	w := env.do(http.MethodPost, "/v1/requests/req-private/cancel", "", map[string]string{"x-api-key": "sk-someone-else-000001"})
	if resp := decodeCancel(t, w.Body.Bytes()); resp.Cancelled {
		t.Error("another caller cancelled the request")
	}

	close(gate)
	if status := <-statusCh; status != http.StatusOK {
		t.Errorf("chat status = %d, want 200", status)
	}
}
