package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mercator-hq/relay/internal/mockupstream"
	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/dispatch"
	"mercator-hq/relay/pkg/processing/tokens"
	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/middleware"
	"mercator-hq/relay/pkg/session"
)

const (
	testCallerKey   = "sk-caller-key-000000001"
	testUpstreamKey = "sk-upstream-key-0000001"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []dispatch.Outcome
}

func (o *recordingObserver) DispatchStarted(model string, stream bool) {}

func (o *recordingObserver) DispatchFinished(outcome dispatch.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) all() []dispatch.Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]dispatch.Outcome(nil), o.outcomes...)
}

type testEnv struct {
	upstream   *mockupstream.Server
	pool       *session.Pool
	dispatcher *dispatch.Dispatcher
	mapper     *proxy.ModelMapper
	policy     *middleware.CredentialPolicy
	observer   *recordingObserver
	handler    http.Handler
}

// newTestEnv wires the handlers the way the server does, against a mock
// upstream. An empty upstreamKey selects dynamic key mode.
func newTestEnv(t *testing.T, upstreamKey string) *testEnv {
	t.Helper()

	upstream := mockupstream.New()
	t.Cleanup(upstream.Close)

	pool, err := session.NewPool(session.Config{SweepInterval: time.Hour})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	t.Cleanup(pool.Shutdown)

	observer := &recordingObserver{}
	env := &testEnv{
		upstream:   upstream,
		pool:       pool,
		dispatcher: dispatch.New(dispatch.Config{Observers: []dispatch.Observer{observer}}),
		mapper: proxy.NewModelMapper(config.ModelsConfig{
			Big:            "gpt-4o",
			Small:          "gpt-4o-mini",
			MaxTokensLimit: 4096,
			MinTokensLimit: 100,
		}),
		policy:   middleware.NewCredentialPolicy(config.UpstreamConfig{APIKey: upstreamKey}, config.AuthConfig{}),
		observer: observer,
	}

	up := Upstream{Endpoint: upstream.URL(), Timeout: 10 * time.Second}
	protected := middleware.CredentialMiddleware(env.policy)

	mux := http.NewServeMux()
	mux.Handle("POST "+PathChatCompletions, protected(NewChatHandler(pool, env.dispatcher, env.mapper, up)))
	mux.Handle("POST "+PathCancel, protected(NewCancelHandler(pool, env.dispatcher)))
	mux.Handle("POST "+PathCountTokens, protected(NewCountTokensHandler(tokens.NewCharEstimator(0))))
	mux.Handle(PathPool, NewPoolHandler(pool, env.policy))
	mux.Handle(PathHealth, NewHealthHandler(env.policy, pool, up))
	mux.Handle(PathTestConnection, NewTestConnectionHandler(pool, env.dispatcher, env.mapper, env.policy, up))
	mux.Handle("/{$}", NewRootHandler("v1.2.3", up, env.mapper, env.policy, "/metrics"))

	env.handler = middleware.RequestIDMiddleware(mux)
	return env
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func callerHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testCallerKey}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// activeOn reports the in-flight count on the handle for credential.
func (e *testEnv) activeOn(credential string) int {
	h, ok := e.pool.Lookup(credential)
	if !ok {
		return 0
	}
	return h.ActiveRequests()
}
