package session

import (
	"sync"
	"time"

	"mercator-hq/relay/pkg/providers"
)

// Params identifies the upstream session a caller needs.
type Params struct {
	// Credential is the upstream API key and the pool key.
	Credential string

	// Endpoint is the upstream base URL.
	Endpoint string

	// Variant selects an alternative upstream flavour. A non-empty value is
	// the Azure API version.
	Variant string

	// Timeout bounds each upstream call made through the handle.
	Timeout time.Duration
}

func (p Params) connConfig() providers.ConnConfig {
	return providers.ConnConfig{
		Credential: p.Credential,
		BaseURL:    p.Endpoint,
		APIVersion: p.Variant,
		Timeout:    p.Timeout,
	}
}

// Handle is one upstream connection plus its in-flight request registry.
// It is safe for concurrent use.
type Handle struct {
	params Params
	conn   providers.Conn

	mu     sync.Mutex
	active map[string]*Signal
	closed bool
}

// NewHandle wraps conn. The pool is the usual owner; tests and one-off
// callers may build handles directly.
func NewHandle(params Params, conn providers.Conn) *Handle {
	return &Handle{
		params: params,
		conn:   conn,
		active: make(map[string]*Signal),
	}
}

// Credential returns the owning credential.
func (h *Handle) Credential() string { return h.params.Credential }

// Endpoint returns the upstream base URL.
func (h *Handle) Endpoint() string { return h.params.Endpoint }

// Variant returns the provider-variant marker.
func (h *Handle) Variant() string { return h.params.Variant }

// Timeout returns the per-call upstream timeout.
func (h *Handle) Timeout() time.Duration { return h.params.Timeout }

// Conn returns the upstream connection.
func (h *Handle) Conn() providers.Conn { return h.conn }

// Register inserts a fresh signal for requestID and returns it together with
// a release func that removes the entry. Release is idempotent and only
// removes the entry if it still belongs to this registration, so a later
// request reusing the same ID is not affected.
//
// Registering on a closed handle returns an already-fired signal.
func (h *Handle) Register(requestID string) (*Signal, func()) {
	sig := NewSignal()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		sig.Fire()
		return sig, func() {}
	}

	h.active[requestID] = sig

	var once sync.Once
	release := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.active[requestID] == sig {
				delete(h.active, requestID)
			}
		})
	}
	return sig, release
}

// Cancel fires the signal registered for requestID. It reports whether a
// registration was found; cancelling an unknown ID is a no-op.
func (h *Handle) Cancel(requestID string) bool {
	h.mu.Lock()
	sig, ok := h.active[requestID]
	h.mu.Unlock()

	if ok {
		sig.Fire()
	}
	return ok
}

// ActiveRequests returns the number of registered in-flight requests.
func (h *Handle) ActiveRequests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.active)
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close fires every outstanding signal, clears the registry and closes the
// upstream connection. Subsequent calls are no-ops.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for id, sig := range h.active {
		sig.Fire()
		delete(h.active, id)
	}
	h.mu.Unlock()

	return h.conn.Close()
}
