package session

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestHandle() (*Handle, *fakeConn) {
	conn := &fakeConn{}
	return NewHandle(Params{Credential: "sk-test-credential", Endpoint: "https://api.openai.com/v1", Timeout: time.Second}, conn), conn
}

func TestHandle_Accessors(t *testing.T) {
	h := NewHandle(Params{
		Credential: "sk-a",
		Endpoint:   "https://example.com/v1",
		Variant:    "2024-06-01",
		Timeout:    3 * time.Second,
	}, &fakeConn{})

	if h.Credential() != "sk-a" || h.Endpoint() != "https://example.com/v1" || h.Variant() != "2024-06-01" || h.Timeout() != 3*time.Second {
		t.Errorf("unexpected handle attributes: %+v", h.params)
	}
	if h.Conn() == nil {
		t.Error("expected connection")
	}
}

func TestHandle_RegisterCancelRelease(t *testing.T) {
	h, _ := newTestHandle()

	sig, release := h.Register("req-1")
	if h.ActiveRequests() != 1 {
		t.Fatalf("expected 1 active request, got %d", h.ActiveRequests())
	}

	if !h.Cancel("req-1") {
		t.Error("expected Cancel to find the request")
	}
	if !sig.Fired() {
		t.Error("expected signal to fire")
	}

	release()
	release()
	if h.ActiveRequests() != 0 {
		t.Errorf("expected registry to be empty, got %d", h.ActiveRequests())
	}
	if h.Cancel("req-1") {
		t.Error("expected Cancel after release to be a no-op")
	}
}

func TestHandle_CancelUnknown(t *testing.T) {
	h, _ := newTestHandle()

	if h.Cancel("missing") {
		t.Error("expected false for unknown request")
	}
}

func TestHandle_ReleaseKeepsNewerRegistration(t *testing.T) {
	h, _ := newTestHandle()

	_, releaseOld := h.Register("req-1")
	newer, releaseNew := h.Register("req-1")
	defer releaseNew()

	releaseOld()

	if h.ActiveRequests() != 1 {
		t.Fatalf("expected newer registration to survive, got %d entries", h.ActiveRequests())
	}
	if !h.Cancel("req-1") || !newer.Fired() {
		t.Error("expected cancel to reach the newer registration")
	}
}

func TestHandle_Close(t *testing.T) {
	h, conn := newTestHandle()

	sigA, releaseA := h.Register("a")
	sigB, releaseB := h.Register("b")

	if err := h.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	if !sigA.Fired() || !sigB.Fired() {
		t.Error("expected close to fire every outstanding signal")
	}
	if h.ActiveRequests() != 0 {
		t.Errorf("expected registry cleared, got %d", h.ActiveRequests())
	}
	if !conn.closed.Load() {
		t.Error("expected upstream connection to be closed")
	}
	if !h.Closed() {
		t.Error("expected handle to report closed")
	}

	// Late releases must not panic or resurrect entries.
	releaseA()
	releaseB()

	if err := h.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestHandle_CloseError(t *testing.T) {
	conn := &fakeConn{closeErr: errors.New("boom")}
	h := NewHandle(Params{Credential: "k"}, conn)

	if err := h.Close(); err == nil {
		t.Error("expected close error to propagate")
	}
	if !h.Closed() {
		t.Error("handle should be closed even if the connection failed to close")
	}
}

func TestHandle_RegisterAfterClose(t *testing.T) {
	h, _ := newTestHandle()
	_ = h.Close()

	sig, release := h.Register("late")
	defer release()

	if !sig.Fired() {
		t.Error("expected registration on closed handle to be pre-cancelled")
	}
	if h.ActiveRequests() != 0 {
		t.Error("closed handle must not track new requests")
	}
}

func TestHandle_ConcurrentRegisterCancel(t *testing.T) {
	h, _ := newTestHandle()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		id := string(rune('a' + i%26))
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, release := h.Register(id)
			release()
		}()
		go func() {
			defer wg.Done()
			h.Cancel(id)
		}()
	}
	wg.Wait()

	if h.ActiveRequests() != 0 {
		t.Errorf("expected empty registry, got %d", h.ActiveRequests())
	}
}
