package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/relay/pkg/providers"
)

// fakeConn is a providers.Conn that records Close calls.
type fakeConn struct {
	config   providers.ConnConfig
	closed   atomic.Bool
	closeErr error
}

func (c *fakeConn) CreateChatCompletion(ctx context.Context, req providers.Request) (providers.Response, error) {
	return providers.Response{}, errors.New("not implemented")
}

func (c *fakeConn) CreateChatCompletionStream(ctx context.Context, req providers.Request) (providers.ChunkStream, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return c.closeErr
}

// fakeFactory builds fakeConns and remembers them by credential.
type fakeFactory struct {
	mu       sync.Mutex
	conns    map[string][]*fakeConn
	calls    int
	err      error
	closeErr error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{conns: make(map[string][]*fakeConn)}
}

func (f *fakeFactory) New(config providers.ConnConfig) (providers.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	conn := &fakeConn{config: config, closeErr: f.closeErr}
	f.conns[config.Credential] = append(f.conns[config.Credential], conn)
	return conn, nil
}

func (f *fakeFactory) last(credential string) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()

	conns := f.conns[credential]
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

// fakeClock advances by step on every call.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(c.step)
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// recordingObserver counts pool events.
type recordingObserver struct {
	created, hits, misses atomic.Int64
	evicted               sync.Map
	active                atomic.Int64
}

func (o *recordingObserver) SessionCreated() { o.created.Add(1) }
func (o *recordingObserver) SessionHit()     { o.hits.Add(1) }
func (o *recordingObserver) SessionMiss()    { o.misses.Add(1) }
func (o *recordingObserver) SessionEvicted(reason string) {
	v, _ := o.evicted.LoadOrStore(reason, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}
func (o *recordingObserver) SessionsActive(n int) { o.active.Store(int64(n)) }

func (o *recordingObserver) evictions(reason string) int64 {
	v, ok := o.evicted.Load(reason)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}
