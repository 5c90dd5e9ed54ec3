package dispatch

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/session"
)

// fakeConn is a scripted providers.Conn.
type fakeConn struct {
	complete func(ctx context.Context, req providers.Request) (providers.Response, error)
	open     func(ctx context.Context, req providers.Request) (providers.ChunkStream, error)

	mu       sync.Mutex
	requests []providers.Request
	closed   atomic.Bool
}

func (c *fakeConn) CreateChatCompletion(ctx context.Context, req providers.Request) (providers.Response, error) {
	c.record(req)
	return c.complete(ctx, req)
}

func (c *fakeConn) CreateChatCompletionStream(ctx context.Context, req providers.Request) (providers.ChunkStream, error) {
	c.record(req)
	return c.open(ctx, req)
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *fakeConn) record(req providers.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
}

func (c *fakeConn) lastRequest() providers.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

// fakeStream yields chunks, then err (io.EOF when nil).
type fakeStream struct {
	chunks []providers.Chunk
	err    error

	pos    int
	closed atomic.Bool
}

func (s *fakeStream) Recv() (providers.Chunk, error) {
	if s.pos < len(s.chunks) {
		c := s.chunks[s.pos]
		s.pos++
		return c, nil
	}
	if s.err != nil {
		return providers.Chunk{}, s.err
	}
	return providers.Chunk{}, io.EOF
}

func (s *fakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

func streamConn(stream *fakeStream) *fakeConn {
	return &fakeConn{
		open: func(ctx context.Context, req providers.Request) (providers.ChunkStream, error) {
			return stream, nil
		},
	}
}

func chunks(deltas ...string) []providers.Chunk {
	out := make([]providers.Chunk, 0, len(deltas))
	for _, d := range deltas {
		out = append(out, providers.Chunk{
			ID:    "chatcmpl-test",
			Model: "gpt-4o",
			Choices: []openai.ChatCompletionStreamChoice{
				{Delta: openai.ChatCompletionStreamChoiceDelta{Content: d}},
			},
		})
	}
	return out
}

func newHandle(conn providers.Conn) *session.Handle {
	return session.NewHandle(session.Params{Credential: "sk-test-credential-0001", Endpoint: "https://api.openai.com/v1"}, conn)
}

// recordingObserver captures dispatch events.
type recordingObserver struct {
	mu       sync.Mutex
	started  int
	outcomes []Outcome
}

func (o *recordingObserver) DispatchStarted(model string, stream bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) DispatchFinished(outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) last() Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomes[len(o.outcomes)-1]
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.outcomes)
}
