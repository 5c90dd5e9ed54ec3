package dispatch

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"mercator-hq/relay/internal/mockupstream"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/session"
)

// drain reads frames until the stream ends.
func drain(s *FrameStream) ([]Frame, error) {
	var frames []Frame
	for {
		f, err := s.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

func TestExecuteStream_ThreeChunks(t *testing.T) {
	upstream := &fakeStream{chunks: chunks("a", "b", "c")}
	conn := streamConn(upstream)
	h := newHandle(conn)
	obs := &recordingObserver{}
	d := New(Config{Observers: []Observer{obs}})

	stream, err := d.ExecuteStream(context.Background(), h, testRequest(), "req-stream")
	if err != nil {
		t.Fatalf("ExecuteStream() error = %v", err)
	}
	defer stream.Close()

	sent := conn.lastRequest()
	if !sent.Stream || sent.StreamOptions == nil || !sent.StreamOptions.IncludeUsage {
		t.Errorf("sent request stream = %v options = %+v, want streaming with usage", sent.Stream, sent.StreamOptions)
	}

	frames, err := drain(stream)
	if err != nil {
		t.Fatalf("drain error = %v", err)
	}

	if len(frames) != 4 {
		t.Fatalf("frames = %d, want 3 data frames and the sentinel", len(frames))
	}
	for i, want := range []string{`"content":"a"`, `"content":"b"`, `"content":"c"`} {
		if !strings.HasPrefix(string(frames[i]), "data: {") || !strings.Contains(string(frames[i]), want) {
			t.Errorf("frame %d = %q, want data frame containing %s", i, frames[i], want)
		}
	}
	if frames[3] != DoneFrame {
		t.Errorf("last frame = %q, want %q", frames[3], DoneFrame)
	}

	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() after sentinel error = %v, want io.EOF", err)
	}
	if h.ActiveRequests() != 0 {
		t.Errorf("ActiveRequests() = %d, want 0", h.ActiveRequests())
	}
	if !upstream.closed.Load() {
		t.Error("upstream stream not closed after exhaustion")
	}

	out := obs.last()
	if out.Frames != 3 || out.Status != 200 || !out.Stream {
		t.Errorf("outcome = %+v, want 3 frames status 200", out)
	}
	if obs.count() != 1 {
		t.Errorf("outcomes = %d, want exactly 1", obs.count())
	}
}

func TestExecuteStream_CancelAfterSecondChunk(t *testing.T) {
	upstream := &fakeStream{chunks: chunks("a", "b", "c", "d", "e")}
	h := newHandle(streamConn(upstream))
	d := New(Config{})

	stream, err := d.ExecuteStream(context.Background(), h, testRequest(), "req-5")
	if err != nil {
		t.Fatalf("ExecuteStream() error = %v", err)
	}
	defer stream.Close()

	var frames []Frame
	for i := 0; i < 2; i++ {
		f, err := stream.Next()
		if err != nil {
			t.Fatalf("Next() #%d error = %v", i+1, err)
		}
		frames = append(frames, f)
	}

	if !d.Cancel(h, "req-5") {
		t.Fatal("Cancel() = false, want true")
	}

	rest, err := drain(stream)
	frames = append(frames, rest...)

	perr := asProviderError(t, err)
	if perr.Status != providers.StatusRequestCancelled {
		t.Errorf("status = %d, want 499", perr.Status)
	}
	if len(frames) != 2 {
		t.Errorf("frames = %d, want 2", len(frames))
	}
	for _, f := range frames {
		if f == DoneFrame {
			t.Error("sentinel emitted after cancellation")
		}
	}
	if stream.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", stream.Frames())
	}

	// The failure repeats.
	if _, err := stream.Next(); !providers.IsCancelled(err) {
		t.Errorf("Next() after failure error = %v, want cancelled", err)
	}
	if h.ActiveRequests() != 0 {
		t.Errorf("ActiveRequests() = %d, want 0", h.ActiveRequests())
	}
}

func TestExecuteStream_CancelAtExhaustion(t *testing.T) {
	upstream := &fakeStream{chunks: chunks("a")}
	h := newHandle(streamConn(upstream))
	d := New(Config{})

	stream, err := d.ExecuteStream(context.Background(), h, testRequest(), "req-late")
	if err != nil {
		t.Fatalf("ExecuteStream() error = %v", err)
	}
	defer stream.Close()

	if _, err := stream.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	d.Cancel(h, "req-late")

	f, err := stream.Next()
	if f == DoneFrame || !providers.IsCancelled(err) {
		t.Errorf("Next() = %q, %v, want cancellation instead of sentinel", f, err)
	}
}

func TestExecuteStream_MidStreamError(t *testing.T) {
	upstream := &fakeStream{
		chunks: chunks("a", "b"),
		err:    &openai.APIError{HTTPStatusCode: 429, Message: "Rate limit reached for requests"},
	}
	h := newHandle(streamConn(upstream))
	obs := &recordingObserver{}
	d := New(Config{Observers: []Observer{obs}})

	stream, err := d.ExecuteStream(context.Background(), h, testRequest(), "req-429")
	if err != nil {
		t.Fatalf("ExecuteStream() error = %v", err)
	}
	defer stream.Close()

	frames, err := drain(stream)
	perr := asProviderError(t, err)
	if perr.Status != 429 || perr.Category != providers.CategoryRateLimited {
		t.Errorf("error = %d/%s, want 429 rate_limited", perr.Status, perr.Category)
	}
	if perr.Message != providers.MessageRateLimited {
		t.Errorf("message = %q, want fixed rate limit message", perr.Message)
	}
	if len(frames) != 2 {
		t.Errorf("frames = %d, want the 2 delivered before the failure", len(frames))
	}
	if !errors.Is(stream.Err(), perr) {
		t.Errorf("Err() = %v, want %v", stream.Err(), perr)
	}
	if obs.last().Status != 429 {
		t.Errorf("outcome status = %d, want 429", obs.last().Status)
	}
}

func TestExecuteStream_OpenError(t *testing.T) {
	conn := &fakeConn{
		open: func(ctx context.Context, req providers.Request) (providers.ChunkStream, error) {
			return nil, &openai.APIError{HTTPStatusCode: 404, Message: "The model `gpt-9` does not exist"}
		},
	}
	h := newHandle(conn)
	d := New(Config{})

	stream, err := d.ExecuteStream(context.Background(), h, testRequest(), "req-404")
	if stream != nil {
		t.Error("ExecuteStream() returned a stream on failure")
	}
	perr := asProviderError(t, err)
	if perr.Status != 404 || perr.Category != providers.CategoryModelNotFound {
		t.Errorf("error = %d/%s, want 404 model_not_found", perr.Status, perr.Category)
	}
	if h.ActiveRequests() != 0 {
		t.Errorf("ActiveRequests() = %d, want 0", h.ActiveRequests())
	}
}

func TestExecuteStream_CloseEarly(t *testing.T) {
	upstream := &fakeStream{chunks: chunks("a", "b", "c")}
	h := newHandle(streamConn(upstream))
	obs := &recordingObserver{}
	d := New(Config{Observers: []Observer{obs}})

	stream, err := d.ExecuteStream(context.Background(), h, testRequest(), "")
	if err != nil {
		t.Fatalf("ExecuteStream() error = %v", err)
	}
	if stream.RequestID() == "" {
		t.Error("RequestID() is empty, want a generated ID")
	}
	if h.ActiveRequests() != 1 {
		t.Errorf("ActiveRequests() = %d, want 1 while streaming", h.ActiveRequests())
	}

	if _, err := stream.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	_ = stream.Close()
	_ = stream.Close()

	if h.ActiveRequests() != 0 {
		t.Errorf("ActiveRequests() = %d, want 0 after Close", h.ActiveRequests())
	}
	if !upstream.closed.Load() {
		t.Error("upstream not closed")
	}
	if obs.count() != 1 || obs.last().Category != providers.CategoryRequestCancelled {
		t.Errorf("outcomes = %d last = %+v, want one cancelled outcome", obs.count(), obs.last())
	}
}

func TestExecuteStream_HandleClosed(t *testing.T) {
	upstream := &fakeStream{chunks: chunks("a", "b")}
	h := newHandle(streamConn(upstream))
	_ = h.Close()

	_, err := New(Config{}).ExecuteStream(context.Background(), h, testRequest(), "req-closed")
	if !providers.IsCancelled(err) {
		t.Errorf("error = %v, want cancelled on a closed handle", err)
	}
}

func TestExecuteStream_CapturesUsage(t *testing.T) {
	final := providers.Chunk{ID: "chatcmpl-test", Usage: &providers.Usage{PromptTokens: 5, CompletionTokens: 3, TotalTokens: 8}}
	upstream := &fakeStream{chunks: append(chunks("a"), final)}
	h := newHandle(streamConn(upstream))
	obs := &recordingObserver{}
	d := New(Config{Observers: []Observer{obs}})

	stream, err := d.ExecuteStream(context.Background(), h, testRequest(), "req-usage")
	if err != nil {
		t.Fatalf("ExecuteStream() error = %v", err)
	}
	defer stream.Close()

	if _, err := drain(stream); err != nil {
		t.Fatalf("drain error = %v", err)
	}
	if u := stream.Usage(); u == nil || u.TotalTokens != 8 {
		t.Errorf("Usage() = %+v, want 8 total tokens", u)
	}
	if out := obs.last(); out.Usage == nil || out.Usage.PromptTokens != 5 {
		t.Errorf("outcome usage = %+v, want 5 prompt tokens", out.Usage)
	}
}

func TestEncodeFrame_NoHTMLEscaping(t *testing.T) {
	frame, err := encodeFrame(chunks("<b>&</b>")[0])
	if err != nil {
		t.Fatalf("encodeFrame() error = %v", err)
	}
	if !strings.Contains(string(frame), `"content":"<b>&</b>"`) {
		t.Errorf("frame = %q, want raw HTML characters", frame)
	}
	if strings.HasSuffix(string(frame), "\n") {
		t.Error("frame ends with a newline")
	}
}

func TestExecuteStream_Upstream(t *testing.T) {
	server := mockupstream.New()
	defer server.Close()
	server.SetResponse(mockupstream.ChatPath, mockupstream.Response{
		StreamChunks: append(mockupstream.Chunks(3), mockupstream.UsageChunk(5, 3)),
	})

	conn, err := providers.NewOpenAIConn(providers.ConnConfig{Credential: "sk-upstream-test", BaseURL: server.URL()})
	if err != nil {
		t.Fatalf("NewOpenAIConn() error = %v", err)
	}
	h := session.NewHandle(session.Params{Credential: "sk-upstream-test", Endpoint: server.URL()}, conn)
	defer h.Close()

	stream, err := New(Config{}).ExecuteStream(context.Background(), h, testRequest(), "req-e2e")
	if err != nil {
		t.Fatalf("ExecuteStream() error = %v", err)
	}
	defer stream.Close()

	frames, err := drain(stream)
	if err != nil {
		t.Fatalf("drain error = %v", err)
	}

	// 3 content chunks, the usage chunk, and the sentinel.
	if len(frames) != 5 || frames[4] != DoneFrame {
		t.Fatalf("frames = %q, want 4 data frames and the sentinel", frames)
	}
	if u := stream.Usage(); u == nil || u.TotalTokens != 8 {
		t.Errorf("Usage() = %+v, want 8 total tokens", u)
	}

	last, _ := server.LastRequest()
	if !strings.Contains(string(last.Body), `"include_usage":true`) {
		t.Errorf("upstream body = %s, want include_usage", last.Body)
	}
}
