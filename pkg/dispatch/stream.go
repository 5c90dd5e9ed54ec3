package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/session"
	"mercator-hq/relay/pkg/telemetry/logging"
	"mercator-hq/relay/pkg/telemetry/tracing"
)

// Frame is one framed event: "data: " followed by a JSON chunk, or the
// sentinel.
type Frame string

// DoneFrame terminates a successful stream.
const DoneFrame Frame = "data: [DONE]"

// ExecuteStream opens a streaming completion through h and returns the frame
// sequence.
//
// The request is forced to stream and asks the upstream to report usage in
// its final chunk. A cancellation signal is always registered on h, under
// requestID or a generated ID when requestID is empty, so that closing the
// handle stops the stream.
//
// Opening races the signal and ctx like Execute. Errors are *providers.Error.
// The caller must Close the returned stream.
func (d *Dispatcher) ExecuteStream(ctx context.Context, h *session.Handle, req providers.Request, requestID string) (*FrameStream, error) {
	start := d.now()

	req.Stream = true
	opts := providers.StreamOptions{}
	if req.StreamOptions != nil {
		opts = *req.StreamOptions
	}
	opts.IncludeUsage = true
	req.StreamOptions = &opts

	if requestID == "" {
		requestID = uuid.New().String()
	}

	spanCtx, span := d.tracer.Start(ctx, "dispatch.stream",
		tracing.DispatchAttributes(requestID, logging.KeyPrefix(h.Credential()), req.Model, true, h.Variant() != ""))

	sig, release := h.Register(requestID)
	d.started(spanCtx, req.Model, true)

	callCtx, cancel := context.WithCancel(spanCtx)

	s := &FrameStream{
		d:       d,
		ctx:     spanCtx,
		cancel:  cancel,
		span:    span,
		sig:     sig,
		release: release,
		outcome: Outcome{
			RequestID: requestID,
			KeyPrefix: logging.KeyPrefix(h.Credential()),
			Model:     req.Model,
			Stream:    true,
			Status:    http.StatusOK,
		},
		start: start,
	}

	res := race(spanCtx, cancel, sig, func() (providers.ChunkStream, error) {
		return h.Conn().CreateChatCompletionStream(callCtx, req)
	})

	switch {
	case res.cancelled:
		if res.val != nil {
			_ = res.val.Close()
		}
		s.finish(providers.Cancelled(res.err))
		return nil, s.err
	case res.err != nil:
		s.finish(providers.FromUpstream(res.err))
		return nil, s.err
	}

	s.upstream = res.val

	// The signal may have fired while the open was completing.
	if sig.Fired() {
		s.finish(providers.Cancelled(nil))
		return nil, s.err
	}

	return s, nil
}

// FrameStream is a lazy, ordered, non-restartable sequence of frames.
//
// Next yields one data frame per upstream chunk and, after the upstream is
// exhausted, exactly one DoneFrame. The cancellation signal is checked before
// each chunk is framed and once more at exhaustion; a fired signal ends the
// sequence with a RequestCancelled error and no DoneFrame.
//
// A FrameStream is consumed by one goroutine. Cancellation from elsewhere
// goes through Dispatcher.Cancel.
type FrameStream struct {
	d        *Dispatcher
	ctx      context.Context
	cancel   context.CancelFunc
	span     trace.Span
	upstream providers.ChunkStream
	sig      *session.Signal
	release  func()

	outcome Outcome
	start   time.Time

	once     sync.Once
	finished bool
	err      error
}

// Next returns the next frame. After the DoneFrame it returns io.EOF. A
// failure is returned as a *providers.Error and repeats on later calls.
func (s *FrameStream) Next() (Frame, error) {
	if s.finished {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}

	chunk, err := s.upstream.Recv()
	switch {
	case errors.Is(err, io.EOF):
		if s.cancelled() {
			s.finish(providers.Cancelled(nil))
			return "", s.err
		}
		s.finish(nil)
		return DoneFrame, nil

	case err != nil:
		if s.cancelled() {
			s.finish(providers.Cancelled(err))
		} else {
			s.finish(providers.FromUpstream(err))
		}
		return "", s.err
	}

	if s.cancelled() {
		s.finish(providers.Cancelled(nil))
		return "", s.err
	}

	if chunk.Usage != nil {
		usage := *chunk.Usage
		s.outcome.Usage = &usage
	}

	frame, err := encodeFrame(chunk)
	if err != nil {
		s.finish(&providers.Error{
			Status:   http.StatusInternalServerError,
			Category: providers.CategoryUnknown,
			Message:  fmt.Sprintf("Unexpected error: %v", err),
			Cause:    err,
		})
		return "", s.err
	}

	s.outcome.Frames++
	return frame, nil
}

// Close ends the stream. Closing before the sequence is exhausted counts as
// a client cancellation. Close is idempotent.
func (s *FrameStream) Close() error {
	if !s.finished {
		s.finish(providers.Cancelled(nil))
	}
	return nil
}

// RequestID returns the ID the stream is registered under.
func (s *FrameStream) RequestID() string { return s.outcome.RequestID }

// Frames returns the number of data frames produced so far.
func (s *FrameStream) Frames() int { return s.outcome.Frames }

// Usage returns the token accounting from the final chunk, if any.
func (s *FrameStream) Usage() *providers.Usage { return s.outcome.Usage }

// Err returns the terminal error, or nil.
func (s *FrameStream) Err() error { return s.err }

func (s *FrameStream) cancelled() bool {
	return s.sig.Fired() || s.ctx.Err() != nil
}

// finish runs once: it releases the registry entry and the upstream stream,
// then reports the outcome.
func (s *FrameStream) finish(err *providers.Error) {
	s.once.Do(func() {
		s.finished = true
		if err != nil {
			s.err = err
			s.outcome.Err = err
		}

		s.release()
		if s.upstream != nil {
			if cerr := s.upstream.Close(); cerr != nil {
				slog.Debug("failed to close upstream stream", "request_id", s.outcome.RequestID, "error", cerr)
			}
		}
		s.cancel()

		s.outcome.Duration = s.d.now().Sub(s.start)
		s.d.finish(s.ctx, s.span, s.outcome)
		s.span.End()
	})
}

// encodeFrame renders chunk as a data frame. HTML characters are left
// unescaped so content reaches the client byte for byte.
func encodeFrame(chunk providers.Chunk) (Frame, error) {
	var buf bytes.Buffer
	buf.WriteString("data: ")

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(chunk); err != nil {
		return "", fmt.Errorf("failed to encode chunk: %w", err)
	}

	return Frame(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
