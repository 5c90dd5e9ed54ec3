package dispatch

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/session"
	"mercator-hq/relay/pkg/telemetry/logging"
	"mercator-hq/relay/pkg/telemetry/tracing"
)

// SpanStarter opens tracing spans. *tracing.Tracer implements it.
type SpanStarter interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

// Config contains dispatcher configuration.
type Config struct {
	// Observers receive start and finish events (optional).
	Observers []Observer

	// Tracer opens one span per dispatch. Nil disables tracing.
	Tracer SpanStarter

	// Clock returns the current time (optional, for tests).
	Clock func() time.Time
}

// Dispatcher runs requests against session handles, racing each one against
// its cancellation signal. It holds no per-request state and is safe for
// concurrent use.
type Dispatcher struct {
	observers []Observer
	tracer    SpanStarter
	now       func() time.Time
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.Tracer == nil {
		cfg.Tracer = tracing.Noop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Dispatcher{
		observers: cfg.Observers,
		tracer:    cfg.Tracer,
		now:       cfg.Clock,
	}
}

// Execute performs a single-shot completion through h.
//
// When requestID is non-empty a cancellation signal is registered on h for the
// duration of the call. The upstream call races the signal and ctx; the first
// to finish wins and the loser is cancelled and awaited before Execute
// returns. A lost race yields a RequestCancelled error with status 499.
//
// Every error returned is a *providers.Error.
func (d *Dispatcher) Execute(ctx context.Context, h *session.Handle, req providers.Request, requestID string) (providers.Response, error) {
	start := d.now()

	req.Stream = false
	req.StreamOptions = nil

	ctx, span := d.tracer.Start(ctx, "dispatch.execute",
		tracing.DispatchAttributes(requestID, logging.KeyPrefix(h.Credential()), req.Model, false, h.Variant() != ""))
	defer span.End()

	var sig *session.Signal
	if requestID != "" {
		s, release := h.Register(requestID)
		defer release()
		sig = s
	}

	d.started(ctx, req.Model, false)

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	res := race(ctx, cancel, sig, func() (providers.Response, error) {
		return h.Conn().CreateChatCompletion(callCtx, req)
	})

	outcome := Outcome{
		RequestID: requestID,
		KeyPrefix: logging.KeyPrefix(h.Credential()),
		Model:     req.Model,
		Status:    http.StatusOK,
	}

	switch {
	case res.cancelled:
		outcome.Err = providers.Cancelled(res.err)
	case res.err != nil:
		outcome.Err = providers.FromUpstream(res.err)
	default:
		usage := res.val.Usage
		outcome.Usage = &usage
	}

	outcome.Duration = d.now().Sub(start)
	d.finish(ctx, span, outcome)

	if outcome.Err != nil {
		return providers.Response{}, outcome.Err
	}
	return res.val, nil
}

// Cancel fires the signal registered on h for requestID. It reports whether
// the request was found. Cancelling an unknown or finished request is a
// no-op.
func (d *Dispatcher) Cancel(h *session.Handle, requestID string) bool {
	found := h.Cancel(requestID)
	if found {
		slog.Info("request cancelled",
			"request_id", requestID,
			"key", logging.KeyPrefix(h.Credential()),
		)
	} else {
		slog.Debug("cancel for unknown request ignored", "request_id", requestID)
	}
	return found
}

// raceResult is the outcome of race. val and err are the call's own results;
// cancelled reports that the signal or ctx won.
type raceResult[T any] struct {
	val       T
	err       error
	cancelled bool
}

// race runs call on its own goroutine and waits for it, sig, or ctx. If sig
// or ctx win, cancel is invoked and the call is awaited before returning, so
// no work outlives race. A nil sig never fires.
//
// A call failing after ctx is already done counts as cancelled.
func race[T any](ctx context.Context, cancel context.CancelFunc, sig *session.Signal, call func() (T, error)) raceResult[T] {
	done := make(chan raceResult[T], 1)
	go func() {
		val, err := call()
		done <- raceResult[T]{val: val, err: err}
	}()

	var fired <-chan struct{}
	if sig != nil {
		fired = sig.Done()
	}

	select {
	case res := <-done:
		if res.err != nil && ctx.Err() != nil {
			res.cancelled = true
		}
		return res
	case <-fired:
	case <-ctx.Done():
	}

	cancel()
	res := <-done
	res.cancelled = true
	return res
}

func (d *Dispatcher) started(ctx context.Context, model string, stream bool) {
	logging.FromContext(ctx).Debug("dispatch started", "model", model, "stream", stream)
	for _, o := range d.observers {
		o.DispatchStarted(model, stream)
	}
}

// finish closes out the span, notifies observers and logs the outcome.
func (d *Dispatcher) finish(ctx context.Context, span trace.Span, outcome Outcome) {
	outcome.Finished = d.now()
	if outcome.Err != nil {
		outcome.Status = outcome.Err.Status
		outcome.Category = outcome.Err.Category
	}

	tracing.SetOutcomeAttributes(span, outcome.Status, outcome.Frames, outcome.Stream)
	if outcome.Usage != nil {
		tracing.SetTokenAttributes(span, outcome.Usage.PromptTokens, outcome.Usage.CompletionTokens, outcome.Usage.TotalTokens)
	}
	if outcome.Err != nil {
		tracing.SetError(span, outcome.Err, string(outcome.Category))
	} else {
		tracing.SetStatus(span, nil)
	}

	for _, o := range d.observers {
		o.DispatchFinished(outcome)
	}

	logger := logging.FromContext(ctx).With(
		"model", outcome.Model,
		"stream", outcome.Stream,
		"duration_ms", outcome.Duration.Milliseconds(),
	)
	switch {
	case outcome.Err == nil:
		logger.Debug("dispatch completed", "frames", outcome.Frames)
	case outcome.Category == providers.CategoryRequestCancelled:
		logger.Info("dispatch cancelled", "frames", outcome.Frames)
	case outcome.Status >= http.StatusInternalServerError:
		logger.Error("dispatch failed",
			"status", outcome.Status,
			"category", outcome.Category,
			"error", outcome.Err.Cause,
		)
	default:
		logger.Warn("dispatch failed",
			"status", outcome.Status,
			"category", outcome.Category,
			"message", outcome.Err.Message,
		)
	}
}
