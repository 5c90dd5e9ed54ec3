package dispatch

import (
	"time"

	"mercator-hq/relay/pkg/providers"
)

// Observer is notified about every dispatch. Implementations must be cheap
// and safe for concurrent use; they run on the dispatching goroutine.
type Observer interface {
	// DispatchStarted is called once the request is registered, before the
	// upstream call.
	DispatchStarted(model string, stream bool)

	// DispatchFinished is called exactly once per dispatch with its outcome.
	DispatchFinished(outcome Outcome)
}

// Outcome describes one finished dispatch.
type Outcome struct {
	RequestID string
	KeyPrefix string
	Model     string
	Stream    bool

	// Status is 200 on success, otherwise the error's status analogue.
	Status   int
	Category providers.Category

	Duration time.Duration

	// Frames is the number of data frames delivered, excluding the sentinel.
	// Always zero for single-shot dispatches.
	Frames int

	// Usage is the upstream token accounting, if reported.
	Usage *providers.Usage

	Err      *providers.Error
	Finished time.Time
}

// Success reports whether the dispatch completed without error.
func (o Outcome) Success() bool {
	return o.Err == nil
}
