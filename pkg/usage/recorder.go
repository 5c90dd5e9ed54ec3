package usage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/relay/pkg/dispatch"
)

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	// BufferSize is the capacity of the record queue.
	// Default: 1000
	BufferSize int

	// WriteTimeout bounds both the wait for queue space and each store write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// Recorder writes dispatch outcomes to a Store asynchronously. It implements
// dispatch.Observer.
type Recorder struct {
	store  Store
	config RecorderConfig

	records chan *Record
	done    chan struct{}
	wg      sync.WaitGroup

	// mu is held for reading by every send on records and for writing
	// while Close marks the recorder closed and closes records.
	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	dropped   atomic.Int64
	logger    *slog.Logger
}

var _ dispatch.Observer = (*Recorder)(nil)

// NewRecorder starts a recorder draining into store.
func NewRecorder(store Store, cfg RecorderConfig) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		store:   store,
		config:  cfg,
		records: make(chan *Record, cfg.BufferSize),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "usage.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("usage recorder initialized",
		"buffer_size", cfg.BufferSize,
		"write_timeout", cfg.WriteTimeout,
	)
	return r
}

// DispatchStarted implements dispatch.Observer.
func (r *Recorder) DispatchStarted(model string, stream bool) {}

// DispatchFinished implements dispatch.Observer by enqueueing the outcome.
func (r *Recorder) DispatchFinished(outcome dispatch.Outcome) {
	if err := r.Record(FromOutcome(outcome)); err != nil {
		r.logger.Warn("usage record dropped",
			"request_id", outcome.RequestID,
			"error", err,
		)
	}
}

// Record enqueues record for writing. It waits at most WriteTimeout for
// queue space and returns context.DeadlineExceeded when the record had to be
// dropped.
func (r *Recorder) Record(record *Record) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrRecorderClosed
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.records <- record:
		return nil
	case <-timer.C:
		r.dropped.Add(1)
		return context.DeadlineExceeded
	case <-r.done:
		return ErrRecorderClosed
	}
}

// Dropped returns how many records were dropped because the queue was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting records, drains the queue and waits for the worker.
// It does not close the store.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down usage recorder")
		// Release senders waiting for space, then shut the queue once no
		// send is in flight.
		close(r.done)
		r.mu.Lock()
		r.closed = true
		close(r.records)
		r.mu.Unlock()
		r.wg.Wait()
		r.logger.Info("usage recorder shut down complete", "dropped", r.dropped.Load())
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for record := range r.records {
		r.write(record)
	}
}

func (r *Recorder) write(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.store.Store(ctx, record); err != nil {
		r.logger.Error("failed to store usage record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}

	r.logger.Debug("usage recorded",
		"request_id", record.RequestID,
		"key", record.KeyPrefix,
		"model", record.Model,
		"status", record.Status,
	)
}
