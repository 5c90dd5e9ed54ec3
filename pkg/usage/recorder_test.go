package usage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"mercator-hq/relay/pkg/dispatch"
	"mercator-hq/relay/pkg/providers"
)

// blockingStore holds every write until release is closed.
type blockingStore struct {
	*MemoryStore
	release chan struct{}
	once    sync.Once
}

func (s *blockingStore) Store(ctx context.Context, record *Record) error {
	<-s.release
	return s.MemoryStore.Store(ctx, record)
}

func (s *blockingStore) unblock() {
	s.once.Do(func() { close(s.release) })
}

func TestFromOutcome(t *testing.T) {
	finished := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success with usage", func(t *testing.T) {
		record := FromOutcome(dispatch.Outcome{
			RequestID: "req-1",
			KeyPrefix: "sk-abc...",
			Model:     "gpt-4o",
			Stream:    true,
			Status:    200,
			Frames:    4,
			Duration:  time.Second,
			Usage:     &openai.Usage{PromptTokens: 3, CompletionTokens: 7, TotalTokens: 10},
			Finished:  finished,
		})

		if record.ID == "" || !record.Success || !record.Stream {
			t.Errorf("record = %+v", record)
		}
		if record.PromptTokens != 3 || record.CompletionTokens != 7 || record.TotalTokens != 10 {
			t.Errorf("tokens = %d/%d/%d", record.PromptTokens, record.CompletionTokens, record.TotalTokens)
		}
		if !record.RecordedAt.Equal(finished) || record.Frames != 4 {
			t.Errorf("recorded_at=%v frames=%d", record.RecordedAt, record.Frames)
		}
	})

	t.Run("failure without usage", func(t *testing.T) {
		record := FromOutcome(dispatch.Outcome{
			RequestID: "req-2",
			Status:    providers.StatusRequestCancelled,
			Category:  providers.CategoryRequestCancelled,
			Err:       &providers.Error{Status: providers.StatusRequestCancelled, Category: providers.CategoryRequestCancelled},
		})

		if record.Success || record.Category != string(providers.CategoryRequestCancelled) {
			t.Errorf("record = %+v", record)
		}
		if record.TotalTokens != 0 || record.RecordedAt.IsZero() {
			t.Errorf("record = %+v", record)
		}
	})
}

func TestRecorder_RecordsOutcomes(t *testing.T) {
	store := NewMemoryStore()
	r := NewRecorder(store, RecorderConfig{BufferSize: 10})

	for i := 0; i < 5; i++ {
		r.DispatchFinished(dispatch.Outcome{RequestID: "req", KeyPrefix: "sk-abc...", Model: "gpt-4o", Status: 200})
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := len(store.Records()); got != 5 {
		t.Errorf("stored %d records, want 5", got)
	}
	if err := r.Record(&Record{}); !errors.Is(err, ErrRecorderClosed) {
		t.Errorf("Record() after Close error = %v, want ErrRecorderClosed", err)
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	store := &blockingStore{MemoryStore: NewMemoryStore(), release: make(chan struct{})}
	r := NewRecorder(store, RecorderConfig{BufferSize: 1, WriteTimeout: 20 * time.Millisecond})
	defer func() {
		store.unblock()
		r.Close()
	}()

	// The first record is taken by the worker and blocks in Store; the second
	// fills the queue.
	if err := r.Record(&Record{ID: "1"}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(r.records) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := r.Record(&Record{ID: "2"}); err != nil {
		t.Fatal(err)
	}

	if err := r.Record(&Record{ID: "3"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Record() on full queue error = %v, want DeadlineExceeded", err)
	}
	if r.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", r.Dropped())
	}
}

func TestRecorder_CloseDrainsQueue(t *testing.T) {
	store := &blockingStore{MemoryStore: NewMemoryStore(), release: make(chan struct{})}
	r := NewRecorder(store, RecorderConfig{BufferSize: 10})

	for i := 0; i < 3; i++ {
		if err := r.Record(&Record{RequestID: "req"}); err != nil {
			t.Fatal(err)
		}
	}

	closed := make(chan struct{})
	go func() {
		r.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned before the queue drained")
	case <-time.After(50 * time.Millisecond):
	}

	store.unblock()
	<-closed

	if got := len(store.Records()); got != 3 {
		t.Errorf("stored %d records after drain, want 3", got)
	}
}

func TestRecorder_CloseDuringConcurrentRecords(t *testing.T) {
	for round := 0; round < 20; round++ {
		store := NewMemoryStore()
		r := NewRecorder(store, RecorderConfig{BufferSize: 64})

		var accepted atomic.Int64
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 20; j++ {
					err := r.Record(&Record{RequestID: "req"})
					switch {
					case err == nil:
						accepted.Add(1)
					case errors.Is(err, ErrRecorderClosed):
						return
					default:
						t.Errorf("Record() error = %v", err)
						return
					}
				}
			}()
		}

		close(start)
		r.Close()
		wg.Wait()

		if got, want := int64(len(store.Records())), accepted.Load(); got != want {
			t.Fatalf("round %d: stored %d records, %d were accepted", round, got, want)
		}
	}
}
