package usage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mercator-hq/relay/pkg/dispatch"
)

// Record is one ledger entry for a finished dispatch.
type Record struct {
	ID        string
	RequestID string
	KeyPrefix string
	Model     string
	Stream    bool

	Status   int
	Category string
	Success  bool

	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	Frames     int
	Duration   time.Duration
	RecordedAt time.Time
}

// FromOutcome converts a dispatch outcome into a ledger record with a fresh
// ID. Outcomes without usage accounting record zero tokens.
func FromOutcome(outcome dispatch.Outcome) *Record {
	recordedAt := outcome.Finished
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	record := &Record{
		ID:         uuid.NewString(),
		RequestID:  outcome.RequestID,
		KeyPrefix:  outcome.KeyPrefix,
		Model:      outcome.Model,
		Stream:     outcome.Stream,
		Status:     outcome.Status,
		Category:   string(outcome.Category),
		Success:    outcome.Success(),
		Frames:     outcome.Frames,
		Duration:   outcome.Duration,
		RecordedAt: recordedAt.UTC(),
	}
	if outcome.Usage != nil {
		record.PromptTokens = outcome.Usage.PromptTokens
		record.CompletionTokens = outcome.Usage.CompletionTokens
		record.TotalTokens = outcome.Usage.TotalTokens
	}
	return record
}

// Summary aggregates records for one (key prefix, model) pair.
type Summary struct {
	KeyPrefix        string `json:"key_prefix"`
	Model            string `json:"model"`
	Requests         int64  `json:"requests"`
	Failures         int64  `json:"failures"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
}

// Store persists ledger records.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Store persists one record.
	Store(ctx context.Context, record *Record) error

	// Summarize aggregates records recorded at or after since, ordered by
	// key prefix then model.
	Summarize(ctx context.Context, since time.Time) ([]Summary, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// Close releases resources held by the store.
	Close() error
}
