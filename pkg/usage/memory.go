package usage

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

// MemoryStore keeps records in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Store appends a copy of record.
func (s *MemoryStore) Store(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newStorageError("memory", "store", ErrStoreClosed)
	}
	s.records = append(s.records, *record)
	return nil
}

// Records returns a copy of all stored records in insertion order.
func (s *MemoryStore) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Summarize implements Store.
func (s *MemoryStore) Summarize(ctx context.Context, since time.Time) ([]Summary, error) {
	s.mu.RLock()
	recent := lo.Filter(s.records, func(r Record, _ int) bool {
		return !r.RecordedAt.Before(since)
	})
	s.mu.RUnlock()

	return summarize(recent), nil
}

// Count implements Store.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type summaryKey struct {
	keyPrefix string
	model     string
}

// summarize groups records by (key prefix, model) and sorts the result.
func summarize(records []Record) []Summary {
	groups := lo.GroupBy(records, func(r Record) summaryKey {
		return summaryKey{keyPrefix: r.KeyPrefix, model: r.Model}
	})

	summaries := lo.MapToSlice(groups, func(key summaryKey, group []Record) Summary {
		summary := Summary{KeyPrefix: key.keyPrefix, Model: key.model}
		for _, r := range group {
			summary.Requests++
			if !r.Success {
				summary.Failures++
			}
			summary.PromptTokens += int64(r.PromptTokens)
			summary.CompletionTokens += int64(r.CompletionTokens)
		}
		return summary
	})

	slices.SortFunc(summaries, func(a, b Summary) int {
		return cmp.Or(cmp.Compare(a.KeyPrefix, b.KeyPrefix), cmp.Compare(a.Model, b.Model))
	})
	return summaries
}
