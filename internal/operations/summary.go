package operations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"campaignclean/pkg/contracts/domain"
)

// ErrSummaryNotFound is returned for unknown or expired batch ids.
var ErrSummaryNotFound = errors.New("batch summary not found")

// SummaryStore keeps batch summaries so they can be fetched after processing.
type SummaryStore interface {
	Save(ctx context.Context, summary *domain.BatchSummary) error
	Get(ctx context.Context, id string) (*domain.BatchSummary, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type summaryEntry struct {
	summary   *domain.BatchSummary
	expiresAt time.Time
}

// MemorySummaryStore is an in-memory implementation of SummaryStore
type MemorySummaryStore struct {
	mu      sync.RWMutex
	entries map[string]summaryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySummaryStore creates a store whose entries expire after ttl.
// A ttl of zero keeps entries until they are deleted.
func NewMemorySummaryStore(ttl time.Duration) *MemorySummaryStore {
	return &MemorySummaryStore{
		entries: make(map[string]summaryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Save stores a copy of summary under its id.
func (s *MemorySummaryStore) Save(ctx context.Context, summary *domain.BatchSummary) error {
	if summary == nil || summary.ID == "" {
		return fmt.Errorf("summary must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := summaryEntry{summary: cloneSummary(summary)}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[summary.ID] = entry
	s.evictLocked()
	return nil
}

// Get returns a copy of the summary stored under id.
func (s *MemorySummaryStore) Get(ctx context.Context, id string) (*domain.BatchSummary, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok || s.isExpired(entry) {
		return nil, fmt.Errorf("%w: %s", ErrSummaryNotFound, id)
	}
	return cloneSummary(entry.summary), nil
}

// Delete removes the summary stored under id.
func (s *MemorySummaryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSummaryNotFound, id)
	}
	delete(s.entries, id)
	return nil
}

// Ping always succeeds.
func (s *MemorySummaryStore) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of live entries.
func (s *MemorySummaryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, entry := range s.entries {
		if !s.isExpired(entry) {
			n++
		}
	}
	return n
}

func (s *MemorySummaryStore) isExpired(entry summaryEntry) bool {
	return !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt)
}

// evictLocked drops expired entries. Callers hold the write lock.
func (s *MemorySummaryStore) evictLocked() {
	for id, entry := range s.entries {
		if s.isExpired(entry) {
			delete(s.entries, id)
		}
	}
}

func cloneSummary(in *domain.BatchSummary) *domain.BatchSummary {
	out := *in
	out.Succeeded = append([]string{}, in.Succeeded...)
	out.Failed = append([]domain.JobFailure{}, in.Failed...)
	if in.Skipped != nil {
		out.Skipped = append([]string{}, in.Skipped...)
	}
	out.Results = append([]domain.JobResult{}, in.Results...)
	return &out
}
