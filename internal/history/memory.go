package history

import (
	"context"
	"sync"

	"github.com/edgy2009/adboard/internal/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the display log in process memory, newest first. It
// backs tests and boards running without persistence configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries []models.DisplayHistoryEntry
	limit   int
}

// NewMemoryStore creates an in-memory store. A limit of zero means
// models.MaxHistoryEntries.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{limit: normalizeLimit(limit)}
}

// Recent returns up to limit entries, newest first.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]models.DisplayHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.DisplayHistoryEntry, n)
	copy(out, s.entries[:n])
	return out, nil
}

// Record prepends an entry and drops the oldest beyond the cap.
func (s *MemoryStore) Record(_ context.Context, entry models.DisplayHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append([]models.DisplayHistoryEntry{entry}, s.entries...)
	if len(s.entries) > s.limit {
		s.entries = s.entries[:s.limit]
	}
	return nil
}

// Size returns the number of retained entries.
func (s *MemoryStore) Size(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}
