// Package history persists the rolling display log that feeds repetition
// scoring. The log is capped: once full, recording a display evicts the
// oldest entry.
package history

import (
	"context"
	"errors"

	"github.com/edgy2009/adboard/internal/models"
)

// ErrWriteConflict is returned when another writer holds the history lock.
// Callers retry with backoff rather than dropping the append.
var ErrWriteConflict = errors.New("history write conflict")

// Store persists the rolling display log. Implementations retain at most a
// configured number of entries (models.MaxHistoryEntries by default).
type Store interface {
	// Recent returns up to limit entries, newest first. A non-positive
	// limit returns all retained entries.
	Recent(ctx context.Context, limit int) ([]models.DisplayHistoryEntry, error)
	// Record appends an entry, evicting the oldest beyond the cap.
	Record(ctx context.Context, entry models.DisplayHistoryEntry) error
	// Size returns the number of retained entries.
	Size(ctx context.Context) (int, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return models.MaxHistoryEntries
	}
	return limit
}
