package history

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/observability"
)

// FileStore keeps the display log as a JSON array on disk, oldest entry
// first. Writes go through a temp file and rename so readers never observe
// a partial log, and a sidecar lock file keeps concurrent board processes
// from interleaving read-modify-write cycles.
type FileStore struct {
	path    string
	limit   int
	lockTTL time.Duration
	logger  *zap.Logger
	metrics observability.MetricsRegistry

	mu sync.RWMutex
}

// NewFileStore creates a store backed by the JSON file at path. A limit of
// zero means models.MaxHistoryEntries. Lock files older than lockTTL are
// treated as leftovers from a crashed writer and broken.
func NewFileStore(path string, limit int, lockTTL time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *FileStore {
	return &FileStore{
		path:    path,
		limit:   normalizeLimit(limit),
		lockTTL: lockTTL,
		logger:  logger,
		metrics: metrics,
	}
}

// Recent returns up to limit entries, newest first.
func (s *FileStore) Recent(_ context.Context, limit int) ([]models.DisplayHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	// Stored oldest first; reverse into newest-first order.
	out := make([]models.DisplayHistoryEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Record appends an entry and evicts the oldest beyond the cap. It returns
// ErrWriteConflict when another process holds the history lock.
func (s *FileStore) Record(_ context.Context, entry models.DisplayHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	if len(entries) > s.limit {
		entries = entries[len(entries)-s.limit:]
	}
	if err := s.write(entries); err != nil {
		return err
	}
	s.metrics.SetHistorySize(len(entries))
	return nil
}

// Size returns the number of retained entries.
func (s *FileStore) Size(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// load reads the on-disk log. A missing file is an empty log; a corrupt one
// is logged and dropped so a single bad write cannot wedge history forever.
func (s *FileStore) load() ([]models.DisplayHistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []models.DisplayHistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("history file is corrupt, starting over",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return nil, nil
	}
	return entries, nil
}

// write persists the log atomically via a temp file in the same directory.
func (s *FileStore) write(entries []models.DisplayHistoryEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp history file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

func (s *FileStore) lockPath() string {
	return s.path + ".lock"
}

// acquireLock takes the cross-process lock, breaking it first when it is
// older than lockTTL.
func (s *FileStore) acquireLock() (func(), error) {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return func() { os.Remove(s.lockPath()) }, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("acquire history lock: %w", err)
		}
		info, statErr := os.Stat(s.lockPath())
		if statErr != nil {
			// Holder released between our open and stat; try again.
			continue
		}
		if s.lockTTL > 0 && time.Since(info.ModTime()) > s.lockTTL {
			s.logger.Warn("breaking stale history lock",
				zap.String("path", s.lockPath()),
				zap.Time("mtime", info.ModTime()),
			)
			os.Remove(s.lockPath())
			continue
		}
		return nil, fmt.Errorf("%w: %s held by another writer", ErrWriteConflict, s.lockPath())
	}
	return nil, fmt.Errorf("%w: %s held by another writer", ErrWriteConflict, s.lockPath())
}
