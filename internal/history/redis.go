package history

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/edgy2009/adboard/internal/db"
	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/observability"
)

// RedisStore keeps the display log in a capped Redis list, newest first.
// LPUSH and LTRIM run in one pipeline, so concurrent boards sharing a key
// never interleave an append with an eviction.
type RedisStore struct {
	store   *db.RedisStore
	key     string
	limit   int
	metrics observability.MetricsRegistry
}

// NewRedisStore creates a store under the key "history:<boardID>".
func NewRedisStore(store *db.RedisStore, boardID string, limit int, metrics observability.MetricsRegistry) (*RedisStore, error) {
	if store == nil || store.Client == nil {
		return nil, fmt.Errorf("redis store is nil")
	}
	return &RedisStore{
		store:   store,
		key:     fmt.Sprintf("history:%s", boardID),
		limit:   normalizeLimit(limit),
		metrics: metrics,
	}, nil
}

// Recent returns up to limit entries, newest first.
func (s *RedisStore) Recent(ctx context.Context, limit int) ([]models.DisplayHistoryEntry, error) {
	n := s.limit
	if limit > 0 && limit < n {
		n = limit
	}
	raw, err := s.store.Client.LRange(ctx, s.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read history list: %w", err)
	}
	entries := make([]models.DisplayHistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.DisplayHistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Record pushes an entry and trims the list to the cap.
func (s *RedisStore) Record(ctx context.Context, entry models.DisplayHistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	pipe := s.store.Client.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, int64(s.limit-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	size, err := s.store.Client.LLen(ctx, s.key).Result()
	if err == nil {
		s.metrics.SetHistorySize(int(size))
	}
	return nil
}

// Size returns the number of retained entries.
func (s *RedisStore) Size(ctx context.Context) (int, error) {
	size, err := s.store.Client.LLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("history list length: %w", err)
	}
	return int(size), nil
}
