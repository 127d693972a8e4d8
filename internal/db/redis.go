package db

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CatalogUpdatesChannel carries notifications that the ad catalog changed
// and running boards should reload it.
const CatalogUpdatesChannel = "board-data-updates"

// RedisStore wraps a redis client and context for operations.
type RedisStore struct {
	Client *redis.Client
	Ctx    context.Context
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Ctx:    context.Background(),
	}

	// Add OpenTelemetry instrumentation to Redis client
	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(rs.Ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

// PublishCatalogUpdate announces a catalog mutation. The payload is the
// originating board ID so subscribers can skip their own writes.
func (r *RedisStore) PublishCatalogUpdate(ctx context.Context, boardID string) error {
	if err := r.Client.Publish(ctx, CatalogUpdatesChannel, boardID).Err(); err != nil {
		return fmt.Errorf("publish catalog update: %w", err)
	}
	return nil
}

// SubscribeCatalogUpdates opens a subscription on the catalog updates
// channel. The caller owns the returned PubSub and must Close it.
func (r *RedisStore) SubscribeCatalogUpdates(ctx context.Context) *redis.PubSub {
	return r.Client.Subscribe(ctx, CatalogUpdatesChannel)
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
