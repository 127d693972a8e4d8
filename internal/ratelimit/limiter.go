package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/edgy2009/adboard/internal/observability"
)

const (
	// Buckets idle longer than this are dropped during a sweep so one-off
	// callers do not accumulate forever.
	idleEviction = 10 * time.Minute
	sweepEvery   = time.Minute
)

// ClientLimiter rate limits API requests per calling client.
//
// Each client key (normally the remote IP) gets its own token bucket,
// created lazily on first access and evicted after a period of
// inactivity. Rate-limit hits are reported to the metrics registry
// labeled by endpoint.
type ClientLimiter struct {
	buckets   map[string]*TokenBucket
	mu        sync.RWMutex
	lastSweep time.Time
	config    Config
	metrics   observability.MetricsRegistry
}

// Config holds the rate limiting configuration.
type Config struct {
	Capacity   int  // burst allowance
	RefillRate int  // tokens per second
	Enabled    bool // disabled means Allow always passes
}

// NewClientLimiter creates a limiter with the given configuration.
func NewClientLimiter(config Config, metrics observability.MetricsRegistry) *ClientLimiter {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &ClientLimiter{
		buckets:   make(map[string]*TokenBucket),
		lastSweep: time.Now(),
		config:    config,
		metrics:   metrics,
	}
}

// Allow reports whether the client may proceed with a request. The
// endpoint only labels the rate-limit hit metric.
func (cl *ClientLimiter) Allow(clientKey, endpoint string) bool {
	if !cl.config.Enabled {
		return true
	}

	cl.mu.RLock()
	bucket, exists := cl.buckets[clientKey]
	cl.mu.RUnlock()

	if !exists {
		// Double-checked: another request may have created it meanwhile.
		cl.mu.Lock()
		bucket, exists = cl.buckets[clientKey]
		if !exists {
			bucket = NewTokenBucket(cl.config.Capacity, cl.config.RefillRate)
			cl.buckets[clientKey] = bucket
		}
		cl.sweepLocked(time.Now())
		cl.mu.Unlock()
	}

	allowed := bucket.Allow()
	if !allowed {
		cl.metrics.IncrementRateLimitHits(endpoint)
	}
	return allowed
}

// sweepLocked drops idle buckets. Caller holds the write lock.
func (cl *ClientLimiter) sweepLocked(now time.Time) {
	if now.Sub(cl.lastSweep) < sweepEvery {
		return
	}
	cl.lastSweep = now
	for key, bucket := range cl.buckets {
		if bucket.idle(now) > idleEviction {
			delete(cl.buckets, key)
		}
	}
}

// Stats returns a snapshot of per-client rate limiting statistics.
func (cl *ClientLimiter) Stats() map[string]ClientStats {
	cl.mu.RLock()
	defer cl.mu.RUnlock()

	stats := make(map[string]ClientStats, len(cl.buckets))
	for key, bucket := range cl.buckets {
		hits, total := bucket.Stats()
		hitRate := 0.0
		if total > 0 {
			hitRate = float64(hits) / float64(total)
		}
		stats[key] = ClientStats{
			Client:  key,
			Hits:    hits,
			Total:   total,
			HitRate: hitRate,
		}
	}
	return stats
}

// ClientStats describes rate limiting activity for one client.
type ClientStats struct {
	Client  string  `json:"client"`
	Hits    int64   `json:"hits"`
	Total   int64   `json:"total"`
	HitRate float64 `json:"hit_rate"`
}

// String renders the stats for logs.
func (cs ClientStats) String() string {
	return fmt.Sprintf("client %s: %d/%d hits (%.2f%%)", cs.Client, cs.Hits, cs.Total, cs.HitRate*100)
}
