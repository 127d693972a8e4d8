package ratelimit

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edgy2009/adboard/internal/observability"
)

// hitRecorder captures rate-limit hit metrics by endpoint label.
type hitRecorder struct {
	observability.MetricsRegistry
	mu   sync.Mutex
	hits map[string]int
}

func newHitRecorder() *hitRecorder {
	return &hitRecorder{
		MetricsRegistry: observability.NewNoOpRegistry(),
		hits:            make(map[string]int),
	}
}

func (r *hitRecorder) IncrementRateLimitHits(endpoint string) {
	r.mu.Lock()
	r.hits[endpoint]++
	r.mu.Unlock()
}

func (r *hitRecorder) hitsFor(endpoint string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[endpoint]
}

func TestClientLimiter_PerClientBuckets(t *testing.T) {
	limiter := NewClientLimiter(Config{Capacity: 2, RefillRate: 1, Enabled: true}, nil)

	// Exhaust the first client's bucket.
	limiter.Allow("10.0.0.1", "/api/decision/next")
	limiter.Allow("10.0.0.1", "/api/decision/next")
	if limiter.Allow("10.0.0.1", "/api/decision/next") {
		t.Error("Expected first client to be rate limited")
	}

	// A different client has its own bucket.
	if !limiter.Allow("10.0.0.2", "/api/decision/next") {
		t.Error("Expected second client to be allowed")
	}
}

func TestClientLimiter_DisabledAlwaysAllows(t *testing.T) {
	limiter := NewClientLimiter(Config{Capacity: 0, RefillRate: 0, Enabled: false}, nil)

	for i := 0; i < 100; i++ {
		if !limiter.Allow("10.0.0.1", "/api/decision/next") {
			t.Fatal("Disabled limiter rejected a request")
		}
	}
}

func TestClientLimiter_RecordsHitMetric(t *testing.T) {
	recorder := newHitRecorder()
	limiter := NewClientLimiter(Config{Capacity: 1, RefillRate: 1, Enabled: true}, recorder)

	limiter.Allow("10.0.0.1", "/api/decision/next")
	limiter.Allow("10.0.0.1", "/api/decision/next")

	if got := recorder.hitsFor("/api/decision/next"); got != 1 {
		t.Errorf("Expected 1 recorded hit, got %d", got)
	}
}

func TestClientLimiter_EvictsIdleBuckets(t *testing.T) {
	limiter := NewClientLimiter(Config{Capacity: 5, RefillRate: 1, Enabled: true}, nil)

	limiter.Allow("10.0.0.1", "/api/decision/next")
	limiter.Allow("10.0.0.2", "/api/decision/next")

	// Backdate one bucket past the eviction horizon and arm the sweep.
	limiter.mu.Lock()
	limiter.buckets["10.0.0.1"].lastSeen = time.Now().Add(-idleEviction - time.Minute)
	limiter.lastSweep = time.Now().Add(-sweepEvery - time.Second)
	limiter.mu.Unlock()

	// A new client triggers the sweep.
	limiter.Allow("10.0.0.3", "/api/decision/next")

	limiter.mu.RLock()
	_, stale := limiter.buckets["10.0.0.1"]
	_, active := limiter.buckets["10.0.0.2"]
	limiter.mu.RUnlock()

	if stale {
		t.Error("Expected idle bucket to be evicted")
	}
	if !active {
		t.Error("Expected active bucket to survive the sweep")
	}
}

func TestClientLimiter_Stats(t *testing.T) {
	limiter := NewClientLimiter(Config{Capacity: 1, RefillRate: 1, Enabled: true}, nil)

	limiter.Allow("10.0.0.1", "/api/decision/next")
	limiter.Allow("10.0.0.1", "/api/decision/next")

	stats := limiter.Stats()
	cs, ok := stats["10.0.0.1"]
	if !ok {
		t.Fatal("Expected stats for 10.0.0.1")
	}
	if cs.Hits != 1 || cs.Total != 2 {
		t.Errorf("Stats = %d/%d, want 1/2", cs.Hits, cs.Total)
	}
	if cs.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", cs.HitRate)
	}
	if !strings.Contains(cs.String(), "10.0.0.1") {
		t.Errorf("String() = %q, expected client key", cs.String())
	}
}
