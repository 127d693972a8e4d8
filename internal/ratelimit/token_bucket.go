// Package ratelimit implements token bucket rate limiting for the board's
// public API endpoints.
//
// The token bucket allows burst traffic up to the bucket capacity while
// holding a sustained per-client rate. Board GUIs poll in a burst after a
// reconnect, so a fixed-window limiter would reject legitimate catch-up
// traffic.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a thread-safe token bucket.
//
// The bucket holds at most capacity tokens and refills at refillRate
// tokens per second. Each request consumes one token; an empty bucket
// rejects requests until tokens refill. The bucket starts full.
type TokenBucket struct {
	capacity   int
	tokens     int
	refillRate int
	lastRefill time.Time
	lastSeen   time.Time
	mu         sync.Mutex
	hitCount   int64
	totalCount int64
}

// NewTokenBucket creates a full bucket with the given burst capacity and
// per-second refill rate.
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	now := time.Now()
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: now,
		lastSeen:   now,
	}
}

// Allow attempts to consume one token. It returns false when the bucket
// is empty and the request should be rejected.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.totalCount++

	now := time.Now()
	tb.lastSeen = now

	// Refill based on elapsed time.
	elapsed := now.Sub(tb.lastRefill)
	tokensToAdd := int(elapsed.Seconds() * float64(tb.refillRate))
	if tokensToAdd > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+tokensToAdd)
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	tb.hitCount++
	return false
}

// Stats returns how many requests were rejected and how many were seen in
// total.
func (tb *TokenBucket) Stats() (hits, total int64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.hitCount, tb.totalCount
}

// idle reports how long ago the bucket last saw a request.
func (tb *TokenBucket) idle(now time.Time) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return now.Sub(tb.lastSeen)
}
