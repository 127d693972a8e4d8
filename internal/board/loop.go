// Package board drives the autonomous display cycle: on every tick it
// reads the sensor contexts, asks the engine for a decision and pushes
// the outcome to the websocket hub. The most recent decision stays
// available for the dashboard endpoints.
package board

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/engine"
	"github.com/edgy2009/adboard/internal/ingest"
	"github.com/edgy2009/adboard/internal/ws"
)

const defaultInterval = 5 * time.Second

// Loop runs decision cycles on a fixed interval.
type Loop struct {
	engine   *engine.Engine
	reader   *ingest.Reader
	hub      *ws.Hub
	interval time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	current *engine.Decision
}

// NewLoop wires a display loop. The hub may be nil when no dashboard is
// attached.
func NewLoop(eng *engine.Engine, reader *ingest.Reader, hub *ws.Hub, interval time.Duration, logger *zap.Logger) *Loop {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Loop{
		engine:   eng,
		reader:   reader,
		hub:      hub,
		interval: interval,
		logger:   logger,
	}
}

// Run executes one cycle immediately, then one per tick until ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Display loop stopped", zap.NamedError("reason", ctx.Err()))
			return ctx.Err()
		case <-ticker.C:
			l.Cycle(ctx)
		}
	}
}

// Cycle runs a single decision cycle. A failed cycle keeps the previous
// selection on screen; the engine's decision counters carry the outcome.
func (l *Loop) Cycle(ctx context.Context) {
	env := l.reader.EnvironmentalContext(ctx)
	audience := l.reader.AudienceProfile(ctx)

	decision, err := l.engine.Decide(ctx, env, audience)
	if err != nil {
		l.logger.Error("Display cycle failed, keeping previous selection", zap.Error(err))
		return
	}

	l.mu.Lock()
	l.current = decision
	l.mu.Unlock()

	if l.hub != nil {
		l.hub.BroadcastDisplay(decision)
	}
}

// Current returns the most recent successful decision, or nil before the
// first cycle completes.
func (l *Loop) Current() *engine.Decision {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}
