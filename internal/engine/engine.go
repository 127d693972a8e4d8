// Package engine implements the content decision pipeline: narrow the
// catalog through staged filtering, score the survivors against the current
// environment, audience, and display history, then draw the winner from the
// top candidates by weighted random selection.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/analytics"
	"github.com/edgy2009/adboard/internal/config"
	"github.com/edgy2009/adboard/internal/history"
	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/observability"
)

const (
	historyRetryLimit = 3
	historyRetryBase  = 25 * time.Millisecond
)

// defaultRandFloat draws from the locked package-level source in math/rand.
var defaultRandFloat = rand.Float64

// RandFloat yields the uniform sample used by the weighted draw. Tests may
// replace it for deterministic behavior.
var RandFloat = defaultRandFloat

// Decision is the outcome of one decision cycle.
type Decision struct {
	ID          string                      `json:"decision_id"`
	Selected    ScoredCandidate             `json:"selected"`
	Stage       string                      `json:"stage"`
	Candidates  []ScoredCandidate           `json:"candidates"`
	Environment models.EnvironmentalContext `json:"environment"`
	Audience    models.AudienceProfile      `json:"audience"`
	DecidedAt   time.Time                   `json:"decided_at"`
	Trace       *DecisionTrace              `json:"trace,omitempty"`
}

// Engine runs decision cycles over a catalog, a display history store, and
// an optional analytics sink.
type Engine struct {
	catalog   models.Catalog
	history   history.Store
	analytics analytics.AnalyticsService
	policy    config.DecisionPolicy
	boardID   string
	logger    *zap.Logger
	metrics   observability.MetricsRegistry
}

// New constructs an Engine. analyticsSvc may be nil when no analytics
// backend is configured.
func New(catalog models.Catalog, hist history.Store, analyticsSvc analytics.AnalyticsService, policy config.DecisionPolicy, boardID string, logger *zap.Logger, metrics observability.MetricsRegistry) *Engine {
	return &Engine{
		catalog:   catalog,
		history:   hist,
		analytics: analyticsSvc,
		policy:    policy,
		boardID:   boardID,
		logger:    logger,
		metrics:   metrics,
	}
}

// Decide runs one decision cycle and records the outcome in history and
// analytics. History write conflicts are retried with backoff before the
// cycle is declared failed.
func (e *Engine) Decide(ctx context.Context, env models.EnvironmentalContext, audience models.AudienceProfile) (*Decision, error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		e.metrics.RecordDecisionLatency(time.Since(start))
		e.metrics.IncrementDecisions(outcome)
	}()

	decision, err := e.evaluate(ctx, env, audience, nil)
	if err != nil {
		outcome = "empty_catalog"
		return nil, err
	}

	if err := e.recordHistory(ctx, decision); err != nil {
		outcome = "history_error"
		return nil, fmt.Errorf("record display history: %w", err)
	}

	if e.analytics != nil {
		if err := e.analytics.RecordDecision(ctx, e.boardID, decision.ID, decision.Selected.Ad.ID, decision.Stage, decision.Selected.CombinedScore, env, audience); err != nil && !errors.Is(err, analytics.ErrUnavailable) {
			e.logger.Warn("analytics decision insert failed", zap.Error(err))
		}
	}

	e.logger.Info("content decided",
		zap.String("decision_id", decision.ID),
		zap.String("ad_id", decision.Selected.Ad.ID),
		zap.String("stage", decision.Stage),
		zap.Float64("combined_score", decision.Selected.CombinedScore),
		zap.Bool("audience_present", audience.Present),
	)
	return decision, nil
}

// Preview runs the pipeline without recording anything, optionally capturing
// a stage-by-stage trace.
func (e *Engine) Preview(ctx context.Context, env models.EnvironmentalContext, audience models.AudienceProfile, withTrace bool) (*Decision, error) {
	var trace *DecisionTrace
	if withTrace {
		trace = &DecisionTrace{}
	}
	return e.evaluate(ctx, env, audience, trace)
}

// evaluate contains the core pipeline shared by Decide and Preview.
func (e *Engine) evaluate(ctx context.Context, env models.EnvironmentalContext, audience models.AudienceProfile, trace *DecisionTrace) (*Decision, error) {
	if e.catalog.Len() == 0 {
		return nil, ErrEmptyCatalog
	}

	trace.AddStep("start", e.catalog.GetAllAds())

	recent, err := e.history.Recent(ctx, e.policy.HistoryLimit)
	if err != nil {
		e.logger.Warn("history unavailable, scoring without repetition data", zap.Error(err))
		recent = nil
	}

	candidates, stage := narrowCandidates(e.catalog, env, audience)
	e.metrics.IncrementDecisionStage(stage)
	trace.AddStepWithDetails(stage, candidates, map[string]string{
		"temperature":      env.TemperatureCategory,
		"humidity":         env.HumidityCategory,
		"audience_present": strconv.FormatBool(audience.Present),
	})

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, ad := range candidates {
		scored = append(scored, scoreCandidate(ad, env, audience, recent, e.policy))
	}

	// Stable sort keeps catalog insertion order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].CombinedScore > scored[j].CombinedScore
	})
	trace.AddStep("rank", adsOf(scored))

	top := scored
	if e.policy.TopCandidates > 0 && len(top) > e.policy.TopCandidates {
		top = top[:e.policy.TopCandidates]
	}
	chosen := top[drawWeighted(top)]
	trace.AddStepWithDetails("draw", []models.Ad{chosen.Ad}, map[string]string{
		"combined_score": strconv.FormatFloat(chosen.CombinedScore, 'f', 4, 64),
	})

	return &Decision{
		ID:          uuid.New().String(),
		Selected:    chosen,
		Stage:       stage,
		Candidates:  scored,
		Environment: env,
		Audience:    audience,
		DecidedAt:   time.Now().UTC(),
		Trace:       trace,
	}, nil
}

// recordHistory appends the decision to the display log, retrying lock
// conflicts with doubling backoff.
func (e *Engine) recordHistory(ctx context.Context, d *Decision) error {
	entry := models.DisplayHistoryEntry{
		AdID:        d.Selected.Ad.ID,
		DisplayedAt: d.DecidedAt,
		Score:       d.Selected.CombinedScore,
	}
	backoff := historyRetryBase
	var err error
	for attempt := 0; attempt <= historyRetryLimit; attempt++ {
		if attempt > 0 {
			e.metrics.IncrementHistoryConflicts()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err = e.history.Record(ctx, entry); err == nil || !errors.Is(err, history.ErrWriteConflict) {
			return err
		}
	}
	return err
}

// drawWeighted picks an index by combined score normalized over the set. A
// single candidate is chosen deterministically; an all-zero set draws
// uniformly.
func drawWeighted(top []ScoredCandidate) int {
	if len(top) == 1 {
		return 0
	}
	total := 0.0
	for _, c := range top {
		total += c.CombinedScore
	}
	if total <= 0 {
		i := int(RandFloat() * float64(len(top)))
		if i >= len(top) {
			i = len(top) - 1
		}
		return i
	}
	r := RandFloat() * total
	acc := 0.0
	for i, c := range top {
		acc += c.CombinedScore
		if r < acc {
			return i
		}
	}
	return len(top) - 1
}

func adsOf(candidates []ScoredCandidate) []models.Ad {
	ads := make([]models.Ad, len(candidates))
	for i, c := range candidates {
		ads[i] = c.Ad
	}
	return ads
}
