package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/classify"
	"github.com/edgy2009/adboard/internal/config"
	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/observability"
)

// Reader derives decision-ready contexts from the sensor feeds. When a feed
// is unavailable it applies the neutral fallback (an any/any environment, an
// absent audience) so a dead sensor never aborts a decision cycle.
type Reader struct {
	env        EnvironmentSource
	audience   AudienceSource
	thresholds config.ClassifierThresholds
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
}

// NewReader combines the two feed sources with classification thresholds.
func NewReader(env EnvironmentSource, audience AudienceSource, thresholds config.ClassifierThresholds, logger *zap.Logger, metrics observability.MetricsRegistry) *Reader {
	return &Reader{
		env:        env,
		audience:   audience,
		thresholds: thresholds,
		logger:     logger,
		metrics:    metrics,
	}
}

// EnvironmentalContext classifies the latest environmental sample.
func (r *Reader) EnvironmentalContext(ctx context.Context) models.EnvironmentalContext {
	reading, err := r.env.Latest(ctx)
	if err != nil {
		r.logger.Warn("environment feed unavailable, using neutral context", zap.Error(err))
		r.metrics.IncrementFeedErrors("environment")
		return models.NeutralEnvironment()
	}
	return classify.Environment(reading, r.thresholds)
}

// AudienceProfile aggregates the latest detection sample.
func (r *Reader) AudienceProfile(ctx context.Context) models.AudienceProfile {
	reading, err := r.audience.Latest(ctx)
	if err != nil {
		r.logger.Warn("audience feed unavailable, treating audience as absent", zap.Error(err))
		r.metrics.IncrementFeedErrors("audience")
		profile := models.AbsentAudience()
		profile.Fallback = true
		return profile
	}
	return classify.Audience(reading)
}
