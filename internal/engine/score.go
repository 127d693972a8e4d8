package engine

import (
	"math"
	"strings"

	"github.com/edgy2009/adboard/internal/config"
	"github.com/edgy2009/adboard/internal/models"
)

// ScoredCandidate pairs an ad with its per-factor scores for one decision
// cycle. It exists only within that cycle and is never persisted.
type ScoredCandidate struct {
	Ad                 models.Ad `json:"ad"`
	DemographicScore   float64   `json:"demographic_score"`
	EnvironmentalScore float64   `json:"environmental_score"`
	HistoryScore       float64   `json:"history_score"`
	CombinedScore      float64   `json:"combined_score"`
}

// demographicScore rates how well an ad's target demographic fits the
// audience. A wildcard on either side never counts as a mismatch, and the
// perfect-match bonus applies only when a present audience matches both
// fields exactly.
func demographicScore(ad models.Ad, audience models.AudienceProfile, policy config.DecisionPolicy) float64 {
	score := 1.0
	gender := audience.GenderTarget()
	age := audience.AgeGroup

	genderSpecific := !models.IsWildcard(ad.Gender) && !models.IsWildcard(gender)
	if genderSpecific && !strings.EqualFold(ad.Gender, gender) {
		score *= policy.GenderMismatchFactor
	}
	ageSpecific := !models.IsWildcard(ad.AgeGroup) && !models.IsWildcard(age)
	if ageSpecific && !strings.EqualFold(ad.AgeGroup, age) {
		score *= policy.AgeMismatchFactor
	}

	if audience.Present &&
		genderSpecific && strings.EqualFold(ad.Gender, gender) &&
		ageSpecific && strings.EqualFold(ad.AgeGroup, age) {
		score *= policy.PerfectMatchBonus
	}
	return score
}

// environmentalScore rates how well an ad's target conditions fit the
// current environment. Wildcards never mismatch.
func environmentalScore(ad models.Ad, env models.EnvironmentalContext, policy config.DecisionPolicy) float64 {
	score := 1.0
	if !models.FieldMatches(ad.Temperature, env.TemperatureCategory) {
		score *= policy.TemperatureMismatchFactor
	}
	if !models.FieldMatches(ad.Humidity, env.HumidityCategory) {
		score *= policy.HumidityMismatchFactor
	}
	return score
}

// historyScore rates repetition fatigue from the recent display log, newest
// entry first. Each occurrence at age n contributes decay^n to a penalty
// clamped at 1.0, so the ad shown in the immediately preceding cycle scores
// 0.0 and an ad absent from the log scores 1.0.
func historyScore(adID string, recent []models.DisplayHistoryEntry, policy config.DecisionPolicy) float64 {
	penalty := 0.0
	for age, e := range recent {
		if e.AdID != adID {
			continue
		}
		penalty += math.Pow(policy.HistoryDecayRate, float64(age))
		if penalty >= 1.0 {
			return 0.0
		}
	}
	return 1.0 - penalty
}

// scoreCandidate computes all sub-scores and the presence-weighted combined
// score for one ad.
func scoreCandidate(ad models.Ad, env models.EnvironmentalContext, audience models.AudienceProfile, recent []models.DisplayHistoryEntry, policy config.DecisionPolicy) ScoredCandidate {
	c := ScoredCandidate{
		Ad:                 ad,
		DemographicScore:   demographicScore(ad, audience, policy),
		EnvironmentalScore: environmentalScore(ad, env, policy),
		HistoryScore:       historyScore(ad.ID, recent, policy),
	}
	weights := policy.WeightsWithoutAudience
	if audience.Present {
		weights = policy.WeightsWithAudience
	}
	c.CombinedScore = weights.Demographic*c.DemographicScore +
		weights.Environmental*c.EnvironmentalScore +
		weights.History*c.HistoryScore
	return c
}
