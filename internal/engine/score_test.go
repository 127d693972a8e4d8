package engine

import (
	"math"
	"testing"
	"time"

	"github.com/edgy2009/adboard/internal/config"
	"github.com/edgy2009/adboard/internal/models"
)

func testPolicy() config.DecisionPolicy {
	return config.DecisionPolicy{
		GenderMismatchFactor:      0.10,
		AgeMismatchFactor:         0.20,
		PerfectMatchBonus:         2.0,
		TemperatureMismatchFactor: 0.20,
		HumidityMismatchFactor:    0.70,
		HistoryDecayRate:          0.90,
		HistoryLimit:              50,
		TopCandidates:             3,
		WeightsWithAudience:       config.ScoreWeights{Demographic: 0.70, Environmental: 0.10, History: 0.20},
		WeightsWithoutAudience:    config.ScoreWeights{Demographic: 0.10, Environmental: 0.60, History: 0.30},
	}
}

func envContext(temp, humidity string) models.EnvironmentalContext {
	return models.EnvironmentalContext{
		TemperatureCategory: temp,
		HumidityCategory:    humidity,
		Timestamp:           time.Now(),
	}
}

func presentAudience(age, genderDist string) models.AudienceProfile {
	return models.AudienceProfile{
		Present:            true,
		Count:              1,
		AgeGroup:           age,
		GenderDistribution: genderDist,
		Timestamp:          time.Now(),
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDemographicScore(t *testing.T) {
	policy := testPolicy()
	adult := models.Ad{ID: "1", AgeGroup: models.AgeAdult, Gender: models.GenderMale, Temperature: models.TempAny, Humidity: models.HumidityAny}
	openAd := models.Ad{ID: "2", AgeGroup: models.AgeAll, Gender: models.GenderBoth, Temperature: models.TempAny, Humidity: models.HumidityAny}

	testCases := []struct {
		name     string
		ad       models.Ad
		audience models.AudienceProfile
		want     float64
	}{
		{
			name:     "perfect match earns the bonus",
			ad:       adult,
			audience: presentAudience(models.AgeAdult, models.GenderMostlyMale),
			want:     2.0,
		},
		{
			name:     "gender mismatch forfeits the bonus",
			ad:       adult,
			audience: presentAudience(models.AgeAdult, models.GenderMostlyFemale),
			want:     0.10,
		},
		{
			name:     "age mismatch forfeits the bonus",
			ad:       adult,
			audience: presentAudience(models.AgeSenior, models.GenderMostlyMale),
			want:     0.20,
		},
		{
			name:     "double mismatch compounds",
			ad:       adult,
			audience: presentAudience(models.AgeSenior, models.GenderMostlyFemale),
			want:     0.10 * 0.20,
		},
		{
			name:     "wildcard ad never mismatches and never earns the bonus",
			ad:       openAd,
			audience: presentAudience(models.AgeAdult, models.GenderMostlyMale),
			want:     1.0,
		},
		{
			name:     "mixed audience never penalizes a specific ad",
			ad:       adult,
			audience: presentAudience(models.AgeAll, models.GenderMixed),
			want:     1.0,
		},
		{
			name:     "absent audience is neutral",
			ad:       adult,
			audience: models.AbsentAudience(),
			want:     1.0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := demographicScore(tc.ad, tc.audience, policy)
			if !almostEqual(got, tc.want) {
				t.Errorf("demographicScore = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEnvironmentalScore(t *testing.T) {
	policy := testPolicy()
	hotHigh := models.Ad{ID: "1", AgeGroup: models.AgeAll, Gender: models.GenderBoth, Temperature: models.TempHot, Humidity: models.HumidityHigh}
	anyAd := models.Ad{ID: "2", AgeGroup: models.AgeAll, Gender: models.GenderBoth, Temperature: models.TempAny, Humidity: models.HumidityAny}

	testCases := []struct {
		name string
		ad   models.Ad
		env  models.EnvironmentalContext
		want float64
	}{
		{name: "full match", ad: hotHigh, env: envContext(models.TempHot, models.HumidityHigh), want: 1.0},
		{name: "temperature mismatch", ad: hotHigh, env: envContext(models.TempCold, models.HumidityHigh), want: 0.20},
		{name: "humidity mismatch", ad: hotHigh, env: envContext(models.TempHot, models.HumidityLow), want: 0.70},
		{name: "double mismatch compounds", ad: hotHigh, env: envContext(models.TempCold, models.HumidityLow), want: 0.20 * 0.70},
		{name: "wildcard ad never mismatches", ad: anyAd, env: envContext(models.TempCold, models.HumidityLow), want: 1.0},
		{name: "neutral context never penalizes", ad: hotHigh, env: envContext(models.TempAny, models.HumidityAny), want: 1.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := environmentalScore(tc.ad, tc.env, policy)
			if !almostEqual(got, tc.want) {
				t.Errorf("environmentalScore = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHistoryScore(t *testing.T) {
	policy := testPolicy()
	at := func(ids ...string) []models.DisplayHistoryEntry {
		entries := make([]models.DisplayHistoryEntry, len(ids))
		for i, id := range ids {
			entries[i] = models.DisplayHistoryEntry{AdID: id, DisplayedAt: time.Now(), Score: 0.5}
		}
		return entries
	}

	testCases := []struct {
		name   string
		recent []models.DisplayHistoryEntry
		want   float64
	}{
		{name: "absent from history", recent: at("x", "y", "z"), want: 1.0},
		{name: "shown last cycle gets the maximum penalty", recent: at("a", "x", "y"), want: 0.0},
		{name: "one cycle ago", recent: at("x", "a", "y"), want: 1.0 - 0.9},
		{name: "two cycles ago", recent: at("x", "y", "a"), want: 1.0 - 0.81},
		{name: "repeated occurrences clamp at zero", recent: at("x", "a", "a"), want: 0.0},
		{name: "empty history", recent: nil, want: 1.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := historyScore("a", tc.recent, policy)
			if !almostEqual(got, tc.want) {
				t.Errorf("historyScore = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHistoryScore_PenaltyDecaysWithAge(t *testing.T) {
	policy := testPolicy()
	prev := -1.0
	for age := 0; age < 10; age++ {
		recent := make([]models.DisplayHistoryEntry, age+1)
		for i := range recent {
			recent[i] = models.DisplayHistoryEntry{AdID: "other"}
		}
		recent[age] = models.DisplayHistoryEntry{AdID: "a"}
		got := historyScore("a", recent, policy)
		if got < prev {
			t.Fatalf("history score must not decrease as the display ages: age %d scored %v after %v", age, got, prev)
		}
		prev = got
	}
}

func TestScoreCandidate_WeightsByPresence(t *testing.T) {
	policy := testPolicy()
	ad := models.Ad{ID: "1", AgeGroup: models.AgeAdult, Gender: models.GenderMale, Temperature: models.TempHot, Humidity: models.HumidityHigh}
	env := envContext(models.TempHot, models.HumidityHigh)

	withAudience := scoreCandidate(ad, env, presentAudience(models.AgeAdult, models.GenderMostlyMale), nil, policy)
	// demographic 2.0, environmental 1.0, history 1.0
	if want := 0.70*2.0 + 0.10*1.0 + 0.20*1.0; !almostEqual(withAudience.CombinedScore, want) {
		t.Errorf("combined with audience = %v, want %v", withAudience.CombinedScore, want)
	}

	withoutAudience := scoreCandidate(ad, env, models.AbsentAudience(), nil, policy)
	// demographic 1.0, environmental 1.0, history 1.0
	if want := 0.10*1.0 + 0.60*1.0 + 0.30*1.0; !almostEqual(withoutAudience.CombinedScore, want) {
		t.Errorf("combined without audience = %v, want %v", withoutAudience.CombinedScore, want)
	}
}

func TestDemographicScore_ExactMatchBeatsEveryMismatch(t *testing.T) {
	policy := testPolicy()
	audience := presentAudience(models.AgeTeen, models.GenderMostlyFemale)

	exact := models.Ad{ID: "hit", AgeGroup: models.AgeTeen, Gender: models.GenderFemale}
	others := []models.Ad{
		{ID: "m1", AgeGroup: models.AgeTeen, Gender: models.GenderMale},
		{ID: "m2", AgeGroup: models.AgeSenior, Gender: models.GenderFemale},
		{ID: "m3", AgeGroup: models.AgeChild, Gender: models.GenderMale},
		{ID: "m4", AgeGroup: models.AgeAll, Gender: models.GenderBoth},
	}

	exactScore := demographicScore(exact, audience, policy)
	for _, ad := range others {
		if s := demographicScore(ad, audience, policy); s >= exactScore {
			t.Errorf("ad %s scored %v, expected strictly less than the exact match's %v", ad.ID, s, exactScore)
		}
	}
}
