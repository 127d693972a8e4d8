package sim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgy2009/adboard/internal/classify"
	"github.com/edgy2009/adboard/internal/config"
	"github.com/edgy2009/adboard/internal/models"
)

var testThresholds = config.ClassifierThresholds{
	TempHighC:       25,
	TempLowC:        15,
	HumidityHighPct: 70,
	HumidityLowPct:  40,
}

// Every environment scenario must classify into the same bands regardless
// of jitter, otherwise simulated runs would drift out of the condition the
// scenario is named for.
func TestEnvironmentScenariosStayInBand(t *testing.T) {
	want := map[string]struct{ temp, humidity string }{
		"Hot Summer Day":     {models.TempHot, models.HumidityMedium},
		"Rainy Morning":      {models.TempMild, models.HumidityHigh},
		"Cool Evening":       {models.TempMild, models.HumidityMedium},
		"Humid Overcast Day": {models.TempHot, models.HumidityHigh},
	}

	rng := rand.New(rand.NewSource(1))
	for _, s := range EnvironmentScenarios() {
		expected, ok := want[s.Name]
		require.True(t, ok, "unexpected scenario %q", s.Name)

		for i := 0; i < 50; i++ {
			reading := s.Reading(time.Now().UTC(), rng)
			env := classify.Environment(reading, testThresholds)
			assert.Equal(t, expected.temp, env.TemperatureCategory, "%s draw %d (%.1fC)", s.Name, i, reading.Temperature)
			assert.Equal(t, expected.humidity, env.HumidityCategory, "%s draw %d (%.0f%%)", s.Name, i, reading.Humidity)
			assert.Equal(t, s.Weather, env.Weather, s.Name)
		}
	}
}

// Each audience scenario's members must aggregate into the age group and
// gender distribution the scenario advertises, jitter included.
func TestAudienceScenariosMatchProfile(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, s := range AudienceScenarios() {
		for i := 0; i < 50; i++ {
			reading := s.Reading(time.Now().UTC(), rng)
			profile := classify.Audience(reading)

			assert.Equal(t, len(s.Members) > 0, profile.Present, "%s draw %d", s.Name, i)
			assert.Equal(t, len(s.Members), profile.Count, s.Name)
			assert.Equal(t, s.AgeGroup, profile.AgeGroup, "%s draw %d", s.Name, i)
			assert.Equal(t, s.Distribution, profile.GenderDistribution, "%s draw %d", s.Name, i)
		}
	}
}

func TestQuietStreetIsAbsent(t *testing.T) {
	s, ok := FindAudienceScenario("quiet street")
	require.True(t, ok)
	require.Empty(t, s.Members)

	profile := classify.Audience(s.Reading(time.Now().UTC(), nil))
	assert.False(t, profile.Present)
	assert.Equal(t, models.AgeAll, profile.AgeGroup)
	assert.Equal(t, models.GenderMixed, profile.GenderDistribution)
}

func TestFindScenarioIsCaseInsensitive(t *testing.T) {
	env, ok := FindEnvironmentScenario("HOT summer DAY")
	require.True(t, ok)
	assert.Equal(t, "Hot Summer Day", env.Name)

	_, ok = FindEnvironmentScenario("blizzard")
	assert.False(t, ok)

	aud, ok := FindAudienceScenario("elderly couple")
	require.True(t, ok)
	assert.Equal(t, models.AgeSenior, aud.AgeGroup)
}

func TestReadingWithoutRandIsExact(t *testing.T) {
	s, ok := FindEnvironmentScenario("Rainy Morning")
	require.True(t, ok)

	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	reading := s.Reading(ts, nil)
	assert.Equal(t, 22.0, reading.Temperature)
	assert.Equal(t, 85.0, reading.Humidity)
	assert.Equal(t, ts, reading.Timestamp)
}
