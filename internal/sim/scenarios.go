// Package sim generates plausible sensor data for boards running without
// hardware. The scenario tables cover the canonical demo conditions; the
// feed writer appends records in the same shape the sensor processes emit,
// so the board cannot tell simulated feeds from real ones.
package sim

import (
	"math/rand"
	"strings"
	"time"

	"github.com/edgy2009/adboard/internal/models"
)

// Jitter bounds applied when a random source is supplied. Scenario values
// sit far enough from the classification boundaries that jittered readings
// always land in the same band.
const (
	tempJitterC    = 0.5
	humidityJitter = 2.0
	ageJitterYears = 1.5
)

// EnvironmentScenario is one simulated weather condition.
type EnvironmentScenario struct {
	Name        string
	Temperature float64 // Celsius
	Humidity    float64 // percent
	Weather     string
	TimeOfDay   string
}

// Member is one simulated person in front of the board. Gender uses the
// detector's labels: "M", "F" or "Unknown" when classification failed.
type Member struct {
	Age    float64
	Gender string
}

// AudienceScenario is one simulated crowd. AgeGroup and Distribution are
// the profile the members classify into, recorded here so tools can print
// the expected outcome next to the generated feed.
type AudienceScenario struct {
	Name          string
	AgeGroup      string
	Distribution  string
	Members       []Member
	AttentionSpan time.Duration
}

// EnvironmentScenarios returns the canonical weather conditions.
func EnvironmentScenarios() []EnvironmentScenario {
	return []EnvironmentScenario{
		{Name: "Hot Summer Day", Temperature: 32, Humidity: 65, Weather: "sunny", TimeOfDay: "afternoon"},
		{Name: "Rainy Morning", Temperature: 22, Humidity: 85, Weather: "rainy", TimeOfDay: "morning"},
		{Name: "Cool Evening", Temperature: 18, Humidity: 45, Weather: "clear", TimeOfDay: "evening"},
		{Name: "Humid Overcast Day", Temperature: 26, Humidity: 78, Weather: "cloudy", TimeOfDay: "afternoon"},
	}
}

// AudienceScenarios returns the canonical crowds, plus the empty street that
// exercises the environment-only selection path.
func AudienceScenarios() []AudienceScenario {
	return []AudienceScenario{
		{
			Name:         "Young Adults Group",
			AgeGroup:     models.AgeAdult,
			Distribution: models.GenderMixed,
			// A three-person group cannot split genders evenly; the third
			// member carries the detector's unknown label so the group
			// still classifies as mixed.
			Members:       []Member{{Age: 27, Gender: "M"}, {Age: 30, Gender: "F"}, {Age: 25, Gender: "Unknown"}},
			AttentionSpan: 8 * time.Second,
		},
		{
			Name: "Family with Children",
			// Two adults and two children tie, so no age bucket has a
			// majority and the profile degrades to the wildcard.
			AgeGroup:      models.AgeAll,
			Distribution:  models.GenderMixed,
			Members:       []Member{{Age: 38, Gender: "M"}, {Age: 36, Gender: "F"}, {Age: 9, Gender: "F"}, {Age: 7, Gender: "M"}},
			AttentionSpan: 5 * time.Second,
		},
		{
			Name:          "Elderly Couple",
			AgeGroup:      models.AgeSenior,
			Distribution:  models.GenderMixed,
			Members:       []Member{{Age: 68, Gender: "M"}, {Age: 71, Gender: "F"}},
			AttentionSpan: 12 * time.Second,
		},
		{
			Name:          "Teenage Friends",
			AgeGroup:      models.AgeTeen,
			Distribution:  models.GenderMostlyFemale,
			Members:       []Member{{Age: 16, Gender: "F"}, {Age: 15, Gender: "F"}, {Age: 17, Gender: "F"}, {Age: 16, Gender: "F"}, {Age: 15, Gender: "M"}},
			AttentionSpan: 4 * time.Second,
		},
		{
			Name:         "Quiet Street",
			AgeGroup:     models.AgeAll,
			Distribution: models.GenderMixed,
		},
	}
}

// FindEnvironmentScenario looks a scenario up by name, case-insensitively.
func FindEnvironmentScenario(name string) (EnvironmentScenario, bool) {
	for _, s := range EnvironmentScenarios() {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return EnvironmentScenario{}, false
}

// FindAudienceScenario looks a scenario up by name, case-insensitively.
func FindAudienceScenario(name string) (AudienceScenario, bool) {
	for _, s := range AudienceScenarios() {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return AudienceScenario{}, false
}

// Reading renders the scenario as one environmental feed record. A non-nil
// rng adds sensor-style noise within the scenario's classification band.
func (s EnvironmentScenario) Reading(ts time.Time, rng *rand.Rand) models.EnvironmentReading {
	reading := models.EnvironmentReading{
		Timestamp:   ts,
		Temperature: s.Temperature,
		Humidity:    s.Humidity,
		Weather:     s.Weather,
	}
	if rng != nil {
		reading.Temperature += jitter(rng, tempJitterC)
		reading.Humidity += jitter(rng, humidityJitter)
	}
	return reading
}

// Reading renders the scenario as one audience feed record.
func (s AudienceScenario) Reading(ts time.Time, rng *rand.Rand) models.AudienceReading {
	reading := models.AudienceReading{
		Timestamp: ts,
		Count:     len(s.Members),
	}
	for _, m := range s.Members {
		age := m.Age
		if rng != nil {
			age += jitter(rng, ageJitterYears)
		}
		reading.Detections = append(reading.Detections, models.Detection{
			Age:    age,
			Gender: m.Gender,
		})
	}
	return reading
}

func jitter(rng *rand.Rand, bound float64) float64 {
	return (rng.Float64()*2 - 1) * bound
}
