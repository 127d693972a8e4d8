// Package classify turns raw sensor readings into the categorical contexts
// the decision engine consumes: temperature/humidity bands for the
// environment and age-group/gender-distribution buckets for the audience.
package classify

import (
	"strings"

	"github.com/edgy2009/adboard/internal/config"
	"github.com/edgy2009/adboard/internal/models"
)

// Age bucket boundaries. A detection aged exactly 13 is a teen, exactly 20
// an adult, exactly 60 a senior.
const (
	ageTeenMin   = 13.0
	ageAdultMin  = 20.0
	ageSeniorMin = 60.0
)

// majorityShare is the fraction one gender must exceed for the audience to
// count as mostly that gender. Exactly 60% is still mixed.
const majorityShare = 0.60

// TemperatureBand maps a raw Celsius reading onto hot/mild/cold. Boundary
// values fall into the extreme band.
func TemperatureBand(raw float64, t config.ClassifierThresholds) string {
	switch {
	case raw >= t.TempHighC:
		return models.TempHot
	case raw <= t.TempLowC:
		return models.TempCold
	}
	return models.TempMild
}

// HumidityBand maps a raw relative-humidity percentage onto high/medium/low.
func HumidityBand(raw float64, t config.ClassifierThresholds) string {
	switch {
	case raw >= t.HumidityHighPct:
		return models.HumidityHigh
	case raw <= t.HumidityLowPct:
		return models.HumidityLow
	}
	return models.HumidityMedium
}

// Environment classifies one feed reading into a decision-cycle context.
func Environment(r models.EnvironmentReading, t config.ClassifierThresholds) models.EnvironmentalContext {
	return models.EnvironmentalContext{
		TemperatureCategory: TemperatureBand(r.Temperature, t),
		HumidityCategory:    HumidityBand(r.Humidity, t),
		RawTemperature:      r.Temperature,
		RawHumidity:         r.Humidity,
		Weather:             r.Weather,
		Timestamp:           r.Timestamp,
	}
}

// AgeBucket maps a detected age onto the catalog's age vocabulary.
func AgeBucket(age float64) string {
	switch {
	case age < ageTeenMin:
		return models.AgeChild
	case age < ageAdultMin:
		return models.AgeTeen
	case age < ageSeniorMin:
		return models.AgeAdult
	}
	return models.AgeSenior
}

// Audience aggregates one feed reading into an audience profile. Zero
// detections produce the absent profile. The majority age bucket wins; a tie
// for the majority degrades to the wildcard, as does a gender split where
// neither side exceeds 60%.
func Audience(r models.AudienceReading) models.AudienceProfile {
	if len(r.Detections) == 0 {
		p := models.AbsentAudience()
		if !r.Timestamp.IsZero() {
			p.Timestamp = r.Timestamp
		}
		return p
	}

	buckets := make(map[string]int)
	var males, females int
	for _, d := range r.Detections {
		buckets[AgeBucket(d.Age)]++
		switch strings.ToUpper(strings.TrimSpace(d.Gender)) {
		case "M":
			males++
		case "F":
			females++
		}
	}

	count := r.Count
	if count < len(r.Detections) {
		count = len(r.Detections)
	}

	return models.AudienceProfile{
		Present:            true,
		Count:              count,
		AgeGroup:           majorityBucket(buckets),
		GenderDistribution: genderDistribution(males, females),
		Timestamp:          r.Timestamp,
	}
}

func majorityBucket(buckets map[string]int) string {
	best, bestCount, tied := models.AgeAll, 0, false
	for bucket, n := range buckets {
		switch {
		case n > bestCount:
			best, bestCount, tied = bucket, n, false
		case n == bestCount:
			tied = true
		}
	}
	if tied {
		return models.AgeAll
	}
	return best
}

func genderDistribution(males, females int) string {
	total := males + females
	if total == 0 {
		return models.GenderMixed
	}
	if float64(males)/float64(total) > majorityShare {
		return models.GenderMostlyMale
	}
	if float64(females)/float64(total) > majorityShare {
		return models.GenderMostlyFemale
	}
	return models.GenderMixed
}
