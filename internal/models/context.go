package models

import "time"

// Audience gender distribution buckets produced by the audience reader.
const (
	GenderMostlyMale   = "mostly_male"
	GenderMostlyFemale = "mostly_female"
	GenderMixed        = "mixed"
)

// EnvironmentReading is one raw entry of the environmental feed, as written
// by the sensor module or the simulator.
type EnvironmentReading struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Weather     string    `json:"weather"`
}

// EnvironmentalContext is the classified environmental state for one
// decision cycle. It is derived fresh from the latest reading and never
// persisted.
type EnvironmentalContext struct {
	TemperatureCategory string    `json:"temperature_category"`
	HumidityCategory    string    `json:"humidity_category"`
	RawTemperature      float64   `json:"raw_temperature"`
	RawHumidity         float64   `json:"raw_humidity"`
	Weather             string    `json:"weather"`
	Timestamp           time.Time `json:"timestamp"`
	// Fallback marks a context synthesized because the feed was missing,
	// stale or unreadable.
	Fallback bool `json:"fallback,omitempty"`
}

// NeutralEnvironment returns the fallback context used when the
// environmental feed is unavailable. Both categories are wildcards, so no ad
// is penalized for environment in that cycle.
func NeutralEnvironment() EnvironmentalContext {
	return EnvironmentalContext{
		TemperatureCategory: TempAny,
		HumidityCategory:    HumidityAny,
		Timestamp:           time.Now().UTC(),
		Fallback:            true,
	}
}

// Detection is one detected person in an audience feed entry. Gender uses
// the detector's single-letter labels.
type Detection struct {
	Age    float64 `json:"age"`
	Gender string  `json:"gender"` // "M" or "F"
}

// AudienceReading is one raw entry of the audience feed.
type AudienceReading struct {
	Timestamp  time.Time   `json:"timestamp"`
	Count      int         `json:"count"`
	Detections []Detection `json:"detections"`
}

// AudienceProfile is the aggregated audience state for one decision cycle.
type AudienceProfile struct {
	Present bool `json:"audience_present"`
	Count   int  `json:"count"`
	// AgeGroup is the majority age bucket, or "all" when nobody is present
	// or no bucket has a majority.
	AgeGroup string `json:"age_group"`
	// GenderDistribution is mostly_male, mostly_female or mixed.
	GenderDistribution string    `json:"gender_distribution"`
	Timestamp          time.Time `json:"timestamp"`
	Fallback           bool      `json:"fallback,omitempty"`
}

// GenderTarget maps the distribution bucket onto the catalog's gender
// vocabulary. A mixed audience maps to the wildcard.
func (p AudienceProfile) GenderTarget() string {
	switch p.GenderDistribution {
	case GenderMostlyMale:
		return GenderMale
	case GenderMostlyFemale:
		return GenderFemale
	}
	return GenderBoth
}

// AbsentAudience returns the profile used when nobody is detected or the
// feed is unavailable. Demographic fields are wildcards.
func AbsentAudience() AudienceProfile {
	return AudienceProfile{
		Present:            false,
		AgeGroup:           AgeAll,
		GenderDistribution: GenderMixed,
		Timestamp:          time.Now().UTC(),
	}
}
