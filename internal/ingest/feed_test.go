package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/config"
	"github.com/edgy2009/adboard/internal/models"
	"github.com/edgy2009/adboard/internal/observability"
)

func writeFeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write feed: %v", err)
	}
	return path
}

func TestFileEnvironmentSource_LatestFromArray(t *testing.T) {
	now := time.Now().Format(time.RFC3339Nano)
	path := writeFeed(t, fmt.Sprintf(`[
		{"timestamp": %q, "temperature": 20.0, "humidity": 50.0, "weather": "cloudy"},
		{"timestamp": %q, "temperature": 31.5, "humidity": 64.0, "weather": "sunny"}
	]`, now, now))

	src := NewFileEnvironmentSource(path, time.Minute, time.Second)
	reading, err := src.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if reading.Temperature != 31.5 {
		t.Errorf("expected the last record's temperature 31.5, got %v", reading.Temperature)
	}
	if reading.Weather != "sunny" {
		t.Errorf("expected weather sunny, got %q", reading.Weather)
	}
}

func TestFileEnvironmentSource_SingleObject(t *testing.T) {
	now := time.Now().Format(time.RFC3339Nano)
	path := writeFeed(t, fmt.Sprintf(`{"timestamp": %q, "temperature": 18.0, "humidity": 45.0, "weather": "clear"}`, now))

	src := NewFileEnvironmentSource(path, time.Minute, time.Second)
	reading, err := src.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if reading.Humidity != 45.0 {
		t.Errorf("expected humidity 45.0, got %v", reading.Humidity)
	}
}

func TestFileEnvironmentSource_NaiveTimestamp(t *testing.T) {
	// Some sensor writers emit timestamps without a zone offset.
	naive := time.Now().Format("2006-01-02T15:04:05.999999")
	path := writeFeed(t, fmt.Sprintf(`[{"timestamp": %q, "temperature": 22.0, "humidity": 55.0}]`, naive))

	src := NewFileEnvironmentSource(path, time.Minute, time.Second)
	if _, err := src.Latest(context.Background()); err != nil {
		t.Fatalf("naive timestamp should parse, got error: %v", err)
	}
}

func TestFileEnvironmentSource_Unavailable(t *testing.T) {
	stale := time.Now().Add(-10 * time.Minute).Format(time.RFC3339Nano)
	now := time.Now().Format(time.RFC3339Nano)

	testCases := []struct {
		name    string
		content string
		missing bool
	}{
		{name: "missing file", missing: true},
		{name: "empty file", content: ""},
		{name: "torn write", content: `[{"timestamp": "2026-01-01T00:00:00Z", "temper`},
		{name: "empty array", content: `[]`},
		{name: "scalar payload", content: `42`},
		{name: "no timestamp", content: `[{"temperature": 20.0, "humidity": 50.0}]`},
		{name: "bad timestamp", content: `[{"timestamp": "yesterday", "temperature": 20.0, "humidity": 50.0}]`},
		{name: "missing humidity", content: fmt.Sprintf(`[{"timestamp": %q, "temperature": 20.0}]`, now)},
		{name: "stale sample", content: fmt.Sprintf(`[{"timestamp": %q, "temperature": 20.0, "humidity": 50.0}]`, stale)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "feed.json")
			if !tc.missing {
				if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
					t.Fatalf("write feed: %v", err)
				}
			}
			src := NewFileEnvironmentSource(path, 2*time.Minute, time.Second)
			_, err := src.Latest(context.Background())
			if !errors.Is(err, ErrDataUnavailable) {
				t.Errorf("expected ErrDataUnavailable, got %v", err)
			}
		})
	}
}

func TestFileAudienceSource_Detections(t *testing.T) {
	now := time.Now().Format(time.RFC3339Nano)
	path := writeFeed(t, fmt.Sprintf(`[{
		"timestamp": %q,
		"count": 2,
		"detections": [
			{"age": 34.0, "gender": "M"},
			{"age": 29.0, "gender": "F"},
			{"gender": "M"}
		]
	}]`, now))

	src := NewFileAudienceSource(path, time.Minute, time.Second)
	reading, err := src.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if len(reading.Detections) != 2 {
		t.Fatalf("expected the ageless detection to be skipped, got %d detections", len(reading.Detections))
	}
	if reading.Count != 2 {
		t.Errorf("expected count 2, got %d", reading.Count)
	}
	if reading.Detections[0].Gender != "M" || reading.Detections[1].Age != 29.0 {
		t.Errorf("detections not parsed in order: %+v", reading.Detections)
	}
}

func TestFileAudienceSource_CountBackfill(t *testing.T) {
	now := time.Now().Format(time.RFC3339Nano)
	path := writeFeed(t, fmt.Sprintf(`[{
		"timestamp": %q,
		"detections": [{"age": 10.0, "gender": "F"}, {"age": 40.0, "gender": "M"}]
	}]`, now))

	src := NewFileAudienceSource(path, time.Minute, time.Second)
	reading, err := src.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if reading.Count != 2 {
		t.Errorf("count should never be below the detection count, got %d", reading.Count)
	}
}

func TestFileAudienceSource_ZeroDetectionsIsValid(t *testing.T) {
	now := time.Now().Format(time.RFC3339Nano)
	path := writeFeed(t, fmt.Sprintf(`[{"timestamp": %q, "count": 0, "detections": []}]`, now))

	src := NewFileAudienceSource(path, time.Minute, time.Second)
	reading, err := src.Latest(context.Background())
	if err != nil {
		t.Fatalf("an empty detection batch is valid data, got error: %v", err)
	}
	if len(reading.Detections) != 0 || reading.Count != 0 {
		t.Errorf("expected empty reading, got %+v", reading)
	}
}

func TestReader_Fallbacks(t *testing.T) {
	thresholds := config.ClassifierThresholds{TempHighC: 25, TempLowC: 15, HumidityHighPct: 70, HumidityLowPct: 40}
	reader := NewReader(
		StaticEnvironment{Err: ErrDataUnavailable},
		StaticAudience{Err: ErrDataUnavailable},
		thresholds,
		zap.NewNop(),
		observability.NewNoOpRegistry(),
	)

	env := reader.EnvironmentalContext(context.Background())
	if env.TemperatureCategory != models.TempAny || env.HumidityCategory != models.HumidityAny {
		t.Errorf("expected neutral any/any context, got %s/%s", env.TemperatureCategory, env.HumidityCategory)
	}
	if !env.Fallback {
		t.Error("neutral context should be flagged as fallback")
	}

	profile := reader.AudienceProfile(context.Background())
	if profile.Present {
		t.Error("fallback profile should report audience absent")
	}
	if !profile.Fallback {
		t.Error("fallback profile should be flagged as fallback")
	}
}

func TestReader_ClassifiesReadings(t *testing.T) {
	thresholds := config.ClassifierThresholds{TempHighC: 25, TempLowC: 15, HumidityHighPct: 70, HumidityLowPct: 40}
	reader := NewReader(
		StaticEnvironment{Reading: models.EnvironmentReading{
			Timestamp:   time.Now(),
			Temperature: 32.0,
			Humidity:    65.0,
			Weather:     "sunny",
		}},
		StaticAudience{Reading: models.AudienceReading{
			Timestamp: time.Now(),
			Count:     3,
			Detections: []models.Detection{
				{Age: 25, Gender: "M"},
				{Age: 31, Gender: "M"},
				{Age: 28, Gender: "F"},
			},
		}},
		thresholds,
		zap.NewNop(),
		observability.NewNoOpRegistry(),
	)

	env := reader.EnvironmentalContext(context.Background())
	if env.TemperatureCategory != models.TempHot {
		t.Errorf("expected hot, got %s", env.TemperatureCategory)
	}
	if env.HumidityCategory != models.HumidityMedium {
		t.Errorf("expected medium, got %s", env.HumidityCategory)
	}
	if env.Fallback {
		t.Error("live reading should not be flagged as fallback")
	}

	profile := reader.AudienceProfile(context.Background())
	if !profile.Present {
		t.Fatal("expected audience present")
	}
	if profile.AgeGroup != models.AgeAdult {
		t.Errorf("expected adult majority, got %s", profile.AgeGroup)
	}
	if profile.GenderDistribution != models.GenderMostlyMale {
		t.Errorf("two of three male is a >60%% majority, got %s", profile.GenderDistribution)
	}
}
