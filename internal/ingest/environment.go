package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/edgy2009/adboard/internal/models"
)

// EnvironmentSource yields the most recent environmental sample.
type EnvironmentSource interface {
	Latest(ctx context.Context) (models.EnvironmentReading, error)
}

// FileEnvironmentSource reads environmental samples from the append-style
// JSON feed written by the temperature/humidity sensor process.
type FileEnvironmentSource struct {
	path    string
	maxAge  time.Duration
	timeout time.Duration
}

// NewFileEnvironmentSource creates a source for the feed at path. Samples
// older than maxAge are rejected; reads are bounded by timeout.
func NewFileEnvironmentSource(path string, maxAge, timeout time.Duration) *FileEnvironmentSource {
	return &FileEnvironmentSource{path: path, maxAge: maxAge, timeout: timeout}
}

// Latest returns the newest sample in the feed.
func (s *FileEnvironmentSource) Latest(ctx context.Context) (models.EnvironmentReading, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	rec, err := readLatestRecord(ctx, s.path)
	if err != nil {
		return models.EnvironmentReading{}, err
	}
	reading, err := parseEnvironmentRecord(rec)
	if err != nil {
		return models.EnvironmentReading{}, err
	}
	if err := checkAge(reading.Timestamp, s.maxAge); err != nil {
		return models.EnvironmentReading{}, err
	}
	return reading, nil
}

// parseEnvironmentRecord decodes one feed record. Temperature and humidity
// are required; a record missing either is treated as a partial write.
func parseEnvironmentRecord(rec gjson.Result) (models.EnvironmentReading, error) {
	ts, err := recordTimestamp(rec)
	if err != nil {
		return models.EnvironmentReading{}, err
	}
	temp := rec.Get("temperature")
	hum := rec.Get("humidity")
	if !temp.Exists() || !hum.Exists() {
		return models.EnvironmentReading{}, fmt.Errorf("%w: environment record missing temperature or humidity", ErrDataUnavailable)
	}
	return models.EnvironmentReading{
		Timestamp:   ts,
		Temperature: temp.Float(),
		Humidity:    hum.Float(),
		Weather:     rec.Get("weather").String(),
	}, nil
}
