package ingest

import (
	"context"
	"time"

	"github.com/tidwall/gjson"

	"github.com/edgy2009/adboard/internal/models"
)

// AudienceSource yields the most recent audience detection sample.
type AudienceSource interface {
	Latest(ctx context.Context) (models.AudienceReading, error)
}

// FileAudienceSource reads detection samples from the append-style JSON
// feed written by the audience analyzer process.
type FileAudienceSource struct {
	path    string
	maxAge  time.Duration
	timeout time.Duration
}

// NewFileAudienceSource creates a source for the feed at path. Samples older
// than maxAge are rejected; reads are bounded by timeout.
func NewFileAudienceSource(path string, maxAge, timeout time.Duration) *FileAudienceSource {
	return &FileAudienceSource{path: path, maxAge: maxAge, timeout: timeout}
}

// Latest returns the newest sample in the feed. A sample with zero
// detections is valid data, not an error; it means nobody is watching.
func (s *FileAudienceSource) Latest(ctx context.Context) (models.AudienceReading, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	rec, err := readLatestRecord(ctx, s.path)
	if err != nil {
		return models.AudienceReading{}, err
	}
	reading, err := parseAudienceRecord(rec)
	if err != nil {
		return models.AudienceReading{}, err
	}
	if err := checkAge(reading.Timestamp, s.maxAge); err != nil {
		return models.AudienceReading{}, err
	}
	return reading, nil
}

// parseAudienceRecord decodes one feed record. Detections missing an age are
// skipped rather than failing the whole sample.
func parseAudienceRecord(rec gjson.Result) (models.AudienceReading, error) {
	ts, err := recordTimestamp(rec)
	if err != nil {
		return models.AudienceReading{}, err
	}
	reading := models.AudienceReading{
		Timestamp: ts,
		Count:     int(rec.Get("count").Int()),
	}
	for _, d := range rec.Get("detections").Array() {
		age := d.Get("age")
		if !age.Exists() {
			continue
		}
		reading.Detections = append(reading.Detections, models.Detection{
			Age:    age.Float(),
			Gender: d.Get("gender").String(),
		})
	}
	if reading.Count < len(reading.Detections) {
		reading.Count = len(reading.Detections)
	}
	return reading, nil
}
