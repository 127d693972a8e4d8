package ingest

import (
	"context"

	"github.com/edgy2009/adboard/internal/models"
)

// StaticEnvironment is an EnvironmentSource that always returns the same
// reading. It backs injected contexts in tests and simulator scenarios.
type StaticEnvironment struct {
	Reading models.EnvironmentReading
	Err     error
}

// Latest returns the fixed reading or error.
func (s StaticEnvironment) Latest(context.Context) (models.EnvironmentReading, error) {
	if s.Err != nil {
		return models.EnvironmentReading{}, s.Err
	}
	return s.Reading, nil
}

// StaticAudience is an AudienceSource that always returns the same reading.
type StaticAudience struct {
	Reading models.AudienceReading
	Err     error
}

// Latest returns the fixed reading or error.
func (s StaticAudience) Latest(context.Context) (models.AudienceReading, error) {
	if s.Err != nil {
		return models.AudienceReading{}, s.Err
	}
	return s.Reading, nil
}
