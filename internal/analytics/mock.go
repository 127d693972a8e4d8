package analytics

import (
	"context"
	"sync"

	"github.com/edgy2009/adboard/internal/models"
)

var _ AnalyticsService = (*MockAnalytics)(nil)

// MockAnalytics is a mock implementation of AnalyticsService for testing.
// It accumulates recorded events so tests can assert on them.
type MockAnalytics struct {
	mu     sync.Mutex
	Events []EventRecord
}

// NewMockAnalytics creates a new mock analytics instance
func NewMockAnalytics() *MockAnalytics {
	return &MockAnalytics{}
}

// RecordDecision records a decision event (mock implementation)
func (m *MockAnalytics) RecordDecision(ctx context.Context, boardID, decisionID, adID, stage string, score float64, env models.EnvironmentalContext, audience models.AudienceProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EventRecord{
		EventType:  "decision",
		BoardID:    boardID,
		DecisionID: decisionID,
		AdID:       adID,
		Stage:      &stage,
		Score:      score,
	})
	return nil
}

// RecordDisplay records a display event (mock implementation)
func (m *MockAnalytics) RecordDisplay(ctx context.Context, boardID, decisionID, adID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EventRecord{
		EventType:  "display",
		BoardID:    boardID,
		DecisionID: decisionID,
		AdID:       adID,
	})
	return nil
}

// EventCount returns the number of recorded events of the given type.
func (m *MockAnalytics) EventCount(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.Events {
		if ev.EventType == eventType {
			n++
		}
	}
	return n
}
