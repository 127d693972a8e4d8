package observability

import "time"

// MockMetricsRegistry is a mock implementation of MetricsRegistry for testing
type MockMetricsRegistry struct{}

// HTTP request metrics
func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Decision metrics
func (m *MockMetricsRegistry) IncrementDecisions(outcome string)            {}
func (m *MockMetricsRegistry) RecordDecisionLatency(duration time.Duration) {}
func (m *MockMetricsRegistry) IncrementDecisionStage(stage string)          {}
func (m *MockMetricsRegistry) IncrementDisplays(adID string)                {}

// Feed metrics
func (m *MockMetricsRegistry) IncrementFeedErrors(feed string) {}

// History metrics
func (m *MockMetricsRegistry) SetHistorySize(size int)    {}
func (m *MockMetricsRegistry) IncrementHistoryConflicts() {}

// Transport metrics
func (m *MockMetricsRegistry) SetWSClients(count int)                  {}
func (m *MockMetricsRegistry) IncrementRateLimitHits(endpoint string)  {}
func (m *MockMetricsRegistry) IncrementWeatherRequests(outcome string) {}
func (m *MockMetricsRegistry) IncrementMQTTSamples(feed string)        {}
