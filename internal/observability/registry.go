package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics
// This replaces direct access to global Prometheus metrics with dependency injection
type MetricsRegistry interface {
	// HTTP Request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Decision cycle metrics
	IncrementDecisions(outcome string)
	RecordDecisionLatency(duration time.Duration)
	IncrementDecisionStage(stage string)

	// Display metrics
	IncrementDisplays(adID string)

	// Feed metrics
	IncrementFeedErrors(feed string)

	// History metrics
	SetHistorySize(size int)
	IncrementHistoryConflicts()

	// Websocket metrics
	SetWSClients(count int)

	// Rate limiting metrics
	IncrementRateLimitHits(endpoint string)

	// Weather client metrics
	IncrementWeatherRequests(outcome string)

	// MQTT ingest metrics
	IncrementMQTTSamples(feed string)
}

// PrometheusRegistry implements MetricsRegistry using the existing global Prometheus metrics
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

// HTTP Request metrics
func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Decision cycle metrics
func (r *PrometheusRegistry) IncrementDecisions(outcome string) {
	DecisionCount.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) RecordDecisionLatency(duration time.Duration) {
	DecisionLatency.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementDecisionStage(stage string) {
	DecisionStage.WithLabelValues(stage).Inc()
}

// Display metrics
func (r *PrometheusRegistry) IncrementDisplays(adID string) {
	DisplayCount.WithLabelValues(adID).Inc()
}

// Feed metrics
func (r *PrometheusRegistry) IncrementFeedErrors(feed string) {
	FeedErrors.WithLabelValues(feed).Inc()
}

// History metrics
func (r *PrometheusRegistry) SetHistorySize(size int) {
	HistorySize.Set(float64(size))
}

func (r *PrometheusRegistry) IncrementHistoryConflicts() {
	HistoryConflicts.Inc()
}

// Websocket metrics
func (r *PrometheusRegistry) SetWSClients(count int) {
	WSClients.Set(float64(count))
}

// Rate limiting metrics
func (r *PrometheusRegistry) IncrementRateLimitHits(endpoint string) {
	RateLimitHits.WithLabelValues(endpoint).Inc()
}

// Weather client metrics
func (r *PrometheusRegistry) IncrementWeatherRequests(outcome string) {
	WeatherRequests.WithLabelValues(outcome).Inc()
}

// MQTT ingest metrics
func (r *PrometheusRegistry) IncrementMQTTSamples(feed string) {
	MQTTSamples.WithLabelValues(feed).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

// HTTP Request metrics
func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}

// Decision cycle metrics
func (r *NoOpRegistry) IncrementDecisions(outcome string)             {}
func (r *NoOpRegistry) RecordDecisionLatency(duration time.Duration)  {}
func (r *NoOpRegistry) IncrementDecisionStage(stage string)           {}

// Display metrics
func (r *NoOpRegistry) IncrementDisplays(adID string) {}

// Feed metrics
func (r *NoOpRegistry) IncrementFeedErrors(feed string) {}

// History metrics
func (r *NoOpRegistry) SetHistorySize(size int)      {}
func (r *NoOpRegistry) IncrementHistoryConflicts()   {}

// Websocket metrics
func (r *NoOpRegistry) SetWSClients(count int) {}

// Rate limiting metrics
func (r *NoOpRegistry) IncrementRateLimitHits(endpoint string) {}

// Weather client metrics
func (r *NoOpRegistry) IncrementWeatherRequests(outcome string) {}

// MQTT ingest metrics
func (r *NoOpRegistry) IncrementMQTTSamples(feed string) {}
