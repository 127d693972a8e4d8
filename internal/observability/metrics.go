package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adboard_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adboard_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// decision cycles, labelled by outcome (selected, empty_catalog, error)
	DecisionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adboard_decisions_total",
			Help: "Total decision cycles run",
		},
		[]string{"outcome"},
	)

	// latency of one decision cycle, feed read included
	DecisionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adboard_decision_duration_seconds",
			Help:    "Duration of decision cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	// filter stage that produced the candidate set per cycle
	DecisionStage = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adboard_decision_stage_total",
			Help: "Filter stage the candidate set came from",
		},
		[]string{"stage"},
	)

	// confirmed displays per ad
	DisplayCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adboard_displays_total",
			Help: "Total confirmed ad displays",
		},
		[]string{"ad_id"},
	)

	// feed read failures per feed (environment, audience)
	FeedErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adboard_feed_errors_total",
			Help: "Total feed reads that fell back to the neutral context",
		},
		[]string{"feed"},
	)

	// current number of entries in the display history
	HistorySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "adboard_history_size",
			Help: "Entries currently held in the display history",
		},
	)

	// history persist conflicts that required a retry
	HistoryConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "adboard_history_conflicts_total",
			Help: "History writes retried due to lock contention",
		},
	)

	// connected websocket dashboard clients
	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "adboard_ws_clients",
			Help: "Currently connected websocket clients",
		},
	)

	// rate limit hits per endpoint
	RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adboard_ratelimit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// weather API requests labelled by outcome (success, failure)
	WeatherRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adboard_weather_requests_total",
			Help: "Total weather API lookups",
		},
		[]string{"outcome"},
	)

	// MQTT samples accepted per topic kind
	MQTTSamples = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adboard_mqtt_samples_total",
			Help: "Sensor samples received over MQTT",
		},
		[]string{"feed"},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		DecisionCount,
		DecisionLatency,
		DecisionStage,
		DisplayCount,
		FeedErrors,
		HistorySize,
		HistoryConflicts,
		WSClients,
		RateLimitHits,
		WeatherRequests,
		MQTTSamples,
	)
}
