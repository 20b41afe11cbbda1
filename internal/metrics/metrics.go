package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks the number of outbound API calls to the venue.
	VenueRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delta_api_requests_total",
			Help: "Total number of Delta API requests made (by endpoint and method).",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Measures duration of API requests to the venue.
	VenueRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delta_api_request_duration_seconds",
			Help:    "Duration of Delta API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"endpoint", "method"},
	)

	// Tracks adapter operation outcomes by the normalized result tag.
	AdapterOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_operations_total",
			Help: "Adapter operations by name and normalized outcome (success|failure).",
		},
		[]string{"operation", "outcome"},
	)

	// Gauges in-flight blocking calls hosted by the gateway worker pool.
	GatewayInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_inflight_calls",
			Help: "Number of blocking venue calls currently running on gateway workers.",
		},
	)

	// Tracks NATS messages processed by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages processed.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks cache hits and misses for secrets / credentials.
	SecretsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secrets_cache_access_total",
			Help: "Number of cache hits/misses in secret cache.",
		},
		[]string{"result"}, // hit | miss
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_errors_total",
			Help: "Count of adapter-level errors by component.",
		},
		[]string{"component", "reason"},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v interface{}, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// counters are not meant for duration tracking
	}
}

func IncVenueRequest(endpoint, method, status string) {
	VenueRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

func IncAdapterOp(operation string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	AdapterOpsTotal.WithLabelValues(operation, outcome).Inc()
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncCacheHit(result string) {
	SecretsCacheHits.WithLabelValues(result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}
