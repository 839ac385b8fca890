package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks the duration of HTTP requests
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "runboard_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestTotal counts HTTP requests by method, endpoint and status
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runboard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPRequestInFlight tracks the number of requests currently being served
	HTTPRequestInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "runboard_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// UpstreamRequestTotal counts calls to the tracking and hub platforms
	UpstreamRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runboard_upstream_requests_total",
			Help: "Total number of upstream platform requests",
		},
		[]string{"platform", "outcome"},
	)

	// RunsNormalizedTotal counts runs that produced a normalized record
	RunsNormalizedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runboard_runs_normalized_total",
			Help: "Total number of runs successfully normalized",
		},
	)

	// RunsDroppedTotal counts runs dropped during normalization
	RunsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runboard_runs_dropped_total",
			Help: "Total number of runs dropped because normalization failed",
		},
	)
)

// outcome label values for UpstreamRequestTotal
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// platform label values for UpstreamRequestTotal
const (
	PlatformTracking = "tracking"
	PlatformHub      = "hub"
)
