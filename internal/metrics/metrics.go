package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by route template, method and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "survey_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPDuration observes request latency by route template and method.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "survey_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Responses counts recorded responses, split into answered and skipped.
	Responses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "survey_responses_total",
			Help: "Total number of recorded survey responses",
		},
		[]string{"kind"}, // answered, skipped
	)

	// Submissions counts submitted answer batches by outcome.
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "survey_submissions_total",
			Help: "Total number of submitted answer batches",
		},
		[]string{"status"}, // success, failure
	)

	// AnalyticsComputations counts statistics computations by snapshot source.
	AnalyticsComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "survey_analytics_computations_total",
			Help: "Total number of analytics computations",
		},
		[]string{"source"},
	)

	// SnapshotCache counts snapshot cache lookups by result.
	SnapshotCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "survey_snapshot_cache_total",
			Help: "Analytics snapshot cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	// StreamClients tracks connected live analytics clients.
	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "survey_analytics_stream_clients",
			Help: "Current number of live analytics stream connections",
		},
	)
)
