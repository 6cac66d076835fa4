package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_fetcher_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_fetcher_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_fetcher_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Fetch pipeline metrics
var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_fetcher_fetches_total",
			Help: "Total number of fetch requests by outcome",
		},
		[]string{"outcome"}, // "completed", "failed", "rejected"
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_fetcher_fetch_duration_seconds",
			Help:    "End-to-end fetch pipeline duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_fetcher_fetch_bytes_total",
			Help: "Total bytes handled by the fetch pipeline",
		},
		[]string{"kind"}, // "downloaded", "stored"
	)

	CompressionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_fetcher_compressions_total",
			Help: "Number of fetches that required re-encoding to fit the size cap",
		},
	)
)

// External tool metrics
var (
	ToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_fetcher_tool_invocations_total",
			Help: "Total number of external tool invocations",
		},
		[]string{"tool", "status"}, // tool: "ffmpeg", "ffprobe", "yt-dlp"; status: "ok", "error"
	)

	ToolInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_fetcher_tool_invocation_duration_seconds",
			Help:    "External tool invocation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"tool"},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_fetcher_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_fetcher_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// RecordDBQuery records a database query outcome with its duration.
func RecordDBQuery(operation string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DBQueryTotal.WithLabelValues(operation, status).Inc()
	DBQueryDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordToolRun records an external tool invocation outcome with its duration.
func RecordToolRun(tool string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ToolInvocationsTotal.WithLabelValues(tool, status).Inc()
	ToolInvocationDuration.WithLabelValues(tool).Observe(seconds)
}
