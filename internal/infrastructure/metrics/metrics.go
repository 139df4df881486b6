package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Generation flow
	GenerationRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rnet_generation_requests_total",
			Help: "Total number of generation requests accepted",
		},
	)
	GenerationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rnet_generation_duration_seconds",
			Help:    "Histogram of end-to-end generation durations in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s..128s
		},
	)
	FilesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rnet_files_written_total",
			Help: "Total number of generated files written to the workspace",
		},
	)

	// Backend calls
	BackendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rnet_backend_requests_total",
			Help: "Number of backend requests by operation",
		},
		[]string{"operation"}, // operation: health|generate
	)

	// Websockets / realtime
	PanelConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rnet_panel_connections",
			Help: "Current number of open panel websocket connections",
		},
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rnet_errors_total",
			Help: "Classified errors encountered in components",
		},
		[]string{"component", "kind"},
	)
)

func init() {
	prometheus.MustRegister(
		GenerationRequests,
		GenerationDurationSeconds,
		FilesWritten,
		BackendRequests,
		PanelConnections,
		Errors,
	)
}

// Generation
func IncGenerationRequest() {
	GenerationRequests.Inc()
}

func ObserveGenerationDuration(d time.Duration) {
	GenerationDurationSeconds.Observe(d.Seconds())
}

func AddFilesWritten(n int) {
	FilesWritten.Add(float64(n))
}

// Backend
func IncBackendRequest(operation string) {
	BackendRequests.WithLabelValues(operation).Inc()
}

// Websocket
func IncPanelConnections() {
	PanelConnections.Inc()
}

func DecPanelConnections() {
	PanelConnections.Dec()
}

// Errors
func IncError(component, kind string) {
	Errors.WithLabelValues(component, kind).Inc()
}
