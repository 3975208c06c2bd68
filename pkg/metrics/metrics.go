package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// StageDurationSeconds is the wall time of one pipeline stage.
	StageDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nutriapp",
		Subsystem: "qa",
		Name:      "stage_duration_seconds",
		Help:      "Time spent in each orchestration stage.",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	// RequestsTotal counts pipeline runs by outcome.
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutriapp",
		Subsystem: "qa",
		Name:      "requests_total",
		Help:      "Total number of orchestration runs, labeled by outcome.",
	}, []string{"outcome"})

	// BackendAttemptsTotal counts generation attempts by model and result.
	BackendAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutriapp",
		Subsystem: "qa",
		Name:      "backend_attempts_total",
		Help:      "Total number of generation attempts, labeled by model and result.",
	}, []string{"model", "result"})

	UploadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nutriapp",
		Subsystem: "qa",
		Name:      "upload_failures_total",
		Help:      "Total number of remote uploads that fell back to inline embedding.",
	})

	CleanupFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nutriapp",
		Subsystem: "qa",
		Name:      "cleanup_failures_total",
		Help:      "Total number of remote deletions that failed.",
	})

	// AsyncTasksTotal counts async QA jobs by final status.
	AsyncTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutriapp",
		Subsystem: "worker",
		Name:      "tasks_total",
		Help:      "Total number of async QA tasks processed, labeled by status.",
	}, []string{"status"})

	// HTTPRequestDurationSeconds is the latency of API requests.
	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nutriapp",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency, labeled by route and status code.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"route", "method", "code"})
)

// Register registers the service metrics with the default Prometheus
// registry. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			StageDurationSeconds,
			RequestsTotal,
			BackendAttemptsTotal,
			UploadFailuresTotal,
			CleanupFailuresTotal,
			AsyncTasksTotal,
			HTTPRequestDurationSeconds,
		)
	})
}
