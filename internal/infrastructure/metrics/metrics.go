// Package metrics exposes Prometheus collectors for sync jobs and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "inventory_sync"

// Metrics holds every collector of the service. Collectors are registered
// on the registerer passed to New, so tests can use a fresh registry.
type Metrics struct {
	// Sync jobs
	JobsStarted        prometheus.Counter
	JobsFinished       *prometheus.CounterVec // status
	JobDuration        prometheus.Histogram
	JobProgress        prometheus.Gauge
	JobRunning         prometheus.Gauge
	LogEntries         *prometheus.CounterVec // platform, status
	ErrorThresholdHits prometheus.Counter
	ScheduledSkips     prometheus.Counter

	// Platform calls
	PlatformRequests *prometheus.CounterVec // platform, operation, status

	// HTTP API
	HTTPRequests        *prometheus.CounterVec // method, route, code
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		JobsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Total number of sync jobs started",
		}),
		JobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Total number of sync jobs that reached a terminal state",
		}, []string{"status"}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall-clock duration of sync jobs",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		JobProgress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_progress_percent",
			Help:      "Progress of the active sync job",
		}),
		JobRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_running",
			Help:      "1 while a sync job is running",
		}),
		LogEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_entries_total",
			Help:      "Total number of sync log entries recorded",
		}, []string{"platform", "status"}),
		ErrorThresholdHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "error_threshold_exceeded_total",
			Help:      "Number of jobs whose failures reached the error threshold",
		}),
		ScheduledSkips: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_sync_skipped_total",
			Help:      "Scheduled syncs skipped because a job was already running",
		}),
		PlatformRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "platform_requests_total",
			Help:      "Total number of platform update requests",
		}, []string{"platform", "operation", "status"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordJobStarted marks the start of a job
func (m *Metrics) RecordJobStarted() {
	m.JobsStarted.Inc()
	m.JobRunning.Set(1)
	m.JobProgress.Set(0)
}

// RecordProgress updates the progress gauge
func (m *Metrics) RecordProgress(percent int) {
	m.JobProgress.Set(float64(percent))
}

// RecordJobFinished records a terminal job
func (m *Metrics) RecordJobFinished(status string, duration time.Duration) {
	m.JobsFinished.WithLabelValues(status).Inc()
	m.JobDuration.Observe(duration.Seconds())
	m.JobRunning.Set(0)
}

// RecordLogEntry counts a log entry
func (m *Metrics) RecordLogEntry(platform, status string) {
	m.LogEntries.WithLabelValues(platform, status).Inc()
}

// RecordPlatformRequest counts a platform update call
func (m *Metrics) RecordPlatformRequest(platform, operation string, err error) {
	m.PlatformRequests.WithLabelValues(platform, operation, StatusFromError(err)).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route string, code int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// StatusFromError returns "error" for a non-nil error, otherwise "success"
func StatusFromError(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
