package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/stockpulse/stockpulse-backend/pkg/config"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal   prometheus.CounterVec
	HTTPRequestDuration prometheus.HistogramVec

	// Database operation metrics
	DBOperationDuration prometheus.HistogramVec

	// Pipeline task metrics
	TaskRunsTotal prometheus.CounterVec
	TaskDuration  prometheus.HistogramVec

	// Alert dispatch metrics
	AlertsCreatedTotal    prometheus.CounterVec
	AlertsSuppressedTotal prometheus.CounterVec

	// Ingestion metrics
	MovementsIngestedTotal prometheus.CounterVec

	// Health classification metrics
	HealthStatusGauge prometheus.GaugeVec

	// Event publishing metrics
	EventsPublishedTotal prometheus.CounterVec

	initialized bool
)

// Init initializes Prometheus metrics with configuration. It must be called
// once at startup before any Record helper; helpers are no-ops until then so
// unit tests can exercise instrumented code without a registry.
func Init(cfg *config.Config) {
	prefix := cfg.Metrics.Prefix

	HTTPRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	DBOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	TaskRunsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_task_runs_total",
			Help: "Total number of pipeline task runs by outcome",
		},
		[]string{"task", "status"},
	)

	// Pipeline tasks scan whole tables, so the default buckets top out too low.
	TaskDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_task_duration_seconds",
			Help:    "Duration of pipeline task runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"task"},
	)

	AlertsCreatedTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_alerts_created_total",
			Help: "Total number of alert records created",
		},
		[]string{"mode", "alert_type"},
	)

	AlertsSuppressedTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_alerts_suppressed_total",
			Help: "Total number of alerts suppressed by deduplication",
		},
		[]string{"mode"},
	)

	MovementsIngestedTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_movements_ingested_total",
			Help: "Total number of movement records ingested",
		},
		[]string{"source"},
	)

	HealthStatusGauge = *promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_health_records",
			Help: "Number of health records by status after the last refresh",
		},
		[]string{"status"},
	)

	EventsPublishedTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_events_published_total",
			Help: "Total number of events published to the message broker",
		},
		[]string{"event_type"},
	)

	initialized = true
}

// RecordHTTPRequest records a completed HTTP request
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if !initialized {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if !initialized {
			return
		}
		DBOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// RecordTaskRun records the outcome and duration of a pipeline task run
func RecordTaskRun(task, status string, duration time.Duration) {
	if !initialized {
		return
	}
	TaskRunsTotal.WithLabelValues(task, status).Inc()
	TaskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// RecordAlertsCreated increments the counter for created alerts
func RecordAlertsCreated(mode, alertType string, count int) {
	if !initialized || count == 0 {
		return
	}
	AlertsCreatedTotal.WithLabelValues(mode, alertType).Add(float64(count))
}

// RecordAlertsSuppressed increments the counter for deduplicated alerts
func RecordAlertsSuppressed(mode string, count int) {
	if !initialized || count == 0 {
		return
	}
	AlertsSuppressedTotal.WithLabelValues(mode).Add(float64(count))
}

// RecordMovementsIngested increments the counter for ingested movement records
func RecordMovementsIngested(source string, count int) {
	if !initialized || count == 0 {
		return
	}
	MovementsIngestedTotal.WithLabelValues(source).Add(float64(count))
}

// SetHealthStatusCount updates the gauge for health records in a given status
func SetHealthStatusCount(status string, count int) {
	if !initialized {
		return
	}
	HealthStatusGauge.WithLabelValues(status).Set(float64(count))
}

// RecordEventPublished increments the counter for published events
func RecordEventPublished(eventType string) {
	if !initialized {
		return
	}
	EventsPublishedTotal.WithLabelValues(eventType).Inc()
}
