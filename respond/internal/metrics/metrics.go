package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatlens_respond_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threatlens_respond_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Ingestion metrics
	RecordsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatlens_respond_records_submitted_total",
			Help: "Total number of source records persisted",
		},
		[]string{"kind"},
	)

	RecordsReanalyzed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatlens_respond_records_reanalyzed_total",
			Help: "Total number of pending records analyzed by the background sweep",
		},
		[]string{"kind"},
	)

	// Prediction metrics
	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threatlens_respond_prediction_duration_seconds",
			Help:    "Duration of prediction service calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	PredictionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatlens_respond_prediction_errors_total",
			Help: "Total number of failed prediction calls",
		},
		[]string{"kind"},
	)

	// Alert metrics
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatlens_respond_alerts_created_total",
			Help: "Total number of alerts created",
		},
		[]string{"alert_type", "severity"},
	)

	AlertCreateFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatlens_respond_alert_create_failures_total",
			Help: "Total number of anomalies whose alert could not be created",
		},
		[]string{"alert_type"},
	)

	AlertStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatlens_respond_alert_status_changes_total",
			Help: "Total number of alert status changes by target status",
		},
		[]string{"status"},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threatlens_respond_rate_limit_hits_total",
			Help: "Total number of submissions rejected by the rate limiter",
		},
	)

	// Event publishing metrics
	EventPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatlens_respond_event_publish_errors_total",
			Help: "Total number of alert events that failed to publish",
		},
		[]string{"subject"},
	)
)
