// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safepulse_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safepulse_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "safepulse_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safepulse_api_rate_limit_hits_total",
			Help: "Total number of requests rejected by rate limiting",
		},
		[]string{"path"},
	)

	// Prediction Metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safepulse_predictions_total",
			Help: "Total number of predictions by type and source",
		},
		[]string{"type", "source"}, // source: "model", "heuristic"
	)

	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safepulse_anomalies_detected_total",
			Help: "Total number of anomalies flagged by test",
		},
		[]string{"type"},
	)

	// Training Metrics
	ModelTrainingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safepulse_model_training_total",
			Help: "Total number of training runs by model and result",
		},
		[]string{"model", "result"}, // result: "success", "refused", "error"
	)

	ModelTrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safepulse_model_training_duration_seconds",
			Help:    "Duration of model training runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	ModelVersion = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "safepulse_model_version",
			Help: "Version number of the active model snapshot",
		},
		[]string{"model"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safepulse_cache_hits_total",
			Help: "Total number of prediction cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safepulse_cache_misses_total",
			Help: "Total number of prediction cache misses",
		},
	)

	// Data Source Metrics
	DataSourceQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safepulse_datasource_query_duration_seconds",
			Help:    "Duration of data source queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	DataSourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safepulse_datasource_errors_total",
			Help: "Total number of failed data source queries",
		},
		[]string{"query"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "safepulse_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safepulse_circuit_breaker_requests_total",
			Help: "Requests passing through the circuit breaker by result",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	// Audit Metrics
	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safepulse_audit_events_dropped_total",
			Help: "Prediction audit events dropped because the buffer was full",
		},
	)

	AuditEventsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "safepulse_audit_events_written_total",
			Help: "Prediction audit events persisted",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "safepulse_app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records a served API request.
func RecordAPIRequest(method, path string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordPrediction records one scoring call. usedModel distinguishes a
// trained model from the heuristic fallback.
func RecordPrediction(predictionType string, usedModel bool) {
	source := "heuristic"
	if usedModel {
		source = "model"
	}
	PredictionsTotal.WithLabelValues(predictionType, source).Inc()
}

// RecordAnomaly records the outcome of an anomaly test.
func RecordAnomaly(testType string, isAnomaly bool) {
	PredictionsTotal.WithLabelValues(testType, "statistical").Inc()
	if isAnomaly {
		AnomaliesDetected.WithLabelValues(testType).Inc()
	}
}

// RecordTraining records a training run. refused marks a run rejected for
// insufficient data; it is reported separately from errors.
func RecordTraining(model string, duration time.Duration, refused bool, err error) {
	ModelTrainingDuration.WithLabelValues(model).Observe(duration.Seconds())
	switch {
	case refused:
		ModelTrainingTotal.WithLabelValues(model, "refused").Inc()
	case err != nil:
		ModelTrainingTotal.WithLabelValues(model, "error").Inc()
	default:
		ModelTrainingTotal.WithLabelValues(model, "success").Inc()
	}
}

// SetModelVersion publishes the active snapshot version of a model.
func SetModelVersion(model string, version int) {
	ModelVersion.WithLabelValues(model).Set(float64(version))
}

// RecordCacheLookup records a prediction cache lookup.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheHits.Inc()
	} else {
		CacheMisses.Inc()
	}
}

// RecordDataSourceQuery records a data source query.
func RecordDataSourceQuery(query string, duration time.Duration, err error) {
	DataSourceQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
	if err != nil {
		DataSourceErrors.WithLabelValues(query).Inc()
	}
}
