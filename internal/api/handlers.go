// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package api

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/safepulse/internal/anomaly"
	"github.com/tomtom215/safepulse/internal/cache"
	"github.com/tomtom215/safepulse/internal/datasource"
	"github.com/tomtom215/safepulse/internal/dispatch"
	"github.com/tomtom215/safepulse/internal/logging"
	"github.com/tomtom215/safepulse/internal/risk"
	"github.com/tomtom215/safepulse/internal/training"
	"github.com/tomtom215/safepulse/internal/trends"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "1.0.0"

// DefaultQueryTimeout bounds a single request's work when none is configured.
const DefaultQueryTimeout = 30 * time.Second

// Dependencies are the components served by the handlers.
type Dependencies struct {
	Predictor *risk.Predictor
	Detector  *anomaly.Detector
	Analyzer  *trends.Analyzer
	Optimizer *dispatch.Optimizer
	Ingester  datasource.Ingester
	Trainer   *training.Coordinator

	// Cache may be nil, which disables response caching.
	Cache *cache.PredictionCache

	// RetrainPerHour limits POST /api/models/retrain. Zero disables the limit.
	RetrainPerHour int

	// Predictions at or above these levels are logged as alerts. Zero
	// selects DefaultRiskThreshold and DefaultAnomalyThreshold.
	RiskThreshold    float64
	AnomalyThreshold float64

	QueryTimeout time.Duration
}

// Handler serves the SafePulse HTTP API.
//
// Handler methods are split across files by area:
//   - handlers_predict.go: route and area risk
//   - handlers_detect.go: anomaly detection
//   - handlers_analytics.go: trends and response optimization
//   - handlers_models.go: model status and retraining
//   - handlers_ingest.go: incident and location ingestion
//   - handlers_health.go: health check
type Handler struct {
	predictor *risk.Predictor
	detector  *anomaly.Detector
	analyzer  *trends.Analyzer
	optimizer *dispatch.Optimizer
	ingester  datasource.Ingester
	trainer   *training.Coordinator
	cache     *cache.PredictionCache

	retrainLimiter   *rate.Limiter
	riskThreshold    float64
	anomalyThreshold float64
	queryTimeout     time.Duration
	startTime        time.Time
	now              func() time.Time
}

// NewHandler creates a handler over deps.
func NewHandler(deps Dependencies) *Handler {
	timeout := deps.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}

	h := &Handler{
		predictor:        deps.Predictor,
		detector:         deps.Detector,
		analyzer:         deps.Analyzer,
		optimizer:        deps.Optimizer,
		ingester:         deps.Ingester,
		trainer:          deps.Trainer,
		cache:            deps.Cache,
		riskThreshold:    deps.RiskThreshold,
		anomalyThreshold: deps.AnomalyThreshold,
		queryTimeout:     timeout,
		startTime:        time.Now(),
		now:              time.Now,
	}
	if h.riskThreshold <= 0 {
		h.riskThreshold = DefaultRiskThreshold
	}
	if h.anomalyThreshold <= 0 {
		h.anomalyThreshold = DefaultAnomalyThreshold
	}

	if deps.RetrainPerHour > 0 {
		// Burst of one: a full hour's allowance cannot be spent at once.
		h.retrainLimiter = rate.NewLimiter(rate.Every(time.Hour/time.Duration(deps.RetrainPerHour)), 1)
	}
	return h
}

// ClearCache drops every cached prediction.
func (h *Handler) ClearCache() {
	if err := h.cache.Invalidate(); err != nil {
		logging.Warn().Err(err).Msg("Failed to clear prediction cache")
		return
	}
	logging.Info().Msg("Prediction cache cleared")
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.queryTimeout)
}

// serveCached writes the cached response for key when present, otherwise
// computes it, stores it and writes it. compute reports whether its result
// may be cached.
func serveCached[T any](h *Handler, w http.ResponseWriter, r *http.Request, key string, start time.Time, compute func(ctx context.Context) (T, bool)) {
	var cached T
	if h.cache.Get(key, &cached) {
		respondSuccess(w, r, cached, start, true)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	result, cacheable := compute(ctx)
	if cacheable {
		if err := h.cache.Set(key, result); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("key", key).Msg("Failed to cache response")
		}
	}
	respondSuccess(w, r, result, start, false)
}
