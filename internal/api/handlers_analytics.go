// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/safepulse/internal/cache"
	"github.com/tomtom215/safepulse/internal/dispatch"
	"github.com/tomtom215/safepulse/internal/logging"
	"github.com/tomtom215/safepulse/internal/trends"
	"github.com/tomtom215/safepulse/internal/validation"
)

// AnalyzeTrends handles GET /api/analytics/trends?time_range=7d&location=lat,lng.
func (h *Handler) AnalyzeTrends(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q := r.URL.Query()
	req := trends.Request{
		TimeRange: q.Get("time_range"),
		Location:  q.Get("location"),
	}
	if req.TimeRange == "" {
		req.TimeRange = trends.DefaultTimeRange
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	key := cache.GenerateKey("trends", req)
	var cached trends.Report
	if h.cache.Get(key, &cached) {
		respondSuccess(w, r, cached, start, true)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	report, err := h.analyzer.Analyze(ctx, req)
	switch {
	case errors.Is(err, trends.ErrInsufficientTrendData):
		respondError(w, r, http.StatusBadRequest, ErrCodeInsufficientData, "Insufficient data for trend analysis", nil)
		return
	case errors.Is(err, trends.ErrInvalidTimeRange):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Trend analysis failed", err)
		return
	}

	if err := h.cache.Set(key, report); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to cache trend report")
	}
	respondSuccess(w, r, report, start, false)
}

// OptimizeResponse handles POST /api/emergency/optimize-response.
func (h *Handler) OptimizeResponse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req dispatch.Request
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()
	respondSuccess(w, r, h.optimizer.Optimize(ctx, req), start, false)
}
