// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/safepulse/internal/anomaly"
	"github.com/tomtom215/safepulse/internal/risk"
	"github.com/tomtom215/safepulse/internal/training"
	"github.com/tomtom215/safepulse/internal/trends"
)

// RetrainTimeout bounds a retrain triggered over HTTP. The run is detached
// from the client connection so a disconnect does not abort training.
const RetrainTimeout = 10 * time.Minute

// ModelStatusResponse is the body of GET /api/models/status.
type ModelStatusResponse struct {
	RiskPredictor   risk.Status    `json:"risk_predictor"`
	AnomalyDetector anomaly.Status `json:"anomaly_detector"`
	PatternAnalyzer trends.Status  `json:"pattern_analyzer"`
	LastUpdated     time.Time      `json:"last_updated"`
}

func (h *Handler) modelStatus() ModelStatusResponse {
	return ModelStatusResponse{
		RiskPredictor:   h.predictor.Status(),
		AnomalyDetector: h.detector.Status(),
		PatternAnalyzer: h.analyzer.Status(),
		LastUpdated:     h.now().UTC(),
	}
}

// ModelStatus handles GET /api/models/status.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, h.modelStatus(), time.Now(), false)
}

// RetrainResponse is the body of a completed retrain.
type RetrainResponse struct {
	ModelType string `json:"model_type"`
	training.Report
	DurationMS int64 `json:"duration_ms"`
}

// RetrainModels handles POST /api/models/retrain. An empty body retrains
// every model.
func (h *Handler) RetrainModels(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body RetrainRequest
	if r.ContentLength != 0 {
		if !decodeAndValidate(w, r, &body) {
			return
		}
	}
	if body.ModelType == "" {
		body.ModelType = training.All
	}
	if !h.trainer.Known(body.ModelType) {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Unknown model type: "+sanitizeLogValue(body.ModelType), nil)
		return
	}

	if h.retrainLimiter != nil && !h.retrainLimiter.Allow() {
		respondError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests, "Retraining was requested too recently", nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), RetrainTimeout)
	defer cancel()

	report, err := h.trainer.Retrain(ctx, body.ModelType)
	if errors.Is(err, training.ErrUnknownModel) {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Retraining failed", err)
		return
	}

	respondSuccess(w, r, RetrainResponse{
		ModelType:  body.ModelType,
		Report:     report,
		DurationMS: report.Duration.Milliseconds(),
	}, start, false)
}
