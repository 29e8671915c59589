// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package api

import (
	"net/http"

	"github.com/tomtom215/safepulse/internal/logging"
	"github.com/tomtom215/safepulse/internal/models"
)

// Default alert thresholds.
const (
	DefaultRiskThreshold    = 0.7
	DefaultAnomalyThreshold = 0.8
)

// alertRisk logs a risk score at or above the configured threshold.
// Coordinates are coarsened before logging.
func (h *Handler) alertRisk(r *http.Request, kind string, score, lat, lng float64) {
	if score < h.riskThreshold {
		return
	}
	logging.Ctx(r.Context()).Warn().
		Str("prediction", kind).
		Float64("risk_score", score).
		Float64("threshold", h.riskThreshold).
		Float64("lat", logging.CoarseCoordinate(lat)).
		Float64("lng", logging.CoarseCoordinate(lng)).
		Msg("High risk prediction")
}

// alertAnomaly logs an anomaly whose confidence reaches the threshold.
func (h *Handler) alertAnomaly(r *http.Request, test, userID string, result models.AnomalyResult) {
	if !result.IsAnomaly || result.Confidence < h.anomalyThreshold {
		return
	}
	logging.Ctx(r.Context()).Warn().
		Str("test", test).
		Str("user_id", logging.SanitizeUserID(userID)).
		Float64("confidence", result.Confidence).
		Str("reason", result.Reason).
		Msg("Anomaly detected")
}
