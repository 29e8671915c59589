// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package api

import (
	"net/http"
	"time"
)

// DetectMovementAnomaly handles POST /api/detect/movement-anomaly.
func (h *Handler) DetectMovementAnomaly(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body MovementAnomalyRequest
	if !decodeAndValidate(w, r, &body) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()
	result := h.detector.DetectMovement(ctx, body.toDomain())
	h.alertAnomaly(r, "movement", body.UserID, result)
	respondSuccess(w, r, result, start, false)
}

// DetectSpeedAnomaly handles POST /api/detect/speed-anomaly.
func (h *Handler) DetectSpeedAnomaly(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body SpeedAnomalyRequest
	if !decodeAndValidate(w, r, &body) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()
	result := h.detector.DetectSpeed(ctx, body.toDomain())
	h.alertAnomaly(r, "speed", body.UserID, result)
	respondSuccess(w, r, result, start, false)
}

// DetectRouteDeviation handles POST /api/detect/route-deviation.
func (h *Handler) DetectRouteDeviation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body PositionRequest
	if !decodeAndValidate(w, r, &body) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()
	result := h.detector.DetectRouteDeviation(ctx, body.toDomain())
	h.alertAnomaly(r, "route_deviation", body.UserID, result)
	respondSuccess(w, r, result, start, false)
}

// DetectTimeAnomaly handles POST /api/detect/time-anomaly.
func (h *Handler) DetectTimeAnomaly(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body PositionRequest
	if !decodeAndValidate(w, r, &body) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()
	result := h.detector.DetectTimeAnomaly(ctx, body.toDomain())
	h.alertAnomaly(r, "time", body.UserID, result)
	respondSuccess(w, r, result, start, false)
}
