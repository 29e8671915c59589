// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/safepulse/internal/cache"
	"github.com/tomtom215/safepulse/internal/risk"
)

// routeRiskKey pins requests without time_of_day to the current UTC hour
// so a cached score never outlives the hour it was computed for.
type routeRiskKey struct {
	Request risk.RouteRequest `json:"request"`
	Hour    int               `json:"hour"`
}

// PredictRouteRisk handles POST /api/predict/route-risk.
func (h *Handler) PredictRouteRisk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body RouteRiskRequest
	if !decodeAndValidate(w, r, &body) {
		return
	}
	req := body.toDomain()

	keyParams := routeRiskKey{Request: req, Hour: -1}
	if req.TimeOfDay == "" {
		keyParams.Hour = h.now().UTC().Hour()
	}
	key := cache.GenerateKey("route-risk", keyParams)

	serveCached(h, w, r, key, start, func(ctx context.Context) (risk.RouteRisk, bool) {
		result := h.predictor.PredictRoute(ctx, req)
		h.alertRisk(r, "route", result.RiskScore, req.StartLat, req.StartLng)
		return result, true
	})
}

// PredictAreaRisk handles POST /api/predict/area-risk.
func (h *Handler) PredictAreaRisk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body AreaRiskRequest
	if !decodeAndValidate(w, r, &body) {
		return
	}
	req := body.toDomain()
	key := cache.GenerateKey("area-risk", req)

	serveCached(h, w, r, key, start, func(ctx context.Context) (risk.AreaRiskResult, bool) {
		result := h.predictor.PredictArea(ctx, req)
		h.alertRisk(r, "area", result.RiskScore, req.Latitude, req.Longitude)
		return result, result.Error == ""
	})
}
