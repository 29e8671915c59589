// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package api

import (
	"net/http"
	"time"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string              `json:"status"`
	Service       string              `json:"service"`
	Version       string              `json:"version"`
	Models        ModelStatusResponse `json:"models"`
	UptimeSeconds float64             `json:"uptime_seconds"`
	Timestamp     time.Time           `json:"timestamp"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	respondSuccess(w, r, HealthResponse{
		Status:        "healthy",
		Service:       "safepulse-analytics",
		Version:       ServiceVersion,
		Models:        h.modelStatus(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Timestamp:     now,
	}, time.Now(), false)
}
