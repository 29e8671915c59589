// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package api

import (
	"net/http"
	"time"
)

// IngestIncident handles POST /api/incidents.
func (h *Handler) IngestIncident(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body IncidentRequest
	if !decodeAndValidate(w, r, &body) {
		return
	}
	incident := body.toDomain(h.now())

	ctx, cancel := h.requestContext(r)
	defer cancel()
	if err := h.ingester.AddIncident(ctx, incident); err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to store incident", err)
		return
	}
	respondStatus(w, r, http.StatusCreated, incident, start, false)
}

// IngestLocationsResponse reports how many samples were stored.
type IngestLocationsResponse struct {
	UserID   string `json:"user_id"`
	Accepted int    `json:"accepted"`
}

// IngestLocations handles POST /api/locations.
func (h *Handler) IngestLocations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body LocationIngestRequest
	if !decodeAndValidate(w, r, &body) {
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	samples := body.toDomain(h.now())
	for i := range samples {
		if err := h.ingester.AddLocation(ctx, samples[i]); err != nil {
			respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to store location", err)
			return
		}
	}
	respondStatus(w, r, http.StatusCreated, IngestLocationsResponse{UserID: body.UserID, Accepted: len(samples)}, start, false)
}
