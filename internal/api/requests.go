// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package api

import (
	"time"

	"github.com/tomtom215/safepulse/internal/anomaly"
	"github.com/tomtom215/safepulse/internal/models"
	"github.com/tomtom215/safepulse/internal/risk"
)

// Request bodies use pointers for numeric fields so that a missing value
// is distinguishable from zero.

// RouteRiskRequest is the body of POST /api/predict/route-risk.
type RouteRiskRequest struct {
	StartLat          *float64 `json:"start_lat" validate:"required,latitude"`
	StartLng          *float64 `json:"start_lng" validate:"required,longitude"`
	EndLat            *float64 `json:"end_lat" validate:"required,latitude"`
	EndLng            *float64 `json:"end_lng" validate:"required,longitude"`
	TimeOfDay         string   `json:"time_of_day,omitempty" validate:"omitempty,clock"`
	WeatherConditions string   `json:"weather_conditions,omitempty" validate:"omitempty,max=50"`
}

func (r RouteRiskRequest) toDomain() risk.RouteRequest {
	return risk.RouteRequest{
		StartLat:          *r.StartLat,
		StartLng:          *r.StartLng,
		EndLat:            *r.EndLat,
		EndLng:            *r.EndLng,
		TimeOfDay:         r.TimeOfDay,
		WeatherConditions: r.WeatherConditions,
	}
}

// AreaRiskRequest is the body of POST /api/predict/area-risk.
type AreaRiskRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Radius    float64  `json:"radius,omitempty" validate:"gte=0,lte=50000"`
}

func (r AreaRiskRequest) toDomain() risk.AreaRequest {
	return risk.AreaRequest{Latitude: *r.Latitude, Longitude: *r.Longitude, RadiusMeters: r.Radius}
}

// LocationDTO is one position in a request body.
type LocationDTO struct {
	Latitude  *float64  `json:"latitude" validate:"required,latitude"`
	Longitude *float64  `json:"longitude" validate:"required,longitude"`
	Timestamp time.Time `json:"timestamp"`
	Speed     *float64  `json:"speed,omitempty" validate:"omitempty,gte=0"`
}

func (l LocationDTO) coordinates() models.Coordinates {
	return models.Coordinates{Latitude: *l.Latitude, Longitude: *l.Longitude}
}

func (l LocationDTO) sample(userID string) models.LocationSample {
	return models.LocationSample{
		UserID:    userID,
		Latitude:  *l.Latitude,
		Longitude: *l.Longitude,
		Timestamp: l.Timestamp,
		Speed:     l.Speed,
	}
}

// MovementAnomalyRequest is the body of POST /api/detect/movement-anomaly.
type MovementAnomalyRequest struct {
	UserID    string        `json:"user_id" validate:"required,max=128"`
	Locations []LocationDTO `json:"locations" validate:"required,min=1,max=10000,dive"`
}

func (r MovementAnomalyRequest) toDomain() anomaly.MovementRequest {
	samples := make([]models.LocationSample, len(r.Locations))
	for i, l := range r.Locations {
		samples[i] = l.sample(r.UserID)
	}
	return anomaly.MovementRequest{UserID: r.UserID, Locations: samples}
}

// SpeedAnomalyRequest is the body of POST /api/detect/speed-anomaly.
type SpeedAnomalyRequest struct {
	UserID   string               `json:"user_id" validate:"required,max=128"`
	Speed    *float64             `json:"speed" validate:"required,gte=0"`
	Location *LocationDTO         `json:"location,omitempty" validate:"omitempty"`
	Context  anomaly.SpeedContext `json:"context"`
}

func (r SpeedAnomalyRequest) toDomain() anomaly.SpeedRequest {
	req := anomaly.SpeedRequest{UserID: r.UserID, Speed: *r.Speed, Context: r.Context}
	if r.Location != nil {
		c := r.Location.coordinates()
		req.Location = &c
	}
	return req
}

// PositionRequest is the body of the route-deviation and time-anomaly endpoints.
type PositionRequest struct {
	UserID    string      `json:"user_id" validate:"required,max=128"`
	Location  LocationDTO `json:"location"`
	Timestamp time.Time   `json:"timestamp"`
}

func (r PositionRequest) toDomain() anomaly.PositionRequest {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = r.Location.Timestamp
	}
	return anomaly.PositionRequest{UserID: r.UserID, Location: r.Location.coordinates(), Timestamp: ts}
}

// RetrainRequest is the body of POST /api/models/retrain.
type RetrainRequest struct {
	ModelType string `json:"model_type" validate:"omitempty,oneof=all risk_predictor anomaly_detector pattern_analyzer"`
}

// IncidentRequest is the body of POST /api/incidents.
type IncidentRequest struct {
	ID        string    `json:"id,omitempty" validate:"omitempty,max=128"`
	Latitude  *float64  `json:"latitude" validate:"required,latitude"`
	Longitude *float64  `json:"longitude" validate:"required,longitude"`
	Severity  string    `json:"severity" validate:"required,oneof=low medium high critical"`
	Type      string    `json:"type" validate:"required,max=64"`
	Timestamp time.Time `json:"timestamp"`
}

func (r IncidentRequest) toDomain(now time.Time) models.Incident {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = now
	}
	return models.Incident{
		ID:        r.ID,
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Severity:  models.ParseSeverity(r.Severity),
		Type:      r.Type,
		Timestamp: ts.UTC(),
	}
}

// LocationIngestRequest is the body of POST /api/locations.
type LocationIngestRequest struct {
	UserID    string        `json:"user_id" validate:"required,max=128"`
	Locations []LocationDTO `json:"locations" validate:"required,min=1,max=10000,dive"`
}

func (r LocationIngestRequest) toDomain(now time.Time) []models.LocationSample {
	samples := make([]models.LocationSample, len(r.Locations))
	for i, l := range r.Locations {
		s := l.sample(r.UserID)
		if s.Timestamp.IsZero() {
			s.Timestamp = now
		}
		s.Timestamp = s.Timestamp.UTC()
		samples[i] = s
	}
	return samples
}
