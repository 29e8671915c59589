// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package models

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Severity is an incident severity tier.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists the known tiers from least to most severe.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// UnknownSeverityWeight is the weight applied to unrecognised severities.
const UnknownSeverityWeight = 0.5

// ParseSeverity normalises s. Unknown values are returned lowercased as-is.
func ParseSeverity(s string) Severity {
	return Severity(strings.ToLower(strings.TrimSpace(s)))
}

// Weight returns the fixed risk weight of the tier.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 1.0
	case SeverityHigh:
		return 0.8
	case SeverityMedium:
		return 0.5
	case SeverityLow:
		return 0.2
	default:
		return UnknownSeverityWeight
	}
}

// Known reports whether s is one of the four defined tiers.
func (s Severity) Known() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// LocationSample is one recorded position of a user.
type LocationSample struct {
	UserID    string    `json:"user_id,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`

	// Speed is the device-reported instantaneous speed in m/s, if any.
	Speed *float64 `json:"speed,omitempty"`
}

// Valid reports whether the sample has usable coordinates and a timestamp.
func (l LocationSample) Valid() bool {
	return validCoordinate(l.Latitude, l.Longitude) && !l.Timestamp.IsZero()
}

// Incident is a reported safety incident.
type Incident struct {
	ID        string    `json:"id,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Severity  Severity  `json:"severity"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Valid reports whether the incident has usable coordinates and a timestamp.
func (i Incident) Valid() bool {
	return validCoordinate(i.Latitude, i.Longitude) && !i.Timestamp.IsZero()
}

func validCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Route is a previously identified common route of a user.
type Route struct {
	RouteID       int         `json:"route_id"`
	StartLocation Coordinates `json:"start_location"`
	Frequency     float64     `json:"frequency"`
}

// Coordinates is a plain latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MovementStats summarises a user's recent movement.
type MovementStats struct {
	TotalLocations   int        `json:"total_locations"`
	TotalDistanceKm  float64    `json:"total_distance_km"`
	AverageSpeedKmh  float64    `json:"average_speed_kmh"`
	CommonRoutes     []Route    `json:"common_routes"`
	LastLocationTime *time.Time `json:"last_location_time,omitempty"`
}

// UserProfile is the per-user view returned by the data source.
type UserProfile struct {
	UserID        string        `json:"user_id"`
	MovementStats MovementStats `json:"movement_stats"`
}

// AreaStats aggregates incidents around a point.
type AreaStats struct {
	TotalIncidents       int              `json:"total_incidents"`
	SeverityDistribution map[Severity]int `json:"severity_distribution"`
	TypeDistribution     map[string]int   `json:"type_distribution"`
	Incidents            []Incident       `json:"-"`
}

// WeightedCount returns the severity-weighted incident count.
func (a AreaStats) WeightedCount() float64 {
	keys := make([]string, 0, len(a.SeverityDistribution))
	for sev := range a.SeverityDistribution {
		keys = append(keys, string(sev))
	}
	sort.Strings(keys)

	var total float64
	for _, k := range keys {
		sev := Severity(k)
		total += sev.Weight() * float64(a.SeverityDistribution[sev])
	}
	return total
}
