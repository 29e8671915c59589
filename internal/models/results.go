// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package models

import (
	"math"
	"time"
)

// AnomalyResult is the outcome of a single anomaly test.
//
// A Confidence of 0 means no judgment could be made (for example because
// there was not enough history), not that the input is definitely normal.
type AnomalyResult struct {
	IsAnomaly  bool      `json:"is_anomaly"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`

	// Optional diagnostics, populated by the tests that compute them.
	ZScore           *float64           `json:"z_score,omitempty"`
	DistanceKm       *float64           `json:"distance_km,omitempty"`
	CurrentSpeedKmh  *float64           `json:"current_speed_kmh,omitempty"`
	UserAvgSpeedKmh  *float64           `json:"user_avg_speed_kmh,omitempty"`
	IsMajorDeviation *bool              `json:"is_major_deviation,omitempty"`
	ClosestRoute     *Route             `json:"closest_route,omitempty"`
	Features         map[string]float64 `json:"features,omitempty"`
}

// NoJudgment returns a not-anomalous result with zero confidence.
func NoJudgment(reason string, now time.Time) AnomalyResult {
	return AnomalyResult{Reason: reason, Timestamp: now}
}

// Hotspot is a dense cluster of incidents.
type Hotspot struct {
	ID                   string           `json:"id"`
	Center               Coordinates      `json:"center"`
	IncidentCount        int              `json:"incident_count"`
	RiskScore            float64          `json:"risk_score"`
	SeverityDistribution map[Severity]int `json:"severity_distribution"`
	TypeDistribution     map[string]int   `json:"type_distribution"`
	RadiusKm             float64          `json:"radius_km"`
}

// Clamp01 bounds v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
