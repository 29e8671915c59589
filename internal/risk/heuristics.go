// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package risk

import (
	"math"
	"slices"
	"strings"

	"github.com/tomtom215/safepulse/internal/models"
)

// Level is a coarse risk band.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// LevelFor maps a score to its band. Lower bounds are inclusive.
func LevelFor(score float64) Level {
	switch {
	case score >= 0.8:
		return LevelCritical
	case score >= 0.6:
		return LevelHigh
	case score >= 0.4:
		return LevelMedium
	default:
		return LevelLow
	}
}

var recommendations = map[Level][]string{
	LevelCritical: {
		"Consider postponing travel if possible",
		"Share your location with emergency contacts",
		"Use main roads and avoid isolated areas",
		"Travel in groups if possible",
		"Keep emergency numbers ready",
	},
	LevelHigh: {
		"Stay alert and aware of surroundings",
		"Share your location with contacts",
		"Avoid isolated areas",
		"Keep phone charged and accessible",
	},
	LevelMedium: {
		"Exercise normal caution",
		"Keep emergency contacts updated",
		"Stay on well-lit paths",
	},
	LevelLow: {
		"Safe travel conditions",
		"Maintain basic safety awareness",
	},
}

// Recommendations returns the advice list for a score.
func Recommendations(score float64) []string {
	return slices.Clone(recommendations[LevelFor(score)])
}

// TimeMultiplier scales risk by hour of day: nights (22:00 to 05:59) by
// 1.3, rush hours (06 to 08 and 17 to 19) by 1.1.
func TimeMultiplier(hour int) float64 {
	switch {
	case hour >= 22 || hour <= 5:
		return 1.3
	case hour >= 6 && hour <= 8, hour >= 17 && hour <= 19:
		return 1.1
	default:
		return 1.0
	}
}

// DefaultWeatherRisk applies to missing or unknown conditions.
const DefaultWeatherRisk = 0.3

var weatherRisks = map[string]float64{
	"clear":      0.1,
	"cloudy":     0.2,
	"rain":       0.6,
	"heavy_rain": 0.8,
	"storm":      0.9,
	"fog":        0.7,
	"snow":       0.8,
}

// WeatherRisk looks up the risk of a weather condition keyword.
func WeatherRisk(condition string) float64 {
	if r, ok := weatherRisks[strings.ToLower(strings.TrimSpace(condition))]; ok {
		return r
	}
	return DefaultWeatherRisk
}

// AverageSpeed estimates travel speed in km/h for a route, slower in rush
// hours (07 to 09 and 17 to 19).
func AverageSpeed(distanceKm float64, hour int) float64 {
	if (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19) {
		return math.Max(20, 40-distanceKm*2)
	}
	return math.Max(30, 60-distanceKm)
}

// RouteComplexity normalizes route length: 10 km and longer is 1.
func RouteComplexity(distanceKm float64) float64 {
	return math.Min(distanceKm/10, 1)
}

// Heuristic route risk parameters.
const (
	baseUrbanRisk      = 0.4
	maxDistanceRisk    = 0.3
	distanceRiskScale  = 100.0
	timeRiskMultiplier = 0.3
)

// HeuristicRouteRisk is the fallback score when no model is trained.
func HeuristicRouteRisk(distanceKm float64, hour int) float64 {
	distanceRisk := math.Min(distanceKm/distanceRiskScale, maxDistanceRisk)
	return models.Clamp01(baseUrbanRisk + distanceRisk + timeRiskMultiplier*TimeMultiplier(hour))
}

// Area risk parameters.
const (
	// AreaWindowDays is the incident history counted for area risk.
	AreaWindowDays = 30

	// densityCeiling is the density, in weighted incidents per km² per
	// day, that maps to the maximum score.
	densityCeiling = 0.1
)

// AreaFactors explains an area risk score.
type AreaFactors struct {
	HistoricalIncidents int     `json:"historical_incidents"`
	WeightedIncidents   float64 `json:"weighted_incidents"`
	RiskDensity         float64 `json:"risk_density"`
	TimeMultiplier      float64 `json:"time_multiplier"`
}

// AreaRisk scores an area from its incident statistics over the last
// AreaWindowDays days.
func AreaRisk(stats models.AreaStats, radiusKm float64, hour int) (float64, AreaFactors) {
	factors := AreaFactors{
		HistoricalIncidents: stats.TotalIncidents,
		WeightedIncidents:   stats.WeightedCount(),
		TimeMultiplier:      TimeMultiplier(hour),
	}
	areaKm2 := math.Pi * radiusKm * radiusKm
	if areaKm2 > 0 {
		factors.RiskDensity = factors.WeightedIncidents / (areaKm2 * AreaWindowDays)
	}
	base := math.Min(factors.RiskDensity/densityCeiling, 1)
	return models.Clamp01(base * factors.TimeMultiplier), factors
}
