// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package risk

import (
	"time"

	"github.com/tomtom215/safepulse/internal/features"
	"github.com/tomtom215/safepulse/internal/models"
)

// FeatureNames lists the risk features in model order. The order is part of
// the stored model format.
var FeatureNames = []string{
	"hour",
	"day_of_week",
	"month",
	"historical_incidents_count",
	"population_density",
	"weather_risk_score",
	"distance_to_hospital",
	"distance_to_police",
	"average_speed",
	"route_complexity",
}

// Features is the risk feature vector of one route.
type Features struct {
	Hour                float64 `json:"hour"`
	DayOfWeek           float64 `json:"day_of_week"`
	Month               float64 `json:"month"`
	HistoricalIncidents float64 `json:"historical_incidents_count"`
	PopulationDensity   float64 `json:"population_density"`
	WeatherRisk         float64 `json:"weather_risk_score"`
	DistanceToHospital  float64 `json:"distance_to_hospital"`
	DistanceToPolice    float64 `json:"distance_to_police"`
	AverageSpeed        float64 `json:"average_speed"`
	RouteComplexity     float64 `json:"route_complexity"`
}

// Vector returns the features in FeatureNames order.
func (f Features) Vector() []float64 {
	return []float64{
		f.Hour,
		f.DayOfWeek,
		f.Month,
		f.HistoricalIncidents,
		f.PopulationDensity,
		f.WeatherRisk,
		f.DistanceToHospital,
		f.DistanceToPolice,
		f.AverageSpeed,
		f.RouteComplexity,
	}
}

// Estimator supplies location facts the data source does not hold.
// Implementations must be deterministic.
type Estimator interface {
	DistanceToHospital(lat, lng float64) float64
	DistanceToPolice(lat, lng float64) float64
	PopulationDensity(lat, lng float64) float64
}

// StaticEstimator returns the same estimates everywhere.
type StaticEstimator struct {
	HospitalKm float64
	PoliceKm   float64
	Density    float64
}

// DefaultEstimator assumes a hospital 5 km away, a police station 3 km away
// and medium population density.
func DefaultEstimator() StaticEstimator {
	return StaticEstimator{HospitalKm: 5, PoliceKm: 3, Density: 0.5}
}

func (e StaticEstimator) DistanceToHospital(_, _ float64) float64 { return e.HospitalKm }
func (e StaticEstimator) DistanceToPolice(_, _ float64) float64   { return e.PoliceKm }
func (e StaticEstimator) PopulationDensity(_, _ float64) float64  { return e.Density }

// AreaRadiusKm is the radius around the route midpoint counted for
// historical incidents.
const AreaRadiusKm = 2.0

// routeInput holds the resolved values a feature vector is built from.
type routeInput struct {
	startLat, startLng float64
	endLat, endLng     float64
	at                 time.Time
	weather            string

	// weightedIncidents is the severity-weighted incident count near the
	// midpoint.
	weightedIncidents float64
}

func (r routeInput) midpoint() (float64, float64) {
	return (r.startLat + r.endLat) / 2, (r.startLng + r.endLng) / 2
}

func (r routeInput) distanceKm() float64 {
	return features.DistanceKm(r.startLat, r.startLng, r.endLat, r.endLng)
}

// buildFeatures assembles the feature vector of a route.
func buildFeatures(in routeInput, est Estimator) Features {
	midLat, midLng := in.midpoint()
	distance := in.distanceKm()
	hour := in.at.Hour()

	return Features{
		Hour:                float64(hour),
		DayOfWeek:           float64(mondayWeekday(in.at)),
		Month:               float64(in.at.Month()),
		HistoricalIncidents: in.weightedIncidents,
		PopulationDensity:   est.PopulationDensity(midLat, midLng),
		WeatherRisk:         WeatherRisk(in.weather),
		DistanceToHospital:  est.DistanceToHospital(midLat, midLng),
		DistanceToPolice:    est.DistanceToPolice(midLat, midLng),
		AverageSpeed:        AverageSpeed(distance, hour),
		RouteComplexity:     RouteComplexity(distance),
	}
}

// mondayWeekday numbers days from Monday = 0.
func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// trainingRows turns incidents into zero-length routes at each incident's
// time. The incident count feature sums the weights of the other incidents
// within AreaRadiusKm during the AreaWindowDays before it. Targets are
// severity weights.
func trainingRows(incidents []models.Incident, est Estimator) ([][]float64, []float64) {
	X := make([][]float64, 0, len(incidents))
	y := make([]float64, 0, len(incidents))
	window := time.Duration(AreaWindowDays) * 24 * time.Hour

	for i, inc := range incidents {
		if !inc.Valid() {
			continue
		}
		weighted := 0.0
		for j, other := range incidents {
			if i == j || !other.Valid() {
				continue
			}
			age := inc.Timestamp.Sub(other.Timestamp)
			if age < 0 || age > window {
				continue
			}
			if features.DistanceKm(inc.Latitude, inc.Longitude, other.Latitude, other.Longitude) <= AreaRadiusKm {
				weighted += other.Severity.Weight()
			}
		}

		f := buildFeatures(routeInput{
			startLat:          inc.Latitude,
			startLng:          inc.Longitude,
			endLat:            inc.Latitude,
			endLng:            inc.Longitude,
			at:                inc.Timestamp.UTC(),
			weightedIncidents: weighted,
		}, est)
		X = append(X, f.Vector())
		y = append(y, inc.Severity.Weight())
	}
	return X, y
}
