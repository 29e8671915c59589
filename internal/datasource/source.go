// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

// Package datasource provides the historical incident and movement queries
// consumed by the analytics components.
//
// Source is implemented by DuckDBSource (persistent, embedded) and
// MemorySource (tests and demos). BreakerSource wraps any Source with a
// per-call timeout and a circuit breaker.
package datasource

import (
	"context"
	"errors"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/tomtom215/safepulse/internal/features"
	"github.com/tomtom215/safepulse/internal/models"
)

// ErrInvalidRecord is returned when an ingested record fails validation.
var ErrInvalidRecord = errors.New("invalid record")

const (
	// ProfileWindowDays is the history used to build a user profile.
	ProfileWindowDays = 30

	// routeSampleStride and maxCommonRoutes drive the common-route heuristic.
	routeSampleStride = 10
	maxCommonRoutes   = 5
)

// Source is the read side of the data layer.
type Source interface {
	// HistoricalIncidents returns incidents recorded in the last days,
	// optionally restricted to a rectangular bound.
	HistoricalIncidents(ctx context.Context, days int, bounds *orb.Bound) ([]models.Incident, error)

	// UserLocations returns a user's samples from the last days, oldest first.
	UserLocations(ctx context.Context, userID string, days int) ([]models.LocationSample, error)

	// AreaIncidentStats aggregates incidents from the last days within
	// radiusKm of (lat, lng).
	AreaIncidentStats(ctx context.Context, lat, lng, radiusKm float64, days int) (models.AreaStats, error)

	// UserProfile derives a movement profile from the user's recent samples.
	UserProfile(ctx context.Context, userID string) (models.UserProfile, error)
}

// Ingester is the write side of the data layer.
type Ingester interface {
	AddIncident(ctx context.Context, incident models.Incident) error
	AddLocation(ctx context.Context, sample models.LocationSample) error
}

// Store is a Source that also accepts new records.
type Store interface {
	Source
	Ingester
}

// radiusBound returns a bounding box that contains the circle of radiusKm
// around (lat, lng). It is used as a coarse prefilter before the geodesic
// check.
func radiusBound(lat, lng, radiusKm float64) orb.Bound {
	return geo.NewBoundAroundPoint(features.Point(lat, lng), radiusKm*1000)
}

// withinRadius reports whether the incident lies within radiusKm of (lat, lng).
func withinRadius(inc models.Incident, lat, lng, radiusKm float64) bool {
	return features.DistanceKm(lat, lng, inc.Latitude, inc.Longitude) <= radiusKm
}

// buildAreaStats aggregates the incidents that fall inside the radius.
func buildAreaStats(incidents []models.Incident, lat, lng, radiusKm float64) models.AreaStats {
	stats := models.AreaStats{
		SeverityDistribution: make(map[models.Severity]int),
		TypeDistribution:     make(map[string]int),
	}
	for _, inc := range incidents {
		if !inc.Valid() || !withinRadius(inc, lat, lng, radiusKm) {
			continue
		}
		sev := inc.Severity
		if sev == "" {
			sev = "unknown"
		}
		typ := inc.Type
		if typ == "" {
			typ = "unknown"
		}
		stats.TotalIncidents++
		stats.SeverityDistribution[sev]++
		stats.TypeDistribution[typ]++
		stats.Incidents = append(stats.Incidents, inc)
	}
	return stats
}

// BuildProfile derives movement statistics from time-ordered samples.
//
// Total distance uses the flat 111.32 km/degree approximation and the
// average speed is the mean of device-reported speeds in km/h. Common routes
// are a sampling heuristic, not a geometric clustering: every tenth sample
// becomes a route start (at most five) and all routes share the frequency
// len(samples)/10. Fewer than eleven samples yield no routes.
func BuildProfile(userID string, samples []models.LocationSample) models.UserProfile {
	profile := models.UserProfile{
		UserID:        userID,
		MovementStats: models.MovementStats{TotalLocations: len(samples), CommonRoutes: []models.Route{}},
	}
	if len(samples) == 0 {
		return profile
	}

	last := samples[len(samples)-1].Timestamp
	profile.MovementStats.LastLocationTime = &last

	if len(samples) >= 2 {
		var total float64
		for i := 1; i < len(samples); i++ {
			prev, curr := samples[i-1], samples[i]
			total += features.DegreeDistance(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude) * features.KmPerDegree
		}
		profile.MovementStats.TotalDistanceKm = total

		var sum float64
		var n int
		for _, s := range samples {
			if s.Speed != nil {
				sum += *s.Speed * 3.6
				n++
			}
		}
		if n > 0 {
			profile.MovementStats.AverageSpeedKmh = sum / float64(n)
		}
	}

	if len(samples) > routeSampleStride {
		frequency := float64(len(samples) / routeSampleStride)
		for i := 0; i*routeSampleStride < len(samples) && i < maxCommonRoutes; i++ {
			start := samples[i*routeSampleStride]
			profile.MovementStats.CommonRoutes = append(profile.MovementStats.CommonRoutes, models.Route{
				RouteID:       i,
				StartLocation: models.Coordinates{Latitude: start.Latitude, Longitude: start.Longitude},
				Frequency:     frequency,
			})
		}
	}

	return profile
}

// sortSamples orders samples oldest first, keeping insertion order for ties.
func sortSamples(samples []models.LocationSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
}
