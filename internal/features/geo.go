// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package features

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/tomtom215/safepulse/internal/models"
)

// KmPerDegree is the flat-earth conversion used for degree-space distances
// (cluster radii, profile totals). Only locally accurate near mid-latitudes.
const KmPerDegree = 111.32

// Point converts a latitude/longitude pair to an orb point (lon, lat order).
func Point(lat, lng float64) orb.Point {
	return orb.Point{lng, lat}
}

// DistanceKm returns the great-circle distance between two coordinates in km.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	return geo.DistanceHaversine(Point(lat1, lng1), Point(lat2, lng2)) / 1000
}

// SampleDistanceKm returns the great-circle distance between two samples in km.
func SampleDistanceKm(a, b models.LocationSample) float64 {
	return DistanceKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// Bearing returns the forward azimuth from a to b in degrees within [0,360).
func Bearing(a, b models.LocationSample) float64 {
	deg := geo.Bearing(Point(a.Latitude, a.Longitude), Point(b.Latitude, b.Longitude))
	return math.Mod(deg+360, 360)
}

// BearingDelta returns the absolute difference between two bearings wrapped
// to [0,180].
func BearingDelta(b1, b2 float64) float64 {
	d := math.Abs(b2 - b1)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// DegreeDistance returns the planar distance between two coordinates in degrees.
func DegreeDistance(lat1, lng1, lat2, lng2 float64) float64 {
	return math.Hypot(lat2-lat1, lng2-lng1)
}
