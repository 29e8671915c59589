// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

// Package features turns ordered location samples into movement feature
// vectors and provides the geodesic helpers shared by the scorers.
//
// Extract is a pure function: the same ordered input always yields the same
// Movement value. Fewer than two samples produce an empty vector.
//
// Distances are great-circle (haversine) distances computed with
// github.com/paulmach/orb/geo; bearings are forward azimuths in [0,360).
package features
