// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

// Package cluster implements density-based clustering (DBSCAN) over incident
// coordinates in degree space and derives risk-ranked hotspots from it.
//
// Two parameter sets are used:
//
//	Coarse (eps 0.01 deg, minPts 3)  - cluster counts for spatial trends
//	Fine   (eps 0.005 deg, minPts 5) - hotspot identification
//
// A point's neighbourhood includes the point itself. Points that belong to
// no dense neighbourhood receive the Noise label.
//
// Distances are planar in degrees and radii are converted to kilometres with
// the fixed 111.32 km/degree factor. This is an approximation that is only
// accurate near mid-latitudes; the thresholds were tuned against it.
package cluster
