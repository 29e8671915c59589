// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package cluster

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/safepulse/internal/features"
	"github.com/tomtom215/safepulse/internal/learn"
	"github.com/tomtom215/safepulse/internal/models"
)

const (
	// MinHotspotIncidents is the minimum number of located incidents needed
	// before hotspot detection runs.
	MinHotspotIncidents = 10

	// MaxHotspots caps the number of hotspots returned.
	MaxHotspots = 10

	// radiusQuantile is the member-to-centroid distance quantile used as the
	// hotspot radius, so a few outlying members do not inflate it.
	radiusQuantile = 0.9
)

// ErrInsufficientLocations is returned when too few located incidents exist.
var ErrInsufficientLocations = errors.New("insufficient location data")

// HotspotReport is the ranked hotspot output of one clustering run.
type HotspotReport struct {
	Hotspots      []models.Hotspot `json:"hotspots"`
	TotalHotspots int              `json:"total_hotspots"`
	NoisePoints   int              `json:"noise_points"`
}

// Points extracts the coordinates of valid incidents, returning the points
// and the incidents they came from (same order).
func Points(incidents []models.Incident) ([]Point, []models.Incident) {
	points := make([]Point, 0, len(incidents))
	kept := make([]models.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if !inc.Valid() {
			continue
		}
		points = append(points, Point{Lat: inc.Latitude, Lng: inc.Longitude})
		kept = append(kept, inc)
	}
	return points, kept
}

// Hotspots clusters incidents with params and returns the clusters ranked by
// risk score, highest first, capped to MaxHotspots.
func Hotspots(incidents []models.Incident, params Params) (HotspotReport, error) {
	points, located := Points(incidents)
	if len(points) < MinHotspotIncidents {
		return HotspotReport{}, fmt.Errorf("%w: %d < %d", ErrInsufficientLocations, len(points), MinHotspotIncidents)
	}

	result := DBSCAN(points, params)
	members := result.Members()

	hotspots := make([]models.Hotspot, 0, len(members))
	for label, idx := range members {
		hotspots = append(hotspots, buildHotspot(label, idx, points, located))
	}

	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].RiskScore > hotspots[j].RiskScore
	})

	report := HotspotReport{
		TotalHotspots: len(hotspots),
		NoisePoints:   result.NoiseCount(),
	}
	if len(hotspots) > MaxHotspots {
		hotspots = hotspots[:MaxHotspots]
	}
	report.Hotspots = hotspots
	return report, nil
}

func buildHotspot(label int, idx []int, points []Point, located []models.Incident) models.Hotspot {
	lats := make([]float64, len(idx))
	lngs := make([]float64, len(idx))
	severity := make(map[models.Severity]int)
	types := make(map[string]int)
	var weighted float64

	for i, k := range idx {
		lats[i] = points[k].Lat
		lngs[i] = points[k].Lng

		inc := located[k]
		sev := inc.Severity
		if sev == "" {
			sev = "unknown"
		}
		severity[sev]++
		t := inc.Type
		if t == "" {
			t = "unknown"
		}
		types[t]++
		weighted += inc.Severity.Weight()
	}

	center := Point{Lat: stat.Mean(lats, nil), Lng: stat.Mean(lngs, nil)}

	return models.Hotspot{
		ID:                   fmt.Sprintf("hotspot_%d", label),
		Center:               models.Coordinates{Latitude: center.Lat, Longitude: center.Lng},
		IncidentCount:        len(idx),
		RiskScore:            models.Round(models.Clamp01(weighted/float64(len(idx))), 2),
		SeverityDistribution: severity,
		TypeDistribution:     types,
		RadiusKm:             radiusKm(center, lats, lngs),
	}
}

// radiusKm returns the radiusQuantile member-to-centroid distance in km.
func radiusKm(center Point, lats, lngs []float64) float64 {
	if len(lats) < 2 {
		return 0
	}
	distances := make([]float64, len(lats))
	for i := range lats {
		distances[i] = features.DegreeDistance(center.Lat, center.Lng, lats[i], lngs[i])
	}
	sort.Float64s(distances)
	deg := learn.Percentile(distances, radiusQuantile)
	if math.IsNaN(deg) {
		return 0
	}
	return models.Round(deg*features.KmPerDegree, 2)
}
