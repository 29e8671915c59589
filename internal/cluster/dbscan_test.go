// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package cluster

import (
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/safepulse/internal/models"
)

func TestDBSCANDenseGroupFormsOneCluster(t *testing.T) {
	points := []Point{
		{40.7000, -74.0000},
		{40.7010, -74.0000},
		{40.7000, -74.0010},
		{40.7010, -74.0010},
		{40.7005, -74.0005},
	}

	result := DBSCAN(points, Fine)
	if result.Clusters != 1 {
		t.Fatalf("Clusters = %d, want 1", result.Clusters)
	}
	for i, label := range result.Labels {
		if label != 1 {
			t.Errorf("point %d label = %d, want 1", i, label)
		}
	}
	if result.NoiseCount() != 0 {
		t.Errorf("NoiseCount = %d, want 0", result.NoiseCount())
	}
}

func TestDBSCANIsolatedPointIsNoise(t *testing.T) {
	points := []Point{
		{40.7000, -74.0000},
		{40.7010, -74.0000},
		{40.7000, -74.0010},
		{40.7010, -74.0010},
		{40.7005, -74.0005},
		{41.0000, -73.0000},
	}

	result := DBSCAN(points, Fine)
	if got := result.Labels[5]; got != Noise {
		t.Errorf("isolated point label = %d, want Noise", got)
	}
	if result.Clusters != 1 {
		t.Errorf("Clusters = %d, want 1", result.Clusters)
	}
}

func TestDBSCANTwoClusters(t *testing.T) {
	var points []Point
	for i := 0; i < 4; i++ {
		points = append(points, Point{Lat: 10 + float64(i)*0.001, Lng: 10})
		points = append(points, Point{Lat: 20 + float64(i)*0.001, Lng: 20})
	}

	result := DBSCAN(points, Coarse)
	if result.Clusters != 2 {
		t.Fatalf("Clusters = %d, want 2", result.Clusters)
	}
	members := result.Members()
	if len(members[0]) != 4 || len(members[1]) != 4 {
		t.Errorf("member sizes = %d/%d, want 4/4", len(members[0]), len(members[1]))
	}
}

func TestDBSCANBorderPointJoinsCluster(t *testing.T) {
	// Five core points in a tight group plus one candidate border point.
	points := []Point{
		{0.0100, 0},
		{0, 0},
		{0.0001, 0},
		{0.0002, 0},
		{0.0003, 0},
		{0.0004, 0},
	}
	// 0.0096 deg from the nearest point, beyond eps: stays noise.
	result := DBSCAN(points, Fine)
	if result.Labels[0] != Noise {
		t.Errorf("far point label = %d, want Noise", result.Labels[0])
	}

	// Within eps of the group edge but not core: visited first, marked noise,
	// then relabelled as a border point.
	points[0] = Point{Lat: 0.0053, Lng: 0}
	result = DBSCAN(points, Fine)
	if result.Labels[0] != 1 {
		t.Errorf("border point label = %d, want 1", result.Labels[0])
	}
}

func TestDBSCANEmpty(t *testing.T) {
	result := DBSCAN(nil, Fine)
	if result.Clusters != 0 || len(result.Labels) != 0 {
		t.Errorf("unexpected result for empty input: %+v", result)
	}
}

func incident(lat, lng float64, sev models.Severity, typ string) models.Incident {
	return models.Incident{
		Latitude:  lat,
		Longitude: lng,
		Severity:  sev,
		Type:      typ,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHotspots(t *testing.T) {
	var incidents []models.Incident
	// Low-risk cluster.
	for i := 0; i < 6; i++ {
		incidents = append(incidents, incident(40.0+float64(i)*0.0005, -74.0, models.SeverityLow, "theft"))
	}
	// High-risk cluster.
	for i := 0; i < 5; i++ {
		incidents = append(incidents, incident(41.0+float64(i)*0.0005, -73.0, models.SeverityCritical, "assault"))
	}
	// Noise.
	incidents = append(incidents, incident(45, -70, models.SeverityHigh, "panic"))

	report, err := Hotspots(incidents, Fine)
	if err != nil {
		t.Fatalf("Hotspots() error = %v", err)
	}
	if report.TotalHotspots != 2 {
		t.Fatalf("TotalHotspots = %d, want 2", report.TotalHotspots)
	}
	if report.NoisePoints != 1 {
		t.Errorf("NoisePoints = %d, want 1", report.NoisePoints)
	}

	top := report.Hotspots[0]
	if top.RiskScore != 1.0 {
		t.Errorf("top RiskScore = %v, want 1.0", top.RiskScore)
	}
	if top.IncidentCount != 5 || top.TypeDistribution["assault"] != 5 {
		t.Errorf("top hotspot = %+v", top)
	}
	if report.Hotspots[1].RiskScore != 0.2 {
		t.Errorf("second RiskScore = %v, want 0.2", report.Hotspots[1].RiskScore)
	}
	for _, h := range report.Hotspots {
		if h.RadiusKm <= 0 || h.RadiusKm > 0.5 {
			t.Errorf("%s RadiusKm = %v, want (0, 0.5]", h.ID, h.RadiusKm)
		}
	}
}

func TestHotspotsInsufficientData(t *testing.T) {
	incidents := make([]models.Incident, 9)
	for i := range incidents {
		incidents[i] = incident(40, -74, models.SeverityLow, "theft")
	}
	_, err := Hotspots(incidents, Fine)
	if !errors.Is(err, ErrInsufficientLocations) {
		t.Errorf("error = %v, want ErrInsufficientLocations", err)
	}
}

func TestHotspotsCappedAtMax(t *testing.T) {
	var incidents []models.Incident
	for c := 0; c < 12; c++ {
		for i := 0; i < 5; i++ {
			incidents = append(incidents, incident(float64(c), float64(i)*0.0001, models.SeverityMedium, "theft"))
		}
	}
	report, err := Hotspots(incidents, Fine)
	if err != nil {
		t.Fatalf("Hotspots() error = %v", err)
	}
	if report.TotalHotspots != 12 || len(report.Hotspots) != MaxHotspots {
		t.Errorf("total = %d, returned = %d", report.TotalHotspots, len(report.Hotspots))
	}
}
