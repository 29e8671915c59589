// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package dispatch

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/tomtom215/safepulse/internal/audit"
	"github.com/tomtom215/safepulse/internal/logging"
	"github.com/tomtom215/safepulse/internal/models"
)

func TestCapability(t *testing.T) {
	tests := []struct {
		resource ResourceType
		incident string
		want     float64
	}{
		{Ambulance, "medical", 1.0},
		{Ambulance, "fire", 0.3},
		{Police, "crime", 1.0},
		{Police, "medical", 0.4},
		{FireDepartment, "panic", 0.5},
		{RescueTeam, "panic", 0.9},
		{Police, "flood", DefaultCapability},
		{"helicopter", "medical", DefaultCapability},
	}
	for _, tt := range tests {
		t.Run(string(tt.resource)+"/"+tt.incident, func(t *testing.T) {
			if got := Capability(tt.resource, tt.incident); got != tt.want {
				t.Errorf("Capability(%s, %s) = %v, want %v", tt.resource, tt.incident, got, tt.want)
			}
		})
	}
}

func TestDistanceScore(t *testing.T) {
	tests := []struct {
		km   float64
		want float64
	}{
		{0, 1},
		{25, 0.5},
		{50, 0},
		{120, 0},
	}
	for _, tt := range tests {
		if got := DistanceScore(tt.km); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("DistanceScore(%v) = %v, want %v", tt.km, got, tt.want)
		}
	}
}

var medical = Incident{Latitude: 40.0, Longitude: -74.0, Type: "medical", Severity: models.SeverityHigh}

func TestScore(t *testing.T) {
	r := Score(medical, Resource{ID: "a1", Type: Ambulance, Latitude: 40.0, Longitude: -74.0, Available: true})
	if math.Abs(r.PriorityScore-1.0) > 1e-12 || r.Recommendation != Primary || r.EstimatedArrivalTime != 0 {
		t.Errorf("co-located ambulance = %+v", r)
	}

	r = Score(medical, Resource{ID: "p1", Type: Police, Latitude: 40.0, Longitude: -74.0})
	if math.Abs(r.PriorityScore-0.58) > 1e-12 || r.Recommendation != Secondary {
		t.Errorf("unavailable police = %+v, want 0.58 secondary", r)
	}

	// 0.1 degrees of latitude is about 11.1 km, about 11 minutes at 60 km/h.
	r = Score(medical, Resource{ID: "f1", Type: FireDepartment, Latitude: 40.1, Longitude: -74.0, Available: true})
	if r.DistanceKm < 11 || r.DistanceKm > 11.2 {
		t.Errorf("DistanceKm = %v, want about 11.1", r.DistanceKm)
	}
	if math.Abs(r.EstimatedArrivalTime-r.DistanceKm) > 1e-9 {
		t.Errorf("EstimatedArrivalTime = %v, want %v minutes", r.EstimatedArrivalTime, r.DistanceKm)
	}
	if r.Recommendation != Primary {
		t.Errorf("nearby fire department = %+v, want primary", r)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	resources := []Resource{
		{ID: "first", Type: Police, Latitude: 40, Longitude: -74, Available: true},
		{ID: "second", Type: Police, Latitude: 40, Longitude: -74, Available: true},
	}
	ranked := Rank(medical, resources)
	if ranked[0].ResourceID != "first" || ranked[1].ResourceID != "second" {
		t.Errorf("tie order = %s, %s", ranked[0].ResourceID, ranked[1].ResourceID)
	}
}

type captureRecorder struct {
	types []audit.PredictionType
}

func (c *captureRecorder) Record(_ context.Context, typ audit.PredictionType, _, _ any, _ string) {
	c.types = append(c.types, typ)
}

func TestOptimizer_Optimize(t *testing.T) {
	rec := &captureRecorder{}
	o := NewOptimizer(rec, logging.NewTestLogger(io.Discard))

	plan := o.Optimize(context.Background(), Request{
		Incident: medical,
		AvailableResources: []Resource{
			{ID: "heli", Type: "helicopter", Latitude: 41, Longitude: -74, Available: true},
			{ID: "p1", Type: Police, Latitude: 40, Longitude: -74},
			{ID: "f1", Type: FireDepartment, Latitude: 40.1, Longitude: -74, Available: true},
			{ID: "a1", Type: Ambulance, Latitude: 40, Longitude: -74, Available: true},
		},
	})

	want := []string{"a1", "f1", "p1"}
	if len(plan.RecommendedResources) != len(want) {
		t.Fatalf("got %d resources, want %d", len(plan.RecommendedResources), len(want))
	}
	for i, id := range want {
		if plan.RecommendedResources[i].ResourceID != id {
			t.Errorf("rank %d = %s, want %s", i, plan.RecommendedResources[i].ResourceID, id)
		}
	}
	if plan.EstimatedResponseTime == nil || *plan.EstimatedResponseTime != 0 {
		t.Errorf("EstimatedResponseTime = %v, want 0", plan.EstimatedResponseTime)
	}
	f := plan.OptimizationFactors
	if f.AvailableResourcesCount != 4 || f.IncidentType != "medical" || f.IncidentSeverity != models.SeverityHigh {
		t.Errorf("OptimizationFactors = %+v", f)
	}
	if len(rec.types) != 1 || rec.types[0] != audit.TypeResponseOptimization {
		t.Errorf("recorded %v", rec.types)
	}
}

func TestOptimizer_NoResources(t *testing.T) {
	o := NewOptimizer(nil, logging.NewTestLogger(io.Discard))
	plan := o.Optimize(context.Background(), Request{Incident: medical})
	if len(plan.RecommendedResources) != 0 || plan.EstimatedResponseTime != nil {
		t.Errorf("plan = %+v, want empty", plan)
	}
}
