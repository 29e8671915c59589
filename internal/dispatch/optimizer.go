// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

// Package dispatch ranks emergency resources against an incident by
// distance, capability and availability.
package dispatch

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tomtom215/safepulse/internal/audit"
	"github.com/tomtom215/safepulse/internal/features"
	"github.com/tomtom215/safepulse/internal/metrics"
	"github.com/tomtom215/safepulse/internal/models"
)

// ResourceType names a kind of responder.
type ResourceType string

// Known resource types.
const (
	Ambulance      ResourceType = "ambulance"
	Police         ResourceType = "police"
	FireDepartment ResourceType = "fire_department"
	RescueTeam     ResourceType = "rescue_team"
)

const (
	// MaxDistanceKm is the distance at which the distance score reaches zero.
	MaxDistanceKm = 50.0

	// AverageSpeedKmh converts distance into an arrival estimate.
	AverageSpeedKmh = 60.0

	// DefaultCapability scores resource and incident pairs missing from the
	// capability table.
	DefaultCapability = 0.5

	// PrimaryThreshold is the priority score above which a resource is
	// recommended as primary.
	PrimaryThreshold = 0.7

	// MaxRecommendations caps the ranked output.
	MaxRecommendations = 3

	distanceWeight     = 0.4
	capabilityWeight   = 0.4
	availabilityWeight = 0.2

	availableScore   = 1.0
	unavailableScore = 0.1
)

// Recommendation labels.
const (
	Primary   = "primary"
	Secondary = "secondary"
)

var capabilities = map[ResourceType]map[string]float64{
	Ambulance:      {"medical": 1.0, "accident": 0.9, "panic": 0.7, "fire": 0.3},
	Police:         {"panic": 1.0, "crime": 1.0, "accident": 0.8, "medical": 0.4},
	FireDepartment: {"fire": 1.0, "accident": 0.8, "medical": 0.6, "panic": 0.5},
	RescueTeam:     {"accident": 1.0, "medical": 0.8, "panic": 0.9, "fire": 0.7},
}

// Capability returns how well a resource type handles an incident type.
func Capability(resource ResourceType, incidentType string) float64 {
	if score, ok := capabilities[resource][incidentType]; ok {
		return score
	}
	return DefaultCapability
}

// DistanceScore is 1 at the incident and falls linearly to 0 at
// MaxDistanceKm.
func DistanceScore(distanceKm float64) float64 {
	return math.Max(0, 1-distanceKm/MaxDistanceKm)
}

// Incident is the incident a response is planned for.
type Incident struct {
	Latitude  float64         `json:"latitude" validate:"latitude"`
	Longitude float64         `json:"longitude" validate:"longitude"`
	Type      string          `json:"type" validate:"required"`
	Severity  models.Severity `json:"severity" validate:"required"`
}

// Resource is a candidate responder.
type Resource struct {
	ID        string       `json:"id" validate:"required"`
	Type      ResourceType `json:"type" validate:"required"`
	Latitude  float64      `json:"latitude" validate:"latitude"`
	Longitude float64      `json:"longitude" validate:"longitude"`
	Available bool         `json:"available"`
}

// Request is an optimization request.
type Request struct {
	Incident           Incident   `json:"incident"`
	AvailableResources []Resource `json:"available_resources" validate:"dive"`
}

// Ranked is one scored resource.
type Ranked struct {
	ResourceID           string       `json:"resource_id"`
	ResourceType         ResourceType `json:"resource_type"`
	PriorityScore        float64      `json:"priority_score"`
	DistanceKm           float64      `json:"distance_km"`
	EstimatedArrivalTime float64      `json:"estimated_arrival_time"`
	Recommendation       string       `json:"recommendation"`
}

// Factors echoes the inputs that drove the ranking.
type Factors struct {
	IncidentSeverity        models.Severity `json:"incident_severity"`
	IncidentType            string          `json:"incident_type"`
	AvailableResourcesCount int             `json:"available_resources_count"`
}

// Plan is the optimization result. EstimatedResponseTime is the arrival
// estimate of the top resource in minutes, nil when there are none.
type Plan struct {
	RecommendedResources  []Ranked `json:"recommended_resources"`
	EstimatedResponseTime *float64 `json:"estimated_response_time"`
	OptimizationFactors   Factors  `json:"optimization_factors"`
}

// Score computes the priority of one resource for an incident.
func Score(incident Incident, r Resource) Ranked {
	distance := features.DistanceKm(incident.Latitude, incident.Longitude, r.Latitude, r.Longitude)

	availability := unavailableScore
	if r.Available {
		availability = availableScore
	}
	priority := distanceWeight*DistanceScore(distance) +
		capabilityWeight*Capability(r.Type, incident.Type) +
		availabilityWeight*availability

	recommendation := Secondary
	if priority > PrimaryThreshold {
		recommendation = Primary
	}
	return Ranked{
		ResourceID:           r.ID,
		ResourceType:         r.Type,
		PriorityScore:        priority,
		DistanceKm:           distance,
		EstimatedArrivalTime: distance / AverageSpeedKmh * 60,
		Recommendation:       recommendation,
	}
}

// Rank scores every resource and returns them by descending priority.
// Equal scores keep their input order.
func Rank(incident Incident, resources []Resource) []Ranked {
	ranked := make([]Ranked, 0, len(resources))
	for _, r := range resources {
		ranked = append(ranked, Score(incident, r))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PriorityScore > ranked[j].PriorityScore
	})
	return ranked
}

// Optimizer plans responses and records each plan.
type Optimizer struct {
	recorder audit.Recorder
	logger   zerolog.Logger
}

// NewOptimizer creates an optimizer. A nil recorder records nothing.
func NewOptimizer(recorder audit.Recorder, logger zerolog.Logger) *Optimizer {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Optimizer{
		recorder: recorder,
		logger:   logger.With().Str("component", "response_optimizer").Logger(),
	}
}

// Optimize ranks the request's resources and keeps the best three.
func (o *Optimizer) Optimize(ctx context.Context, req Request) Plan {
	ranked := Rank(req.Incident, req.AvailableResources)

	plan := Plan{
		RecommendedResources: ranked[:min(len(ranked), MaxRecommendations)],
		OptimizationFactors: Factors{
			IncidentSeverity:        req.Incident.Severity,
			IncidentType:            req.Incident.Type,
			AvailableResourcesCount: len(req.AvailableResources),
		},
	}
	if len(ranked) > 0 {
		eta := ranked[0].EstimatedArrivalTime
		plan.EstimatedResponseTime = &eta
	} else {
		o.logger.Warn().Str("incident_type", req.Incident.Type).Msg("No resources offered for incident")
	}

	metrics.RecordPrediction(string(audit.TypeResponseOptimization), false)
	o.recorder.Record(ctx, audit.TypeResponseOptimization, req, plan, "1.0.0")
	return plan
}
