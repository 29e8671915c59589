// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

// Package trends aggregates incidents over a time window into a trend
// report: distributions, temporal and spatial structure, severity and type
// trends, hotspots, a seven day forecast and rule-based recommendations.
package trends

import (
	"time"

	"github.com/tomtom215/safepulse/internal/cluster"
	"github.com/tomtom215/safepulse/internal/models"
)

// Report is the full trend analysis of one window.
type Report struct {
	Summary         Summary          `json:"summary"`
	Temporal        Temporal         `json:"temporal_trends"`
	Spatial         Spatial          `json:"spatial_trends"`
	Severity        SeverityTrend    `json:"severity_trends"`
	Types           TypeTrend        `json:"type_trends"`
	Hotspots        HotspotSection   `json:"hotspots"`
	Predictions     Forecast         `json:"predictions"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
	Period          Period           `json:"analysis_period"`
}

// Period is the analyzed window.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// Summary holds headline counts.
type Summary struct {
	TotalIncidents       int                     `json:"total_incidents"`
	DailyAverage         float64                 `json:"daily_average"`
	SeverityDistribution map[models.Severity]int `json:"severity_distribution"`
	TypeDistribution     map[string]int          `json:"type_distribution"`
	MostCommonSeverity   models.Severity         `json:"most_common_severity"`
	MostCommonType       string                  `json:"most_common_type"`
}

// Temporal holds time-of-day and calendar histograms. Hours are UTC and
// days of week count from Monday = 0.
type Temporal struct {
	HourlyDistribution map[int]int `json:"hourly_distribution"`
	DailyDistribution  map[int]int `json:"daily_distribution"`
	WeeklyTrend        map[int]int `json:"weekly_trend"`
	PeakHour           int         `json:"peak_hour"`
	PeakDay            string      `json:"peak_day"`
	NightIncidents     int         `json:"night_incidents"`
	DayIncidents       int         `json:"day_incidents"`
}

// BoundingBox is a latitude/longitude extent.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// Spread is the extent of a bounding box in degrees.
type Spread struct {
	LatRange float64 `json:"lat_range"`
	LngRange float64 `json:"lng_range"`
}

// Spatial describes where incidents happened. Error is set, and the other
// fields are zero, when too few incidents have coordinates.
type Spatial struct {
	Center          models.Coordinates `json:"center"`
	BoundingBox     BoundingBox        `json:"bounding_box"`
	Spread          Spread             `json:"spread"`
	ClusterCount    int                `json:"cluster_count"`
	IncidentDensity float64            `json:"incident_density"`
	Error           string             `json:"error,omitempty"`
}

// Severity trend labels.
const (
	SeverityIncreasing    = "increasing_severity"
	SeverityDecreasing    = "decreasing_severity"
	SeverityStable        = "stable_severity"
	TrendInsufficientData = "insufficient_data"
)

// SeverityTrend compares critical incidents between the first and last
// seven active days.
type SeverityTrend struct {
	Timeline      map[string]map[models.Severity]int `json:"timeline"`
	Trend         string                             `json:"trend"`
	TotalCritical int                                `json:"total_critical"`
	TotalHigh     int                                `json:"total_high"`
	TotalMedium   int                                `json:"total_medium"`
	TotalLow      int                                `json:"total_low"`
}

// TypeTrend holds per-type counts and first-to-last week growth.
type TypeTrend struct {
	TypeDistribution map[string]int            `json:"type_distribution"`
	GrowthRates      map[string]float64        `json:"growth_rates"`
	Timeline         map[string]map[string]int `json:"timeline"`
	FastestGrowing   *string                   `json:"fastest_growing"`
}

// HotspotSection wraps the fine clustering output.
type HotspotSection struct {
	cluster.HotspotReport
	Error string `json:"error,omitempty"`
}

// Forecast is the seven day projection. Error is set when there is not
// enough history.
type Forecast struct {
	NextSevenDays         []int   `json:"next_7_days,omitempty"`
	TrendDirection        string  `json:"trend_direction,omitempty"`
	TrendStrength         float64 `json:"trend_strength"`
	Confidence            float64 `json:"confidence"`
	ExpectedTotalNextWeek int     `json:"expected_total_next_week"`
	Error                 string  `json:"error,omitempty"`
}

// Recommendation priorities, most urgent first.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// Recommendation is one operational suggestion.
type Recommendation struct {
	Type     string             `json:"type"`
	Priority string             `json:"priority"`
	Message  string             `json:"message"`
	Data     map[string]float64 `json:"data"`
}
