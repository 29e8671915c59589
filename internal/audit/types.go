// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// PredictionType identifies the operation that produced an event.
type PredictionType string

const (
	TypeRouteRisk            PredictionType = "route_risk"
	TypeAreaRisk             PredictionType = "area_risk"
	TypeMovementAnomaly      PredictionType = "movement_anomaly"
	TypeSpeedAnomaly         PredictionType = "speed_anomaly"
	TypeRouteDeviation       PredictionType = "route_deviation"
	TypeTimeAnomaly          PredictionType = "time_anomaly"
	TypeTrendAnalysis        PredictionType = "trend_analysis"
	TypeResponseOptimization PredictionType = "response_optimization"
	TypeModelRetrain         PredictionType = "model_retrain"
)

// Event is one recorded prediction.
type Event struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Type          PredictionType  `json:"type"`
	Input         json.RawMessage `json:"input_data,omitempty"`
	Result        json.RawMessage `json:"result,omitempty"`
	ModelVersion  string          `json:"model_version"`
	RequestID     string          `json:"request_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// Store persists events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	Get(ctx context.Context, id string) (*Event, error)
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	Count(ctx context.Context, filter QueryFilter) (int64, error)

	// Delete removes events older than the cutoff and returns how many.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter selects events. Zero values match everything.
type QueryFilter struct {
	Types        []PredictionType `json:"types,omitempty"`
	ModelVersion string           `json:"model_version,omitempty"`
	RequestID    string           `json:"request_id,omitempty"`
	StartTime    *time.Time       `json:"start_time,omitempty"`
	EndTime      *time.Time       `json:"end_time,omitempty"`
	Limit        int              `json:"limit,omitempty"`
	Offset       int              `json:"offset,omitempty"`
}

// DefaultQueryFilter returns the newest 100 events.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}

func (f *QueryFilter) matches(e *Event) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ModelVersion != "" && e.ModelVersion != f.ModelVersion {
		return false
	}
	if f.RequestID != "" && e.RequestID != f.RequestID {
		return false
	}
	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}
