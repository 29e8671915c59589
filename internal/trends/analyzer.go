// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package trends

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/safepulse/internal/audit"
	"github.com/tomtom215/safepulse/internal/datasource"
	"github.com/tomtom215/safepulse/internal/metrics"
	"github.com/tomtom215/safepulse/internal/models"
)

const (
	// ModelName names the analyzer in training results and metrics.
	ModelName = "pattern_analyzer"

	// ModelVersion is the reported analyzer version.
	ModelVersion = "1.0.0"
)

// Request selects the analyzed window. TimeRange defaults to "7d" and
// Location, when set, is a "lat,lng" centre.
type Request struct {
	TimeRange string `json:"time_range,omitempty" validate:"omitempty,timerange"`
	Location  string `json:"location,omitempty" validate:"omitempty,latlng"`
}

// Analyzer loads incidents from a data source and builds trend reports.
type Analyzer struct {
	source   datasource.Source
	recorder audit.Recorder
	logger   zerolog.Logger
	now      func() time.Time

	lastAnalyzed atomic.Pointer[time.Time]
}

// NewAnalyzer creates an analyzer. A nil recorder records nothing.
func NewAnalyzer(source datasource.Source, recorder audit.Recorder, logger zerolog.Logger) *Analyzer {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Analyzer{
		source:   source,
		recorder: recorder,
		logger:   logger.With().Str("component", "pattern_analyzer").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the analyzer's clock. Used by tests.
func (a *Analyzer) SetClock(now func() time.Time) {
	a.now = now
}

// Analyze builds the report for req. It returns ErrInsufficientTrendData
// when the window holds too few incidents.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Report, error) {
	days, err := ParseTimeRange(req.TimeRange)
	if err != nil {
		return nil, err
	}
	bounds, err := LocationBound(req.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid location: %w", err)
	}

	incidents, err := a.source.HistoricalIncidents(ctx, days, bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to load incidents: %w", err)
	}

	now := a.now()
	report, err := Build(incidents, now)
	if err != nil {
		a.logger.Debug().Err(err).Int("days", days).Msg("Trend analysis skipped")
		return nil, err
	}
	report.Period = Period{
		Start: now.AddDate(0, 0, -days),
		End:   now,
		Days:  days,
	}

	a.lastAnalyzed.Store(&now)
	metrics.RecordPrediction(string(audit.TypeTrendAnalysis), false)
	a.recorder.Record(ctx, audit.TypeTrendAnalysis, req, report.Summary, ModelVersion)
	return report, nil
}

// Retrain has no model to fit. It refreshes the last analysis time so the
// analyzer can be retrained alongside the other models.
func (a *Analyzer) Retrain(context.Context) models.TrainingResult {
	now := a.now()
	a.lastAnalyzed.Store(&now)
	metrics.RecordTraining(ModelName, 0, false, nil)
	return models.TrainingResult{
		Model:     ModelName,
		Success:   true,
		Message:   "pattern analyzer refreshed",
		TrainedAt: &now,
	}
}

// Status reports when the analyzer last ran.
type Status struct {
	LastAnalyzed *time.Time `json:"last_analyzed"`
	ModelVersion string     `json:"model_version"`
}

// Status returns the analyzer status.
func (a *Analyzer) Status() Status {
	return Status{LastAnalyzed: a.lastAnalyzed.Load(), ModelVersion: ModelVersion}
}
