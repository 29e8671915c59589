// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package anomaly

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/safepulse/internal/audit"
	"github.com/tomtom215/safepulse/internal/datasource"
	"github.com/tomtom215/safepulse/internal/learn"
	"github.com/tomtom215/safepulse/internal/logging"
	"github.com/tomtom215/safepulse/internal/metrics"
	"github.com/tomtom215/safepulse/internal/models"
	"github.com/tomtom215/safepulse/internal/modelstore"
)

const (
	// ModelName names the detector's snapshots and metrics.
	ModelName = "anomaly_detector"

	// ModelVersion is the reported version of the scoring logic.
	ModelVersion = "1.0.0"

	// History windows, in days, loaded for each test.
	MovementHistoryDays = 30
	SpeedHistoryDays    = 15
	TimeHistoryDays     = 30

	// TrainingWindowDays is the incident history used for training.
	TrainingWindowDays = 60

	// MinTrainingIncidents and MinTrainingRows gate a training run.
	MinTrainingIncidents = 100
	MinTrainingRows      = 50

	detectionErrorReason = "Detection error"
)

// IncidentFeatureNames lists the incident features in vector order.
var IncidentFeatureNames = []string{"latitude", "longitude", "hour", "day_of_week", "severity_weight"}

// snapshot is the trained state. It is never mutated after publication.
type snapshot struct {
	Scaler      learn.StandardScaler
	Forest      learn.IsolationForest
	TrainedAt   time.Time
	SampleCount int
	Version     int
}

// Options configures a Detector.
type Options struct {
	// Store persists trained snapshots. Nil disables persistence.
	Store *modelstore.Store

	// KeepVersions is the number of snapshots kept after a save.
	KeepVersions int

	// Recorder receives every prediction. Nil records nothing.
	Recorder audit.Recorder

	// Forest overrides the isolation forest parameters.
	Forest *learn.ForestConfig
}

// Detector runs the anomaly tests against a data source and owns the
// incident anomaly model.
type Detector struct {
	source   datasource.Source
	store    *modelstore.Store
	keep     int
	recorder audit.Recorder
	forest   learn.ForestConfig
	logger   zerolog.Logger
	now      func() time.Time

	model   atomic.Pointer[snapshot]
	trainMu sync.Mutex
}

// NewDetector creates a detector with no trained model.
func NewDetector(source datasource.Source, opts Options, logger zerolog.Logger) *Detector {
	d := &Detector{
		source:   source,
		store:    opts.Store,
		keep:     opts.KeepVersions,
		recorder: opts.Recorder,
		forest:   learn.DefaultForestConfig(),
		logger:   logger.With().Str("component", "anomaly_detector").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	if d.recorder == nil {
		d.recorder = audit.NopRecorder{}
	}
	if opts.Forest != nil {
		d.forest = *opts.Forest
	}
	return d
}

// SetClock replaces the detector's clock. Used by tests.
func (d *Detector) SetClock(now func() time.Time) {
	d.now = now
}

// MovementRequest is the input of DetectMovement.
type MovementRequest struct {
	UserID    string                  `json:"user_id"`
	Locations []models.LocationSample `json:"locations"`
}

// DetectMovement scores a recent trace against the user's last 30 days.
func (d *Detector) DetectMovement(ctx context.Context, req MovementRequest) models.AnomalyResult {
	now := d.now()
	result := models.NoJudgment(detectionErrorReason, now)

	history, err := d.source.UserLocations(ctx, req.UserID, MovementHistoryDays)
	if err != nil {
		d.logFailure(ctx, "movement", req.UserID, err)
	} else {
		result = Movement(validSamples(req.Locations), history, now)
	}

	d.finish(ctx, audit.TypeMovementAnomaly, "movement", map[string]any{
		"user_id":        req.UserID,
		"location_count": len(req.Locations),
	}, result)
	return result
}

// SpeedRequest is the input of DetectSpeed. Speed is in m/s.
type SpeedRequest struct {
	UserID   string              `json:"user_id"`
	Speed    float64             `json:"speed"`
	Location *models.Coordinates `json:"location,omitempty"`
	Context  SpeedContext        `json:"context"`
}

// DetectSpeed scores a reported speed against the user's last 15 days.
func (d *Detector) DetectSpeed(ctx context.Context, req SpeedRequest) models.AnomalyResult {
	now := d.now()
	result := models.NoJudgment(detectionErrorReason, now)

	history, err := d.source.UserLocations(ctx, req.UserID, SpeedHistoryDays)
	if err != nil {
		d.logFailure(ctx, "speed", req.UserID, err)
	} else {
		result = Speed(req.Speed, history, req.Context, now)
	}

	d.finish(ctx, audit.TypeSpeedAnomaly, "speed", req, result)
	return result
}

// PositionRequest is the input of DetectRouteDeviation and DetectTimeAnomaly.
// A zero Timestamp means now.
type PositionRequest struct {
	UserID    string             `json:"user_id"`
	Location  models.Coordinates `json:"location"`
	Timestamp time.Time          `json:"timestamp,omitempty"`
}

// DetectRouteDeviation compares a position with the user's common routes.
func (d *Detector) DetectRouteDeviation(ctx context.Context, req PositionRequest) models.AnomalyResult {
	now := d.now()
	result := models.NoJudgment(detectionErrorReason, now)

	profile, err := d.source.UserProfile(ctx, req.UserID)
	if err != nil {
		d.logFailure(ctx, "route_deviation", req.UserID, err)
	} else {
		result = RouteDeviation(req.Location.Latitude, req.Location.Longitude, profile.MovementStats.CommonRoutes, now)
	}

	d.finish(ctx, audit.TypeRouteDeviation, "route_deviation", req, result)
	return result
}

// DetectTimeAnomaly compares a position with the user's usual positions at
// the same time of day.
func (d *Detector) DetectTimeAnomaly(ctx context.Context, req PositionRequest) models.AnomalyResult {
	now := d.now()
	at := req.Timestamp
	if at.IsZero() {
		at = now
	}
	result := models.NoJudgment(detectionErrorReason, now)

	history, err := d.source.UserLocations(ctx, req.UserID, TimeHistoryDays)
	if err != nil {
		d.logFailure(ctx, "time", req.UserID, err)
	} else {
		result = TimeOfDay(req.Location.Latitude, req.Location.Longitude, at, history, now)
	}

	d.finish(ctx, audit.TypeTimeAnomaly, "time", req, result)
	return result
}

func (d *Detector) logFailure(ctx context.Context, test, userID string, err error) {
	logging.Ctx(ctx).Error().
		Str("component", "anomaly_detector").
		Str("test", test).
		Str("user", logging.SanitizeUserID(userID)).
		Err(err).
		Msg("Anomaly detection failed")
}

func (d *Detector) finish(ctx context.Context, typ audit.PredictionType, test string, input any, result models.AnomalyResult) {
	metrics.RecordAnomaly(test, result.IsAnomaly)
	d.recorder.Record(ctx, typ, input, result, ModelVersion)
}

// validSamples drops samples without usable coordinates or timestamps.
func validSamples(samples []models.LocationSample) []models.LocationSample {
	out := make([]models.LocationSample, 0, len(samples))
	for _, s := range samples {
		if s.Valid() {
			out = append(out, s)
		}
	}
	return out
}

// IncidentFeatures returns the model vector of an incident: coordinates,
// UTC hour, weekday (Monday = 0) and severity weight.
func IncidentFeatures(inc models.Incident) []float64 {
	ts := inc.Timestamp.UTC()
	weekday := (int(ts.Weekday()) + 6) % 7
	return []float64{
		inc.Latitude,
		inc.Longitude,
		float64(ts.Hour()),
		float64(weekday),
		inc.Severity.Weight(),
	}
}

// Train fits a new scaler and isolation forest on the last 60 days of
// incidents and swaps them in. A refused run returns
// models.ErrInsufficientData and keeps the current model.
func (d *Detector) Train(ctx context.Context) (models.TrainingResult, error) {
	if !d.trainMu.TryLock() {
		return models.TrainingResult{Model: ModelName, Message: "training already in progress"}, models.ErrTrainingInProgress
	}
	defer d.trainMu.Unlock()

	start := time.Now()
	result := models.TrainingResult{Model: ModelName}

	snap, err := d.fit(ctx)
	result.DurationMS = time.Since(start).Milliseconds()
	metrics.RecordTraining(ModelName, time.Since(start), errors.Is(err, models.ErrInsufficientData), err)
	if err != nil {
		result.Message = err.Error()
		d.logger.Warn().Err(err).Msg("Anomaly model training did not complete")
		return result, err
	}

	if d.store != nil {
		snap.Version = d.store.NextVersion(ModelName)
		if err := d.persist(ctx, snap, result.DurationMS); err != nil {
			// The new model is still usable in memory.
			d.logger.Error().Err(err).Msg("Failed to save anomaly model snapshot")
		}
	} else if prev := d.model.Load(); prev != nil {
		snap.Version = prev.Version + 1
	} else {
		snap.Version = 1
	}

	d.model.Store(snap)
	metrics.SetModelVersion(ModelName, snap.Version)

	trainedAt := snap.TrainedAt
	result.Success = true
	result.SampleCount = snap.SampleCount
	result.Version = snap.Version
	result.TrainedAt = &trainedAt
	result.Message = "anomaly model trained"
	result.Metrics = map[string]float64{"threshold": snap.Forest.Threshold}

	d.logger.Info().
		Int("samples", snap.SampleCount).
		Int("version", snap.Version).
		Int64("duration_ms", result.DurationMS).
		Msg("Anomaly model trained")
	return result, nil
}

func (d *Detector) fit(ctx context.Context) (*snapshot, error) {
	incidents, err := d.source.HistoricalIncidents(ctx, TrainingWindowDays, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load training incidents: %w", err)
	}
	if len(incidents) < MinTrainingIncidents {
		return nil, fmt.Errorf("%w: %d incidents, need %d", models.ErrInsufficientData, len(incidents), MinTrainingIncidents)
	}

	rows := make([][]float64, 0, len(incidents))
	for _, inc := range incidents {
		if !inc.Valid() {
			continue
		}
		rows = append(rows, IncidentFeatures(inc))
	}
	if len(rows) < MinTrainingRows {
		return nil, fmt.Errorf("%w: %d valid rows, need %d", models.ErrInsufficientData, len(rows), MinTrainingRows)
	}

	scaler, err := learn.FitScaler(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	scaled, err := scaler.TransformAll(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scale features: %w", err)
	}
	forest, err := learn.FitIsolationForest(scaled, d.forest)
	if err != nil {
		return nil, fmt.Errorf("failed to fit isolation forest: %w", err)
	}

	return &snapshot{
		Scaler:      *scaler,
		Forest:      *forest,
		TrainedAt:   d.now(),
		SampleCount: len(rows),
	}, nil
}

func (d *Detector) persist(ctx context.Context, snap *snapshot, durationMS int64) error {
	meta := modelstore.Metadata{
		ModelVersion:       ModelVersion,
		TrainedAt:          snap.TrainedAt,
		SampleCount:        snap.SampleCount,
		FeatureCount:       len(IncidentFeatureNames),
		Metrics:            map[string]float64{"threshold": snap.Forest.Threshold},
		TrainingDurationMS: durationMS,
	}
	if err := d.store.Save(ctx, ModelName, snap.Version, snap, meta); err != nil {
		return err
	}
	if d.keep > 0 {
		if err := d.store.Prune(ctx, ModelName, d.keep); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to prune anomaly model snapshots")
		}
	}
	return nil
}

// Restore loads the latest stored snapshot. It returns
// modelstore.ErrModelNotFound when there is none.
func (d *Detector) Restore(ctx context.Context) error {
	if d.store == nil {
		return modelstore.ErrModelNotFound
	}
	var snap snapshot
	meta, err := d.store.Load(ctx, ModelName, 0, &snap)
	if err != nil {
		return err
	}
	snap.Version = meta.Version
	d.model.Store(&snap)
	metrics.SetModelVersion(ModelName, snap.Version)

	d.logger.Info().
		Int("version", snap.Version).
		Time("trained_at", snap.TrainedAt).
		Msg("Restored anomaly model")
	return nil
}

// IncidentScore is the isolation forest's judgment of one incident.
type IncidentScore struct {
	Score     float64 `json:"score"`
	IsAnomaly bool    `json:"is_anomaly"`
	Threshold float64 `json:"threshold"`
}

// ScoreIncident scores an incident with the trained forest. It returns
// models.ErrModelUnavailable before the first successful training.
// No HTTP route calls it: live location checks use the statistical
// scorers, and the forest is an offline diagnostic for incident outliers.
func (d *Detector) ScoreIncident(inc models.Incident) (IncidentScore, error) {
	snap := d.model.Load()
	if snap == nil {
		return IncidentScore{}, models.ErrModelUnavailable
	}
	x, err := snap.Scaler.Transform(IncidentFeatures(inc))
	if err != nil {
		return IncidentScore{}, err
	}
	score, err := snap.Forest.Score(x)
	if err != nil {
		return IncidentScore{}, err
	}
	return IncidentScore{
		Score:     score,
		IsAnomaly: snap.Forest.IsAnomaly(score),
		Threshold: snap.Forest.Threshold,
	}, nil
}

// Status describes the detector's model state.
type Status struct {
	MovementModelLoaded bool       `json:"movement_model_loaded"`
	LastTrained         *time.Time `json:"last_trained"`
	ModelVersion        string     `json:"model_version"`
	SnapshotVersion     int        `json:"snapshot_version,omitempty"`
	SampleCount         int        `json:"sample_count,omitempty"`
}

// Status reports the current model state.
func (d *Detector) Status() Status {
	st := Status{ModelVersion: ModelVersion}
	if snap := d.model.Load(); snap != nil {
		trainedAt := snap.TrainedAt
		st.MovementModelLoaded = true
		st.LastTrained = &trainedAt
		st.SnapshotVersion = snap.Version
		st.SampleCount = snap.SampleCount
	}
	return st
}
