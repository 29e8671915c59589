// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package risk

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
	// ModelName names the predictor's snapshots and metrics.
	ModelName = "risk_predictor"

	// ModelVersion is the reported version of the feature layout.
	ModelVersion = "1.0.0"

	// TrainingWindowDays is the incident history used for training.
	TrainingWindowDays = 90

	// MinTrainingIncidents gates a training run.
	MinTrainingIncidents = 50

	// Source labels for route predictions.
	SourceModel     = "model"
	SourceHeuristic = "heuristic"

	// DefaultAreaRadiusMeters applies when an area request has no radius.
	DefaultAreaRadiusMeters = 1000.0

	testFraction = 0.2
	splitSeed    = 42
)

type snapshot struct {
	Scaler      learn.StandardScaler
	Ridge       learn.Ridge
	Evaluation  learn.Evaluation
	TrainedAt   time.Time
	SampleCount int
	Version     int
}

// Options configures a Predictor.
type Options struct {
	// Estimator supplies service distances and density. Defaults to
	// DefaultEstimator.
	Estimator Estimator

	// Store persists trained snapshots. Nil disables persistence.
	Store *modelstore.Store

	// KeepVersions is the number of snapshots kept after a save.
	KeepVersions int

	// Recorder receives every prediction. Nil records nothing.
	Recorder audit.Recorder

	// Lambda is the ridge penalty. Zero means learn.DefaultRidgeLambda.
	Lambda float64
}

// Predictor scores route and area risk and owns the route risk model.
type Predictor struct {
	source    datasource.Source
	estimator Estimator
	store     *modelstore.Store
	keep      int
	recorder  audit.Recorder
	lambda    float64
	logger    zerolog.Logger
	now       func() time.Time

	model   atomic.Pointer[snapshot]
	trainMu sync.Mutex
}

// NewPredictor creates a predictor that uses the heuristic until trained.
func NewPredictor(source datasource.Source, opts Options, logger zerolog.Logger) *Predictor {
	p := &Predictor{
		source:    source,
		estimator: opts.Estimator,
		store:     opts.Store,
		keep:      opts.KeepVersions,
		recorder:  opts.Recorder,
		lambda:    opts.Lambda,
		logger:    logger.With().Str("component", "risk_predictor").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	if p.estimator == nil {
		p.estimator = DefaultEstimator()
	}
	if p.recorder == nil {
		p.recorder = audit.NopRecorder{}
	}
	if p.lambda <= 0 {
		p.lambda = learn.DefaultRidgeLambda
	}
	return p
}

// SetClock replaces the predictor's clock. Used by tests.
func (p *Predictor) SetClock(now func() time.Time) {
	p.now = now
}

// RouteRequest describes a trip. TimeOfDay is "HH:MM"; empty means now.
type RouteRequest struct {
	StartLat          float64 `json:"start_lat"`
	StartLng          float64 `json:"start_lng"`
	EndLat            float64 `json:"end_lat"`
	EndLng            float64 `json:"end_lng"`
	TimeOfDay         string  `json:"time_of_day,omitempty"`
	WeatherConditions string  `json:"weather_conditions,omitempty"`
}

// RouteRisk is the result of a route prediction.
type RouteRisk struct {
	RiskScore       float64   `json:"risk_score"`
	RiskLevel       Level     `json:"risk_level"`
	Recommendations []string  `json:"recommendations"`
	ModelVersion    string    `json:"model_version"`
	Source          string    `json:"source"`
	DistanceKm      float64   `json:"distance_km"`
	Features        *Features `json:"features,omitempty"`
}

// resolveTime applies an "HH:MM" time of day to the current date. An
// unparsable value falls back to now.
func (p *Predictor) resolveTime(timeOfDay string) time.Time {
	now := p.now()
	if timeOfDay == "" {
		return now
	}
	clock, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		p.logger.Debug().Str("time_of_day", timeOfDay).Msg("Ignoring unparsable time of day")
		return now
	}
	return time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
}

// PredictRoute scores a route. Without a trained model, or when the area
// statistics cannot be loaded, the heuristic is used.
func (p *Predictor) PredictRoute(ctx context.Context, req RouteRequest) RouteRisk {
	in := routeInput{
		startLat: req.StartLat,
		startLng: req.StartLng,
		endLat:   req.EndLat,
		endLng:   req.EndLng,
		at:       p.resolveTime(req.TimeOfDay),
		weather:  req.WeatherConditions,
	}
	distance := in.distanceKm()

	result := RouteRisk{
		ModelVersion: ModelVersion,
		Source:       SourceHeuristic,
		DistanceKm:   models.Round(distance, 3),
	}

	score := HeuristicRouteRisk(distance, in.at.Hour())
	if snap := p.model.Load(); snap != nil {
		if s, f, err := p.predictWithModel(ctx, snap, in); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("component", "risk_predictor").Msg("Route model unavailable, using heuristic")
		} else {
			score = s
			result.Source = SourceModel
			result.Features = &f
		}
	}

	result.RiskScore = score
	result.RiskLevel = LevelFor(score)
	result.Recommendations = Recommendations(score)

	metrics.RecordPrediction(string(audit.TypeRouteRisk), result.Source == SourceModel)
	version := SourceHeuristic
	if result.Source == SourceModel {
		version = ModelVersion
	}
	p.recorder.Record(ctx, audit.TypeRouteRisk, req, result, version)
	return result
}

func (p *Predictor) predictWithModel(ctx context.Context, snap *snapshot, in routeInput) (float64, Features, error) {
	midLat, midLng := in.midpoint()
	stats, err := p.source.AreaIncidentStats(ctx, midLat, midLng, AreaRadiusKm, AreaWindowDays)
	if err != nil {
		return 0, Features{}, fmt.Errorf("failed to load area stats: %w", err)
	}
	in.weightedIncidents = stats.WeightedCount()

	f := buildFeatures(in, p.estimator)
	x, err := snap.Scaler.Transform(f.Vector())
	if err != nil {
		return 0, Features{}, err
	}
	raw, err := snap.Ridge.Predict(x)
	if err != nil {
		return 0, Features{}, err
	}
	return models.Clamp01(raw), f, nil
}

// AreaRequest describes an area. RadiusMeters defaults to 1000.
type AreaRequest struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius,omitempty"`
}

// AreaRiskResult is the result of an area prediction.
type AreaRiskResult struct {
	RiskScore float64           `json:"risk_score"`
	RiskLevel Level             `json:"risk_level"`
	Factors   *AreaFactors      `json:"factors,omitempty"`
	AreaStats *models.AreaStats `json:"area_stats,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// PredictArea scores an area. A data source failure yields a neutral 0.5.
func (p *Predictor) PredictArea(ctx context.Context, req AreaRequest) AreaRiskResult {
	radius := req.RadiusMeters
	if radius <= 0 {
		radius = DefaultAreaRadiusMeters
	}
	radiusKm := radius / 1000

	var result AreaRiskResult
	stats, err := p.source.AreaIncidentStats(ctx, req.Latitude, req.Longitude, radiusKm, AreaWindowDays)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("component", "risk_predictor").Msg("Area risk prediction failed")
		result = AreaRiskResult{
			RiskScore: 0.5,
			RiskLevel: LevelMedium,
			Error:     "area statistics unavailable",
		}
	} else {
		score, factors := AreaRisk(stats, radiusKm, p.now().Hour())
		result = AreaRiskResult{
			RiskScore: score,
			RiskLevel: LevelFor(score),
			Factors:   &factors,
			AreaStats: &stats,
		}
	}

	metrics.RecordPrediction(string(audit.TypeAreaRisk), false)
	p.recorder.Record(ctx, audit.TypeAreaRisk, req, result, SourceHeuristic)
	return result
}

// Train fits a new scaler and ridge regressor on the last 90 days of
// incidents and swaps them in. A refused run returns
// models.ErrInsufficientData and keeps the current model.
func (p *Predictor) Train(ctx context.Context) (models.TrainingResult, error) {
	if !p.trainMu.TryLock() {
		return models.TrainingResult{Model: ModelName, Message: "training already in progress"}, models.ErrTrainingInProgress
	}
	defer p.trainMu.Unlock()

	start := time.Now()
	result := models.TrainingResult{Model: ModelName}

	snap, err := p.fit(ctx)
	result.DurationMS = time.Since(start).Milliseconds()
	metrics.RecordTraining(ModelName, time.Since(start), errors.Is(err, models.ErrInsufficientData), err)
	if err != nil {
		result.Message = err.Error()
		p.logger.Warn().Err(err).Msg("Risk model training did not complete")
		return result, err
	}

	if p.store != nil {
		snap.Version = p.store.NextVersion(ModelName)
		if err := p.persist(ctx, snap, result.DurationMS); err != nil {
			p.logger.Error().Err(err).Msg("Failed to save risk model snapshot")
		}
	} else if prev := p.model.Load(); prev != nil {
		snap.Version = prev.Version + 1
	} else {
		snap.Version = 1
	}

	p.model.Store(snap)
	metrics.SetModelVersion(ModelName, snap.Version)

	trainedAt := snap.TrainedAt
	result.Success = true
	result.SampleCount = snap.SampleCount
	result.Version = snap.Version
	result.TrainedAt = &trainedAt
	result.Message = "risk model trained"
	result.Metrics = evaluationMetrics(snap.Evaluation)

	p.logger.Info().
		Int("samples", snap.SampleCount).
		Int("version", snap.Version).
		Float64("mse", snap.Evaluation.MSE).
		Float64("r2", snap.Evaluation.R2).
		Int64("duration_ms", result.DurationMS).
		Msg("Risk model trained")
	return result, nil
}

func evaluationMetrics(e learn.Evaluation) map[string]float64 {
	return map[string]float64{"mse": e.MSE, "r2": e.R2}
}

func (p *Predictor) fit(ctx context.Context) (*snapshot, error) {
	incidents, err := p.source.HistoricalIncidents(ctx, TrainingWindowDays, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load training incidents: %w", err)
	}
	if len(incidents) < MinTrainingIncidents {
		return nil, fmt.Errorf("%w: %d incidents, need %d", models.ErrInsufficientData, len(incidents), MinTrainingIncidents)
	}

	X, y := trainingRows(incidents, p.estimator)
	if len(X) < MinTrainingIncidents {
		return nil, fmt.Errorf("%w: %d valid incidents, need %d", models.ErrInsufficientData, len(X), MinTrainingIncidents)
	}

	trainX, trainY, testX, testY := learn.TrainTestSplit(X, y, testFraction, splitSeed)

	scaler, err := learn.FitScaler(trainX)
	if err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	scaledTrain, err := scaler.TransformAll(trainX)
	if err != nil {
		return nil, fmt.Errorf("failed to scale training set: %w", err)
	}
	ridge, err := learn.FitRidge(scaledTrain, trainY, p.lambda)
	if err != nil {
		return nil, fmt.Errorf("failed to fit regressor: %w", err)
	}

	scaledTest, err := scaler.TransformAll(testX)
	if err != nil {
		return nil, fmt.Errorf("failed to scale test set: %w", err)
	}
	eval, err := ridge.Evaluate(scaledTest, testY)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate regressor: %w", err)
	}

	return &snapshot{
		Scaler:      *scaler,
		Ridge:       *ridge,
		Evaluation:  eval,
		TrainedAt:   p.now(),
		SampleCount: len(X),
	}, nil
}

func (p *Predictor) persist(ctx context.Context, snap *snapshot, durationMS int64) error {
	meta := modelstore.Metadata{
		ModelVersion:       ModelVersion,
		TrainedAt:          snap.TrainedAt,
		SampleCount:        snap.SampleCount,
		FeatureCount:       len(FeatureNames),
		Metrics:            evaluationMetrics(snap.Evaluation),
		TrainingDurationMS: durationMS,
	}
	if err := p.store.Save(ctx, ModelName, snap.Version, snap, meta); err != nil {
		return err
	}
	if p.keep > 0 {
		if err := p.store.Prune(ctx, ModelName, p.keep); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to prune risk model snapshots")
		}
	}
	return nil
}

// Restore loads the latest stored snapshot. It returns
// modelstore.ErrModelNotFound when there is none.
func (p *Predictor) Restore(ctx context.Context) error {
	if p.store == nil {
		return modelstore.ErrModelNotFound
	}
	var snap snapshot
	meta, err := p.store.Load(ctx, ModelName, 0, &snap)
	if err != nil {
		return err
	}
	if len(snap.Ridge.Coef) != len(FeatureNames) {
		return fmt.Errorf("stored risk model has %d features, want %d", len(snap.Ridge.Coef), len(FeatureNames))
	}
	snap.Version = meta.Version
	p.model.Store(&snap)
	metrics.SetModelVersion(ModelName, snap.Version)

	p.logger.Info().
		Int("version", snap.Version).
		Time("trained_at", snap.TrainedAt).
		Msg("Restored risk model")
	return nil
}

// Status describes the predictor's model state.
type Status struct {
	ModelLoaded     bool       `json:"model_loaded"`
	LastTrained     *time.Time `json:"last_trained"`
	ModelVersion    string     `json:"model_version"`
	FeatureCount    int        `json:"feature_count"`
	SnapshotVersion int        `json:"snapshot_version,omitempty"`
	MSE             *float64   `json:"mse,omitempty"`
	R2              *float64   `json:"r2,omitempty"`
}

// Status reports the current model state.
func (p *Predictor) Status() Status {
	st := Status{ModelVersion: ModelVersion, FeatureCount: len(FeatureNames)}
	if snap := p.model.Load(); snap != nil {
		trainedAt := snap.TrainedAt
		st.ModelLoaded = true
		st.LastTrained = &trainedAt
		st.SnapshotVersion = snap.Version
		st.MSE = models.Float(snap.Evaluation.MSE)
		st.R2 = models.Float(snap.Evaluation.R2)
	}
	return st
}
