// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/safepulse/internal/anomaly"
	"github.com/tomtom215/safepulse/internal/audit"
	"github.com/tomtom215/safepulse/internal/authz"
	"github.com/tomtom215/safepulse/internal/cache"
	"github.com/tomtom215/safepulse/internal/config"
	"github.com/tomtom215/safepulse/internal/datasource"
	"github.com/tomtom215/safepulse/internal/dispatch"
	"github.com/tomtom215/safepulse/internal/models"
	"github.com/tomtom215/safepulse/internal/modelstore"
	"github.com/tomtom215/safepulse/internal/risk"
	"github.com/tomtom215/safepulse/internal/training"
	"github.com/tomtom215/safepulse/internal/trends"
)

// components holds everything main wires into the API and the supervisor.
type components struct {
	db        *datasource.DuckDBSource
	source    datasource.Source
	predictor *risk.Predictor
	detector  *anomaly.Detector
	analyzer  *trends.Analyzer
	optimizer *dispatch.Optimizer
	trainer   *training.Coordinator
	cache     *cache.PredictionCache
	guard     *authz.Middleware

	// Nil when AUDIT_ENABLED=false.
	auditLog *audit.Logger
	auditBus *audit.Bus
}

// initAudit creates the prediction event store, its async writer and the
// bus that feeds it. It returns a NopRecorder when auditing is disabled.
func initAudit(ctx context.Context, cfg *config.Config, db *datasource.DuckDBSource, logger zerolog.Logger) (audit.Recorder, *audit.Logger, *audit.Bus, error) {
	if !cfg.Audit.Enabled {
		logger.Info().Msg("Prediction audit disabled (AUDIT_ENABLED=false)")
		return audit.NopRecorder{}, nil, nil, nil
	}

	store := audit.NewDuckDBStore(db.Conn())
	if err := store.CreateTable(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create audit table: %w", err)
	}

	auditLog := audit.NewLogger(store, audit.Config{
		Enabled:         true,
		BufferSize:      cfg.Audit.BufferSize,
		RetentionDays:   cfg.Audit.RetentionDays,
		CleanupInterval: cfg.Audit.CleanupInterval,
	}, logger)

	bus, err := audit.NewBus(auditLog, cfg.Audit.BufferSize, logger)
	if err != nil {
		_ = auditLog.Close()
		return nil, nil, nil, err
	}
	logger.Info().Int("retention_days", cfg.Audit.RetentionDays).Msg("Prediction audit initialized with DuckDB persistence")
	return bus, auditLog, bus, nil
}

// initGuard builds the admin guard for the model routes, or nil when admin
// auth is disabled.
func initGuard(cfg *config.Config) (*authz.Middleware, error) {
	if !cfg.Security.AdminAuthEnabled {
		return nil, nil
	}
	verifier, err := authz.NewTokenVerifier(cfg.Security.JWTSecret)
	if err != nil {
		return nil, err
	}
	enforcer, err := authz.NewEnforcer(cfg.Security.CasbinPolicyPath)
	if err != nil {
		return nil, err
	}
	return authz.NewMiddleware(verifier, enforcer), nil
}

// buildComponents opens the stores and creates the analytics components.
// On error, anything already opened is closed.
func buildComponents(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *components, err error) {
	c := &components{}
	defer func() {
		if err != nil {
			c.close(logger)
		}
	}()

	c.db, err = datasource.OpenDuckDB(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open incident database: %w", err)
	}
	c.source = datasource.NewBreakerSource(c.db, cfg.Database.QueryTimeout, logger)

	var recorder audit.Recorder
	recorder, c.auditLog, c.auditBus, err = initAudit(ctx, cfg, c.db, logger)
	if err != nil {
		return nil, err
	}

	store, err := modelstore.New(cfg.Models.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model store: %w", err)
	}

	c.predictor = risk.NewPredictor(c.source, risk.Options{
		Store:        store,
		KeepVersions: cfg.Models.KeepVersions,
		Recorder:     recorder,
	}, logger)
	c.detector = anomaly.NewDetector(c.source, anomaly.Options{
		Store:        store,
		KeepVersions: cfg.Models.KeepVersions,
		Recorder:     recorder,
	}, logger)
	c.analyzer = trends.NewAnalyzer(c.source, recorder, logger)
	c.optimizer = dispatch.NewOptimizer(recorder, logger)

	if cfg.Cache.Enabled {
		c.cache, err = cache.Open(cache.Options{Path: cfg.Cache.Path, TTL: cfg.Cache.TTL()})
		if err != nil {
			return nil, err
		}
	}

	c.trainer = training.NewCoordinator(c.cache, recorder, logger)
	c.trainer.Register(risk.ModelName, c.predictor.Train)
	c.trainer.Register(anomaly.ModelName, c.detector.Train)
	c.trainer.Register(trends.ModelName, func(ctx context.Context) (models.TrainingResult, error) {
		return c.analyzer.Retrain(ctx), nil
	})

	c.guard, err = initGuard(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize admin auth: %w", err)
	}
	return c, nil
}

// restoreModels loads the latest persisted snapshots. A missing snapshot
// leaves the component on its fallback path until the first retrain.
func (c *components) restoreModels(ctx context.Context, logger zerolog.Logger) {
	restore := map[string]func(context.Context) error{
		risk.ModelName:    c.predictor.Restore,
		anomaly.ModelName: c.detector.Restore,
	}
	for _, name := range []string{risk.ModelName, anomaly.ModelName} {
		start := time.Now()
		if err := restore[name](ctx); err != nil {
			logger.Info().Err(err).Str("model", name).Msg("No model snapshot restored")
			continue
		}
		logger.Info().Str("model", name).Dur("duration", time.Since(start)).Msg("Model snapshot restored")
	}
}

// close releases resources in reverse order of creation.
func (c *components) close(logger zerolog.Logger) {
	if c.auditBus != nil {
		if err := c.auditBus.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error closing audit bus")
		}
	}
	if c.auditLog != nil {
		if err := c.auditLog.Close(); err != nil {
			logger.Warn().Err(err).Msg("Error closing audit writer")
		}
	}
	if err := c.cache.Close(); err != nil {
		logger.Warn().Err(err).Msg("Error closing prediction cache")
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing database")
		}
	}
}
