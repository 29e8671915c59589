// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/safepulse/internal/api"
	"github.com/tomtom215/safepulse/internal/config"
	"github.com/tomtom215/safepulse/internal/logging"
	"github.com/tomtom215/safepulse/internal/supervisor"
	"github.com/tomtom215/safepulse/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("SafePulse stopped with an error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Version:   api.ServiceVersion,
	})
	logger := logging.Logger()

	logger.Info().
		Str("db_path", cfg.Database.Path).
		Str("model_path", cfg.Models.Path).
		Bool("cache_enabled", cfg.Cache.Enabled).
		Bool("audit_enabled", cfg.Audit.Enabled).
		Bool("admin_auth_enabled", cfg.Security.AdminAuthEnabled).
		Msg("Starting SafePulse")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.close(logger)

	comps.restoreModels(ctx, logger)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}

	handler := api.NewHandler(api.Dependencies{
		Predictor:        comps.predictor,
		Detector:         comps.detector,
		Analyzer:         comps.analyzer,
		Optimizer:        comps.optimizer,
		Ingester:         comps.db,
		Trainer:          comps.trainer,
		Cache:            comps.cache,
		RetrainPerHour:   cfg.Security.RetrainRatePerHour,
		RiskThreshold:    cfg.Analytics.RiskThreshold,
		AnomalyThreshold: cfg.Analytics.AnomalyThreshold,
		QueryTimeout:     cfg.Database.QueryTimeout,
	})

	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Server.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Server.RateLimitWindow
	router := api.NewRouter(handler, api.NewChiMiddleware(mwConfig), comps.guard)

	// Retraining over HTTP may run longer than ordinary requests.
	writeTimeout := cfg.Server.Timeout + api.RetrainTimeout

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// Data layer
	if comps.auditLog != nil {
		tree.Add(supervisor.LayerData, services.NewAuditCleanupService(comps.auditLog))
	}

	// Messaging layer
	if comps.auditBus != nil {
		tree.Add(supervisor.LayerMessaging, services.NewEventBusService(comps.auditBus))
	}
	tree.Add(supervisor.LayerMessaging, services.NewRetrainService(comps.trainer, services.RetrainServiceConfig{
		TrainOnStartup: cfg.Models.TrainOnStartup,
		Interval:       cfg.Models.RetrainInterval(),
	}, logger))

	// API layer
	tree.Add(supervisor.LayerAPI, services.NewAPIServerService(server, services.APIServerConfig{
		Addr:            server.Addr,
		ShutdownTimeout: 10 * time.Second,
	}, logger))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logger.Info().Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logger.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logger.Info().Msg("SafePulse stopped")
	return nil
}
