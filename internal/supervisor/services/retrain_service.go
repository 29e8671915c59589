// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/safepulse/internal/training"
)

// DefaultRetrainInterval is used when RetrainServiceConfig.Interval is unset.
const DefaultRetrainInterval = 24 * time.Hour

// DefaultRetrainTimeout bounds one scheduled retraining cycle.
const DefaultRetrainTimeout = 30 * time.Minute

// Retrainer retrains models by name. Satisfied by *training.Coordinator.
type Retrainer interface {
	Retrain(ctx context.Context, model string) (training.Report, error)
}

// RetrainServiceConfig configures scheduled retraining.
type RetrainServiceConfig struct {
	// TrainOnStartup runs one cycle before the first tick.
	TrainOnStartup bool

	// Interval between cycles. The first scheduled cycle runs one interval
	// after start.
	Interval time.Duration

	// Timeout bounds a single cycle.
	Timeout time.Duration
}

// RetrainService retrains every model on a fixed interval.
type RetrainService struct {
	trainer Retrainer
	config  RetrainServiceConfig
	logger  zerolog.Logger
	name    string
}

// NewRetrainService creates the scheduled retraining service.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewRetrainService(trainer Retrainer, cfg RetrainServiceConfig, logger zerolog.Logger) *RetrainService {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRetrainInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRetrainTimeout
	}
	return &RetrainService{
		trainer: trainer,
		config:  cfg,
		logger:  logger.With().Str("service", "retrain").Logger(),
		name:    "retrain-service",
	}
}

// Serve implements suture.Service.
func (s *RetrainService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("interval", s.config.Interval).
		Msg("retrain service starting")

	if s.config.TrainOnStartup {
		s.retrain(ctx, "startup")
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("retrain service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.retrain(ctx, "scheduled")
		}
	}
}

// retrain runs one cycle. Failures keep the previous models and are only
// logged; the next tick tries again.
func (s *RetrainService) retrain(ctx context.Context, trigger string) {
	trainCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	report, err := s.trainer.Retrain(trainCtx, training.All)
	if err != nil {
		s.logger.Warn().Err(err).Str("trigger", trigger).Msg("retraining failed")
		return
	}

	event := s.logger.Info()
	if report.Failed > 0 {
		event = s.logger.Warn()
		for name, result := range report.Results {
			if !result.Success {
				event = event.Str(name, result.Message)
			}
		}
	}
	event.
		Str("trigger", trigger).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("retraining complete")
}

// String implements fmt.Stringer for supervisor logs.
func (s *RetrainService) String() string {
	return s.name
}
