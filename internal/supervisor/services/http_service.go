// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// DefaultShutdownTimeout bounds the drain of in-flight API requests when no
// timeout is configured.
const DefaultShutdownTimeout = 10 * time.Second

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// APIServerConfig configures APIServerService.
type APIServerConfig struct {
	// Addr is only logged; the server already carries its listen address.
	Addr            string
	ShutdownTimeout time.Duration
}

// APIServerService runs the analytics API server under supervision.
type APIServerService struct {
	server HTTPServer
	cfg    APIServerConfig
	logger zerolog.Logger
}

// NewAPIServerService wraps server.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewAPIServerService(server HTTPServer, cfg APIServerConfig, logger zerolog.Logger) *APIServerService {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &APIServerService{
		server: server,
		cfg:    cfg,
		logger: logger.With().Str("service", "api-server").Logger(),
	}
}

// Serve implements suture.Service. Listener failures are returned so the
// supervisor rebinds; on cancellation in-flight predictions are drained
// before returning ctx.Err().
func (s *APIServerService) Serve(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() {
		err := s.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		listenErr <- err
	}()
	s.logger.Info().Str("addr", s.cfg.Addr).Msg("Analytics API listening")

	select {
	case err := <-listenErr:
		if err == nil {
			return nil
		}
		s.logger.Error().Err(err).Msg("Analytics API listener failed")
		return fmt.Errorf("api server %s: %w", s.cfg.Addr, err)

	case <-ctx.Done():
	}

	start := time.Now()
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(drainCtx); err != nil {
		s.logger.Warn().Err(err).Dur("drain", time.Since(start)).Msg("Analytics API drain incomplete")
		return fmt.Errorf("api server shutdown: %w", err)
	}
	<-listenErr
	s.logger.Info().Dur("drain", time.Since(start)).Msg("Analytics API stopped")
	return ctx.Err()
}

func (s *APIServerService) String() string {
	return "api-server"
}
