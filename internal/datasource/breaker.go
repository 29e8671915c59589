// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/safepulse/internal/metrics"
	"github.com/tomtom215/safepulse/internal/models"
)

// DefaultQueryTimeout bounds each data source call when none is configured.
const DefaultQueryTimeout = 10 * time.Second

// BreakerSource wraps a Source with a per-call timeout and a circuit breaker.
//
// Breaker settings:
//   - 3 trial requests while half-open
//   - counts reset every minute while closed
//   - 2 minutes open before probing again
//   - trips at a 60% failure rate over at least 10 requests
type BreakerSource struct {
	next    Source
	cb      *gobreaker.CircuitBreaker[any]
	name    string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewBreakerSource decorates next. A zero timeout uses DefaultQueryTimeout.
func NewBreakerSource(next Source, timeout time.Duration, logger zerolog.Logger) *BreakerSource {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	const name = "datasource"
	logger = logger.With().Str("component", "datasource_breaker").Logger()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	b := &BreakerSource{next: next, name: name, timeout: timeout, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= 0.6 {
				logger.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio*100).Msg("Opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
	return b
}

// State returns the current breaker state.
func (b *BreakerSource) State() gobreaker.State { return b.cb.State() }

func (b *BreakerSource) execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	result, err := b.cb.Execute(func() (any, error) { return fn(ctx) })
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		b.logger.Warn().Err(err).Msg("Data source request rejected")
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return result, err
}

// run executes fn through the breaker and type-asserts its result.
func run[T any](ctx context.Context, b *BreakerSource, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	result, err := b.execute(ctx, func(ctx context.Context) (any, error) { return fn(ctx) })
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, errors.New("circuit breaker: unexpected result type")
	}
	return typed, nil
}

// HistoricalIncidents implements Source.
func (b *BreakerSource) HistoricalIncidents(ctx context.Context, days int, bounds *orb.Bound) ([]models.Incident, error) {
	return run(ctx, b, func(ctx context.Context) ([]models.Incident, error) {
		return b.next.HistoricalIncidents(ctx, days, bounds)
	})
}

// UserLocations implements Source.
func (b *BreakerSource) UserLocations(ctx context.Context, userID string, days int) ([]models.LocationSample, error) {
	return run(ctx, b, func(ctx context.Context) ([]models.LocationSample, error) {
		return b.next.UserLocations(ctx, userID, days)
	})
}

// AreaIncidentStats implements Source.
func (b *BreakerSource) AreaIncidentStats(ctx context.Context, lat, lng, radiusKm float64, days int) (models.AreaStats, error) {
	return run(ctx, b, func(ctx context.Context) (models.AreaStats, error) {
		return b.next.AreaIncidentStats(ctx, lat, lng, radiusKm, days)
	})
}

// UserProfile implements Source.
func (b *BreakerSource) UserProfile(ctx context.Context, userID string) (models.UserProfile, error) {
	return run(ctx, b, func(ctx context.Context) (models.UserProfile, error) {
		return b.next.UserProfile(ctx, userID)
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
