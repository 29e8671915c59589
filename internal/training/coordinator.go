// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

// Package training runs model retraining on request and on a schedule and
// invalidates cached predictions once a model changes.
package training

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/safepulse/internal/audit"
	"github.com/tomtom215/safepulse/internal/models"
)

// All selects every registered model.
const All = "all"

// ErrUnknownModel is returned for model names that were never registered.
var ErrUnknownModel = errors.New("unknown model type")

// TrainFunc trains one model.
type TrainFunc func(ctx context.Context) (models.TrainingResult, error)

// Invalidator drops cached predictions.
type Invalidator interface {
	Invalidate() error
}

// Report collects the outcome of one retrain request.
type Report struct {
	Results   map[string]models.TrainingResult `json:"results"`
	Succeeded int                              `json:"succeeded"`
	Failed    int                              `json:"failed"`
	Duration  time.Duration                    `json:"-"`
}

// Coordinator owns the registered trainers.
type Coordinator struct {
	mu       sync.RWMutex
	order    []string
	trainers map[string]TrainFunc

	cache    Invalidator
	recorder audit.Recorder
	logger   zerolog.Logger
}

// NewCoordinator creates a coordinator. cache and recorder may be nil.
func NewCoordinator(cache Invalidator, recorder audit.Recorder, logger zerolog.Logger) *Coordinator {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Coordinator{
		trainers: make(map[string]TrainFunc),
		cache:    cache,
		recorder: recorder,
		logger:   logger.With().Str("component", "training").Logger(),
	}
}

// Register adds a trainer under name. Registering a name twice replaces
// the trainer and keeps its original position.
func (c *Coordinator) Register(name string, train TrainFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.trainers[name]; !ok {
		c.order = append(c.order, name)
	}
	c.trainers[name] = train
}

// Models returns the registered names in registration order.
func (c *Coordinator) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Known reports whether name is All or a registered model.
func (c *Coordinator) Known(name string) bool {
	if name == All {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.trainers[name]
	return ok
}

func (c *Coordinator) selected(name string) ([]string, []TrainFunc, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if name == "" || name == All {
		fns := make([]TrainFunc, len(c.order))
		for i, n := range c.order {
			fns[i] = c.trainers[n]
		}
		return append([]string(nil), c.order...), fns, nil
	}
	fn, ok := c.trainers[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return []string{name}, []TrainFunc{fn}, nil
}

// Retrain trains the named model, or every model for All, one after the
// other. Refused or failed runs are reported per model and keep the
// previous model; the prediction cache is dropped when any run succeeded.
func (c *Coordinator) Retrain(ctx context.Context, model string) (Report, error) {
	names, fns, err := c.selected(model)
	if err != nil {
		return Report{}, err
	}

	start := time.Now()
	report := Report{Results: make(map[string]models.TrainingResult, len(names))}
	for i, name := range names {
		result, err := fns[i](ctx)
		if result.Model == "" {
			result.Model = name
		}
		if err != nil {
			result.Success = false
			if result.Message == "" {
				result.Message = err.Error()
			}
		}
		if result.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
		report.Results[name] = result
	}
	report.Duration = time.Since(start)

	if report.Succeeded > 0 && c.cache != nil {
		if err := c.cache.Invalidate(); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to invalidate prediction cache after retrain")
		}
	}

	c.logger.Info().
		Str("model_type", model).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("Retrain finished")
	c.recorder.Record(ctx, audit.TypeModelRetrain, map[string]string{"model_type": model}, report, "")
	return report, nil
}
