// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package models

import (
	"errors"
	"time"
)

var (
	// ErrInsufficientData is returned when a training run is refused for
	// lack of samples. The previous model stays in place.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrTrainingInProgress is returned when a retrain is requested while
	// another one is running.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrModelUnavailable is returned by calls that need a trained model.
	ErrModelUnavailable = errors.New("model not trained")
)

// TrainingResult summarizes one training attempt.
type TrainingResult struct {
	Model       string             `json:"model"`
	Success     bool               `json:"success"`
	Message     string             `json:"message,omitempty"`
	SampleCount int                `json:"sample_count"`
	Version     int                `json:"version,omitempty"`
	TrainedAt   *time.Time         `json:"trained_at,omitempty"`
	DurationMS  int64              `json:"duration_ms"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}
