// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package training

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/tomtom215/safepulse/internal/logging"
	"github.com/tomtom215/safepulse/internal/models"
)

type countingCache struct{ drops int }

func (c *countingCache) Invalidate() error {
	c.drops++
	return nil
}

func succeed(name string) TrainFunc {
	return func(context.Context) (models.TrainingResult, error) {
		return models.TrainingResult{Model: name, Success: true, SampleCount: 120}, nil
	}
}

func refuse(context.Context) (models.TrainingResult, error) {
	return models.TrainingResult{}, models.ErrInsufficientData
}

func TestCoordinator_Retrain(t *testing.T) {
	tests := []struct {
		name          string
		model         string
		wantSucceeded int
		wantFailed    int
		wantDrops     int
	}{
		{"all", All, 2, 1, 1},
		{"empty means all", "", 2, 1, 1},
		{"single success", "risk_predictor", 1, 0, 1},
		{"single refusal", "anomaly_detector", 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &countingCache{}
			c := NewCoordinator(cache, nil, logging.NewTestLogger(io.Discard))
			c.Register("risk_predictor", succeed("risk_predictor"))
			c.Register("anomaly_detector", refuse)
			c.Register("pattern_analyzer", succeed("pattern_analyzer"))

			report, err := c.Retrain(context.Background(), tt.model)
			if err != nil {
				t.Fatalf("Retrain() error = %v", err)
			}
			if report.Succeeded != tt.wantSucceeded || report.Failed != tt.wantFailed {
				t.Errorf("succeeded/failed = %d/%d, want %d/%d", report.Succeeded, report.Failed, tt.wantSucceeded, tt.wantFailed)
			}
			if cache.drops != tt.wantDrops {
				t.Errorf("cache drops = %d, want %d", cache.drops, tt.wantDrops)
			}
		})
	}
}

func TestCoordinator_RefusalMessage(t *testing.T) {
	c := NewCoordinator(nil, nil, logging.NewTestLogger(io.Discard))
	c.Register("anomaly_detector", refuse)

	report, err := c.Retrain(context.Background(), "anomaly_detector")
	if err != nil {
		t.Fatalf("Retrain() error = %v", err)
	}
	got := report.Results["anomaly_detector"]
	if got.Success || got.Model != "anomaly_detector" || got.Message != models.ErrInsufficientData.Error() {
		t.Errorf("result = %+v", got)
	}
}

func TestCoordinator_UnknownModel(t *testing.T) {
	c := NewCoordinator(nil, nil, logging.NewTestLogger(io.Discard))
	c.Register("risk_predictor", succeed("risk_predictor"))

	if _, err := c.Retrain(context.Background(), "weather_model"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Retrain() error = %v, want ErrUnknownModel", err)
	}
	if c.Known("weather_model") || !c.Known(All) || !c.Known("risk_predictor") {
		t.Error("Known() disagrees with registrations")
	}
}

func TestCoordinator_RegisterOrder(t *testing.T) {
	c := NewCoordinator(nil, nil, logging.NewTestLogger(io.Discard))
	c.Register("b", succeed("b"))
	c.Register("a", succeed("a"))
	c.Register("b", refuse)

	got := c.Models()
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("Models() = %v, want [b a]", got)
	}
}
