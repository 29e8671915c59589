// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package features

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/safepulse/internal/models"
)

// Movement feature names, in the fixed order used by Movement.Values.
const (
	AvgSpeed         = "avg_speed"
	MaxSpeed         = "max_speed"
	SpeedVariance    = "speed_variance"
	TotalDistance    = "total_distance"
	AvgTimeInterval  = "avg_time_interval"
	MaxTimeGap       = "max_time_gap"
	NumStops         = "num_stops"
	DirectionChanges = "direction_changes"
)

// MovementFeatureNames lists the movement features in vector order.
var MovementFeatureNames = []string{
	AvgSpeed,
	MaxSpeed,
	SpeedVariance,
	TotalDistance,
	AvgTimeInterval,
	MaxTimeGap,
	NumStops,
	DirectionChanges,
}

const (
	// stopSpeedThreshold is the speed in m/s below which a segment counts as a stop.
	stopSpeedThreshold = 0.1

	// directionChangeThreshold is the bearing delta in degrees counted as a turn.
	directionChangeThreshold = 45.0
)

// Movement is a fixed-shape movement feature vector. Speeds are in m/s,
// distance in km and time values in seconds.
type Movement struct {
	AvgSpeed         float64
	MaxSpeed         float64
	SpeedVariance    float64
	TotalDistanceKm  float64
	AvgTimeInterval  float64
	MaxTimeGap       float64
	NumStops         float64
	DirectionChanges float64

	// Empty is set when fewer than two samples were supplied.
	Empty bool
}

// Values returns the features in MovementFeatureNames order, or nil when empty.
func (m Movement) Values() []float64 {
	if m.Empty {
		return nil
	}
	return []float64{
		m.AvgSpeed,
		m.MaxSpeed,
		m.SpeedVariance,
		m.TotalDistanceKm,
		m.AvgTimeInterval,
		m.MaxTimeGap,
		m.NumStops,
		m.DirectionChanges,
	}
}

// Map returns the features keyed by name, or nil when empty.
func (m Movement) Map() map[string]float64 {
	values := m.Values()
	if values == nil {
		return nil
	}
	out := make(map[string]float64, len(values))
	for i, name := range MovementFeatureNames {
		out[name] = values[i]
	}
	return out
}

// Extract computes the movement features of an ordered sample sequence.
func Extract(samples []models.LocationSample) Movement {
	if len(samples) < 2 {
		return Movement{Empty: true}
	}

	n := len(samples) - 1
	distances := make([]float64, 0, n)
	intervals := make([]float64, 0, n)
	speeds := make([]float64, 0, n)

	for i := 1; i < len(samples); i++ {
		prev, curr := samples[i-1], samples[i]

		d := SampleDistanceKm(prev, curr)
		distances = append(distances, d)

		dt := curr.Timestamp.Sub(prev.Timestamp).Seconds()
		intervals = append(intervals, dt)

		if dt > 0 {
			speeds = append(speeds, d*1000/dt)
		}
	}

	m := Movement{
		TotalDistanceKm:  floats.Sum(distances),
		AvgTimeInterval:  stat.Mean(intervals, nil),
		MaxTimeGap:       floats.Max(intervals),
		DirectionChanges: float64(countDirectionChanges(samples)),
	}

	if len(speeds) > 0 {
		m.AvgSpeed, m.SpeedVariance = stat.PopMeanVariance(speeds, nil)
		m.MaxSpeed = floats.Max(speeds)
		for _, s := range speeds {
			if s < stopSpeedThreshold {
				m.NumStops++
			}
		}
	}

	return m
}

func countDirectionChanges(samples []models.LocationSample) int {
	if len(samples) < 3 {
		return 0
	}

	changes := 0
	for i := 2; i < len(samples); i++ {
		b1 := Bearing(samples[i-2], samples[i-1])
		b2 := Bearing(samples[i-1], samples[i])
		if BearingDelta(b1, b2) > directionChangeThreshold {
			changes++
		}
	}
	return changes
}
