// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package anomaly

import (
	"fmt"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/safepulse/internal/features"
	"github.com/tomtom215/safepulse/internal/learn"
	"github.com/tomtom215/safepulse/internal/models"
)

const (
	// MinCurrentSamples is the shortest trace the movement test will judge.
	MinCurrentSamples = 3

	// MinHistorySamples is the least history the movement test needs.
	MinHistorySamples = 10

	// minHistoryWindows is the least number of historical feature vectors
	// needed for a meaningful standard deviation.
	minHistoryWindows = 2

	// movementAnomalyScore is the score above which a movement is flagged.
	movementAnomalyScore = 0.7
)

// Speed thresholds in km/h.
const (
	MinSpeedHistory = 20

	extremeSpeedKmh    = 200.0
	veryHighSpeedKmh   = 120.0
	stationarySpeedKmh = 1.0

	highPercentileFactor = 1.5
	lowPercentileFactor  = 0.5
	speedZThreshold      = 3.0

	extremeSpeedConfidence   = 0.9
	veryHighSpeedConfidence  = 0.7
	stationaryConfidence     = 0.6
	percentileTripConfidence = 0.8
)

// Route deviation thresholds in km.
const (
	MinorDeviationKm = 2.0
	MajorDeviationKm = 5.0
)

// Time-of-day parameters.
const (
	hourWindow        = 2
	MinTimeMatches    = 5
	timeZThreshold    = 2.5
	zConfidenceScaler = 3.0
)

var featureReasons = map[string]string{
	features.AvgSpeed:         "unusual average speed",
	features.MaxSpeed:         "unusual maximum speed",
	features.SpeedVariance:    "unusual speed variation",
	features.TotalDistance:    "unusual travel distance",
	features.DirectionChanges: "unusual movement pattern",
	features.NumStops:         "unusual number of stops",
}

func featureReason(name string) string {
	if r, ok := featureReasons[name]; ok {
		return r
	}
	return "unusual " + name
}

// SpeedContext carries the caller's expectations about the user's state.
type SpeedContext struct {
	// ExpectedMovement marks a user who should be moving, such as one on
	// an active trip. A stationary reading is then suspicious.
	ExpectedMovement bool `json:"expected_movement"`
}

// Movement scores a recent trace against the user's history.
func Movement(current, history []models.LocationSample, now time.Time) models.AnomalyResult {
	if len(current) < MinCurrentSamples {
		return models.NoJudgment("Insufficient location data", now)
	}
	if len(history) < MinHistorySamples {
		return models.NoJudgment("Insufficient historical data", now)
	}

	windows := historyWindows(history, len(current))
	if len(windows) < minHistoryWindows {
		return models.NoJudgment("Insufficient historical patterns", now)
	}

	cur := features.Extract(current)
	curValues := cur.Values()

	column := make([]float64, len(windows))
	maxZ, worst := 0.0, ""
	for i, name := range features.MovementFeatureNames {
		for w, values := range windows {
			column[w] = values[i]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if std == 0 {
			continue
		}
		z := math.Abs(curValues[i]-mean) / std
		if worst == "" || z > maxZ {
			maxZ, worst = z, name
		}
	}

	result := models.AnomalyResult{
		Reason:    "Movement pattern within normal range",
		Timestamp: now,
		Features:  cur.Map(),
	}
	if worst == "" {
		return result
	}

	score := math.Min(maxZ/3, 1)
	result.IsAnomaly = score > movementAnomalyScore
	result.Confidence = models.Clamp01(score)
	result.Reason = featureReason(worst)
	result.ZScore = models.Float(maxZ)
	return result
}

// historyWindows splits history into consecutive non-overlapping windows of
// size samples and returns the feature vector of each.
func historyWindows(history []models.LocationSample, size int) [][]float64 {
	var out [][]float64
	for start := 0; start+size <= len(history); start += size {
		values := features.Extract(history[start : start+size]).Values()
		if values != nil {
			out = append(out, values)
		}
	}
	return out
}

// Speed scores a reported speed in m/s against the user's speed history.
func Speed(speed float64, history []models.LocationSample, sctx SpeedContext, now time.Time) models.AnomalyResult {
	current := speed * 3.6

	var speeds []float64
	for _, s := range history {
		if s.Speed != nil {
			speeds = append(speeds, *s.Speed*3.6)
		}
	}

	if len(speeds) < MinSpeedHistory {
		return generalSpeedLimits(current, sctx, now)
	}

	mean, std := stat.PopMeanStdDev(speeds, nil)
	slices.Sort(speeds)
	p95 := learn.Percentile(speeds, 0.95)
	p5 := learn.Percentile(speeds, 0.05)

	z := 0.0
	if std > 0 {
		z = math.Abs(current-mean) / std
	}

	high := current > p95*highPercentileFactor
	low := current < p5*lowPercentileFactor && current > stationarySpeedKmh
	statistical := z > speedZThreshold

	result := models.AnomalyResult{
		IsAnomaly:       high || low || statistical,
		Timestamp:       now,
		ZScore:          models.Float(z),
		CurrentSpeedKmh: models.Float(current),
		UserAvgSpeedKmh: models.Float(mean),
	}

	switch {
	case statistical:
		result.Confidence = math.Min(z/speedZThreshold, 1)
	case high || low:
		result.Confidence = percentileTripConfidence
	}

	switch {
	case high:
		result.Reason = fmt.Sprintf("Speed significantly higher than usual (%.1f km/h vs avg %.1f km/h)", current, mean)
	case low:
		result.Reason = fmt.Sprintf("Speed unusually low (%.1f km/h vs avg %.1f km/h)", current, mean)
	case statistical:
		result.Reason = fmt.Sprintf("Speed statistically anomalous (z-score: %.2f)", z)
	default:
		result.Reason = "Speed within normal range"
	}
	return result
}

func generalSpeedLimits(current float64, sctx SpeedContext, now time.Time) models.AnomalyResult {
	result := models.AnomalyResult{
		Timestamp:       now,
		CurrentSpeedKmh: models.Float(current),
	}

	switch {
	case current > extremeSpeedKmh:
		result.IsAnomaly = true
		result.Confidence = extremeSpeedConfidence
		result.Reason = fmt.Sprintf("Extremely high speed: %.1f km/h", current)
	case current > veryHighSpeedKmh:
		result.IsAnomaly = true
		result.Confidence = veryHighSpeedConfidence
		result.Reason = fmt.Sprintf("Very high speed: %.1f km/h", current)
	case current < stationarySpeedKmh && sctx.ExpectedMovement:
		result.IsAnomaly = true
		result.Confidence = stationaryConfidence
		result.Reason = "Unexpected stationary state"
	default:
		result.Reason = "Speed within general limits"
	}
	return result
}

// RouteDeviation measures how far a position is from the nearest of the
// user's common routes. Routes are compared by their start location only.
func RouteDeviation(lat, lng float64, routes []models.Route, now time.Time) models.AnomalyResult {
	if len(routes) == 0 {
		return models.NoJudgment("No established route patterns", now)
	}

	nearest := -1
	minDist := math.Inf(1)
	for i, r := range routes {
		d := features.DistanceKm(lat, lng, r.StartLocation.Latitude, r.StartLocation.Longitude)
		if d < minDist {
			minDist, nearest = d, i
		}
	}

	closest := routes[nearest]
	major := minDist > MajorDeviationKm
	result := models.AnomalyResult{
		IsAnomaly:        minDist > MinorDeviationKm,
		Confidence:       math.Min(minDist/MajorDeviationKm, 1),
		Timestamp:        now,
		DistanceKm:       models.Float(minDist),
		IsMajorDeviation: &major,
		ClosestRoute:     &closest,
	}

	switch {
	case major:
		result.Reason = fmt.Sprintf("Major route deviation: %.1fkm from nearest common route", minDist)
	case result.IsAnomaly:
		result.Reason = fmt.Sprintf("Minor route deviation: %.1fkm from nearest common route", minDist)
	default:
		result.Reason = "Following established route patterns"
	}
	return result
}

// TimeOfDay compares a position at time at with the user's usual positions
// within two hours of the same hour of day. Hours are compared in UTC and
// the window does not wrap around midnight.
func TimeOfDay(lat, lng float64, at time.Time, history []models.LocationSample, now time.Time) models.AnomalyResult {
	hour := at.UTC().Hour()

	var lats, lngs []float64
	for _, s := range history {
		h := s.Timestamp.UTC().Hour()
		if h-hour <= hourWindow && hour-h <= hourWindow {
			lats = append(lats, s.Latitude)
			lngs = append(lngs, s.Longitude)
		}
	}
	if len(lats) < MinTimeMatches {
		return models.NoJudgment("Insufficient historical data for time comparison", now)
	}

	meanLat := stat.Mean(lats, nil)
	meanLng := stat.Mean(lngs, nil)
	distance := features.DistanceKm(lat, lng, meanLat, meanLng)

	spread := make([]float64, len(lats))
	for i := range lats {
		spread[i] = features.DistanceKm(lats[i], lngs[i], meanLat, meanLng)
	}
	_, std := stat.PopMeanStdDev(spread, nil)

	z := 0.0
	if std > 0 {
		z = distance / std
	}

	result := models.AnomalyResult{
		IsAnomaly:  z > timeZThreshold,
		Confidence: math.Min(z/zConfidenceScaler, 1),
		Timestamp:  now,
		ZScore:     models.Float(z),
		DistanceKm: models.Float(distance),
		Reason:     "Normal location for this time",
	}
	if result.IsAnomaly {
		result.Reason = fmt.Sprintf("Location unusual for time %02d:00 (z-score: %.2f)", hour, z)
	}
	return result
}
