// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package risk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/tomtom215/safepulse/internal/datasource"
	"github.com/tomtom215/safepulse/internal/logging"
	"github.com/tomtom215/safepulse/internal/models"
	"github.com/tomtom215/safepulse/internal/modelstore"
)

// Tuesday 14:30 UTC, outside rush hours.
var fixedNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Level
	}{
		{0, LevelLow},
		{0.39, LevelLow},
		{0.4, LevelMedium},
		{0.59, LevelMedium},
		{0.6, LevelHigh},
		{0.79, LevelHigh},
		{0.8, LevelCritical},
		{1, LevelCritical},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.score), func(t *testing.T) {
			if got := LevelFor(tt.score); got != tt.want {
				t.Errorf("LevelFor(%v) = %s, want %s", tt.score, got, tt.want)
			}
		})
	}
}

func TestRecommendations(t *testing.T) {
	if got := Recommendations(0.85); len(got) != 5 || got[0] != "Consider postponing travel if possible" {
		t.Errorf("critical recommendations = %v", got)
	}
	if got := Recommendations(0.1); len(got) != 2 {
		t.Errorf("low recommendations = %v", got)
	}

	got := Recommendations(0.5)
	got[0] = "changed"
	if Recommendations(0.5)[0] == "changed" {
		t.Error("Recommendations must return a copy")
	}
}

func TestTimeMultiplier(t *testing.T) {
	tests := []struct {
		hour int
		want float64
	}{
		{0, 1.3}, {5, 1.3}, {6, 1.1}, {8, 1.1}, {9, 1.0},
		{16, 1.0}, {17, 1.1}, {19, 1.1}, {20, 1.0}, {22, 1.3}, {23, 1.3},
	}
	for _, tt := range tests {
		if got := TimeMultiplier(tt.hour); got != tt.want {
			t.Errorf("TimeMultiplier(%d) = %v, want %v", tt.hour, got, tt.want)
		}
	}
}

func TestWeatherRisk(t *testing.T) {
	tests := map[string]float64{
		"":          DefaultWeatherRisk,
		"clear":     0.1,
		"Rain":      0.6,
		" storm ":   0.9,
		"hurricane": DefaultWeatherRisk,
	}
	for in, want := range tests {
		if got := WeatherRisk(in); got != want {
			t.Errorf("WeatherRisk(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestAverageSpeedAndComplexity(t *testing.T) {
	if got := AverageSpeed(5, 8); got != 30 {
		t.Errorf("rush hour speed = %v, want 30", got)
	}
	if got := AverageSpeed(15, 18); got != 20 {
		t.Errorf("rush hour floor = %v, want 20", got)
	}
	if got := AverageSpeed(10, 13); got != 50 {
		t.Errorf("off-peak speed = %v, want 50", got)
	}
	if got := AverageSpeed(40, 13); got != 30 {
		t.Errorf("off-peak floor = %v, want 30", got)
	}
	if got := RouteComplexity(4); got != 0.4 {
		t.Errorf("RouteComplexity(4) = %v", got)
	}
	if got := RouteComplexity(25); got != 1 {
		t.Errorf("RouteComplexity(25) = %v", got)
	}
}

func TestHeuristicRouteRisk(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		hour     int
		want     float64
	}{
		{"short daytime", 0, 14, 0.7},
		{"long daytime", 50, 14, 1.0},
		{"short night", 0, 23, 0.79},
		{"medium rush", 10, 18, 0.83},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeuristicRouteRisk(tt.distance, tt.hour)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("HeuristicRouteRisk() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAreaRisk(t *testing.T) {
	t.Run("no incidents", func(t *testing.T) {
		score, factors := AreaRisk(models.AreaStats{}, 1, 23)
		if score != 0 || factors.RiskDensity != 0 || factors.TimeMultiplier != 1.3 {
			t.Errorf("got score %v factors %+v", score, factors)
		}
	})

	t.Run("density scaled by time", func(t *testing.T) {
		// 3 critical incidents within 1 km over 30 days.
		stats := models.AreaStats{
			TotalIncidents:       3,
			SeverityDistribution: map[models.Severity]int{models.SeverityCritical: 3},
		}
		score, factors := AreaRisk(stats, 1, 12)
		wantDensity := 3 / (math.Pi * 30)
		if math.Abs(factors.RiskDensity-wantDensity) > 1e-12 {
			t.Errorf("RiskDensity = %v, want %v", factors.RiskDensity, wantDensity)
		}
		if math.Abs(score-wantDensity/0.1) > 1e-12 {
			t.Errorf("score = %v, want %v", score, wantDensity/0.1)
		}

		night, _ := AreaRisk(stats, 1, 2)
		if math.Abs(night-score*1.3) > 1e-12 {
			t.Errorf("night score = %v, want %v", night, score*1.3)
		}
	})

	t.Run("saturates", func(t *testing.T) {
		stats := models.AreaStats{
			TotalIncidents:       100,
			SeverityDistribution: map[models.Severity]int{models.SeverityHigh: 100},
		}
		if score, _ := AreaRisk(stats, 1, 23); score != 1 {
			t.Errorf("score = %v, want 1", score)
		}
	})
}

func TestBuildFeatures(t *testing.T) {
	in := routeInput{
		startLat:          40.70,
		startLng:          -74.00,
		endLat:            40.70,
		endLng:            -73.90,
		at:                fixedNow,
		weather:           "fog",
		weightedIncidents: 2.5,
	}
	f := buildFeatures(in, DefaultEstimator())
	v := f.Vector()
	if len(v) != len(FeatureNames) {
		t.Fatalf("vector has %d features, want %d", len(v), len(FeatureNames))
	}
	if f.Hour != 14 || f.DayOfWeek != 1 || f.Month != 3 {
		t.Errorf("time features = %v %v %v", f.Hour, f.DayOfWeek, f.Month)
	}
	if f.HistoricalIncidents != 2.5 || f.WeatherRisk != 0.7 {
		t.Errorf("incident/weather features = %v %v", f.HistoricalIncidents, f.WeatherRisk)
	}
	if f.DistanceToHospital != 5 || f.DistanceToPolice != 3 || f.PopulationDensity != 0.5 {
		t.Errorf("estimates = %+v", f)
	}
	if f.RouteComplexity <= 0.8 || f.RouteComplexity >= 0.9 {
		t.Errorf("RouteComplexity = %v, want about 0.84", f.RouteComplexity)
	}
}

func TestTrainingRows(t *testing.T) {
	base := fixedNow.Add(-10 * 24 * time.Hour)
	incidents := []models.Incident{
		{ID: "a", Latitude: 40.700, Longitude: -74.000, Severity: models.SeverityCritical, Timestamp: base},
		{ID: "b", Latitude: 40.701, Longitude: -74.000, Severity: models.SeverityLow, Timestamp: base.Add(time.Hour)},
		{ID: "c", Latitude: 41.500, Longitude: -74.000, Severity: models.SeverityHigh, Timestamp: base.Add(2 * time.Hour)},
		{ID: "bad", Latitude: 200, Longitude: -74.000, Timestamp: base},
	}
	X, y := trainingRows(incidents, DefaultEstimator())
	if len(X) != 3 || len(y) != 3 {
		t.Fatalf("got %d rows, want 3", len(X))
	}
	// b sees a (earlier, nearby); a sees nothing before it; c is far away.
	if X[0][3] != 0 || X[1][3] != 1.0 || X[2][3] != 0 {
		t.Errorf("incident counts = %v %v %v", X[0][3], X[1][3], X[2][3])
	}
	if y[0] != 1.0 || y[1] != 0.2 || y[2] != 0.8 {
		t.Errorf("targets = %v", y)
	}
}

func newSource(t *testing.T) *datasource.MemorySource {
	t.Helper()
	src := datasource.NewMemorySource()
	src.SetClock(func() time.Time { return fixedNow })
	return src
}

func newPredictor(t *testing.T, src datasource.Source, opts Options) *Predictor {
	t.Helper()
	p := NewPredictor(src, opts, logging.NewTestLogger(io.Discard))
	p.SetClock(func() time.Time { return fixedNow })
	return p
}

func seedIncidents(t *testing.T, src *datasource.MemorySource, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		inc := models.Incident{
			ID:        fmt.Sprintf("inc-%d", i),
			Latitude:  40.70 + 0.002*float64(i%10),
			Longitude: -74.00 + 0.002*float64(i%7),
			Severity:  models.Severities[i%len(models.Severities)],
			Type:      "theft",
			Timestamp: fixedNow.AddDate(0, 0, -(i % 80)).Add(-time.Duration(i%24) * time.Hour),
		}
		if err := src.AddIncident(context.Background(), inc); err != nil {
			t.Fatalf("AddIncident() error = %v", err)
		}
	}
}

func TestPredictor_HeuristicRoute(t *testing.T) {
	p := newPredictor(t, newSource(t), Options{})

	got := p.PredictRoute(context.Background(), RouteRequest{
		StartLat: 40.70, StartLng: -74.00, EndLat: 40.70, EndLng: -74.00,
	})
	if got.Source != SourceHeuristic {
		t.Errorf("Source = %s, want heuristic", got.Source)
	}
	if math.Abs(got.RiskScore-0.7) > 1e-9 || got.RiskLevel != LevelHigh {
		t.Errorf("got score %v level %s, want 0.7 high", got.RiskScore, got.RiskLevel)
	}
	if len(got.Recommendations) != 4 {
		t.Errorf("got %d recommendations, want 4", len(got.Recommendations))
	}

	night := p.PredictRoute(context.Background(), RouteRequest{
		StartLat: 40.70, StartLng: -74.00, EndLat: 40.70, EndLng: -74.00, TimeOfDay: "23:15",
	})
	if math.Abs(night.RiskScore-0.79) > 1e-9 {
		t.Errorf("night score = %v, want 0.79", night.RiskScore)
	}
}

func TestPredictor_TrainRefused(t *testing.T) {
	src := newSource(t)
	seedIncidents(t, src, 20)
	p := newPredictor(t, src, Options{})

	if _, err := p.Train(context.Background()); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("Train() error = %v, want ErrInsufficientData", err)
	}
	if p.Status().ModelLoaded {
		t.Error("model loaded after refused training")
	}
}

func TestPredictor_TrainAndPredict(t *testing.T) {
	src := newSource(t)
	seedIncidents(t, src, 120)
	p := newPredictor(t, src, Options{})

	result, err := p.Train(context.Background())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if !result.Success || result.SampleCount != 120 {
		t.Errorf("unexpected result %+v", result)
	}
	if _, ok := result.Metrics["mse"]; !ok {
		t.Error("training result should report mse")
	}

	st := p.Status()
	if !st.ModelLoaded || st.FeatureCount != 10 || st.MSE == nil || st.R2 == nil {
		t.Errorf("unexpected status %+v", st)
	}

	got := p.PredictRoute(context.Background(), RouteRequest{
		StartLat: 40.70, StartLng: -74.00, EndLat: 40.71, EndLng: -73.99, WeatherConditions: "rain",
	})
	if got.Source != SourceModel {
		t.Fatalf("Source = %s, want model", got.Source)
	}
	if got.RiskScore < 0 || got.RiskScore > 1 {
		t.Errorf("RiskScore = %v out of range", got.RiskScore)
	}
	if got.Features == nil || got.Features.WeatherRisk != 0.6 {
		t.Errorf("Features = %+v", got.Features)
	}
	if got.RiskLevel != LevelFor(got.RiskScore) {
		t.Errorf("RiskLevel %s does not match score %v", got.RiskLevel, got.RiskScore)
	}
}

type brokenSource struct {
	datasource.Source
}

func (brokenSource) AreaIncidentStats(context.Context, float64, float64, float64, int) (models.AreaStats, error) {
	return models.AreaStats{}, errors.New("timeout")
}

func (brokenSource) HistoricalIncidents(context.Context, int, *orb.Bound) ([]models.Incident, error) {
	return nil, errors.New("timeout")
}

func TestPredictor_AreaRisk(t *testing.T) {
	src := newSource(t)
	for i := 0; i < 3; i++ {
		_ = src.AddIncident(context.Background(), models.Incident{
			ID: fmt.Sprintf("c%d", i), Latitude: 40.7, Longitude: -74.0,
			Severity: models.SeverityCritical, Timestamp: fixedNow.Add(-time.Duration(i+1) * 24 * time.Hour),
		})
	}
	// Outside the 30 day window.
	_ = src.AddIncident(context.Background(), models.Incident{
		ID: "old", Latitude: 40.7, Longitude: -74.0, Severity: models.SeverityCritical, Timestamp: fixedNow.AddDate(0, 0, -45),
	})
	p := newPredictor(t, src, Options{})

	got := p.PredictArea(context.Background(), AreaRequest{Latitude: 40.7, Longitude: -74.0})
	if got.Factors == nil || got.Factors.HistoricalIncidents != 3 {
		t.Fatalf("Factors = %+v", got.Factors)
	}
	want := (3 / (math.Pi * 30)) / 0.1
	if math.Abs(got.RiskScore-want) > 1e-9 {
		t.Errorf("RiskScore = %v, want %v", got.RiskScore, want)
	}

	empty := p.PredictArea(context.Background(), AreaRequest{Latitude: 10, Longitude: 10, RadiusMeters: 500})
	if empty.RiskScore != 0 || empty.RiskLevel != LevelLow {
		t.Errorf("empty area = %+v", empty)
	}

	broken := newPredictor(t, brokenSource{}, Options{})
	failed := broken.PredictArea(context.Background(), AreaRequest{Latitude: 40.7, Longitude: -74.0})
	if failed.RiskScore != 0.5 || failed.RiskLevel != LevelMedium || failed.Error == "" {
		t.Errorf("failed prediction = %+v", failed)
	}
}

func TestPredictor_ModelFallsBackOnSourceError(t *testing.T) {
	src := newSource(t)
	seedIncidents(t, src, 80)
	p := newPredictor(t, src, Options{})
	if _, err := p.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	p.source = brokenSource{}
	got := p.PredictRoute(context.Background(), RouteRequest{StartLat: 40.7, StartLng: -74, EndLat: 40.7, EndLng: -74})
	if got.Source != SourceHeuristic {
		t.Errorf("Source = %s, want heuristic fallback", got.Source)
	}

	if _, err := p.Train(context.Background()); err == nil {
		t.Error("Train() should fail when the source fails")
	}
	if !p.Status().ModelLoaded {
		t.Error("failed training must keep the previous model")
	}
}

func TestPredictor_SnapshotRestore(t *testing.T) {
	store, err := modelstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("modelstore.New() error = %v", err)
	}
	src := newSource(t)
	seedIncidents(t, src, 90)

	p := newPredictor(t, src, Options{Store: store, KeepVersions: 3})
	if _, err := p.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	restored := newPredictor(t, src, Options{Store: store})
	if err := restored.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if st := restored.Status(); !st.ModelLoaded || st.SnapshotVersion != 1 {
		t.Errorf("restored status %+v", st)
	}

	req := RouteRequest{StartLat: 40.70, StartLng: -74.00, EndLat: 40.72, EndLng: -74.01, TimeOfDay: "08:00"}
	a := p.PredictRoute(context.Background(), req)
	b := restored.PredictRoute(context.Background(), req)
	if a.RiskScore != b.RiskScore {
		t.Errorf("restored model scores %v, original %v", b.RiskScore, a.RiskScore)
	}
}

// trainingSwitch serves training incidents from alt once flipped. Area
// stats, and so prediction features, always come from the embedded source.
type trainingSwitch struct {
	datasource.Source
	alt    datasource.Source
	useAlt atomic.Bool
}

func (s *trainingSwitch) HistoricalIncidents(ctx context.Context, days int, bounds *orb.Bound) ([]models.Incident, error) {
	if s.useAlt.Load() {
		return s.alt.HistoricalIncidents(ctx, days, bounds)
	}
	return s.Source.HistoricalIncidents(ctx, days, bounds)
}

var swapRoute = RouteRequest{StartLat: 40.70, StartLng: -74.00, EndLat: 40.71, EndLng: -73.99}

func TestPredictor_TrainKeepsModelOnRefusal(t *testing.T) {
	ctx := context.Background()
	primary := newSource(t)
	seedIncidents(t, primary, 120)
	sparse := newSource(t)
	seedIncidents(t, sparse, 20)

	src := &trainingSwitch{Source: primary, alt: sparse}
	p := newPredictor(t, src, Options{})
	if _, err := p.Train(ctx); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	before := p.Status()
	scoreBefore := p.PredictRoute(ctx, swapRoute).RiskScore

	src.useAlt.Store(true)
	result, err := p.Train(ctx)
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("Train() error = %v, want ErrInsufficientData", err)
	}
	if result.Success {
		t.Error("refused training reported success")
	}

	after := p.Status()
	if !after.ModelLoaded {
		t.Fatal("refused training dropped the previous model")
	}
	if after.SnapshotVersion != before.SnapshotVersion || !after.LastTrained.Equal(*before.LastTrained) {
		t.Errorf("status changed after refusal: before %+v, after %+v", before, after)
	}
	got := p.PredictRoute(ctx, swapRoute)
	if got.Source != SourceModel || got.RiskScore != scoreBefore {
		t.Errorf("prediction after refusal = %v (%s), want %v from the previous model", got.RiskScore, got.Source, scoreBefore)
	}
}

// Predictions served while Train runs must come whole from one trained
// model: a scaler from one run paired with a regressor from another would
// produce a score neither model gives.
func TestPredictor_ConcurrentPredictDuringTrain(t *testing.T) {
	ctx := context.Background()
	primary := newSource(t)
	seedIncidents(t, primary, 120)
	other := newSource(t)
	seedIncidents(t, other, 200)

	src := &trainingSwitch{Source: primary, alt: other}
	p := newPredictor(t, src, Options{})

	if _, err := p.Train(ctx); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	scoreA := p.PredictRoute(ctx, swapRoute).RiskScore
	src.useAlt.Store(true)
	if _, err := p.Train(ctx); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	scoreB := p.PredictRoute(ctx, swapRoute).RiskScore

	const readers = 4
	stop := make(chan struct{})
	errs := make(chan string, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got := p.PredictRoute(ctx, swapRoute)
				if got.Source != SourceModel || (got.RiskScore != scoreA && got.RiskScore != scoreB) {
					errs <- fmt.Sprintf("prediction %v (%s) matches neither trained model (%v, %v)", got.RiskScore, got.Source, scoreA, scoreB)
					return
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		src.useAlt.Store(i%2 == 0)
		if _, err := p.Train(ctx); err != nil {
			t.Errorf("Train() round %d error = %v", i, err)
		}
	}
	close(stop)
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}

	if v := p.Status().SnapshotVersion; v != 22 {
		t.Errorf("SnapshotVersion = %d, want 22 after 22 successful runs", v)
	}
}
