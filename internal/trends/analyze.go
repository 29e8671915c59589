// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package trends

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/safepulse/internal/cluster"
	"github.com/tomtom215/safepulse/internal/models"
)

const (
	// MinIncidents is the smallest window that gets a report.
	MinIncidents = 10

	// minSpatialIncidents and minClusterIncidents gate the spatial section
	// and its coarse cluster count.
	minSpatialIncidents = 5
	minClusterIncidents = 10

	// trendWeekDays is the number of active days compared at each end of
	// the window.
	trendWeekDays = 7

	// Forecast parameters.
	minForecastIncidents = 14
	forecastHistoryDays  = 14
	minForecastDays      = 7
	forecastHorizon      = 7
	slopeThreshold       = 0.1

	// minDensityArea bounds the degree² area used for incident density.
	minDensityArea = 0.001

	dateLayout = "2006-01-02"
	unknown    = "unknown"
)

// ErrInsufficientTrendData is returned when a window has fewer than
// MinIncidents usable incidents.
var ErrInsufficientTrendData = errors.New("insufficient data for trend analysis")

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Build computes the report for incidents observed up to now. Incidents
// without usable coordinates or timestamps are ignored.
func Build(incidents []models.Incident, now time.Time) (*Report, error) {
	valid := make([]models.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if inc.Valid() {
			inc.Timestamp = inc.Timestamp.UTC()
			valid = append(valid, inc)
		}
	}
	if len(valid) < MinIncidents {
		return nil, fmt.Errorf("%w: %d incidents, need %d", ErrInsufficientTrendData, len(valid), MinIncidents)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Timestamp.Before(valid[j].Timestamp)
	})

	temporal := analyzeTemporal(valid)
	severity := analyzeSeverity(valid)
	return &Report{
		Summary:         summarize(valid, now),
		Temporal:        temporal,
		Spatial:         analyzeSpatial(valid),
		Severity:        severity,
		Types:           analyzeTypes(valid),
		Hotspots:        hotspots(valid),
		Predictions:     forecast(valid),
		Recommendations: recommend(valid, temporal, severity),
		GeneratedAt:     now,
	}, nil
}

func severityKey(s models.Severity) models.Severity {
	if s == "" {
		return unknown
	}
	return s
}

func typeKey(t string) string {
	if t == "" {
		return unknown
	}
	return t
}

// mostCommon returns the key with the highest count. Ties go to the
// lexically smallest key.
func mostCommon[K ~string](counts map[K]int) K {
	var best K = unknown
	bestN := 0
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}

func summarize(incidents []models.Incident, now time.Time) Summary {
	s := Summary{
		TotalIncidents:       len(incidents),
		SeverityDistribution: make(map[models.Severity]int),
		TypeDistribution:     make(map[string]int),
	}
	for _, inc := range incidents {
		s.SeverityDistribution[severityKey(inc.Severity)]++
		s.TypeDistribution[typeKey(inc.Type)]++
	}

	oldest := incidents[0].Timestamp
	days := int(now.Sub(oldest).Hours()/24) + 1
	s.DailyAverage = models.Round(float64(len(incidents))/float64(max(days, 1)), 2)
	s.MostCommonSeverity = mostCommon(s.SeverityDistribution)
	s.MostCommonType = mostCommon(s.TypeDistribution)
	return s
}

func isNight(hour int) bool {
	return hour >= 22 || hour < 6
}

func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// peak returns the index of the largest count; ties go to the lowest index.
func peak(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}

func analyzeTemporal(incidents []models.Incident) Temporal {
	var hours [24]int
	var days [7]int
	t := Temporal{
		HourlyDistribution: make(map[int]int),
		DailyDistribution:  make(map[int]int),
		WeeklyTrend:        make(map[int]int),
	}

	for _, inc := range incidents {
		ts := inc.Timestamp
		hours[ts.Hour()]++
		days[weekdayIndex(ts)]++
		_, week := ts.ISOWeek()
		t.WeeklyTrend[week]++

		if isNight(ts.Hour()) {
			t.NightIncidents++
		} else {
			t.DayIncidents++
		}
	}

	for h, c := range hours {
		if c > 0 {
			t.HourlyDistribution[h] = c
		}
	}
	for d, c := range days {
		if c > 0 {
			t.DailyDistribution[d] = c
		}
	}
	t.PeakHour = peak(hours[:])
	t.PeakDay = dayNames[peak(days[:])]
	return t
}

func analyzeSpatial(incidents []models.Incident) Spatial {
	points, _ := cluster.Points(incidents)
	if len(points) < minSpatialIncidents {
		return Spatial{Error: "Insufficient location data"}
	}

	lats := make([]float64, len(points))
	lngs := make([]float64, len(points))
	for i, p := range points {
		lats[i], lngs[i] = p.Lat, p.Lng
	}

	box := BoundingBox{
		MinLat: floats.Min(lats),
		MaxLat: floats.Max(lats),
		MinLng: floats.Min(lngs),
		MaxLng: floats.Max(lngs),
	}
	spread := Spread{LatRange: box.MaxLat - box.MinLat, LngRange: box.MaxLng - box.MinLng}

	s := Spatial{
		Center:          models.Coordinates{Latitude: (box.MinLat + box.MaxLat) / 2, Longitude: (box.MinLng + box.MaxLng) / 2},
		BoundingBox:     box,
		Spread:          spread,
		IncidentDensity: float64(len(incidents)) / math.Max(spread.LatRange*spread.LngRange, minDensityArea),
	}
	if len(points) >= minClusterIncidents {
		s.ClusterCount = cluster.DBSCAN(points, cluster.Coarse).Clusters
	}
	return s
}

func analyzeSeverity(incidents []models.Incident) SeverityTrend {
	st := SeverityTrend{
		Timeline: make(map[string]map[models.Severity]int),
		Trend:    TrendInsufficientData,
	}
	for _, inc := range incidents {
		date := inc.Timestamp.Format(dateLayout)
		if st.Timeline[date] == nil {
			st.Timeline[date] = make(map[models.Severity]int)
		}
		st.Timeline[date][severityKey(inc.Severity)]++

		switch inc.Severity {
		case models.SeverityCritical:
			st.TotalCritical++
		case models.SeverityHigh:
			st.TotalHigh++
		case models.SeverityMedium:
			st.TotalMedium++
		case models.SeverityLow:
			st.TotalLow++
		}
	}

	dates := slices.Sorted(maps.Keys(st.Timeline))
	if len(dates) < trendWeekDays {
		return st
	}

	first, last := 0, 0
	for _, d := range dates[:trendWeekDays] {
		first += st.Timeline[d][models.SeverityCritical]
	}
	for _, d := range dates[len(dates)-trendWeekDays:] {
		last += st.Timeline[d][models.SeverityCritical]
	}

	switch {
	case float64(last) > float64(first)*1.5:
		st.Trend = SeverityIncreasing
	case float64(last) < float64(first)*0.5:
		st.Trend = SeverityDecreasing
	default:
		st.Trend = SeverityStable
	}
	return st
}

func analyzeTypes(incidents []models.Incident) TypeTrend {
	tt := TypeTrend{
		TypeDistribution: make(map[string]int),
		GrowthRates:      make(map[string]float64),
		Timeline:         make(map[string]map[string]int),
	}
	for _, inc := range incidents {
		typ := typeKey(inc.Type)
		tt.TypeDistribution[typ]++

		date := inc.Timestamp.Format(dateLayout)
		if tt.Timeline[date] == nil {
			tt.Timeline[date] = make(map[string]int)
		}
		tt.Timeline[date][typ]++
	}

	dates := slices.Sorted(maps.Keys(tt.Timeline))
	if len(dates) < trendWeekDays {
		return tt
	}

	types := slices.Sorted(maps.Keys(tt.TypeDistribution))
	for _, typ := range types {
		first, last := 0, 0
		for _, d := range dates[:trendWeekDays] {
			first += tt.Timeline[d][typ]
		}
		for _, d := range dates[len(dates)-trendWeekDays:] {
			last += tt.Timeline[d][typ]
		}
		if first == 0 {
			continue
		}
		rate := models.Round(float64(last-first)/float64(first)*100, 1)
		tt.GrowthRates[typ] = rate
		if tt.FastestGrowing == nil || rate > tt.GrowthRates[*tt.FastestGrowing] {
			name := typ
			tt.FastestGrowing = &name
		}
	}
	return tt
}

func hotspots(incidents []models.Incident) HotspotSection {
	report, err := cluster.Hotspots(incidents, cluster.Fine)
	if err != nil {
		return HotspotSection{Error: "Insufficient data for hotspot analysis"}
	}
	return HotspotSection{HotspotReport: report}
}

// dailyCounts returns incident counts of the last forecastHistoryDays
// active dates, oldest first.
func dailyCounts(incidents []models.Incident) []float64 {
	byDate := make(map[string]int)
	for _, inc := range incidents {
		byDate[inc.Timestamp.Format(dateLayout)]++
	}
	dates := slices.Sorted(maps.Keys(byDate))
	if len(dates) > forecastHistoryDays {
		dates = dates[len(dates)-forecastHistoryDays:]
	}
	counts := make([]float64, len(dates))
	for i, d := range dates {
		counts[i] = float64(byDate[d])
	}
	return counts
}

func forecast(incidents []models.Incident) Forecast {
	if len(incidents) < minForecastIncidents {
		return Forecast{Error: "Insufficient data for predictions"}
	}
	return Project(dailyCounts(incidents))
}

// Project fits a least-squares line to daily counts and projects the next
// seven days from the last count. It needs at least seven counts.
func Project(counts []float64) Forecast {
	if len(counts) < minForecastDays {
		return Forecast{Error: "Insufficient recent data"}
	}

	xs := make([]float64, len(counts))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, counts, nil, false)

	last := counts[len(counts)-1]
	f := Forecast{
		NextSevenDays: make([]int, forecastHorizon),
		TrendStrength: math.Abs(slope),
	}
	for i := 1; i <= forecastHorizon; i++ {
		v := max(0, int(last+slope*float64(i)))
		f.NextSevenDays[i-1] = v
		f.ExpectedTotalNextWeek += v
	}

	switch {
	case slope > slopeThreshold:
		f.TrendDirection = "increasing"
	case slope < -slopeThreshold:
		f.TrendDirection = "decreasing"
	default:
		f.TrendDirection = "stable"
	}

	n := len(counts)
	recent := stat.Mean(counts[n-3:], nil) - stat.Mean(counts[n-7:n-3], nil)
	f.Confidence = models.Round(models.Clamp01(1-math.Abs(recent)/math.Max(stat.Mean(counts, nil), 1)), 2)
	return f
}

// Recommendation thresholds, as shares of all incidents.
const (
	nightShareThreshold    = 0.3
	criticalShareThreshold = 0.15
	panicShareThreshold    = 0.2
)

var priorityRank = map[string]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

func percent(part, total int) float64 {
	return models.Round(float64(part)/float64(total)*100, 1)
}

func recommend(incidents []models.Incident, temporal Temporal, severity SeverityTrend) []Recommendation {
	total := len(incidents)
	recs := make([]Recommendation, 0, 4)

	if float64(temporal.NightIncidents)/float64(total) > nightShareThreshold {
		recs = append(recs, Recommendation{
			Type:     "temporal",
			Priority: PriorityHigh,
			Message:  "High nighttime incident rate detected. Consider increased night patrols.",
			Data:     map[string]float64{"night_percentage": percent(temporal.NightIncidents, total)},
		})
	}
	if temporal.PeakHour >= 17 && temporal.PeakHour <= 19 {
		recs = append(recs, Recommendation{
			Type:     "temporal",
			Priority: PriorityMedium,
			Message:  "Peak incidents during evening hours. Focus resources during 5-7 PM.",
			Data:     map[string]float64{"peak_hour": float64(temporal.PeakHour)},
		})
	}
	if float64(severity.TotalCritical)/float64(total) > criticalShareThreshold {
		recs = append(recs, Recommendation{
			Type:     "severity",
			Priority: PriorityCritical,
			Message:  "High rate of critical incidents. Review emergency response protocols.",
			Data:     map[string]float64{"critical_percentage": percent(severity.TotalCritical, total)},
		})
	}

	panics := 0
	for _, inc := range incidents {
		if inc.Type == "panic" {
			panics++
		}
	}
	if float64(panics)/float64(total) > panicShareThreshold {
		recs = append(recs, Recommendation{
			Type:     "incident_type",
			Priority: PriorityHigh,
			Message:  "High rate of panic alerts. Consider user education on proper panic button usage.",
			Data:     map[string]float64{"panic_percentage": percent(panics, total)},
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
	})
	return recs
}
