// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/predict/route-risk", "200"))
	RecordAPIRequest("POST", "/api/predict/route-risk", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/predict/route-risk", "200"))
	if after-before != 1 {
		t.Errorf("request counter delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests) - start; got != 2 {
		t.Errorf("active delta = %v, want 2", got)
	}
	TrackActiveRequest(false)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != start {
		t.Errorf("active = %v, want %v", got, start)
	}
}

func TestRecordPrediction(t *testing.T) {
	tests := []struct {
		name      string
		usedModel bool
		source    string
	}{
		{"trained model", true, "model"},
		{"heuristic fallback", false, "heuristic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := PredictionsTotal.WithLabelValues("route_risk", tt.source)
			before := testutil.ToFloat64(c)
			RecordPrediction("route_risk", tt.usedModel)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("delta = %v, want 1", got)
			}
		})
	}
}

func TestRecordAnomaly(t *testing.T) {
	c := AnomaliesDetected.WithLabelValues("speed_anomaly")
	before := testutil.ToFloat64(c)
	RecordAnomaly("speed_anomaly", false)
	RecordAnomaly("speed_anomaly", true)
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("anomaly delta = %v, want 1", got)
	}
}

func TestRecordTraining(t *testing.T) {
	tests := []struct {
		name    string
		refused bool
		err     error
		result  string
	}{
		{"success", false, nil, "success"},
		{"refused", true, nil, "refused"},
		{"error", false, errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ModelTrainingTotal.WithLabelValues("risk_predictor", tt.result)
			before := testutil.ToFloat64(c)
			RecordTraining("risk_predictor", time.Second, tt.refused, tt.err)
			if got := testutil.ToFloat64(c) - before; got != 1 {
				t.Errorf("delta = %v, want 1", got)
			}
		})
	}
}

func TestRecordDataSourceQuery(t *testing.T) {
	RecordDataSourceQuery("historical_incidents", 20*time.Millisecond, nil)
	RecordDataSourceQuery("historical_incidents", 20*time.Millisecond, errors.New("timeout"))

	var m dto.Metric
	h, ok := DataSourceQueryDuration.WithLabelValues("historical_incidents").(interface{ Write(*dto.Metric) error })
	if !ok {
		t.Fatal("histogram does not expose Write")
	}
	if err := h.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := m.GetHistogram().GetSampleCount(); got < 2 {
		t.Errorf("sample count = %d, want >= 2", got)
	}
	if got := testutil.ToFloat64(DataSourceErrors.WithLabelValues("historical_incidents")); got < 1 {
		t.Errorf("error count = %v, want >= 1", got)
	}
}

func TestSetModelVersionAndCache(t *testing.T) {
	SetModelVersion("anomaly_detector", 7)
	if got := testutil.ToFloat64(ModelVersion.WithLabelValues("anomaly_detector")); got != 7 {
		t.Errorf("version = %v, want 7", got)
	}

	hits, misses := testutil.ToFloat64(CacheHits), testutil.ToFloat64(CacheMisses)
	RecordCacheLookup(true)
	RecordCacheLookup(false)
	if testutil.ToFloat64(CacheHits)-hits != 1 || testutil.ToFloat64(CacheMisses)-misses != 1 {
		t.Error("cache counters did not advance by one each")
	}
}
