// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/safepulse/internal/anomaly"
	"github.com/tomtom215/safepulse/internal/authz"
	"github.com/tomtom215/safepulse/internal/cache"
	"github.com/tomtom215/safepulse/internal/datasource"
	"github.com/tomtom215/safepulse/internal/dispatch"
	"github.com/tomtom215/safepulse/internal/logging"
	"github.com/tomtom215/safepulse/internal/models"
	"github.com/tomtom215/safepulse/internal/risk"
	"github.com/tomtom215/safepulse/internal/training"
	"github.com/tomtom215/safepulse/internal/trends"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

type testServer struct {
	handler  http.Handler
	source   *datasource.MemorySource
	cache    *cache.PredictionCache
	retrains int
}

type serverOptions struct {
	mw             *ChiMiddlewareConfig
	guard          bool
	retrainPerHour int
}

func newTestServer(t *testing.T, opts serverOptions) (*testServer, *authz.TokenVerifier) {
	t.Helper()

	logger := logging.NewTestLogger(io.Discard)
	source := datasource.NewMemorySource()

	pc, err := cache.Open(cache.Options{TTL: time.Minute})
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = pc.Close() })

	ts := &testServer{source: source, cache: pc}

	analyzer := trends.NewAnalyzer(source, nil, logger)
	trainer := training.NewCoordinator(pc, nil, logger)
	trainer.Register(risk.ModelName, func(context.Context) (models.TrainingResult, error) {
		ts.retrains++
		return models.TrainingResult{Model: risk.ModelName, Success: true}, nil
	})
	trainer.Register(trends.ModelName, func(ctx context.Context) (models.TrainingResult, error) {
		return analyzer.Retrain(ctx), nil
	})

	h := NewHandler(Dependencies{
		Predictor:      risk.NewPredictor(source, risk.Options{}, logger),
		Detector:       anomaly.NewDetector(source, anomaly.Options{}, logger),
		Analyzer:       analyzer,
		Optimizer:      dispatch.NewOptimizer(nil, logger),
		Ingester:       source,
		Trainer:        trainer,
		Cache:          pc,
		RetrainPerHour: opts.retrainPerHour,
	})

	mwConfig := opts.mw
	if mwConfig == nil {
		mwConfig = DefaultChiMiddlewareConfig()
	}

	var (
		guard    *authz.Middleware
		verifier *authz.TokenVerifier
	)
	if opts.guard {
		verifier, err = authz.NewTokenVerifier(testSecret)
		if err != nil {
			t.Fatalf("NewTokenVerifier() error = %v", err)
		}
		enforcer, err := authz.NewEnforcer("")
		if err != nil {
			t.Fatalf("NewEnforcer() error = %v", err)
		}
		guard = authz.NewMiddleware(verifier, enforcer)
	}

	ts.handler = NewRouter(h, NewChiMiddleware(mwConfig), guard).SetupChi()
	return ts, verifier
}

func (ts *testServer) do(t *testing.T, method, path, body string, header http.Header) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v: %s", err, rec.Body.String())
	}
	return rec, env
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, serverOptions{})

	rec, env := ts.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if env.Metadata.RequestID != rec.Header().Get("X-Request-ID") {
		t.Errorf("metadata.request_id = %q, want header value", env.Metadata.RequestID)
	}

	var health HealthResponse
	if err := json.Unmarshal(env.Data, &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" || health.Version != ServiceVersion {
		t.Errorf("health = %+v", health)
	}
	if health.Models.RiskPredictor.ModelLoaded || health.Models.AnomalyDetector.MovementModelLoaded {
		t.Error("models should not be loaded before training")
	}
}

func TestRouteRisk(t *testing.T) {
	ts, _ := newTestServer(t, serverOptions{})
	body := `{"start_lat":40.7128,"start_lng":-74.0060,"end_lat":40.7580,"end_lng":-73.9855,"time_of_day":"14:30"}`

	rec, env := ts.do(t, http.MethodPost, "/api/predict/route-risk", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if env.Metadata.Cached {
		t.Error("first response should not be cached")
	}

	var result risk.RouteRisk
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if result.Source != risk.SourceHeuristic {
		t.Errorf("source = %q, want heuristic", result.Source)
	}
	if result.RiskScore < 0 || result.RiskScore > 1 {
		t.Errorf("risk_score = %v out of range", result.RiskScore)
	}
	if result.RiskLevel != risk.LevelFor(result.RiskScore) {
		t.Errorf("risk_level = %s for score %v", result.RiskLevel, result.RiskScore)
	}

	_, env = ts.do(t, http.MethodPost, "/api/predict/route-risk", body, nil)
	if !env.Metadata.Cached {
		t.Error("second response should be served from cache")
	}
	var again risk.RouteRisk
	if err := json.Unmarshal(env.Data, &again); err != nil {
		t.Fatal(err)
	}
	if again.RiskScore != result.RiskScore {
		t.Errorf("cached score = %v, want %v", again.RiskScore, result.RiskScore)
	}
}

func TestValidationErrors(t *testing.T) {
	ts, _ := newTestServer(t, serverOptions{})

	tests := []struct {
		name string
		path string
		body string
		code string
	}{
		{"missing end", "/api/predict/route-risk", `{"start_lat":40.7,"start_lng":-74.0,"end_lat":40.8}`, ErrCodeValidation},
		{"bad latitude", "/api/predict/area-risk", `{"latitude":91,"longitude":-74.0}`, ErrCodeValidation},
		{"bad clock", "/api/predict/route-risk", `{"start_lat":1,"start_lng":1,"end_lat":1,"end_lng":1,"time_of_day":"25:00"}`, ErrCodeValidation},
		{"no locations", "/api/detect/movement-anomaly", `{"user_id":"u1","locations":[]}`, ErrCodeValidation},
		{"negative speed", "/api/detect/speed-anomaly", `{"user_id":"u1","speed":-1}`, ErrCodeValidation},
		{"unknown severity", "/api/incidents", `{"latitude":1,"longitude":1,"severity":"extreme","type":"theft"}`, ErrCodeValidation},
		{"malformed json", "/api/predict/area-risk", `{"latitude":`, ErrCodeBadRequest},
		{"empty body", "/api/predict/area-risk", ``, ErrCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := ts.do(t, http.MethodPost, tt.path, tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if env.Status != "error" || env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestAreaRisk_ZeroCoordinatesAccepted(t *testing.T) {
	ts, _ := newTestServer(t, serverOptions{})

	rec, env := ts.do(t, http.MethodPost, "/api/predict/area-risk", `{"latitude":0,"longitude":0}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result risk.AreaRiskResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if result.Factors == nil || result.Factors.HistoricalIncidents != 0 {
		t.Errorf("factors = %+v", result.Factors)
	}
}

func TestDetectSpeedAnomaly_GeneralLimits(t *testing.T) {
	ts, _ := newTestServer(t, serverOptions{})

	rec, env := ts.do(t, http.MethodPost, "/api/detect/speed-anomaly", `{"user_id":"u1","speed":3.5}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result models.AnomalyResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if result.IsAnomaly || result.Confidence != 0 {
		t.Errorf("result = %+v, want a normal reading", result)
	}
}

func TestTrends_InsufficientData(t *testing.T) {
	ts, _ := newTestServer(t, serverOptions{})

	rec, env := ts.do(t, http.MethodGet, "/api/analytics/trends?time_range=7d", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeInsufficientData {
		t.Errorf("error = %+v", env.Error)
	}

	rec, env = ts.do(t, http.MethodGet, "/api/analytics/trends?time_range=soon", "", nil)
	if rec.Code != http.StatusBadRequest || env.Error.Code != ErrCodeValidation {
		t.Errorf("invalid time_range: status = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestIngestThenTrends(t *testing.T) {
	ts, _ := newTestServer(t, serverOptions{})
	now := time.Now().UTC()

	for i := 0; i < trends.MinIncidents; i++ {
		body, _ := json.Marshal(map[string]interface{}{
			"latitude":  40.7 + float64(i)*0.0001,
			"longitude": -74.0,
			"severity":  "high",
			"type":      "theft",
			"timestamp": now.Add(-time.Duration(i+1) * time.Hour),
		})
		rec, _ := ts.do(t, http.MethodPost, "/api/incidents", string(body), nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("ingest %d: status = %d, body = %s", i, rec.Code, rec.Body.String())
		}
	}

	rec, env := ts.do(t, http.MethodGet, "/api/analytics/trends?time_range=2d", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var report trends.Report
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatal(err)
	}
	if report.Summary.TotalIncidents != trends.MinIncidents {
		t.Errorf("total_incidents = %d, want %d", report.Summary.TotalIncidents, trends.MinIncidents)
	}

	_, env = ts.do(t, http.MethodGet, "/api/analytics/trends?time_range=2d", "", nil)
	if !env.Metadata.Cached {
		t.Error("second trends response should be cached")
	}
}

func TestIngestLocations(t *testing.T) {
	ts, _ := newTestServer(t, serverOptions{})

	body := `{"user_id":"u1","locations":[{"latitude":40.7,"longitude":-74.0},{"latitude":40.71,"longitude":-74.01,"speed":1.5}]}`
	rec, env := ts.do(t, http.MethodPost, "/api/locations", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp IngestLocationsResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Accepted != 2 {
		t.Errorf("accepted = %d, want 2", resp.Accepted)
	}

	samples, err := ts.source.UserLocations(context.Background(), "u1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 2 {
		t.Errorf("stored %d samples, want 2", len(samples))
	}
}

func TestOptimizeResponse(t *testing.T) {
	ts, _ := newTestServer(t, serverOptions{})

	body := `{
		"incident": {"latitude": 40.7128, "longitude": -74.0060, "type": "medical", "severity": "critical"},
		"available_resources": [
			{"id": "amb-1", "type": "ambulance", "latitude": 40.72, "longitude": -74.00, "available": true},
			{"id": "pol-1", "type": "police", "latitude": 40.70, "longitude": -74.01, "available": true}
		]
	}`
	rec, env := ts.do(t, http.MethodPost, "/api/emergency/optimize-response", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var plan dispatch.Plan
	if err := json.Unmarshal(env.Data, &plan); err != nil {
		t.Fatal(err)
	}
	if len(plan.RecommendedResources) == 0 || plan.RecommendedResources[0].ResourceID != "amb-1" {
		t.Errorf("recommended = %+v, want amb-1 first", plan.RecommendedResources)
	}
}

func TestRetrain(t *testing.T) {
	ts, _ := newTestServer(t, serverOptions{retrainPerHour: 1})

	if err := ts.cache.Set("route-risk:abc", 1); err != nil {
		t.Fatal(err)
	}

	rec, env := ts.do(t, http.MethodPost, "/api/models/retrain", `{"model_type":"risk_predictor"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp RetrainResponse
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Succeeded != 1 || ts.retrains != 1 {
		t.Errorf("succeeded = %d, retrains = %d", resp.Succeeded, ts.retrains)
	}
	var v int
	if ts.cache.Get("route-risk:abc", &v) {
		t.Error("cache should be invalidated after a successful retrain")
	}

	rec, env = ts.do(t, http.MethodPost, "/api/models/retrain", `{"model_type":"all"}`, nil)
	if rec.Code != http.StatusTooManyRequests || env.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("second retrain: status = %d, error = %+v", rec.Code, env.Error)
	}

	rec, _ = ts.do(t, http.MethodPost, "/api/models/retrain", `{"model_type":"everything"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown model: status = %d, want 400", rec.Code)
	}
}

func TestModelRoutes_Authorization(t *testing.T) {
	ts, verifier := newTestServer(t, serverOptions{guard: true})
	admin, _ := verifier.Issue("alice", []string{"admin"}, time.Hour)
	analyst, _ := verifier.Issue("bob", []string{"analyst"}, time.Hour)

	bearer := func(token string) http.Header {
		return http.Header{"Authorization": []string{"Bearer " + token}}
	}

	tests := []struct {
		name   string
		method string
		path   string
		header http.Header
		status int
		code   string
	}{
		{"no token", http.MethodGet, "/api/models/status", nil, http.StatusUnauthorized, ErrCodeUnauthorized},
		{"analyst status", http.MethodGet, "/api/models/status", bearer(analyst), http.StatusOK, ""},
		{"analyst retrain", http.MethodPost, "/api/models/retrain", bearer(analyst), http.StatusForbidden, ErrCodeForbidden},
		{"admin retrain", http.MethodPost, "/api/models/retrain", bearer(admin), http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := ts.do(t, tt.method, tt.path, "", tt.header)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if tt.code != "" && (env.Error == nil || env.Error.Code != tt.code) {
				t.Errorf("error = %+v, want %s", env.Error, tt.code)
			}
		})
	}

	// Other routes stay open.
	rec, _ := ts.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitRequests = 2
	ts, _ := newTestServer(t, serverOptions{mw: cfg})

	body := `{"latitude":40.7,"longitude":-74.0}`
	for i := 0; i < 2; i++ {
		if rec, _ := ts.do(t, http.MethodPost, "/api/predict/area-risk", body, nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
	rec, env := ts.do(t, http.MethodPost, "/api/predict/area-risk", body, nil)
	if rec.Code != http.StatusTooManyRequests || env.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("status = %d, error = %+v", rec.Code, env.Error)
	}

	if rec, _ := ts.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("/health should not be rate limited, status = %d", rec.Code)
	}
}

func TestNotFound(t *testing.T) {
	ts, _ := newTestServer(t, serverOptions{})

	rec, env := ts.do(t, http.MethodGet, "/api/nope", "", nil)
	if rec.Code != http.StatusNotFound || env.Error.Code != ErrCodeNotFound {
		t.Errorf("status = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	got := sanitizeLogValue("a\nb\x00c\td")
	if got != "a bc d" {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("a"), maxBodyBytes+1)
	body := `{"user_id":"` + string(big) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst RetrainRequest
	if err := decodeJSON(req, &dst); err == nil {
		t.Error("decodeJSON() should reject oversized bodies")
	}
}
