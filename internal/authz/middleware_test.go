// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func setupMiddleware(t *testing.T) (*Middleware, *TokenVerifier) {
	t.Helper()
	v, err := NewTokenVerifier(testSecret)
	if err != nil {
		t.Fatalf("NewTokenVerifier() error = %v", err)
	}
	return NewMiddleware(v, setupEnforcer(t)), v
}

func TestMiddleware_Authorize(t *testing.T) {
	m, v := setupMiddleware(t)
	adminToken, _ := v.Issue("alice", []string{"admin"}, time.Hour)
	analystToken, _ := v.Issue("bob", []string{"analyst"}, time.Hour)

	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := m.Authorize(ok)

	tests := []struct {
		name   string
		method string
		path   string
		header string
		want   int
	}{
		{"missing header", http.MethodPost, "/api/models/retrain", "", http.StatusUnauthorized},
		{"wrong scheme", http.MethodPost, "/api/models/retrain", "Basic " + adminToken, http.StatusUnauthorized},
		{"bad token", http.MethodPost, "/api/models/retrain", "Bearer nope", http.StatusUnauthorized},
		{"admin retrain", http.MethodPost, "/api/models/retrain", "Bearer " + adminToken, http.StatusNoContent},
		{"lowercase scheme", http.MethodPost, "/api/models/retrain", "bearer " + adminToken, http.StatusNoContent},
		{"analyst retrain", http.MethodPost, "/api/models/retrain", "Bearer " + analystToken, http.StatusForbidden},
		{"analyst status", http.MethodGet, "/api/models/status", "Bearer " + analystToken, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestMiddleware_DenyFunc(t *testing.T) {
	m, _ := setupMiddleware(t)
	var gotStatus int
	m.SetDenyFunc(func(w http.ResponseWriter, _ *http.Request, status int, _ string) {
		gotStatus = status
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	m.Authorize(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/models/retrain", nil))
	if gotStatus != http.StatusUnauthorized || rec.Code != http.StatusTeapot {
		t.Errorf("deny status = %d, response = %d", gotStatus, rec.Code)
	}
}

func TestMethodToAction(t *testing.T) {
	tests := map[string]string{
		http.MethodGet:    ActionRead,
		http.MethodHead:   ActionRead,
		http.MethodPost:   ActionWrite,
		http.MethodPut:    ActionWrite,
		http.MethodDelete: ActionWrite,
	}
	for method, want := range tests {
		if got := methodToAction(method); got != want {
			t.Errorf("methodToAction(%s) = %s, want %s", method, got, want)
		}
	}
}
