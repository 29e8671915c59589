// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/safepulse/internal/authz"
	"github.com/tomtom215/safepulse/internal/middleware"
)

// chiMiddleware adapts func(http.HandlerFunc) http.HandlerFunc middleware to chi's r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	guard         *authz.Middleware
}

// NewRouter creates a router. A nil guard leaves the model routes open.
func NewRouter(handler *Handler, mw *ChiMiddleware, guard *authz.Middleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	if guard != nil {
		guard.SetDenyFunc(func(w http.ResponseWriter, r *http.Request, status int, message string) {
			code := ErrCodeInternalError
			switch status {
			case http.StatusUnauthorized:
				code = ErrCodeUnauthorized
			case http.StatusForbidden:
				code = ErrCodeForbidden
			}
			respondError(w, r, status, code, message, nil)
		})
	}
	return &Router{handler: handler, chiMiddleware: mw, guard: guard}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(chiMiddleware(middleware.PrometheusMetrics))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, ErrCodeNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed", nil)
	})

	r.Get("/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())

		r.Post("/predict/route-risk", router.handler.PredictRouteRisk)
		r.Post("/predict/area-risk", router.handler.PredictAreaRisk)

		r.Post("/detect/movement-anomaly", router.handler.DetectMovementAnomaly)
		r.Post("/detect/speed-anomaly", router.handler.DetectSpeedAnomaly)
		r.Post("/detect/route-deviation", router.handler.DetectRouteDeviation)
		r.Post("/detect/time-anomaly", router.handler.DetectTimeAnomaly)

		r.Get("/analytics/trends", router.handler.AnalyzeTrends)
		r.Post("/emergency/optimize-response", router.handler.OptimizeResponse)

		r.Post("/incidents", router.handler.IngestIncident)
		r.Post("/locations", router.handler.IngestLocations)

		r.Route("/models", func(r chi.Router) {
			if router.guard != nil {
				r.Use(router.guard.Authorize)
			}
			r.Get("/status", router.handler.ModelStatus)
			r.Post("/retrain", router.handler.RetrainModels)
		})
	})

	return r
}
