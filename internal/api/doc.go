// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

/*
Package api exposes the SafePulse analytics engine over HTTP.

Routes are served by a chi router. Every response uses the models.APIResponse
envelope:

	{
	  "status": "success",
	  "data": {...},
	  "metadata": {"timestamp": "...", "query_time_ms": 3, "cached": true}
	}

and every error carries {"code", "message"} in the error field.

# Endpoints

	GET  /health
	GET  /metrics
	POST /api/predict/route-risk
	POST /api/predict/area-risk
	POST /api/detect/movement-anomaly
	POST /api/detect/speed-anomaly
	POST /api/detect/route-deviation
	POST /api/detect/time-anomaly
	GET  /api/analytics/trends?time_range=7d&location=lat,lng
	POST /api/emergency/optimize-response
	GET  /api/models/status
	POST /api/models/retrain
	POST /api/incidents
	POST /api/locations

# Middleware

Global: request ID, real IP, panic recovery, CORS and Prometheus metrics.
The /api routes are rate limited per client IP with httprate. The model
routes are additionally guarded by JWT bearer tokens and a Casbin policy
when admin auth is enabled, and retraining is throttled with a token bucket.

# Caching

Route risk, area risk and trend responses are cached in the badger
prediction cache keyed by endpoint and request body. Cache hits set
metadata.cached. A successful retrain drops the cache.
*/
package api
