// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

/*
Package middleware provides the HTTP middleware shared by every SafePulse
endpoint.

  - RequestID: reuses X-Request-ID or generates a UUID and stores it, with a
    correlation ID, in the request context. Prediction audit events carry
    both IDs.
  - PrometheusMetrics: request counts, latency histograms and in-flight
    gauge, labelled by chi route pattern.

Both are written as http.HandlerFunc decorators; the api package adapts them
to chi's func(http.Handler) http.Handler form.
*/
package middleware
