// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

/*
Package metrics defines the Prometheus instrumentation for SafePulse.

All collectors are registered on the default registry through promauto and
are exported at GET /metrics. Metric names carry the safepulse_ prefix.

Groups:
  - API: request counts, latency histogram and in-flight gauge
  - Predictions: scoring calls by type and source (model or heuristic), and
    detected anomalies by test
  - Training: runs by model and result, duration and current snapshot version
  - Cache: prediction cache hits and misses
  - Data source: query latency and circuit breaker state
  - Audit: dropped prediction events

Callers use the Record* helpers rather than touching collectors directly so
label values stay consistent.
*/
package metrics
