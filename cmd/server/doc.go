// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

/*
Package main is the entry point for the SafePulse analytics server.

SafePulse scores route and area risk, detects movement anomalies, analyzes
incident trends and ranks emergency resources over a DuckDB incident store.

# Application Architecture

	RootSupervisor ("safepulse")
	├── DataSupervisor ("data-layer")
	│   └── Audit retention cleanup
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Prediction audit bus (watermill)
	│   └── Scheduled retraining
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi)

Component initialization order:

 1. Configuration: koanf v2 with defaults, an optional YAML file and environment variables
 2. Logging: zerolog with JSON or console output
 3. Data source: DuckDB behind a circuit breaker
 4. Prediction audit: DuckDB event store fed by an in-process watermill bus
 5. Models: risk predictor and anomaly detector, restored from the model store
 6. Prediction cache: badger, in memory unless CACHE_PATH is set
 7. Admin guard: JWT bearer tokens and a Casbin policy (ADMIN_AUTH_ENABLED)
 8. Supervisor tree and HTTP server

# Configuration

	API_HOST=0.0.0.0
	API_PORT=5001
	DUCKDB_PATH=/data/safepulse.duckdb
	MODEL_PATH=./models
	RETRAIN_INTERVAL_HOURS=24
	CACHE_ENABLED=true
	AUDIT_ENABLED=true
	ADMIN_AUTH_ENABLED=false
	JWT_SECRET=<32+ chars>        # required when ADMIN_AUTH_ENABLED=true
	LOG_LEVEL=info
	LOG_FORMAT=json

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains
in-flight requests, the audit bus flushes queued events, and the cache and
database are closed.
*/
package main
