// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

// Package config loads SafePulse configuration with Koanf v2.
//
// Sources are layered, later sources overriding earlier ones:
//
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, or config.yaml / /etc/safepulse/config.yaml)
//  3. Environment variables, mapped explicitly in envTransformFunc
//
// Environment variables that are not listed in the mapping table are ignored.
// Comma-separated values (CORS_ORIGINS) are split into slices.
//
// Example config.yaml:
//
//	server:
//	  port: 5001
//	database:
//	  path: /data/safepulse.duckdb
//	analytics:
//	  risk_threshold: 0.7
//	models:
//	  path: /data/models
//	  retrain_interval_hours: 24
package config
