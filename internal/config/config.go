// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Models    ModelsConfig    `koanf:"models"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Cache     CacheConfig     `koanf:"cache"`
	Audit     AuditConfig     `koanf:"audit"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DatabaseConfig holds the DuckDB data source settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()

	// QueryTimeout bounds every data source call made on behalf of a request.
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// ModelsConfig controls model artifact storage and periodic retraining.
type ModelsConfig struct {
	Path                 string `koanf:"path"`
	RetrainIntervalHours int    `koanf:"retrain_interval_hours"`
	KeepVersions         int    `koanf:"keep_versions"`
	TrainOnStartup       bool   `koanf:"train_on_startup"`
}

// RetrainInterval returns the retrain period as a duration.
func (m ModelsConfig) RetrainInterval() time.Duration {
	return time.Duration(m.RetrainIntervalHours) * time.Hour
}

// AnalyticsConfig holds alerting thresholds exposed to clients.
type AnalyticsConfig struct {
	RiskThreshold    float64 `koanf:"risk_threshold"`
	AnomalyThreshold float64 `koanf:"anomaly_threshold"`
}

// CacheConfig configures the badger-backed prediction cache.
type CacheConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"` // empty = in-memory
	TTLSeconds int    `koanf:"ttl_seconds"`
}

// TTL returns the prediction cache TTL.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// AuditConfig configures the prediction audit trail.
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BufferSize      int           `koanf:"buffer_size"`
	RetentionDays   int           `koanf:"retention_days"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// SecurityConfig protects the administrative model endpoints.
type SecurityConfig struct {
	AdminAuthEnabled   bool   `koanf:"admin_auth_enabled"`
	JWTSecret          string `koanf:"jwt_secret"`
	CasbinPolicyPath   string `koanf:"casbin_policy_path"`
	RetrainRatePerHour int    `koanf:"retrain_rate_per_hour"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
