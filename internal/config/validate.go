// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package config

import (
	"errors"
	"fmt"
	"strings"
)

// minJWTSecretLength is the shortest HMAC secret accepted for admin tokens.
const minJWTSecretLength = 32

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateAnalytics(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return errors.New("API_TIMEOUT must be positive")
	}
	if c.Server.RateLimitReqs < 0 {
		return errors.New("RATE_LIMIT_REQUESTS must not be negative")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("DUCKDB_PATH is required")
	}
	if c.Database.QueryTimeout <= 0 {
		return errors.New("DATASOURCE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateModels() error {
	if strings.TrimSpace(c.Models.Path) == "" {
		return errors.New("MODEL_PATH is required")
	}
	if c.Models.RetrainIntervalHours <= 0 {
		return fmt.Errorf("RETRAIN_INTERVAL_HOURS must be positive, got %d", c.Models.RetrainIntervalHours)
	}
	if c.Cache.Enabled && c.Cache.TTLSeconds <= 0 {
		return errors.New("PREDICTION_CACHE_TTL must be positive when the cache is enabled")
	}
	return nil
}

func (c *Config) validateAnalytics() error {
	if c.Analytics.RiskThreshold < 0 || c.Analytics.RiskThreshold > 1 {
		return fmt.Errorf("RISK_THRESHOLD must be within [0,1], got %v", c.Analytics.RiskThreshold)
	}
	if c.Analytics.AnomalyThreshold < 0 || c.Analytics.AnomalyThreshold > 1 {
		return fmt.Errorf("ANOMALY_THRESHOLD must be within [0,1], got %v", c.Analytics.AnomalyThreshold)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if !c.Security.AdminAuthEnabled {
		return nil
	}
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters when ADMIN_AUTH_ENABLED=true", minJWTSecretLength)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a recognised level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}
