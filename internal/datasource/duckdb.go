// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/safepulse/internal/config"
	"github.com/tomtom215/safepulse/internal/metrics"
	"github.com/tomtom215/safepulse/internal/models"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS incidents (
		id         VARCHAR PRIMARY KEY,
		latitude   DOUBLE,
		longitude  DOUBLE,
		severity   VARCHAR,
		type       VARCHAR,
		created_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_created_at ON incidents(created_at)`,
	`CREATE TABLE IF NOT EXISTS user_locations (
		user_id    VARCHAR NOT NULL,
		latitude   DOUBLE,
		longitude  DOUBLE,
		speed      DOUBLE,
		created_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_locations_user ON user_locations(user_id, created_at)`,
}

// DuckDBSource is a Store backed by an embedded DuckDB database.
type DuckDBSource struct {
	conn   *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// OpenDuckDB opens (creating if needed) the database described by cfg and
// ensures the schema exists. An empty path or ":memory:" opens an in-memory
// database.
func OpenDuckDB(cfg config.DatabaseConfig, logger zerolog.Logger) (*DuckDBSource, error) {
	if cfg.Path != "" && cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	src, err := NewDuckDBSource(conn, logger)
	if err != nil {
		_ = conn.Close() //nolint:errcheck // already failing
		return nil, err
	}
	return src, nil
}

func connString(cfg config.DatabaseConfig) string {
	if cfg.Path == "" || cfg.Path == ":memory:" {
		return ""
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	opts := []string{"access_mode=read_write", fmt.Sprintf("threads=%d", threads)}
	if cfg.MaxMemory != "" {
		opts = append(opts, "max_memory="+cfg.MaxMemory)
	}
	return cfg.Path + "?" + strings.Join(opts, "&")
}

// NewDuckDBSource wraps an open DuckDB connection and creates the schema.
func NewDuckDBSource(conn *sql.DB, logger zerolog.Logger) (*DuckDBSource, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &DuckDBSource{
		conn:   conn,
		logger: logger.With().Str("component", "datasource").Logger(),
		now:    time.Now,
	}, nil
}

// Conn exposes the underlying connection for components sharing the database.
func (d *DuckDBSource) Conn() *sql.DB { return d.conn }

// Ping verifies the connection is alive.
func (d *DuckDBSource) Ping(ctx context.Context) error { return d.conn.PingContext(ctx) }

// Close closes the database.
func (d *DuckDBSource) Close() error { return d.conn.Close() }

func (d *DuckDBSource) cutoff(days int) time.Time {
	return d.now().UTC().AddDate(0, 0, -days)
}

// AddIncident implements Ingester. Incidents without an ID get a random one.
func (d *DuckDBSource) AddIncident(ctx context.Context, incident models.Incident) error {
	if !incident.Valid() {
		return fmt.Errorf("%w: incident %q", ErrInvalidRecord, incident.ID)
	}
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	start := time.Now()
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO incidents (id, latitude, longitude, severity, type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		incident.ID, incident.Latitude, incident.Longitude, string(incident.Severity), incident.Type, incident.Timestamp.UTC())
	metrics.RecordDataSourceQuery("add_incident", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}
	return nil
}

// AddLocation implements Ingester.
func (d *DuckDBSource) AddLocation(ctx context.Context, sample models.LocationSample) error {
	if sample.UserID == "" || !sample.Valid() {
		return fmt.Errorf("%w: location for user %q", ErrInvalidRecord, sample.UserID)
	}
	var speed sql.NullFloat64
	if sample.Speed != nil {
		speed = sql.NullFloat64{Float64: *sample.Speed, Valid: true}
	}
	start := time.Now()
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO user_locations (user_id, latitude, longitude, speed, created_at) VALUES (?, ?, ?, ?, ?)`,
		sample.UserID, sample.Latitude, sample.Longitude, speed, sample.Timestamp.UTC())
	metrics.RecordDataSourceQuery("add_location", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}
	return nil
}

// HistoricalIncidents implements Source.
func (d *DuckDBSource) HistoricalIncidents(ctx context.Context, days int, bounds *orb.Bound) ([]models.Incident, error) {
	query := `SELECT id, latitude, longitude, severity, type, created_at FROM incidents WHERE created_at >= ?`
	args := []any{d.cutoff(days)}
	if bounds != nil {
		query += ` AND latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`
		args = append(args, bounds.Min.Lat(), bounds.Max.Lat(), bounds.Min.Lon(), bounds.Max.Lon())
	}
	query += ` ORDER BY created_at`

	start := time.Now()
	incidents, err := d.queryIncidents(ctx, query, args...)
	metrics.RecordDataSourceQuery("historical_incidents", time.Since(start), err)
	return incidents, err
}

func (d *DuckDBSource) queryIncidents(ctx context.Context, query string, args ...any) ([]models.Incident, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // read-only

	var out []models.Incident
	var skipped int
	for rows.Next() {
		var (
			id, severity, typ sql.NullString
			lat, lng          sql.NullFloat64
			createdAt         sql.NullTime
		)
		if err := rows.Scan(&id, &lat, &lng, &severity, &typ, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		inc := models.Incident{
			ID:        id.String,
			Latitude:  lat.Float64,
			Longitude: lng.Float64,
			Severity:  models.ParseSeverity(severity.String),
			Type:      typ.String,
			Timestamp: createdAt.Time,
		}
		if !lat.Valid || !lng.Valid || !createdAt.Valid || !inc.Valid() {
			skipped++
			continue
		}
		out = append(out, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate incidents: %w", err)
	}
	if skipped > 0 {
		d.logger.Warn().Int("skipped", skipped).Msg("Skipped malformed incident rows")
	}
	return out, nil
}

// UserLocations implements Source.
func (d *DuckDBSource) UserLocations(ctx context.Context, userID string, days int) ([]models.LocationSample, error) {
	start := time.Now()
	out, err := d.queryLocations(ctx, userID, d.cutoff(days))
	metrics.RecordDataSourceQuery("user_locations", time.Since(start), err)
	return out, err
}

func (d *DuckDBSource) queryLocations(ctx context.Context, userID string, since time.Time) ([]models.LocationSample, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT latitude, longitude, speed, created_at FROM user_locations
		 WHERE user_id = ? AND created_at >= ? ORDER BY created_at`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // read-only

	var out []models.LocationSample
	var skipped int
	for rows.Next() {
		var (
			lat, lng, speed sql.NullFloat64
			createdAt       sql.NullTime
		)
		if err := rows.Scan(&lat, &lng, &speed, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		s := models.LocationSample{
			UserID:    userID,
			Latitude:  lat.Float64,
			Longitude: lng.Float64,
			Timestamp: createdAt.Time,
		}
		if speed.Valid {
			s.Speed = models.Float(speed.Float64)
		}
		if !lat.Valid || !lng.Valid || !createdAt.Valid || !s.Valid() {
			skipped++
			continue
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate locations: %w", err)
	}
	if skipped > 0 {
		d.logger.Warn().Int("skipped", skipped).Msg("Skipped malformed location rows")
	}
	return out, nil
}

// AreaIncidentStats implements Source.
func (d *DuckDBSource) AreaIncidentStats(ctx context.Context, lat, lng, radiusKm float64, days int) (models.AreaStats, error) {
	bound := radiusBound(lat, lng, radiusKm)
	incidents, err := d.HistoricalIncidents(ctx, days, &bound)
	if err != nil {
		return models.AreaStats{}, err
	}
	return buildAreaStats(incidents, lat, lng, radiusKm), nil
}

// UserProfile implements Source.
func (d *DuckDBSource) UserProfile(ctx context.Context, userID string) (models.UserProfile, error) {
	samples, err := d.UserLocations(ctx, userID, ProfileWindowDays)
	if err != nil {
		return models.UserProfile{}, err
	}
	return BuildProfile(userID, samples), nil
}
