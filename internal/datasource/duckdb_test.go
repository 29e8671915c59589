// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

//go:build integration

package datasource

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/safepulse/internal/models"
)

func setupDuckDB(t *testing.T) *DuckDBSource {
	t.Helper()

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory DuckDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	src, err := NewDuckDBSource(db, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDuckDBSource() error = %v", err)
	}
	src.now = func() time.Time { return fixedNow }
	return src
}

func TestDuckDBSource_IncidentRoundTrip(t *testing.T) {
	src := setupDuckDB(t)
	ctx := context.Background()

	incidents := []models.Incident{
		{ID: "a", Latitude: 40.0, Longitude: -74.0, Severity: models.SeverityHigh, Type: "assault", Timestamp: fixedNow.Add(-2 * time.Hour)},
		{Latitude: 40.001, Longitude: -74.0, Severity: models.SeverityLow, Type: "theft", Timestamp: fixedNow.Add(-time.Hour)},
		{ID: "old", Latitude: 40.0, Longitude: -74.0, Timestamp: fixedNow.AddDate(0, 0, -45)},
	}
	for _, inc := range incidents {
		if err := src.AddIncident(ctx, inc); err != nil {
			t.Fatalf("AddIncident() error = %v", err)
		}
	}

	got, err := src.HistoricalIncidents(ctx, 30, nil)
	if err != nil {
		t.Fatalf("HistoricalIncidents() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d incidents, want 2", len(got))
	}
	if got[0].ID != "a" || got[0].Severity != models.SeverityHigh {
		t.Errorf("first incident = %+v", got[0])
	}
	if got[1].ID == "" {
		t.Error("generated incident ID is empty")
	}

	stats, err := src.AreaIncidentStats(ctx, 40.0, -74.0, 1, 30)
	if err != nil {
		t.Fatalf("AreaIncidentStats() error = %v", err)
	}
	if stats.TotalIncidents != 2 {
		t.Errorf("TotalIncidents = %d, want 2", stats.TotalIncidents)
	}
}

func TestDuckDBSource_SkipsMalformedRows(t *testing.T) {
	src := setupDuckDB(t)
	ctx := context.Background()

	if _, err := src.Conn().ExecContext(ctx,
		`INSERT INTO incidents (id, latitude, longitude, severity, type, created_at) VALUES ('bad', NULL, -74.0, 'low', 'x', ?)`,
		fixedNow.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := src.AddIncident(ctx, models.Incident{ID: "good", Latitude: 1, Longitude: 1, Timestamp: fixedNow.Add(-time.Hour)}); err != nil {
		t.Fatal(err)
	}

	got, err := src.HistoricalIncidents(ctx, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "good" {
		t.Errorf("got %+v, want only the valid incident", got)
	}
}

func TestDuckDBSource_UserProfile(t *testing.T) {
	src := setupDuckDB(t)
	ctx := context.Background()

	speed := 1.5
	for i := 0; i < 12; i++ {
		s := models.LocationSample{
			UserID:    "u1",
			Latitude:  51.5 + float64(i)*0.001,
			Longitude: -0.12,
			Timestamp: fixedNow.Add(-time.Duration(12-i) * time.Minute),
		}
		if i%2 == 0 {
			s.Speed = &speed
		}
		if err := src.AddLocation(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	locs, err := src.UserLocations(ctx, "u1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(locs) != 12 || locs[0].Speed == nil || locs[1].Speed != nil {
		t.Fatalf("UserLocations() returned %d samples with unexpected speeds", len(locs))
	}

	profile, err := src.UserProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(profile.MovementStats.CommonRoutes) != 2 {
		t.Errorf("CommonRoutes = %d, want 2", len(profile.MovementStats.CommonRoutes))
	}
	if d := profile.MovementStats.AverageSpeedKmh - 1.5*3.6; d > 1e-9 || d < -1e-9 {
		t.Errorf("AverageSpeedKmh = %v, want %v", profile.MovementStats.AverageSpeedKmh, 1.5*3.6)
	}
}
