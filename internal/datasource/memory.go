// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/tomtom215/safepulse/internal/models"
)

// MemorySource is an in-process Store backed by slices.
type MemorySource struct {
	mu        sync.RWMutex
	incidents []models.Incident
	locations map[string][]models.LocationSample
	now       func() time.Time
}

// NewMemorySource returns an empty MemorySource using the wall clock.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		locations: make(map[string][]models.LocationSample),
		now:       time.Now,
	}
}

// SetClock overrides the time used to evaluate day windows.
func (m *MemorySource) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemorySource) cutoff(days int) time.Time {
	return m.now().AddDate(0, 0, -days)
}

// AddIncident stores an incident.
func (m *MemorySource) AddIncident(ctx context.Context, incident models.Incident) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !incident.Valid() {
		return fmt.Errorf("%w: incident %q", ErrInvalidRecord, incident.ID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incidents = append(m.incidents, incident)
	return nil
}

// AddLocation stores a location sample.
func (m *MemorySource) AddLocation(ctx context.Context, sample models.LocationSample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sample.UserID == "" || !sample.Valid() {
		return fmt.Errorf("%w: location for user %q", ErrInvalidRecord, sample.UserID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[sample.UserID] = append(m.locations[sample.UserID], sample)
	return nil
}

// HistoricalIncidents implements Source.
func (m *MemorySource) HistoricalIncidents(ctx context.Context, days int, bounds *orb.Bound) ([]models.Incident, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	since := m.cutoff(days)
	var out []models.Incident
	for _, inc := range m.incidents {
		if inc.Timestamp.Before(since) {
			continue
		}
		if bounds != nil && !bounds.Contains(orb.Point{inc.Longitude, inc.Latitude}) {
			continue
		}
		out = append(out, inc)
	}
	return out, nil
}

// UserLocations implements Source.
func (m *MemorySource) UserLocations(ctx context.Context, userID string, days int) ([]models.LocationSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	since := m.cutoff(days)
	var out []models.LocationSample
	for _, s := range m.locations[userID] {
		if !s.Timestamp.Before(since) {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()

	sortSamples(out)
	return out, nil
}

// AreaIncidentStats implements Source.
func (m *MemorySource) AreaIncidentStats(ctx context.Context, lat, lng, radiusKm float64, days int) (models.AreaStats, error) {
	bound := radiusBound(lat, lng, radiusKm)
	incidents, err := m.HistoricalIncidents(ctx, days, &bound)
	if err != nil {
		return models.AreaStats{}, err
	}
	return buildAreaStats(incidents, lat, lng, radiusKm), nil
}

// UserProfile implements Source.
func (m *MemorySource) UserProfile(ctx context.Context, userID string) (models.UserProfile, error) {
	samples, err := m.UserLocations(ctx, userID, ProfileWindowDays)
	if err != nil {
		return models.UserProfile{}, err
	}
	return BuildProfile(userID, samples), nil
}
