// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/safepulse/internal/metrics"
)

// Config holds audit logger settings.
type Config struct {
	Enabled         bool
	BufferSize      int
	RetentionDays   int
	CleanupInterval time.Duration
}

// DefaultConfig returns the default audit settings.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		BufferSize:      1000,
		RetentionDays:   90,
		CleanupInterval: 24 * time.Hour,
	}
}

// Logger buffers events and writes them to a Store on a background goroutine.
type Logger struct {
	config    Config
	store     Store
	logger    zerolog.Logger
	eventChan chan *Event
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewLogger starts a logger writing to store.
func NewLogger(store Store, cfg Config, logger zerolog.Logger) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	l := &Logger{
		config:    cfg,
		store:     store,
		logger:    logger.With().Str("component", "audit").Logger(),
		eventChan: make(chan *Event, cfg.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()
	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.Save(ctx, event); err != nil {
		l.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to save prediction event")
		return
	}
	metrics.AuditEventsWritten.Inc()
}

// Log queues an event without blocking. A full buffer drops the event.
func (l *Logger) Log(event *Event) {
	if !l.config.Enabled || event == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case l.eventChan <- event:
	default:
		metrics.AuditEventsDropped.Inc()
		l.logger.Warn().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("Audit buffer full, dropping event")
	}
}

// Close stops the writer after draining queued events.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// Cleanup deletes events older than the retention period once.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	if l.store == nil || l.config.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -l.config.RetentionDays)
	return l.store.Delete(ctx, cutoff)
}

// RunCleanup runs Cleanup on the configured interval until ctx is done.
func (l *Logger) RunCleanup(ctx context.Context) error {
	interval := l.config.CleanupInterval
	if interval <= 0 {
		interval = DefaultConfig().CleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := l.Cleanup(ctx)
			if err != nil {
				l.logger.Error().Err(err).Msg("Audit cleanup error")
			} else if n > 0 {
				l.logger.Info().Int64("count", n).Msg("Cleaned up old prediction events")
			}
		}
	}
}

// Query returns stored events matching filter.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of stored events matching filter.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}
