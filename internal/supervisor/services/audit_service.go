// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package services

import (
	"context"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// AuditCleaner deletes expired prediction events on a schedule until ctx is
// done. Satisfied by *audit.Logger.
type AuditCleaner interface {
	RunCleanup(ctx context.Context) error
}

// AuditCleanupService runs audit retention cleanup under supervision.
type AuditCleanupService struct {
	cleaner AuditCleaner
	name    string
}

// NewAuditCleanupService wraps cleaner.
func NewAuditCleanupService(cleaner AuditCleaner) *AuditCleanupService {
	return &AuditCleanupService{cleaner: cleaner, name: "audit-cleanup"}
}

// Serve implements suture.Service.
func (s *AuditCleanupService) Serve(ctx context.Context) error {
	return s.cleaner.RunCleanup(ctx)
}

// String implements fmt.Stringer for supervisor logs.
func (s *AuditCleanupService) String() string {
	return s.name
}

// EventRouter is a message router that runs until ctx is done. Satisfied
// by *audit.Bus.
type EventRouter interface {
	Run(ctx context.Context) error
}

// EventBusService runs the prediction audit bus.
//
// A watermill router cannot be started twice, so a router failure stops
// the service for good instead of triggering a restart.
type EventBusService struct {
	router EventRouter
	name   string
}

// NewEventBusService wraps router.
func NewEventBusService(router EventRouter) *EventBusService {
	return &EventBusService{router: router, name: "audit-bus"}
}

// Serve implements suture.Service.
func (s *EventBusService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		return suture.ErrDoNotRestart
	}
	return fmt.Errorf("%w: audit bus stopped: %v", suture.ErrDoNotRestart, err)
}

// String implements fmt.Stringer for supervisor logs.
func (s *EventBusService) String() string {
	return s.name
}
