// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

// Package logging provides the zerolog-based structured logging used across SafePulse.
//
// A single global logger is configured once at startup and handed to each
// analytics component as a child logger tagged with a "component" field:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	detector := anomaly.NewDetector(source, anomaly.Options{}, logging.WithComponent("anomaly"))
//
// Request-scoped logging picks up the request and correlation IDs stored by
// the request ID middleware:
//
//	logging.Ctx(ctx).Info().Str("user_id", logging.SanitizeUserID(id)).Msg("speed check")
//
// Location samples are personal data. Log coordinates through CoarseCoordinate
// and user identifiers through SanitizeUserID, never raw.
//
// Environment Variables:
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//
// NewSlogLogger bridges the global logger into log/slog for the suture
// supervisor event hook and the watermill audit bus.
package logging
