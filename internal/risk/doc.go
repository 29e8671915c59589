// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

// Package risk scores routes and areas for travel risk.
//
// Route risk comes from a ridge regressor over a fixed ten-feature vector
// when a trained model is available and from a deterministic heuristic
// otherwise. Area risk is the severity-weighted incident density of the last
// 30 days, scaled by a time-of-day multiplier.
package risk
