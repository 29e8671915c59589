// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package logging

import (
	"math"
	"strings"
)

// coordinatePrecision is the number of decimals kept when logging coordinates
// (about 1.1 km at the equator).
const coordinatePrecision = 2

// CoarseCoordinate rounds a latitude or longitude for log output.
func CoarseCoordinate(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	p := math.Pow(10, coordinatePrecision)
	return math.Round(v*p) / p
}

// SanitizeUserID shortens a user identifier to its first 4 and last 2 characters.
func SanitizeUserID(userID string) string {
	if len(userID) <= 8 {
		return userID
	}
	return userID[:4] + "..." + userID[len(userID)-2:]
}

// SanitizeError strips connection strings and file paths from an error
// message before it reaches an API client.
func SanitizeError(msg string) string {
	lower := strings.ToLower(msg)
	for _, marker := range []string{"password=", "secret", "token=", "/data/", ".duckdb"} {
		if strings.Contains(lower, marker) {
			return "internal error"
		}
	}
	return truncate(msg, 200)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
