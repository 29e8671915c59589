// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package trends

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/tomtom215/safepulse/internal/validation"
)

const (
	// DefaultTimeRange applies when a request names no window.
	DefaultTimeRange = "7d"

	// LocationSpanDegrees is the half-width of the bound built around a
	// requested location.
	LocationSpanDegrees = 0.1
)

// ErrInvalidTimeRange is returned for windows that are not a positive
// count of hours, days or weeks, or that exceed
// validation.MaxTimeRangeDays.
var ErrInvalidTimeRange = errors.New("invalid time range")

// ParseTimeRange converts "24h", "7d" or "4w" into whole days. Hour
// windows round up to at least one day. Input is trimmed and
// case-insensitive; empty input means DefaultTimeRange.
func ParseTimeRange(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		s = DefaultTimeRange
	}
	days, ok := validation.TimeRangeDays(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeRange, s)
	}
	return days, nil
}

// LocationBound parses "lat,lng" into a bound of LocationSpanDegrees
// around the point. An empty string yields nil.
func LocationBound(s string) (*orb.Bound, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	lat, lng, err := validation.ParseLatLng(s)
	if err != nil {
		return nil, err
	}
	b := orb.Point{lng, lat}.Bound().Pad(LocationSpanDegrees)
	return &b, nil
}
