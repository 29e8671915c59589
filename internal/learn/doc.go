// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

// Package learn contains the small statistical learners behind the risk and
// anomaly models: a standard scaler, a ridge regressor solved with a Cholesky
// factorization, and a seeded isolation forest.
//
// All types have exported fields so trained models can be gob-encoded by the
// model store. A fitted value is never mutated after Fit returns; callers
// replace whole models instead of updating them in place.
package learn

import "errors"

var (
	// ErrEmptyInput is returned when Fit receives no rows.
	ErrEmptyInput = errors.New("learn: empty input")

	// ErrDimensionMismatch is returned when rows have inconsistent widths.
	ErrDimensionMismatch = errors.New("learn: dimension mismatch")

	// ErrNotFitted is returned when a model is used before Fit.
	ErrNotFitted = errors.New("learn: model not fitted")
)

// columns returns the width of X, verifying every row has the same width.
func columns(X [][]float64) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyInput
	}
	d := len(X[0])
	if d == 0 {
		return 0, ErrDimensionMismatch
	}
	for _, row := range X {
		if len(row) != d {
			return 0, ErrDimensionMismatch
		}
	}
	return d, nil
}
