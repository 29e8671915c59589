// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package learn

import "math"

// Percentile returns the p-quantile (p in [0,1]) of ascending-sorted x,
// interpolating linearly between the order statistics at floor and ceil of
// (n-1)*p (Hyndman-Fan type 7). gonum's stat.LinInterp positions at n*p
// and disagrees on short samples. Empty input yields NaN.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch {
	case n == 0 || math.IsNaN(p):
		return math.NaN()
	case p <= 0:
		return sorted[0]
	case p >= 1:
		return sorted[n-1]
	}

	h := float64(n-1) * p
	lo := math.Floor(h)
	hi := math.Ceil(h)
	frac := h - lo
	return sorted[int(lo)] + frac*(sorted[int(hi)]-sorted[int(lo)])
}
