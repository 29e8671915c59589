// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package learn

import "math/rand"

// TrainTestSplit shuffles row indices with a fixed seed and returns the
// training and test partitions. testFraction is clamped so that both sides
// receive at least one row when len(X) >= 2.
func TrainTestSplit(X [][]float64, y []float64, testFraction float64, seed int64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	n := len(X)
	idx := rand.New(rand.NewSource(seed)).Perm(n)

	nTest := int(float64(n)*testFraction + 0.5)
	if n >= 2 {
		nTest = max(1, min(nTest, n-1))
	}

	for i, j := range idx {
		if i < nTest {
			testX = append(testX, X[j])
			testY = append(testY, y[j])
		} else {
			trainX = append(trainX, X[j])
			trainY = append(trainY, y[j])
		}
	}
	return trainX, trainY, testX, testY
}
