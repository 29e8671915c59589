// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package learn

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultRidgeLambda is the L2 penalty used when none is configured.
const DefaultRidgeLambda = 1.0

// Ridge is an L2-regularized linear regressor with an unpenalized intercept.
type Ridge struct {
	Coef      []float64
	Intercept float64
	Lambda    float64
}

// FitRidge solves (XcᵀXc + λI)w = Xcᵀyc on mean-centred data and derives the
// intercept from the means.
func FitRidge(X [][]float64, y []float64, lambda float64) (*Ridge, error) {
	d, err := columns(X)
	if err != nil {
		return nil, err
	}
	if len(y) != len(X) {
		return nil, fmt.Errorf("%w: %d rows, %d targets", ErrDimensionMismatch, len(X), len(y))
	}
	if lambda <= 0 {
		lambda = DefaultRidgeLambda
	}

	n := len(X)
	xMean := make([]float64, d)
	for _, row := range X {
		for j, v := range row {
			xMean[j] += v
		}
	}
	for j := range xMean {
		xMean[j] /= float64(n)
	}
	yMean := stat.Mean(y, nil)

	centred := mat.NewDense(n, d, nil)
	for i, row := range X {
		for j, v := range row {
			centred.Set(i, j, v-xMean[j])
		}
	}
	yc := mat.NewVecDense(n, nil)
	for i, v := range y {
		yc.SetVec(i, v-yMean)
	}

	var gram mat.SymDense
	gram.SymOuterK(1, centred.T())
	for j := 0; j < d; j++ {
		gram.SetSym(j, j, gram.At(j, j)+lambda)
	}

	var rhs mat.VecDense
	rhs.MulVec(centred.T(), yc)

	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); !ok {
		return nil, errors.New("learn: ridge system is not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &rhs); err != nil {
		return nil, fmt.Errorf("failed to solve ridge system: %w", err)
	}

	r := &Ridge{Coef: make([]float64, d), Lambda: lambda}
	intercept := yMean
	for j := 0; j < d; j++ {
		r.Coef[j] = w.AtVec(j)
		intercept -= r.Coef[j] * xMean[j]
	}
	r.Intercept = intercept
	return r, nil
}

// Predict returns the regression estimate for x.
func (r *Ridge) Predict(x []float64) (float64, error) {
	if r == nil || len(r.Coef) == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != len(r.Coef) {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrDimensionMismatch, len(x), len(r.Coef))
	}
	out := r.Intercept
	for j, v := range x {
		out += r.Coef[j] * v
	}
	return out, nil
}

// Evaluation holds held-out regression metrics.
type Evaluation struct {
	MSE float64 `json:"mse"`
	R2  float64 `json:"r2"`
}

// Evaluate computes the mean squared error and coefficient of determination
// of r on (X, y).
func (r *Ridge) Evaluate(X [][]float64, y []float64) (Evaluation, error) {
	if len(X) == 0 || len(X) != len(y) {
		return Evaluation{}, ErrEmptyInput
	}
	preds := make([]float64, len(X))
	var sse float64
	for i, row := range X {
		p, err := r.Predict(row)
		if err != nil {
			return Evaluation{}, err
		}
		preds[i] = p
		sse += (p - y[i]) * (p - y[i])
	}
	eval := Evaluation{MSE: sse / float64(len(y))}
	if stat.Variance(y, nil) > 0 {
		eval.R2 = stat.RSquaredFrom(preds, y, nil)
	}
	return eval, nil
}
