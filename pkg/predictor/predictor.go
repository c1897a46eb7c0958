// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

// Package predictor implements a vector autoregression (VAR) model used to
// extrapolate a simulation's state forward from its persisted history
// (spec.md §4.10).
package predictor

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Feature: PREDICTOR_VAR
// Spec: spec/core/predictor.md

// ErrNoModel is returned when no lag order in the scanned range produces an
// invertible fit; callers treat this as "no prediction available", never a
// panic (spec.md §4.10).
var ErrNoModel = errors.New("predictor: no model could be fit")

// DefaultTrainFraction is the training fraction used when none is supplied
// (spec.md §4.10).
const DefaultTrainFraction = 0.95

// minLagOrder and maxLagOrder bound the lag-order scan (spec.md §4.10:
// "[45, min(128, n-1)]").
const (
	minLagOrder = 45
	maxLagOrder = 128
)

// Model is a fitted VAR model: coefficients for the chosen lag order, a
// rolling seed of the last k differenced rows, and the last raw row used to
// reconstruct undifferenced predictions.
type Model struct {
	order int
	vars  int

	// coeffs[i] is the (vars x vars) coefficient matrix for lag i+1.
	coeffs []*mat.Dense

	// seed holds the last `order` differenced rows, most recent last.
	seed [][]float64
	// lastRaw is the most recently observed raw row, used as the running
	// base that predicted differences are added onto.
	lastRaw []float64
}

// Fit trains a VAR model on data (rows = timesteps, columns = variables),
// scanning lag orders per spec.md §4.10 and keeping the one with the lowest
// AICc. trainFraction selects how much of data's tail is excluded from the
// order-scan fit (fit on the training prefix, scored on the same prefix);
// a non-positive value falls back to DefaultTrainFraction.
func Fit(data [][]float64, trainFraction float64) (*Model, error) {
	n := len(data)
	if n < minLagOrder+2 {
		return nil, ErrNoModel
	}
	if trainFraction <= 0 || trainFraction > 1 {
		trainFraction = DefaultTrainFraction
	}
	vars := len(data[0])
	for _, row := range data {
		if len(row) != vars {
			return nil, ErrNoModel
		}
	}

	trainN := int(float64(n) * trainFraction)
	if trainN < minLagOrder+2 {
		trainN = n
	}
	train := data[:trainN]

	diffed := difference(train)

	maxOrder := maxLagOrder
	if n-1 < maxOrder {
		maxOrder = n - 1
	}
	if maxOrder < minLagOrder {
		return nil, ErrNoModel
	}

	var (
		bestOrder  int
		bestAICc   = math.Inf(1)
		bestCoeffs []*mat.Dense
		found      bool
	)

	for order := minLagOrder; order <= maxOrder; order++ {
		coeffs, sse, ok := fitOrder(diffed, order)
		if !ok {
			continue
		}
		m := len(diffed) - order
		if m <= order+1 {
			continue
		}
		aicc := scoreAICc(sse, m, order)
		if aicc < bestAICc {
			bestAICc = aicc
			bestOrder = order
			bestCoeffs = coeffs
			found = true
		}
	}
	if !found {
		return nil, ErrNoModel
	}

	// Refit the chosen order on the full data set rather than the training
	// prefix, differenced the same way as in the scan (spec.md §4.10 step 4).
	fullDiffed := difference(data)
	coeffs, _, ok := fitOrder(fullDiffed, bestOrder)
	if !ok {
		coeffs = bestCoeffs
	}

	seed := make([][]float64, bestOrder)
	for i := 0; i < bestOrder; i++ {
		seed[i] = append([]float64(nil), fullDiffed[len(fullDiffed)-bestOrder+i]...)
	}
	lastRaw := append([]float64(nil), data[n-1]...)

	return &Model{
		order:   bestOrder,
		vars:    vars,
		coeffs:  coeffs,
		seed:    seed,
		lastRaw: lastRaw,
	}, nil
}

// Order reports the fitted model's lag order.
func (m *Model) Order() int { return m.order }

// PredictNext returns the next undifferenced row by applying the fitted
// coefficients to the lag-seed and adding the last raw row, then rolls the
// seed forward so a subsequent call predicts one step further (spec.md
// §4.10 step 5).
func (m *Model) PredictNext() []float64 {
	diffPred := make([]float64, m.vars)
	for lag := 0; lag < m.order; lag++ {
		lagged := m.seed[len(m.seed)-1-lag]
		coeff := m.coeffs[lag]
		for i := 0; i < m.vars; i++ {
			sum := diffPred[i]
			for j := 0; j < m.vars; j++ {
				sum += coeff.At(i, j) * lagged[j]
			}
			diffPred[i] = sum
		}
	}

	next := make([]float64, m.vars)
	for i := 0; i < m.vars; i++ {
		next[i] = m.lastRaw[i] + diffPred[i]
	}

	m.seed = append(m.seed[1:], diffPred)
	m.lastRaw = next
	return next
}

// difference returns the first-order difference of data: row[t] - row[t-1]
// for t in [1, len(data)-1].
func difference(data [][]float64) [][]float64 {
	if len(data) < 2 {
		return nil
	}
	vars := len(data[0])
	out := make([][]float64, len(data)-1)
	for t := 1; t < len(data); t++ {
		row := make([]float64, vars)
		for j := 0; j < vars; j++ {
			row[j] = data[t][j] - data[t-1][j]
		}
		out[t-1] = row
	}
	return out
}

// fitOrder fits a VAR(order) model on diffed via least squares, returning
// per-lag coefficient matrices and the residual sum of squares. It attempts
// an LU-based normal-equations solve first and falls back to an SVD-based
// pseudo-inverse on a singular system (spec.md §4.10 step 2).
func fitOrder(diffed [][]float64, order int) ([]*mat.Dense, float64, bool) {
	m := len(diffed) - order
	if m <= 0 {
		return nil, 0, false
	}
	vars := len(diffed[0])
	predictors := order * vars

	Z := mat.NewDense(m, predictors, nil)
	Y := mat.NewDense(m, vars, nil)
	for row := 0; row < m; row++ {
		t := row + order
		Y.SetRow(row, diffed[t])
		for lag := 0; lag < order; lag++ {
			lagged := diffed[t-1-lag]
			for j := 0; j < vars; j++ {
				Z.Set(row, lag*vars+j, lagged[j])
			}
		}
	}

	B, ok := solveLeastSquares(Z, Y)
	if !ok {
		return nil, 0, false
	}

	var resid mat.Dense
	resid.Mul(Z, B)
	resid.Sub(Y, &resid)
	sse := 0.0
	r, c := resid.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := resid.At(i, j)
			sse += v * v
		}
	}

	coeffs := make([]*mat.Dense, order)
	for lag := 0; lag < order; lag++ {
		sub := mat.NewDense(vars, vars, nil)
		for i := 0; i < vars; i++ {
			for j := 0; j < vars; j++ {
				sub.Set(i, j, B.At(lag*vars+j, i))
			}
		}
		coeffs[lag] = sub
	}
	return coeffs, sse, true
}

// solveLeastSquares solves Z*B = Y for B via the normal equations
// (ZᵀZ)⁻¹ZᵀY, first attempting an LU solve and falling back to an
// SVD-based pseudo-inverse when ZᵀZ is singular (spec.md §4.10 step 2).
func solveLeastSquares(Z, Y *mat.Dense) (*mat.Dense, bool) {
	var zt mat.Dense
	zt.CloneFrom(Z.T())

	var ztz mat.Dense
	ztz.Mul(&zt, Z)

	var zty mat.Dense
	zty.Mul(&zt, Y)

	var B mat.Dense
	if err := B.Solve(&ztz, &zty); err == nil {
		return &B, true
	}

	var svd mat.SVD
	if !svd.Factorize(&ztz, mat.SVDFull) {
		return nil, false
	}
	values := svd.Values(nil)
	rank := 0
	for _, s := range values {
		if s > 1e-15*values[0] {
			rank++
		}
	}
	if rank == 0 {
		return nil, false
	}
	var pinv mat.Dense
	svd.SolveTo(&pinv, &zty, rank)
	return &pinv, true
}

// scoreAICc computes the corrected Akaike information criterion for a fit
// with residual sum of squares sse over n observations and k parameters
// (spec.md §4.10 step 3).
func scoreAICc(sse float64, n, k int) float64 {
	if sse <= 0 {
		sse = 1e-12
	}
	fn := float64(n)
	fk := float64(k)
	aic := fn*math.Log(sse/fn) + 2*fk
	correction := 2 * fk * (fk + 1) / (fn - fk - 1)
	return aic + correction + fn*math.Log(2*math.Pi) + fn
}
