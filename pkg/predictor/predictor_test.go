// SPDX-License-Identifier: AGPL-3.0-or-later

/*
simcore - a distributed digital-twin simulation platform core.

Copyright (C) 2025  simcore contributors

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package predictor

import (
	"errors"
	"testing"
)

// Feature: PREDICTOR_VAR
// Spec: spec/core/predictor.md

// linearSeries builds a deterministic n-row, 2-column series so the fitted
// model has a non-trivial but reproducible trend to extrapolate.
func linearSeries(n int) [][]float64 {
	data := make([][]float64, n)
	for t := 0; t < n; t++ {
		data[t] = []float64{float64(t), float64(2*t + 1)}
	}
	return data
}

func TestFit_TooShortSeriesReturnsNoModel(t *testing.T) {
	_, err := Fit(linearSeries(10), DefaultTrainFraction)
	if !errors.Is(err, ErrNoModel) {
		t.Fatalf("expected ErrNoModel for a too-short series, got %v", err)
	}
}

func TestFit_RaggedRowsReturnsNoModel(t *testing.T) {
	data := linearSeries(300)
	data[5] = []float64{1, 2, 3}
	if _, err := Fit(data, DefaultTrainFraction); !errors.Is(err, ErrNoModel) {
		t.Fatalf("expected ErrNoModel for ragged rows, got %v", err)
	}
}

func TestFit_DeterministicGivenSameData(t *testing.T) {
	data := linearSeries(300)

	m1, err := Fit(data, DefaultTrainFraction)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m2, err := Fit(data, DefaultTrainFraction)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m1.Order() != m2.Order() {
		t.Fatalf("expected same lag order across identical fits, got %d vs %d", m1.Order(), m2.Order())
	}

	p1 := m1.PredictNext()
	p2 := m2.PredictNext()
	if len(p1) != 2 || len(p2) != 2 {
		t.Fatalf("expected a 2-column prediction, got %v / %v", p1, p2)
	}
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("expected identical predictions from identical fits, got %v vs %v", p1, p2)
		}
	}
}

func TestFit_OrderWithinScannedRange(t *testing.T) {
	m, err := Fit(linearSeries(300), DefaultTrainFraction)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Order() < minLagOrder || m.Order() > maxLagOrder {
		t.Fatalf("expected order within [%d, %d], got %d", minLagOrder, maxLagOrder, m.Order())
	}
}

func TestPredictNext_RollsSeedForward(t *testing.T) {
	m, err := Fit(linearSeries(300), DefaultTrainFraction)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := m.PredictNext()
	second := m.PredictNext()
	if len(first) != len(second) {
		t.Fatal("expected consistent prediction width across calls")
	}
	// A linear trend continuing means successive predictions keep climbing.
	if second[0] <= first[0] {
		t.Fatalf("expected the rolled prediction to continue the trend, got %v then %v", first, second)
	}
}

func TestFit_InvalidTrainFractionFallsBackToDefault(t *testing.T) {
	data := linearSeries(300)
	m1, err := Fit(data, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m2, err := Fit(data, DefaultTrainFraction)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m1.Order() != m2.Order() {
		t.Fatalf("expected a non-positive fraction to fall back to the default, got orders %d vs %d", m1.Order(), m2.Order())
	}
}
