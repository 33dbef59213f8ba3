// SPDX-License-Identifier: MIT

// Shared helpers for the pefit test files.
package pefit_test

import (
	"testing"

	"github.com/katalvlaran/amatch/cohort"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// rowOf copies one design-matrix row into a slice for comparison.
func rowOf(x *mat.Dense, i int) []float64 {
	_, c := x.Dims()
	row := make([]float64, c)
	for j := 0; j < c; j++ {
		row[j] = x.At(i, j)
	}

	return row
}

// mkDesign builds a dense matrix with an intercept column followed by a
// single indicator column taken from flags.
func mkDesign(flags []float64) *mat.Dense {
	n := len(flags)
	x := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		x.Set(i, 1, flags[i])
	}

	return x
}

// mkHoldout builds a balanced holdout store over two binary covariates
// with outcome = f(codes) supplied by the caller. Units alternate between
// arms in blocks of four so each arm observes every code combination.
func mkHoldout(t *testing.T, kind cohort.OutcomeKind, n int, f func(codes []int) float64) *cohort.UnitStore {
	t.Helper()
	units := make([]cohort.Unit, n)
	for i := 0; i < n; i++ {
		codes := []int{i % 2, (i / 2) % 2}
		units[i] = cohort.Unit{
			ID:      i,
			Treated: (i/4)%2 == 0,
			Outcome: f(codes),
			Codes:   codes,
		}
	}
	st, err := cohort.NewUnitStore(units, kind)
	require.NoError(t, err)

	return st
}
