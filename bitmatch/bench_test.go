// SPDX-License-Identifier: MIT

package bitmatch_test

import (
	"testing"

	"github.com/katalvlaran/amatch/bitmatch"
	"github.com/katalvlaran/amatch/cohort"
)

// benchmarkForm runs one formation pass over n units with p covariates of
// the given radix, alternating arms so every cell qualifies.
func benchmarkForm(b *testing.B, n, p, radix int) {
	units := make([]cohort.Unit, n)
	for i := 0; i < n; i++ {
		codes := make([]int, p)
		for j := 0; j < p; j++ {
			codes[j] = (i / (j + 1)) % radix
		}
		units[i] = cohort.Unit{ID: i, Treated: i%2 == 0, Codes: codes}
	}
	st, err := cohort.NewUnitStore(units, cohort.Absent)
	if err != nil {
		b.Fatalf("store construction failed: %v", err)
	}
	set := cohort.FullSet(p)
	opts := bitmatch.DefaultOptions()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err = bitmatch.Form(st, set, opts); err != nil {
			b.Fatalf("Form failed: %v", err)
		}
	}
}

// BenchmarkForm_SmallBinary benchmarks 250 units over 5 binary covariates.
func BenchmarkForm_SmallBinary(b *testing.B) {
	benchmarkForm(b, 250, 5, 2)
}

// BenchmarkForm_MediumMixed benchmarks 5000 units over 12 covariates with
// 4 levels each.
func BenchmarkForm_MediumMixed(b *testing.B) {
	benchmarkForm(b, 5000, 12, 4)
}

// BenchmarkForm_WidePath benchmarks the big-integer signature path with 70
// binary covariates.
func BenchmarkForm_WidePath(b *testing.B) {
	benchmarkForm(b, 1000, 70, 2)
}
