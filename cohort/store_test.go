// SPDX-License-Identifier: MIT

// Package cohort_test validates the UnitStore and ImputationBundle.
// Focus:
//  1. Strict sentinels on malformed inputs (empty, ragged, bad codes,
//     duplicate IDs, single-arm tables, outcome kind violations).
//  2. Level dictionaries: dense sorted ranks, missing sentinel first.
//  3. Match-state bookkeeping (MarkMatched, UnmatchedCounts, Weight).
//  4. Clone independence.
//  5. Bundle pairing rules.
package cohort_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/amatch/cohort"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkUnits builds a small two-covariate table: three treated, three control,
// continuous outcomes, one missing entry.
func mkUnits() []cohort.Unit {
	return []cohort.Unit{
		{ID: 1, Treated: true, Outcome: 10, Codes: []int{0, 5}},
		{ID: 2, Treated: true, Outcome: 12, Codes: []int{1, 5}},
		{ID: 3, Treated: true, Outcome: 14, Codes: []int{0, 7}},
		{ID: 4, Treated: false, Outcome: 9, Codes: []int{0, 5}},
		{ID: 5, Treated: false, Outcome: 11, Codes: []int{1, 7}},
		{ID: 6, Treated: false, Outcome: 8, Codes: []int{cohort.MissingCode, 5}},
	}
}

// mustStore constructs a continuous-outcome store from mkUnits.
func mustStore(t *testing.T) *cohort.UnitStore {
	t.Helper()
	st, err := cohort.NewUnitStore(mkUnits(), cohort.Continuous)
	require.NoError(t, err)

	return st
}

// TestNewUnitStore_StrictSentinels exercises each constructor guard.
func TestNewUnitStore_StrictSentinels(t *testing.T) {
	// No units.
	_, err := cohort.NewUnitStore(nil, cohort.Continuous)
	assert.ErrorIs(t, err, cohort.ErrNoUnits)

	// No covariates.
	_, err = cohort.NewUnitStore([]cohort.Unit{{ID: 1, Codes: nil}}, cohort.Continuous)
	assert.ErrorIs(t, err, cohort.ErrNoCovariates)

	// Ragged rows.
	_, err = cohort.NewUnitStore([]cohort.Unit{
		{ID: 1, Treated: true, Codes: []int{0, 1}},
		{ID: 2, Codes: []int{0}},
	}, cohort.Continuous)
	assert.ErrorIs(t, err, cohort.ErrRaggedCovariates)

	// Code below the missing sentinel.
	_, err = cohort.NewUnitStore([]cohort.Unit{
		{ID: 1, Treated: true, Codes: []int{-3}},
		{ID: 2, Codes: []int{0}},
	}, cohort.Continuous)
	assert.ErrorIs(t, err, cohort.ErrBadCode)

	// Duplicate unit IDs.
	_, err = cohort.NewUnitStore([]cohort.Unit{
		{ID: 7, Treated: true, Codes: []int{0}},
		{ID: 7, Codes: []int{1}},
	}, cohort.Continuous)
	assert.ErrorIs(t, err, cohort.ErrDuplicateUnitID)

	// Single-arm tables.
	_, err = cohort.NewUnitStore([]cohort.Unit{
		{ID: 1, Treated: true, Codes: []int{0}},
	}, cohort.Continuous)
	assert.ErrorIs(t, err, cohort.ErrNoControlUnits)

	_, err = cohort.NewUnitStore([]cohort.Unit{
		{ID: 1, Treated: false, Codes: []int{0}},
	}, cohort.Continuous)
	assert.ErrorIs(t, err, cohort.ErrNoTreatedUnits)
}

// TestNewUnitStore_OutcomeKinds verifies the per-kind outcome contracts.
func TestNewUnitStore_OutcomeKinds(t *testing.T) {
	pair := func(y float64) []cohort.Unit {
		return []cohort.Unit{
			{ID: 1, Treated: true, Outcome: y, Codes: []int{0}},
			{ID: 2, Treated: false, Outcome: 0, Codes: []int{1}},
		}
	}

	// Continuous rejects NaN and Inf.
	_, err := cohort.NewUnitStore(pair(math.NaN()), cohort.Continuous)
	assert.ErrorIs(t, err, cohort.ErrBadOutcome, "NaN outcome must error")
	_, err = cohort.NewUnitStore(pair(math.Inf(1)), cohort.Continuous)
	assert.ErrorIs(t, err, cohort.ErrBadOutcome, "+Inf outcome must error")

	// Binary restricts to {0,1}.
	_, err = cohort.NewUnitStore(pair(0.5), cohort.Binary)
	assert.ErrorIs(t, err, cohort.ErrBadOutcome, "fractional binary outcome must error")
	_, err = cohort.NewUnitStore(pair(1), cohort.Binary)
	assert.NoError(t, err)

	// Multiclass wants non-negative integers.
	_, err = cohort.NewUnitStore(pair(-1), cohort.Multiclass)
	assert.ErrorIs(t, err, cohort.ErrBadOutcome, "negative class must error")
	_, err = cohort.NewUnitStore(pair(2.5), cohort.Multiclass)
	assert.ErrorIs(t, err, cohort.ErrBadOutcome, "fractional class must error")
	_, err = cohort.NewUnitStore(pair(3), cohort.Multiclass)
	assert.NoError(t, err)

	// Absent skips the outcome check entirely.
	_, err = cohort.NewUnitStore(pair(math.NaN()), cohort.Absent)
	assert.NoError(t, err, "Absent kind must not inspect outcomes")
}

// TestUnitStore_LevelDictionaries verifies sorted dense ranks with the
// missing sentinel ranked first when observed.
func TestUnitStore_LevelDictionaries(t *testing.T) {
	st := mustStore(t)

	// Covariate 0 observes {-1, 0, 1}: radix 3, missing ranks first.
	assert.Equal(t, 3, st.Radix(0))
	assert.Equal(t, []int{cohort.MissingCode, 0, 1}, st.Levels(0))
	assert.Equal(t, 0, st.Rank(5, 0), "missing code must take rank 0")
	assert.Equal(t, 1, st.Rank(0, 0), "code 0 ranks after the missing sentinel")
	assert.Equal(t, 2, st.Rank(1, 0))

	// Covariate 1 observes {5, 7}: sparse codes collapse to dense ranks.
	assert.Equal(t, 2, st.Radix(1))
	assert.Equal(t, 0, st.Rank(0, 1), "code 5 -> rank 0")
	assert.Equal(t, 1, st.Rank(2, 1), "code 7 -> rank 1")

	// LevelRank resolves arbitrary codes, reporting unseen ones.
	r, ok := st.LevelRank(1, 7)
	assert.True(t, ok)
	assert.Equal(t, 1, r)
	_, ok = st.LevelRank(1, 6)
	assert.False(t, ok, "never-observed code must not resolve")

	// IsMissing mirrors the sentinel.
	assert.True(t, st.IsMissing(5, 0))
	assert.False(t, st.IsMissing(0, 0))
}

// TestUnitStore_RankInvariantUnderShift verifies that adding a constant to
// every code of a covariate leaves all ranks unchanged.
func TestUnitStore_RankInvariantUnderShift(t *testing.T) {
	base := mkUnits()
	shifted := make([]cohort.Unit, len(base))
	for i, u := range base {
		codes := append([]int(nil), u.Codes...)
		if codes[1] != cohort.MissingCode {
			codes[1] += 100
		}
		u.Codes = codes
		shifted[i] = u
	}

	a, err := cohort.NewUnitStore(base, cohort.Continuous)
	require.NoError(t, err)
	b, err := cohort.NewUnitStore(shifted, cohort.Continuous)
	require.NoError(t, err)

	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, a.Rank(i, 1), b.Rank(i, 1), "ranks must survive code shifts")
	}
}

// TestUnitStore_MarkMatchedBookkeeping verifies counters, weights and
// matched-on history, including repeat marks under replacement.
func TestUnitStore_MarkMatchedBookkeeping(t *testing.T) {
	st := mustStore(t)
	set, err := cohort.NewCovariateSet([]int{0, 1})
	require.NoError(t, err)

	tt, ct := st.Totals()
	assert.Equal(t, 3, tt)
	assert.Equal(t, 3, ct)

	ut, uc := st.UnmatchedCounts()
	assert.Equal(t, 3, ut)
	assert.Equal(t, 3, uc)

	st.MarkMatched(0, set) // treated
	st.MarkMatched(3, set) // control
	ut, uc = st.UnmatchedCounts()
	assert.Equal(t, 2, ut)
	assert.Equal(t, 2, uc)

	// A second mark on the same unit grows Weight but not the counters.
	st.MarkMatched(0, set.Drop(1))
	ut, uc = st.UnmatchedCounts()
	assert.Equal(t, 2, ut, "re-mark must not change unmatched counts")

	u := st.At(0)
	assert.True(t, u.Matched)
	assert.Equal(t, 2, u.Weight)
	require.Len(t, u.MatchedOn, 2)
	assert.Equal(t, "0,1", u.MatchedOn[0].Key())
	assert.Equal(t, "0", u.MatchedOn[1].Key())
}

// TestUnitStore_ConstructorOwnsData verifies the store deep-copies units
// and resets any pre-set match state.
func TestUnitStore_ConstructorOwnsData(t *testing.T) {
	src := mkUnits()
	src[0].Matched = true
	src[0].Weight = 9

	st, err := cohort.NewUnitStore(src, cohort.Continuous)
	require.NoError(t, err)

	assert.False(t, st.IsMatched(0), "match state must reset at construction")
	assert.Equal(t, 0, st.At(0).Weight)

	// Mutating the caller's slice after construction must not be visible.
	src[1].Codes[0] = 42
	assert.Equal(t, 1, st.Code(1, 0), "store must own its code vectors")
}

// TestUnitStore_CloneIsIndependent verifies a clone shares no mutable state.
func TestUnitStore_CloneIsIndependent(t *testing.T) {
	st := mustStore(t)
	set, err := cohort.NewCovariateSet([]int{0})
	require.NoError(t, err)

	cp := st.Clone()
	cp.MarkMatched(0, set)

	assert.False(t, st.IsMatched(0), "marking the clone must not touch the original")
	assert.True(t, cp.IsMatched(0))

	ut, _ := st.UnmatchedCounts()
	cut, _ := cp.UnmatchedCounts()
	assert.Equal(t, 3, ut)
	assert.Equal(t, 2, cut)
}

// TestNewImputationBundle_PairingRules exercises the bundle constructor.
func TestNewImputationBundle_PairingRules(t *testing.T) {
	data := mustStore(t)
	hold := mustStore(t)

	// Happy path.
	b, err := cohort.NewImputationBundle(
		[]*cohort.UnitStore{data},
		[]*cohort.UnitStore{hold},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Size())
	assert.Equal(t, 2, b.Covariates())
	assert.Equal(t, cohort.Continuous, b.Kind())

	// Empty slices.
	_, err = cohort.NewImputationBundle(nil, nil)
	assert.ErrorIs(t, err, cohort.ErrEmptyBundle)
	_, err = cohort.NewImputationBundle([]*cohort.UnitStore{data}, nil)
	assert.ErrorIs(t, err, cohort.ErrEmptyBundle)

	// K and M are independent counts.
	b, err = cohort.NewImputationBundle(
		[]*cohort.UnitStore{data, data},
		[]*cohort.UnitStore{hold},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Size(), "two data imputations, one shared holdout")

	// Holdout without outcomes.
	noY, err := cohort.NewUnitStore(mkUnits(), cohort.Absent)
	require.NoError(t, err)
	_, err = cohort.NewImputationBundle(
		[]*cohort.UnitStore{data},
		[]*cohort.UnitStore{noY},
	)
	assert.ErrorIs(t, err, cohort.ErrHoldoutOutcome)

	// Covariate count mismatch.
	narrow, err := cohort.NewUnitStore([]cohort.Unit{
		{ID: 1, Treated: true, Outcome: 1, Codes: []int{0}},
		{ID: 2, Treated: false, Outcome: 0, Codes: []int{1}},
	}, cohort.Continuous)
	require.NoError(t, err)
	_, err = cohort.NewImputationBundle(
		[]*cohort.UnitStore{narrow},
		[]*cohort.UnitStore{hold},
	)
	assert.ErrorIs(t, err, cohort.ErrSchemaMismatch)

	// Outcome kind mismatch between data and holdout.
	bin, err := cohort.NewUnitStore([]cohort.Unit{
		{ID: 1, Treated: true, Outcome: 1, Codes: []int{0, 5}},
		{ID: 2, Treated: false, Outcome: 0, Codes: []int{1, 7}},
	}, cohort.Binary)
	require.NoError(t, err)
	_, err = cohort.NewImputationBundle(
		[]*cohort.UnitStore{bin},
		[]*cohort.UnitStore{hold},
	)
	assert.ErrorIs(t, err, cohort.ErrSchemaMismatch, "Binary data against Continuous holdout must error")

	// Data without outcomes pairs fine with any holdout kind.
	b, err = cohort.NewImputationBundle(
		[]*cohort.UnitStore{noY},
		[]*cohort.UnitStore{hold},
	)
	require.NoError(t, err)
	assert.Equal(t, cohort.Continuous, b.Kind())
}
