// SPDX-License-Identifier: MIT

package bitmatch

import (
	"math"
	"math/big"

	"github.com/katalvlaran/amatch/cohort"
)

// Form scores one exact-match pass of the store against the active set.
// It never mutates the store; apply the result with Commit.
//
// Pipeline:
//  1. Select candidates (unmatched units, or all units under Replace;
//     SkipMissing drops units missing an active covariate).
//  2. Fold each candidate's active level ranks into a mixed-radix
//     signature, and the signature plus treatment bit into an arm
//     signature.
//  3. Count both; a candidate whose two counts differ sits in a cell
//     with both arms present.
//  4. Bucket matchable candidates by signature in first-appearance order
//     and emit one MatchedGroup per cell.
//
// Contracts:
//   - st non-nil (ErrNilStore), set non-empty (ErrEmptySet), every index
//     below st.Covariates() (ErrSetOutOfRange).
//   - The outcome is only valid against the store state it was formed on.
//
// Complexity: O(n·s) with s = set.Len(); the wide signature path adds
// big-integer arithmetic per candidate.
func Form(st *cohort.UnitStore, set cohort.CovariateSet, opts Options) (*Outcome, error) {
	if st == nil {
		return nil, ErrNilStore
	}
	if set.Len() == 0 {
		return nil, ErrEmptySet
	}
	idx := set.Indices()
	if idx[len(idx)-1] >= st.Covariates() {
		return nil, ErrSetOutOfRange
	}

	var (
		n   = st.Len()
		has = make([]bool, n)
		i   int
	)
	for i = 0; i < n; i++ {
		has[i] = candidate(st, idx, i, opts)
	}

	if fitsFast(st, idx) {
		sig, arm := fastSignatures(st, idx, has)

		return assemble(st, set, idx, has, sig, arm), nil
	}
	sig, arm := wideSignatures(st, idx, has)

	return assemble(st, set, idx, has, sig, arm), nil
}

// Commit applies a formed outcome: every group member is marked matched on
// the set, growing weight and matched-on history. The outcome must have
// been formed against the store's current state.
func Commit(st *cohort.UnitStore, set cohort.CovariateSet, out *Outcome) error {
	if st == nil {
		return ErrNilStore
	}
	if out == nil || len(out.members) != len(out.Groups) {
		return ErrForeignOutcome
	}

	var g, k int
	for g = range out.members {
		for k = range out.members[g] {
			if out.members[g][k] >= st.Len() {
				return ErrForeignOutcome
			}
		}
	}
	for g = range out.members {
		for _, k = range out.members[g] {
			st.MarkMatched(k, set)
		}
	}

	return nil
}

// candidate reports whether unit i participates in this pass.
func candidate(st *cohort.UnitStore, idx []int, i int, opts Options) bool {
	if !opts.Replace && st.IsMatched(i) {
		return false
	}
	if opts.Missing == SkipMissing {
		for _, j := range idx {
			if st.IsMissing(i, j) {
				return false
			}
		}
	}

	return true
}

// fitsFast reports whether 2·Π radix(j) fits a uint64, i.e. whether every
// arm signature over idx is representable without big integers.
func fitsFast(st *cohort.UnitStore, idx []int) bool {
	capacity := uint64(2)
	for _, j := range idx {
		r := uint64(st.Radix(j))
		if capacity > math.MaxUint64/r {
			return false
		}
		capacity *= r
	}

	return true
}

// fastSignatures folds ranks into uint64 signatures for all candidates.
func fastSignatures(st *cohort.UnitStore, idx []int, has []bool) (sig, arm []uint64) {
	var (
		n = st.Len()
		s uint64
		i int
		j int
	)
	sig = make([]uint64, n)
	arm = make([]uint64, n)
	for i = 0; i < n; i++ {
		if !has[i] {
			continue
		}
		s = 0
		for _, j = range idx {
			s = s*uint64(st.Radix(j)) + uint64(st.Rank(i, j))
		}
		sig[i] = s
		s *= 2
		if st.IsTreated(i) {
			s++
		}
		arm[i] = s
	}

	return sig, arm
}

// wideSignatures folds ranks into big.Int signatures, keyed by their byte
// representation. Semantics match fastSignatures exactly.
func wideSignatures(st *cohort.UnitStore, idx []int, has []bool) (sig, arm []string) {
	var (
		n     = st.Len()
		acc   = new(big.Int)
		radix = new(big.Int)
		rank  = new(big.Int)
		i, j  int
	)
	sig = make([]string, n)
	arm = make([]string, n)
	for i = 0; i < n; i++ {
		if !has[i] {
			continue
		}
		acc.SetUint64(0)
		for _, j = range idx {
			radix.SetInt64(int64(st.Radix(j)))
			rank.SetInt64(int64(st.Rank(i, j)))
			acc.Mul(acc, radix).Add(acc, rank)
		}
		sig[i] = string(acc.Bytes())
		acc.Lsh(acc, 1)
		if st.IsTreated(i) {
			acc.Add(acc, big.NewInt(1))
		}
		arm[i] = string(acc.Bytes())
	}

	return sig, arm
}

// assemble counts signatures, selects matchable candidates and builds the
// outcome. Generic over the signature representation so the uint64 and
// big-integer paths share one code path for everything observable.
func assemble[K comparable](
	st *cohort.UnitStore,
	set cohort.CovariateSet,
	idx []int,
	has []bool,
	sig, arm []K,
) *Outcome {
	var (
		n      = st.Len()
		cnt    = make(map[K]int, n)
		cntArm = make(map[K]int, n)
		i      int
	)
	for i = 0; i < n; i++ {
		if !has[i] {
			continue
		}
		cnt[sig[i]]++
		cntArm[arm[i]]++
	}

	// Bucket matchable candidates by cell, first appearance first.
	var (
		ordinal = make(map[K]int, len(cnt))
		buckets [][]int
		ord     int
		ok      bool
	)
	for i = 0; i < n; i++ {
		if !has[i] || cnt[sig[i]] == cntArm[arm[i]] {
			continue
		}
		if ord, ok = ordinal[sig[i]]; !ok {
			ord = len(buckets)
			ordinal[sig[i]] = ord
			buckets = append(buckets, nil)
		}
		buckets[ord] = append(buckets[ord], i)
	}

	out := &Outcome{
		Groups:  make([]cohort.MatchedGroup, len(buckets)),
		members: buckets,
	}
	var (
		g, k, m int
		vals    []int
		grp     *cohort.MatchedGroup
	)
	for g = range buckets {
		grp = &out.Groups[g]
		grp.Set = set
		vals = make([]int, len(idx))
		for k = range idx {
			vals[k] = st.Code(buckets[g][0], idx[k])
		}
		grp.Values = vals
		grp.UnitIDs = make([]int, len(buckets[g]))
		for k, m = range buckets[g] {
			grp.UnitIDs[k] = st.ID(m)
			if st.IsTreated(m) {
				grp.Treated++
			} else {
				grp.Control++
			}
			if !st.IsMatched(m) {
				if st.IsTreated(m) {
					out.NewTreated++
				} else {
					out.NewControl++
				}
			}
		}
	}

	return out
}
