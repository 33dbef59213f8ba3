// SPDX-License-Identifier: MIT

// Package cohort - the UnitStore.
//
// A UnitStore owns one table of units plus the immutable schema derived
// from it (level dictionaries, arm totals). It is the single mutable object
// of a search run: committing a matching pass marks units matched through
// MarkMatched, and nothing else changes after construction.
//
// Design principles:
//   - One owner per store: a store belongs to exactly one search run, so no
//     locks are needed; concurrent runs operate on Clones.
//   - Deterministic everywhere: iteration is positional, dictionaries are
//     sorted, and ranks are dense; identical inputs give identical stores.
//   - Validate once: every structural error is caught in NewUnitStore and
//     reported as a sentinel; accessors afterwards are total functions.
package cohort

import (
	"math"
	"sort"
)

// UnitStore is an owned, in-memory matching table. See the package
// documentation for the ownership and determinism contract.
type UnitStore struct {
	units []Unit
	kind  OutcomeKind

	p      int           // covariate count
	levels [][]int       // per covariate: sorted distinct observed codes
	rank   []map[int]int // per covariate: code -> dense rank in levels

	treatedTotal int
	controlTotal int
	matchedT     int // matched treated units (distinct), monotone
	matchedC     int // matched control units (distinct), monotone
}

// NewUnitStore validates units against the declared outcome kind, copies
// them, resets their match state, and derives the level dictionaries.
//
// Validation (all-or-nothing, strict sentinels):
//   - at least one unit, at least one covariate, equal vector lengths;
//   - every code >= MissingCode; unit IDs unique;
//   - at least one treated and one control unit;
//   - outcomes per kind: finite for Continuous, {0,1} for Binary,
//     non-negative integral for Multiclass (Absent skips the check).
//
// Complexity: O(n*p + n log n) time, O(n*p) space.
func NewUnitStore(units []Unit, kind OutcomeKind) (*UnitStore, error) {
	n := len(units)
	if n == 0 {
		return nil, ErrNoUnits
	}
	p := len(units[0].Codes)
	if p == 0 {
		return nil, ErrNoCovariates
	}

	st := &UnitStore{
		units:  make([]Unit, n),
		kind:   kind,
		p:      p,
		levels: make([][]int, p),
		rank:   make([]map[int]int, p),
	}

	seen := make(map[int]struct{}, n)
	var (
		i, j int
		u    Unit
	)
	for i = 0; i < n; i++ {
		u = units[i]
		if len(u.Codes) != p {
			return nil, ErrRaggedCovariates
		}
		if _, dup := seen[u.ID]; dup {
			return nil, ErrDuplicateUnitID
		}
		seen[u.ID] = struct{}{}
		for j = 0; j < p; j++ {
			if u.Codes[j] < MissingCode {
				return nil, ErrBadCode
			}
		}
		if err := checkOutcome(u.Outcome, kind); err != nil {
			return nil, err
		}
		if u.Treated {
			st.treatedTotal++
		} else {
			st.controlTotal++
		}

		// Own the row: copy codes, reset match state.
		st.units[i] = Unit{
			ID:      u.ID,
			Treated: u.Treated,
			Outcome: u.Outcome,
			Codes:   append([]int(nil), u.Codes...),
		}
	}
	if st.treatedTotal == 0 {
		return nil, ErrNoTreatedUnits
	}
	if st.controlTotal == 0 {
		return nil, ErrNoControlUnits
	}

	st.buildDictionaries()

	return st, nil
}

// checkOutcome enforces the OutcomeKind value contract for one outcome.
func checkOutcome(y float64, kind OutcomeKind) error {
	switch kind {
	case Absent:
		return nil
	case Continuous:
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return ErrBadOutcome
		}
	case Binary:
		if y != 0 && y != 1 {
			return ErrBadOutcome
		}
	case Multiclass:
		if y < 0 || y != math.Trunc(y) || math.IsInf(y, 0) {
			return ErrBadOutcome
		}
	default:
		return ErrBadOutcome
	}

	return nil
}

// buildDictionaries derives, per covariate, the sorted distinct observed
// codes and their dense ranks. MissingCode participates like any observed
// code (it sorts first); missingness policy is applied by callers, not by
// the dictionary.
func (st *UnitStore) buildDictionaries() {
	var (
		j, i int
		code int
	)
	for j = 0; j < st.p; j++ {
		distinct := make(map[int]struct{}, 8)
		for i = range st.units {
			distinct[st.units[i].Codes[j]] = struct{}{}
		}
		lv := make([]int, 0, len(distinct))
		for code = range distinct {
			lv = append(lv, code)
		}
		sort.Ints(lv)
		rk := make(map[int]int, len(lv))
		for i, code = range lv {
			rk[code] = i
		}
		st.levels[j] = lv
		st.rank[j] = rk
	}
}

// Len reports the number of units in the store.
func (st *UnitStore) Len() int { return len(st.units) }

// Covariates reports the covariate count p.
func (st *UnitStore) Covariates() int { return st.p }

// Kind reports the outcome kind fixed at construction.
func (st *UnitStore) Kind() OutcomeKind { return st.kind }

// At returns a copy of the i-th unit (positional index, not unit ID).
func (st *UnitStore) At(i int) Unit {
	u := st.units[i]
	u.Codes = append([]int(nil), u.Codes...)
	u.MatchedOn = append([]CovariateSet(nil), u.MatchedOn...)

	return u
}

// ID returns the stable unit ID at position i.
func (st *UnitStore) ID(i int) int { return st.units[i].ID }

// IsTreated reports the treatment arm of the unit at position i.
func (st *UnitStore) IsTreated(i int) bool { return st.units[i].Treated }

// Outcome returns the outcome value of the unit at position i.
func (st *UnitStore) Outcome(i int) float64 { return st.units[i].Outcome }

// IsMatched reports whether the unit at position i has been matched.
func (st *UnitStore) IsMatched(i int) bool { return st.units[i].Matched }

// Code returns the raw covariate code of unit i on covariate j.
func (st *UnitStore) Code(i, j int) int { return st.units[i].Codes[j] }

// IsMissing reports whether unit i's covariate j is the missing sentinel.
func (st *UnitStore) IsMissing(i, j int) bool { return st.units[i].Codes[j] == MissingCode }

// Rank returns the dense rank of unit i's code on covariate j. Ranks are
// total: every code present in the store has one, including MissingCode.
func (st *UnitStore) Rank(i, j int) int { return st.rank[j][st.units[i].Codes[j]] }

// Radix reports the number of distinct observed levels of covariate j
// (the rank alphabet size, missing sentinel included when observed).
func (st *UnitStore) Radix(j int) int { return len(st.levels[j]) }

// Levels returns a copy of the sorted distinct observed codes of
// covariate j.
func (st *UnitStore) Levels(j int) []int {
	return append([]int(nil), st.levels[j]...)
}

// LevelRank resolves an arbitrary code against covariate j's dictionary.
// ok is false for codes never observed in this store (the caller decides
// whether that is a level mismatch or a skip).
func (st *UnitStore) LevelRank(j, code int) (r int, ok bool) {
	r, ok = st.rank[j][code]

	return r, ok
}

// Totals reports the store-wide treated and control unit counts.
func (st *UnitStore) Totals() (treated, control int) {
	return st.treatedTotal, st.controlTotal
}

// UnmatchedCounts reports the currently unmatched treated and control unit
// counts. Both are non-increasing over a run.
func (st *UnitStore) UnmatchedCounts() (treated, control int) {
	return st.treatedTotal - st.matchedT, st.controlTotal - st.matchedC
}

// MarkMatched commits a match of the unit at position i on the given set:
// Matched turns (and stays) true, Weight increments, and the set is
// appended to MatchedOn. The first mark per unit updates the unmatched
// counters; later marks (matching with replacement) only grow Weight.
func (st *UnitStore) MarkMatched(i int, set CovariateSet) {
	u := &st.units[i]
	if !u.Matched {
		u.Matched = true
		if u.Treated {
			st.matchedT++
		} else {
			st.matchedC++
		}
	}
	u.Weight++
	u.MatchedOn = append(u.MatchedOn, set)
}

// Clone returns a deep copy of the store, match state included. Clones
// share nothing with the receiver; each concurrent search run must own one.
//
// Complexity: O(n*p) time and space.
func (st *UnitStore) Clone() *UnitStore {
	cp := &UnitStore{
		units:        make([]Unit, len(st.units)),
		kind:         st.kind,
		p:            st.p,
		levels:       make([][]int, st.p),
		rank:         make([]map[int]int, st.p),
		treatedTotal: st.treatedTotal,
		controlTotal: st.controlTotal,
		matchedT:     st.matchedT,
		matchedC:     st.matchedC,
	}
	var (
		i, j int
		code int
		r    int
	)
	for i = range st.units {
		u := st.units[i]
		u.Codes = append([]int(nil), u.Codes...)
		u.MatchedOn = append([]CovariateSet(nil), u.MatchedOn...)
		cp.units[i] = u
	}
	for j = 0; j < st.p; j++ {
		cp.levels[j] = append([]int(nil), st.levels[j]...)
		m := make(map[int]int, len(st.rank[j]))
		for code, r = range st.rank[j] {
			m[code] = r
		}
		cp.rank[j] = m
	}

	return cp
}
