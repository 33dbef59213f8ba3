// SPDX-License-Identifier: MIT

// Package cohort - immutable covariate subsets.
//
// CovariateSet is the lattice element of the FLAME/DAME search: the
// active covariates of a matching pass. Sets are value types; every method
// either reads or derives a new set, never mutates. The canonical Key makes
// subset identity cheap to hash and stable to log.
package cohort

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// CovariateSet is an immutable, strictly ascending collection of covariate
// indices. The zero value is the empty set.
type CovariateSet struct {
	idx []int // sorted ascending, no duplicates; never exposed directly
}

// NewCovariateSet builds a set from the given indices. The input is copied
// and sorted; duplicates yield ErrDuplicateCovariate and negative indices
// yield ErrNegativeCovariate.
//
// Complexity: O(k log k) for k indices.
func NewCovariateSet(indices []int) (CovariateSet, error) {
	var (
		k   = len(indices)
		own = make([]int, k)
		i   int
	)
	copy(own, indices)
	sort.Ints(own)
	for i = 0; i < k; i++ {
		if own[i] < 0 {
			return CovariateSet{}, ErrNegativeCovariate
		}
		if i > 0 && own[i] == own[i-1] {
			return CovariateSet{}, ErrDuplicateCovariate
		}
	}

	return CovariateSet{idx: own}, nil
}

// FullSet returns {0, 1, ..., p-1}, the root of the subset lattice.
// p <= 0 yields the empty set.
func FullSet(p int) CovariateSet {
	if p <= 0 {
		return CovariateSet{}
	}
	idx := make([]int, p)
	var j int
	for j = 0; j < p; j++ {
		idx[j] = j
	}

	return CovariateSet{idx: idx}
}

// Len reports the number of active covariates.
func (s CovariateSet) Len() int { return len(s.idx) }

// At returns the k-th (ascending) covariate index. Callers iterate with
// k in [0, Len()); out-of-range access panics like any slice access.
func (s CovariateSet) At(k int) int { return s.idx[k] }

// Indices returns a fresh copy of the indices in ascending order.
func (s CovariateSet) Indices() []int {
	out := make([]int, len(s.idx))
	copy(out, s.idx)

	return out
}

// Contains reports whether covariate j is active in s.
//
// Complexity: O(log k) via binary search.
func (s CovariateSet) Contains(j int) bool {
	i := sort.SearchInts(s.idx, j)

	return i < len(s.idx) && s.idx[i] == j
}

// Drop derives the child set with covariate j removed. Dropping an index
// that is not active returns an identical copy (lattice expansion only ever
// drops active indices, so this is a convenience, not an error).
//
// Complexity: O(k).
func (s CovariateSet) Drop(j int) CovariateSet {
	if !s.Contains(j) {
		return CovariateSet{idx: append([]int(nil), s.idx...)}
	}
	out := make([]int, 0, len(s.idx)-1)
	var v int
	for _, v = range s.idx {
		if v != j {
			out = append(out, v)
		}
	}

	return CovariateSet{idx: out}
}

// Equal reports whether two sets contain exactly the same indices.
func (s CovariateSet) Equal(o CovariateSet) bool {
	if len(s.idx) != len(o.idx) {
		return false
	}
	var i int
	for i = range s.idx {
		if s.idx[i] != o.idx[i] {
			return false
		}
	}

	return true
}

// Key returns the canonical string identity of the set: the ascending
// indices joined by commas ("0,2,5"); the empty set yields "". Keys are
// used for visited-set hashing, PE memoization, and logging.
//
// Complexity: O(k).
func (s CovariateSet) Key() string {
	if len(s.idx) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s.idx) * 3)
	var k int
	for k = range s.idx {
		if k > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(s.idx[k]))
	}

	return b.String()
}

// String implements fmt.Stringer; it is the Key wrapped in braces.
func (s CovariateSet) String() string { return "{" + s.Key() + "}" }

// MarshalJSON encodes the set as its ascending index array, "[0,2,5]".
func (s CovariateSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Indices())
}

// UnmarshalJSON decodes an index array under the same validation as
// NewCovariateSet.
func (s *CovariateSet) UnmarshalJSON(data []byte) error {
	var idx []int
	if err := json.Unmarshal(data, &idx); err != nil {
		return err
	}
	set, err := NewCovariateSet(idx)
	if err != nil {
		return err
	}
	*s = set

	return nil
}
