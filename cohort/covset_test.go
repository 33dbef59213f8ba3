// SPDX-License-Identifier: MIT

package cohort_test

import (
	"encoding/json"
	"testing"

	"github.com/katalvlaran/amatch/cohort"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewCovariateSet_SortsAndCopies verifies indices are stored sorted
// ascending and that the constructor does not alias the caller's slice.
func TestNewCovariateSet_SortsAndCopies(t *testing.T) {
	src := []int{3, 0, 2}
	set, err := cohort.NewCovariateSet(src)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 3}, set.Indices(), "indices must be sorted ascending")

	// Mutating the source must not leak into the set.
	src[0] = 99
	assert.Equal(t, []int{0, 2, 3}, set.Indices(), "constructor must copy input")
}

// TestNewCovariateSet_StrictSentinels checks negative and duplicate indices.
func TestNewCovariateSet_StrictSentinels(t *testing.T) {
	_, err := cohort.NewCovariateSet([]int{0, -1})
	assert.ErrorIs(t, err, cohort.ErrNegativeCovariate, "negative index must error")

	_, err = cohort.NewCovariateSet([]int{1, 2, 1})
	assert.ErrorIs(t, err, cohort.ErrDuplicateCovariate, "duplicate index must error")
}

// TestCovariateSet_DropProducesChild verifies Drop removes exactly one
// index and leaves the receiver untouched.
func TestCovariateSet_DropProducesChild(t *testing.T) {
	set, err := cohort.NewCovariateSet([]int{0, 1, 2})
	require.NoError(t, err)

	child := set.Drop(1)
	assert.Equal(t, []int{0, 2}, child.Indices(), "child must drop index 1")
	assert.Equal(t, []int{0, 1, 2}, set.Indices(), "receiver must stay intact")

	// Dropping an absent index returns an equal set.
	same := set.Drop(7)
	assert.True(t, same.Equal(set), "dropping an absent index must be identity")
}

// TestCovariateSet_KeyCanonical verifies Key is positional, ascending and
// stable, so it can index memoization maps.
func TestCovariateSet_KeyCanonical(t *testing.T) {
	a, err := cohort.NewCovariateSet([]int{4, 0, 11})
	require.NoError(t, err)
	b, err := cohort.NewCovariateSet([]int{11, 4, 0})
	require.NoError(t, err)

	assert.Equal(t, "0,4,11", a.Key())
	assert.Equal(t, a.Key(), b.Key(), "order of construction must not change the key")

	empty, err := cohort.NewCovariateSet(nil)
	require.NoError(t, err)
	assert.Equal(t, "", empty.Key(), "empty set key is the empty string")
	assert.Equal(t, 0, empty.Len())
}

// TestCovariateSet_FullSetAndContains covers FullSet construction and
// membership lookups.
func TestCovariateSet_FullSetAndContains(t *testing.T) {
	full := cohort.FullSet(4)
	assert.Equal(t, []int{0, 1, 2, 3}, full.Indices())

	assert.True(t, full.Contains(2))
	assert.False(t, full.Contains(4))
	assert.Equal(t, 1, full.At(1))
}

// TestCovariateSet_JSON verifies the index-array encoding round-trips and
// keeps constructor validation on the way in.
func TestCovariateSet_JSON(t *testing.T) {
	set, err := cohort.NewCovariateSet([]int{5, 0, 2})
	require.NoError(t, err)

	raw, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Equal(t, "[0,2,5]", string(raw))

	var back cohort.CovariateSet
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Equal(set))

	empty, err := json.Marshal(cohort.CovariateSet{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty), "zero-value set must encode as an empty array")

	assert.ErrorIs(t, json.Unmarshal([]byte("[1,1]"), &back), cohort.ErrDuplicateCovariate)
	assert.ErrorIs(t, json.Unmarshal([]byte("[-1]"), &back), cohort.ErrNegativeCovariate)
}
