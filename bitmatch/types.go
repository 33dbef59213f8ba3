// SPDX-License-Identifier: MIT

package bitmatch

import (
	"errors"

	"github.com/katalvlaran/amatch/cohort"
)

// MissingPolicy decides how a missing covariate code behaves during
// matching on an active set.
//
//   - SkipMissing   — a unit missing any active covariate sits the pass
//     out; it cannot form an exact match on a value it does not have.
//   - MatchMissing  — the missing sentinel acts as an ordinary level, so
//     units missing the same covariate can match each other.
type MissingPolicy uint8

const (
	// SkipMissing excludes units with a missing active covariate from the pass.
	SkipMissing MissingPolicy = iota

	// MatchMissing treats the missing sentinel as a regular matchable level.
	MatchMissing
)

// String returns the policy name for logs and error text.
func (p MissingPolicy) String() string {
	switch p {
	case SkipMissing:
		return "SkipMissing"
	case MatchMissing:
		return "MatchMissing"
	default:
		return "MissingPolicy(?)"
	}
}

// Options configures one group-formation pass.
//
// Fields:
//   - Replace — when true every unit is a candidate, matched or not, and
//     repeat matches grow unit weight; when false only unmatched units
//     participate.
//   - Missing — missing-code policy, see MissingPolicy.
type Options struct {
	Replace bool
	Missing MissingPolicy
}

// DefaultOptions returns the canonical configuration: no replacement,
// missing codes excluded from matching.
func DefaultOptions() Options {
	return Options{
		Replace: false,
		Missing: SkipMissing,
	}
}

// Outcome is the read-only result of one formation pass over a candidate
// covariate set. It carries everything a controller needs to score the
// candidate and, if the candidate wins, to commit it.
type Outcome struct {
	// Groups lists the qualifying matched groups in first-appearance
	// order. ID and Iteration are zero; the committer stamps them.
	Groups []cohort.MatchedGroup

	// NewTreated and NewControl count previously-unmatched units per arm
	// that this pass would match (the balancing-factor numerators).
	NewTreated int
	NewControl int

	// members holds positional unit indices per group, aligned with
	// Groups, for Commit.
	members [][]int
}

// Matchable reports whether the pass produced at least one group.
func (o *Outcome) Matchable() bool { return len(o.Groups) > 0 }

var (
	// ErrNilStore is returned when Form or Commit receives a nil store.
	ErrNilStore = errors.New("bitmatch: nil unit store")

	// ErrEmptySet is returned when the active covariate set is empty;
	// matching on no covariates would collapse every unit into one cell.
	ErrEmptySet = errors.New("bitmatch: empty covariate set")

	// ErrSetOutOfRange is returned when the active set references a
	// covariate index the store does not have.
	ErrSetOutOfRange = errors.New("bitmatch: covariate index out of range")

	// ErrForeignOutcome is returned when Commit receives an outcome that
	// was not produced by Form against a compatible store.
	ErrForeignOutcome = errors.New("bitmatch: outcome does not fit store")
)
