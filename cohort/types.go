// SPDX-License-Identifier: MIT

// Package cohort - core types and sentinel errors of the amatch data model.
//
// This file declares the Unit record, outcome kinds, the reserved covariate
// codes, the MatchedGroup entity, and every sentinel error the package can
// return. Construction-time validation lives in store.go and bundle.go;
// only sentinels declared here are ever returned.
package cohort

import "errors"

// Reserved covariate codes. User-supplied codes must be >= 0; the two
// sentinels below occupy the negative range.
const (
	// MissingCode marks an unobserved covariate cell. Units carrying it are
	// excluded from matching passes that use the affected covariate unless
	// the missingness policy treats the sentinel as an ordinary level.
	MissingCode = -1

	// MaskedCode appears only in assembled reports: it replaces covariate
	// values outside a unit's matched-on sets, so a report row shows exactly
	// the values the unit was actually matched on.
	MaskedCode = -2
)

// OutcomeKind fixes how outcome values are interpreted. It is set once at
// store construction and never changes (the prediction-error estimator and
// the CATE assembler both dispatch on it).
type OutcomeKind uint8

const (
	// Absent marks a table without an outcome column. Matching still works;
	// group CATEs are skipped. Holdout tables must not use Absent.
	Absent OutcomeKind = iota

	// Continuous outcomes are arbitrary finite floats; prediction error is
	// mean squared error and group CATEs are treated/control mean gaps.
	Continuous

	// Binary outcomes must be exactly 0 or 1; predictions are thresholded
	// at 0.5 and prediction error is the misclassification rate.
	Binary

	// Multiclass outcomes are non-negative integral class codes; they are
	// recoded to dense class indices before fitting and carry no CATE.
	Multiclass
)

// String returns the lowercase name of the kind (used in logs and reports).
func (k OutcomeKind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Continuous:
		return "continuous"
	case Binary:
		return "binary"
	case Multiclass:
		return "multiclass"
	default:
		return "unknown"
	}
}

// Unit is one row of a matching table.
//
// ID, Treated, Outcome and Codes are immutable after store construction.
// Matched, Weight and MatchedOn are the run-mutable match state; they are
// zeroed by NewUnitStore and mutated only through UnitStore.MarkMatched.
// Matched never reverts to false once set.
type Unit struct {
	ID      int     // stable original row index; unique within a store
	Treated bool    // treatment arm indicator
	Outcome float64 // interpreted per the store's OutcomeKind
	Codes   []int   // categorical covariate codes; MissingCode allowed

	Matched   bool           // true once the unit joined any matched group
	Weight    int            // number of distinct covariate sets matched on
	MatchedOn []CovariateSet // one entry per match, in commit order
}

// MatchedGroup is a maximal set of units sharing identical covariate codes
// on some CovariateSet, with at least one treated and one control member.
// Groups are immutable once emitted and accumulate across iterations; they
// are never merged or removed.
type MatchedGroup struct {
	ID        int          // emission sequence within one search run
	Iteration int          // search iteration that produced the group (0 = full set)
	Set       CovariateSet // covariates the members agree on
	Values    []int        // shared original codes, aligned with Set.Indices()
	UnitIDs   []int        // member unit IDs in first-appearance order
	Treated   int          // treated member count (>= 1)
	Control   int          // control member count (>= 1)

	// CATE is the conditional average treatment effect, i.e. the treated
	// minus control outcome mean among members. CATEValid is false when the
	// outcome kind admits no mean gap (Absent, Multiclass).
	CATE      float64
	CATEValid bool
}

// Sentinel errors returned by cohort constructors and accessors.
var (
	// ErrNoUnits indicates an empty unit slice was passed to NewUnitStore.
	ErrNoUnits = errors.New("cohort: store needs at least one unit")

	// ErrNoCovariates indicates units with an empty covariate vector.
	ErrNoCovariates = errors.New("cohort: units carry no covariates")

	// ErrRaggedCovariates indicates units whose covariate vectors disagree
	// in length.
	ErrRaggedCovariates = errors.New("cohort: covariate vectors differ in length")

	// ErrBadCode indicates a covariate code below MissingCode.
	ErrBadCode = errors.New("cohort: covariate code below the missing sentinel")

	// ErrDuplicateUnitID indicates two units sharing an ID.
	ErrDuplicateUnitID = errors.New("cohort: duplicate unit ID")

	// ErrNoTreatedUnits indicates a store without a single treated unit;
	// no group can ever qualify, so the run is rejected upfront.
	ErrNoTreatedUnits = errors.New("cohort: no treated units")

	// ErrNoControlUnits indicates a store without a single control unit.
	ErrNoControlUnits = errors.New("cohort: no control units")

	// ErrBadOutcome indicates an outcome value violating the declared kind
	// (non-finite float, binary outside {0,1}, non-integral class code).
	ErrBadOutcome = errors.New("cohort: outcome value violates the outcome kind")

	// ErrNegativeCovariate indicates a covariate index below zero.
	ErrNegativeCovariate = errors.New("cohort: covariate index must be non-negative")

	// ErrDuplicateCovariate indicates a repeated index in a covariate set.
	ErrDuplicateCovariate = errors.New("cohort: duplicate covariate index")

	// ErrEmptyBundle indicates an imputation bundle without data or holdout
	// members.
	ErrEmptyBundle = errors.New("cohort: imputation bundle needs data and holdout stores")

	// ErrSchemaMismatch indicates bundle members disagreeing on covariate
	// count or outcome kind.
	ErrSchemaMismatch = errors.New("cohort: bundle members disagree on schema")

	// ErrHoldoutOutcome indicates a holdout store without an outcome column;
	// prediction error cannot be estimated on it.
	ErrHoldoutOutcome = errors.New("cohort: holdout stores require an outcome")
)
