// SPDX-License-Identifier: MIT

package flame

import (
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/katalvlaran/amatch/bitmatch"
	"github.com/katalvlaran/amatch/cohort"
	"github.com/katalvlaran/amatch/pefit"
	"github.com/rs/zerolog"
)

// Algo selects the lattice-search strategy.
//
//   - FLAME — greedy chain: the frontier is always the latest winner's
//     children, one path down the lattice, never branching.
//   - DAME  — best-first: children accumulate on the frontier, the whole
//     explored lattice stays in competition.
type Algo uint8

const (
	// FLAME walks a single greedy path down the lattice.
	FLAME Algo = iota

	// DAME runs the accumulating best-first search.
	DAME
)

// String returns the algorithm name.
func (a Algo) String() string {
	switch a {
	case FLAME:
		return "FLAME"
	case DAME:
		return "DAME"
	default:
		return "Algo(?)"
	}
}

// EarlyStop bundles the six stopping thresholds. Every rule is checked
// against the selected candidate before it commits; a triggered rule ends
// the search without touching unit state.
//
// Iterations 0 means unlimited, floors of 0 are never reached, and a
// PEAbsolute of +Inf is never exceeded. PEEpsilon works the other way
// round: 0 tolerates no degradation over baseline at all, larger values
// loosen the rule.
type EarlyStop struct {
	// Iterations caps committed covariate drops (the root exact-match
	// pass on the full set is not a drop). 0 means unlimited.
	Iterations int

	// PEEpsilon stops when the winner's PE exceeds (1+PEEpsilon) times
	// the baseline PE of the full covariate set. Must be >= 0.
	PEEpsilon float64

	// PEAbsolute stops when the winner's PE exceeds this cap outright.
	PEAbsolute float64

	// BFFloor stops when the winner's balancing factor falls below it.
	BFFloor float64

	// UnmatchedControlFloor and UnmatchedTreatedFloor stop when the
	// projected post-commit unmatched fraction of an arm drops below the
	// floor (fractions of the arm's total count).
	UnmatchedControlFloor float64
	UnmatchedTreatedFloor float64
}

// Options configures one search run. Obtain defaults from DefaultOptions
// and adjust; Run validates before starting.
type Options struct {
	// Algo picks FLAME or DAME.
	Algo Algo

	// FLAMEIters runs a DAME search greedily (FLAME frontier handling)
	// for this many committed drops before branching. Ignored under
	// FLAME. Must be >= 0.
	FLAMEIters int

	// C weights coverage against predictive error in MQ = C·BF − PE.
	// Must be positive.
	C float64

	// Replace keeps matched units eligible for further, weighted matches;
	// balancing-factor denominators switch to the arm totals.
	Replace bool

	// Missing is the missing-code matching policy (bitmatch).
	Missing bitmatch.MissingPolicy

	// Fitter estimates predictive error; nil selects pefit.NewRidge().
	Fitter pefit.Fitter

	// EarlyStop holds the six stopping thresholds.
	EarlyStop EarlyStop

	// Trace records every scored candidate per iteration in the result.
	Trace bool

	// Seed feeds all fitter randomness (0 selects a fixed default).
	Seed int64

	// Workers caps parallel candidate scoring and bundle fan-out;
	// values <= 0 mean no cap.
	Workers int

	// Logger receives one debug event per commit and one info event on
	// termination. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// DefaultOptions returns the canonical configuration: FLAME, C=0.1, no
// replacement, missing codes unmatched, ridge fitter, PE allowed to degrade
// 25% over baseline, everything else unlimited.
func DefaultOptions() Options {
	return Options{
		Algo:    FLAME,
		C:       0.1,
		Missing: bitmatch.SkipMissing,
		EarlyStop: EarlyStop{
			PEEpsilon:  0.25,
			PEAbsolute: math.Inf(1),
		},
		Logger: zerolog.Nop(),
	}
}

// StopReason reports why a search ended.
type StopReason uint8

const (
	// StopFrontierExhausted - no candidate sets remain to score.
	StopFrontierExhausted StopReason = iota

	// StopAllMatched - no further group can form (an arm ran out of
	// unmatched units; both arms under replace).
	StopAllMatched

	// StopIterations - the committed-drop cap was reached.
	StopIterations

	// StopPEDegraded - winner PE exceeded (1+PEEpsilon)·baseline.
	StopPEDegraded

	// StopPEAbsolute - winner PE exceeded the absolute cap.
	StopPEAbsolute

	// StopLowBF - winner BF fell below the floor.
	StopLowBF

	// StopControlExhausted - projected unmatched-control fraction fell
	// below its floor.
	StopControlExhausted

	// StopTreatedExhausted - projected unmatched-treated fraction fell
	// below its floor.
	StopTreatedExhausted

	// StopNoScorableCandidate - every frontier candidate failed PE
	// estimation; nothing can be selected.
	StopNoScorableCandidate
)

// String returns the stop reason name.
func (s StopReason) String() string {
	switch s {
	case StopFrontierExhausted:
		return "FrontierExhausted"
	case StopAllMatched:
		return "AllMatched"
	case StopIterations:
		return "Iterations"
	case StopPEDegraded:
		return "PEDegraded"
	case StopPEAbsolute:
		return "PEAbsolute"
	case StopLowBF:
		return "LowBF"
	case StopControlExhausted:
		return "ControlExhausted"
	case StopTreatedExhausted:
		return "TreatedExhausted"
	case StopNoScorableCandidate:
		return "NoScorableCandidate"
	default:
		return "StopReason(?)"
	}
}

// DropRecord documents one committed pass: the root exact-match pass
// (Covariate = RootCovariate) or one covariate drop.
type DropRecord struct {
	Iteration  int                // 0 for the root pass, then 1, 2, ...
	Covariate  int                // covariate dropped vs the parent set; RootCovariate for the root pass
	Set        cohort.CovariateSet // the committed active set
	BF         float64
	PE         float64
	MQ         float64
	NewTreated int // previously-unmatched treated units matched by this pass
	NewControl int
	Groups     int // matched groups the pass emitted
}

// RootCovariate marks the root pass in DropRecord.Covariate.
const RootCovariate = -1

// ScoreRecord is one scored frontier candidate (collected under Trace).
type ScoreRecord struct {
	Iteration int
	Set       cohort.CovariateSet
	BF        float64
	PE        float64
	MQ        float64
	Scorable  bool // false when PE estimation failed (PE = +Inf)
}

// UnitReport is one unit's row of the final report. Codes are the original
// covariate codes with every covariate outside the unit's matched-on union
// replaced by MaskedCode; an unmatched unit is fully masked.
type UnitReport struct {
	ID        int
	Treated   bool
	Outcome   float64
	Matched   bool
	Weight    int
	MatchedOn []cohort.CovariateSet
	Codes     []int
}

// Result is the outcome of one search over one data imputation.
type Result struct {
	// RunID uniquely identifies the run; it is the only non-deterministic
	// field of a Result.
	RunID uuid.UUID

	// Imputation is the bundle index this result belongs to (0 for Run).
	Imputation int

	// BaselinePE is the predictive error of the full covariate set,
	// fixed before the first drop.
	BaselinePE float64

	// Units reports every unit with final match state and masked codes.
	Units []UnitReport

	// Groups accumulates every matched group in emission order, CATEs
	// attached where the outcome kind admits them.
	Groups []cohort.MatchedGroup

	// Drops documents the committed passes in order (root first).
	Drops []DropRecord

	// Trace lists every scored candidate per iteration (Options.Trace).
	Trace []ScoreRecord

	// Stop is why the search ended.
	Stop StopReason

	// Iterations counts committed covariate drops (root excluded).
	Iterations int

	// MatchedTreated and MatchedControl count distinct matched units.
	MatchedTreated int
	MatchedControl int
}

var (
	// ErrBadConfig is returned (wrapped with specifics) when options
	// fail validation; the run never starts.
	ErrBadConfig = errors.New("flame: invalid configuration")

	// ErrNilStore is returned when Run receives a nil data store or a
	// nil holdout entry.
	ErrNilStore = errors.New("flame: nil unit store")

	// ErrNilBundle is returned when RunBundle receives a nil bundle.
	ErrNilBundle = errors.New("flame: nil imputation bundle")

	// ErrNoEffect is returned by ATE/ATT when no group carries a valid
	// treatment-effect estimate.
	ErrNoEffect = errors.New("flame: no groups with estimable effects")
)
