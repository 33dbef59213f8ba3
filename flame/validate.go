// SPDX-License-Identifier: MIT

// Package flame - validation utilities for search configuration and inputs.
//
// This file contains the pre-run checks:
//  1. Validate Options (weights, thresholds, algorithm selection).
//  2. Validate the data store / holdout pairing handed to Run.
//
// Design principles:
//   - Deterministic, side-effect free functions.
//   - No logging, no panics on user input - only wrapped sentinels from types.go.
//   - All checks are O(1) or O(M·p) in the number of holdouts and covariates.
package flame

import (
	"fmt"
	"math"

	"github.com/katalvlaran/amatch/cohort"
)

// validateOptions checks internal consistency of Options. Each violation
// wraps ErrBadConfig with the offending field so callers can match the
// sentinel and still read the cause.
//
// Complexity: O(1).
func validateOptions(opts Options) error {
	switch opts.Algo {
	case FLAME, DAME:
		// ok
	default:
		return fmt.Errorf("flame: unknown algorithm %d: %w", opts.Algo, ErrBadConfig)
	}
	if opts.FLAMEIters < 0 {
		return fmt.Errorf("flame: FLAMEIters %d must be >= 0: %w", opts.FLAMEIters, ErrBadConfig)
	}
	// C weighs coverage against error; zero or negative would invert or
	// erase the trade-off.
	if opts.C <= 0 || math.IsNaN(opts.C) || math.IsInf(opts.C, 0) {
		return fmt.Errorf("flame: C %v must be positive and finite: %w", opts.C, ErrBadConfig)
	}

	return validateEarlyStop(opts.EarlyStop)
}

// validateEarlyStop checks the stopping thresholds: counters non-negative,
// fractions inside [0,1], PE caps well-formed.
//
// Complexity: O(1).
func validateEarlyStop(es EarlyStop) error {
	if es.Iterations < 0 {
		return fmt.Errorf("flame: EarlyStop.Iterations %d must be >= 0: %w", es.Iterations, ErrBadConfig)
	}
	if es.PEEpsilon < 0 || math.IsNaN(es.PEEpsilon) {
		return fmt.Errorf("flame: EarlyStop.PEEpsilon %v must be >= 0: %w", es.PEEpsilon, ErrBadConfig)
	}
	// PEAbsolute may be +Inf (disabled) but never NaN or -Inf.
	if math.IsNaN(es.PEAbsolute) || math.IsInf(es.PEAbsolute, -1) {
		return fmt.Errorf("flame: EarlyStop.PEAbsolute %v must be a number or +Inf: %w", es.PEAbsolute, ErrBadConfig)
	}
	if es.BFFloor < 0 || es.BFFloor > 1 || math.IsNaN(es.BFFloor) {
		return fmt.Errorf("flame: EarlyStop.BFFloor %v must be in [0,1]: %w", es.BFFloor, ErrBadConfig)
	}
	if es.UnmatchedControlFloor < 0 || es.UnmatchedControlFloor > 1 || math.IsNaN(es.UnmatchedControlFloor) {
		return fmt.Errorf("flame: EarlyStop.UnmatchedControlFloor %v must be in [0,1]: %w", es.UnmatchedControlFloor, ErrBadConfig)
	}
	if es.UnmatchedTreatedFloor < 0 || es.UnmatchedTreatedFloor > 1 || math.IsNaN(es.UnmatchedTreatedFloor) {
		return fmt.Errorf("flame: EarlyStop.UnmatchedTreatedFloor %v must be in [0,1]: %w", es.UnmatchedTreatedFloor, ErrBadConfig)
	}

	return nil
}

// validateStores checks the data/holdout pairing handed to Run: non-nil
// stores throughout and at least one holdout imputation. Schema agreement
// between data and holdouts is enforced by the estimator constructor.
//
// Complexity: O(M) over the holdout slice.
func validateStores(data *cohort.UnitStore, holdouts []*cohort.UnitStore) error {
	if data == nil {
		return ErrNilStore
	}
	if len(holdouts) == 0 {
		return fmt.Errorf("flame: no holdout imputations: %w", ErrBadConfig)
	}
	for m, h := range holdouts {
		if h == nil {
			return fmt.Errorf("flame: holdout %d: %w", m, ErrNilStore)
		}
	}

	return nil
}
