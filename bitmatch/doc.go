// SPDX-License-Identifier: MIT

// Package bitmatch forms exact-match groups over an active covariate set
// using bit-vector signatures.
//
// # What
//
// Each candidate unit is folded into a single integer signature: the
// mixed-radix number of its level ranks on the active covariates. A second
// signature appends the treatment bit as the lowest digit. Counting
// occurrences of both tells, per unit, whether its exact-match cell holds
// units from the opposite arm: a cell qualifies as a matched group exactly
// when it contains at least one treated and one control unit, and that is
// equivalent to the two occurrence counts differing.
//
// # How
//
//	sig(u)    = Σ rank(u, jk) · Π radix(j>k)   over active covariates jk
//	armSig(u) = sig(u)·2 + treated(u)
//	matchable(u) ⇔ count(sig(u)) ≠ count(armSig(u))
//
// Signatures ride in a uint64 while 2·Π radix fits; wider schemas fall back
// to math/big with identical semantics.
//
// # Contract
//
// Form is read-only: it scores a candidate set against the current unit
// state without touching it. Commit applies a previously formed outcome,
// marking every group member matched on the set. The split lets a search
// controller score many candidates against one committed state and commit
// only the winner.
//
// Determinism: groups are emitted in the order their cells first appear in
// unit-slice order, so identical inputs give byte-identical outputs.
//
// Complexity: O(n·s) time for n units and s active covariates, O(n) space,
// plus big-integer overhead on the wide path.
package bitmatch
