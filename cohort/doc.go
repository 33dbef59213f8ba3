// SPDX-License-Identifier: MIT

// Package cohort defines the data model shared by all amatch packages:
// units under study, covariate subsets, matched groups, and the bundles
// of multiply-imputed tables a matching run consumes.
//
// The central type is UnitStore, an owned, in-memory table of Units:
//
//   - Each Unit carries a stable ID (its original row index), a binary
//     treatment indicator, an outcome value, and a vector of categorical
//     covariate codes (MissingCode marks an unobserved cell).
//   - The store derives an immutable schema at construction: per-covariate
//     level dictionaries mapping observed codes to dense ranks. Ranks, not
//     raw codes, feed matching signatures and design matrices, so every
//     downstream result is invariant under order-preserving recodings of
//     the input levels (0-indexed vs 1-indexed factors give byte-identical
//     matched groups).
//   - Match state (Matched, Weight, MatchedOn) is the only mutable part of
//     a store and is reset by the constructor. Once Matched flips to true
//     it never reverts; Weight counts the distinct covariate sets a unit
//     was matched on (>1 only when matching with replacement).
//
// A UnitStore is owned by exactly one search run. It is deliberately free
// of locks: runs over different imputations clone their stores and never
// share mutable state (Clone is a deep copy). Deterministic iteration is
// positional, i.e. unit-slice order, everywhere.
//
// CovariateSet is an immutable, ascending collection of covariate indices
// with a canonical string Key; dropping an index derives a child set lower
// in the subset-inclusion lattice. MatchedGroup records the units that
// matched exactly on some CovariateSet together with the shared codes and,
// once assembled, a CATE estimate.
//
// ImputationBundle pairs K completed data tables with M completed holdout
// tables produced by an external imputation step; NewImputationBundle
// verifies that all members agree on schema before a run starts.
//
// Errors are strict sentinels (ErrNoUnits, ErrBadCode, ...) raised at
// construction time; see types.go. Nothing in this package panics on user
// input.
package cohort
