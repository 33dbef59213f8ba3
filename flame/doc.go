// SPDX-License-Identifier: MIT

// Package flame runs the covariate-selection lattice search at the heart of
// almost-exact matching (FLAME and its generalization DAME).
//
// # What
//
// Units described by categorical covariates match exactly or not at all, so
// coverage grows only by dropping covariates. The search walks down the
// subset lattice from the full covariate set, scoring every candidate set s
// on the frontier by match quality
//
//	MQ(s) = C·BF(s) − PE(s)
//
// where BF (balancing factor) is the fraction of still-unmatched treated
// and control units the set would match, and PE (predictive error) is the
// held-out outcome error of the covariates that remain. The candidate with
// the best MQ is committed: its exact-match groups become permanent and its
// units are marked matched, while its one-covariate-smaller children join
// the frontier. Six stopping thresholds guard the walk; all are checked against
// the winner before it commits, so a stop never mutates unit state.
//
// # FLAME, DAME, and the hybrid
//
// FLAME keeps a frontier of exactly one path: after each commit the
// frontier is replaced by the winner's children, a pure greedy chain down
// the lattice. DAME accumulates children instead, a best-first search over
// the whole lattice. FLAMEIters starts a DAME run with a fixed number of
// greedy FLAME iterations before branching out.
//
// # Determinism
//
// Candidate scoring is read-only against the committed unit state and runs
// in parallel, but selection is a stable scan with a total tie-break
// (higher MQ, then larger set, then lexicographic key), fitter randomness
// derives from Options.Seed per candidate, and group emission follows unit
// order. Identical inputs give byte-identical groups, drops and reports;
// only the RunID differs between runs.
//
// # Entry points
//
// Run executes one search over one data store. RunBundle fans out
// independent searches across the imputations of a cohort.ImputationBundle
// and returns one Result per data imputation, in order, with no pooling.
package flame
