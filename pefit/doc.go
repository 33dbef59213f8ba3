// SPDX-License-Identifier: MIT

// Package pefit estimates the predictive error (PE) of a covariate set:
// how well the covariates still predict the outcome on held-out data once
// the rest have been dropped.
//
// # What
//
// The estimator restricts each holdout table to the candidate covariates,
// expands them into an indicator design matrix, fits one model per
// treatment arm in-sample, and scores the fit:
//
//	PE(set) = mean over holdout imputations of (error_treated + error_control)
//
// Error is mean squared error for continuous outcomes and the
// misclassification rate for binary and multiclass outcomes (binary scores
// threshold at 0.5; multiclass runs one-vs-rest fits and takes the argmax).
//
// # Fitters
//
// Models plug in through the Fitter/Model pair:
//
//	Fitter: Fit(X, y) (Model, error)
//	Model:  Predict(X) []float64
//
// Two fitters ship with the package. Ridge solves regularized least squares
// in closed form and picks its penalty per fit by generalized
// cross-validation. Boost grows gradient-boosted regression trees and picks
// its configuration by k-fold cross-validated grid search. Any user type
// satisfying the same contract drops in unchanged; fitters that consume
// randomness implement SeededFitter to stay reproducible under parallel
// scoring.
//
// # Failure semantics
//
// An arm with zero rows, a fitter error, or a holdout code absent from the
// matching table's level dictionary all fail the candidate, not the run:
// the estimator reports ErrFitFailed (ErrLevelMismatch wraps it for the
// dictionary case) and the search controller scores the candidate at +Inf.
//
// Estimates are memoized per covariate-set key and safe for concurrent use.
package pefit
