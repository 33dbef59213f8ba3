// SPDX-License-Identifier: MIT

package pefit

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Fitter trains a predictive model on a numeric design matrix. X rows are
// observations, columns indicator-expanded covariates; y is the numeric or
// integer-coded target, len(y) equal to X's row count.
//
// Implementations must be safe for concurrent Fit calls; any randomness
// must be confined to the call (see SeededFitter).
type Fitter interface {
	Fit(x *mat.Dense, y []float64) (Model, error)
}

// Model predicts targets for a design matrix with the same column layout
// the model was fitted on. Predict never fails; shape violations panic the
// way gonum matrix misuse panics.
type Model interface {
	Predict(x *mat.Dense) []float64
}

// SeededFitter is an optional Fitter refinement for stochastic fitters.
// The estimator derives one seed per (covariate set, imputation, arm) and
// calls FitSeeded instead of Fit, so concurrent candidate scoring stays
// bit-reproducible regardless of scheduling order.
type SeededFitter interface {
	Fitter

	FitSeeded(x *mat.Dense, y []float64, seed int64) (Model, error)
}

var (
	// ErrNilStore is returned when an estimator is built without a
	// reference store or with a nil holdout entry.
	ErrNilStore = errors.New("pefit: nil unit store")

	// ErrNilFitter is returned when an estimator is built without a fitter.
	ErrNilFitter = errors.New("pefit: nil fitter")

	// ErrNoHoldout is returned when an estimator is built with no holdout
	// imputations.
	ErrNoHoldout = errors.New("pefit: no holdout imputations")

	// ErrFitFailed marks a candidate covariate set as unscorable: an arm
	// had no rows, or the fitter itself failed. The search controller maps
	// it to PE = +Inf.
	ErrFitFailed = errors.New("pefit: fit failed")

	// ErrLevelMismatch is returned when a holdout covariate code does not
	// exist in the reference level dictionary. It wraps ErrFitFailed
	// semantics: the specific candidate fails, the run continues.
	ErrLevelMismatch = errors.New("pefit: holdout level missing from reference dictionary")

	// ErrNoRows is returned by fitters and the encoder for an empty row set.
	ErrNoRows = errors.New("pefit: no rows")

	// ErrBadTarget is returned when the target length does not match the
	// design matrix row count.
	ErrBadTarget = errors.New("pefit: target length mismatch")

	// ErrBadAlpha is returned for a non-positive ridge penalty candidate.
	ErrBadAlpha = errors.New("pefit: ridge penalty must be positive")

	// ErrBadGrid is returned for a malformed boosting grid point.
	ErrBadGrid = errors.New("pefit: invalid boosting grid")
)
