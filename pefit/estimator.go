// SPDX-License-Identifier: MIT

package pefit

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/katalvlaran/amatch/cohort"
	"gonum.org/v1/gonum/mat"
)

// Estimator computes the predictive error of covariate sets against a fixed
// collection of holdout imputations, using the matching table's level
// dictionaries as the design-space reference.
//
// Estimates are memoized per covariate-set key and the estimator is safe
// for concurrent PE calls; two goroutines racing on the same unseen key
// compute the same value twice, which is harmless.
type Estimator struct {
	ref      *cohort.UnitStore
	holdouts []*cohort.UnitStore
	fitter   Fitter
	kind     cohort.OutcomeKind
	seed     int64

	// mismatch flags covariates with a holdout level the reference never
	// observed; any set containing one is unscorable.
	mismatch []bool

	// classes lists, per holdout, the sorted distinct outcome values
	// (Multiclass one-vs-rest targets; nil for other kinds).
	classes [][]float64

	mu   sync.Mutex
	memo map[string]peMemo
}

// peMemo caches one estimate, failures included (they are deterministic).
type peMemo struct {
	pe  float64
	err error
}

// NewEstimator wires a reference store, holdout imputations, a fitter and
// a base seed into an estimator.
//
// Validation: non-nil stores (ErrNilStore), at least one holdout
// (ErrNoHoldout), a fitter (ErrNilFitter), holdouts carrying one shared
// outcome kind (cohort.ErrHoldoutOutcome, cohort.ErrSchemaMismatch) and the
// reference's covariate count.
func NewEstimator(ref *cohort.UnitStore, holdouts []*cohort.UnitStore, fitter Fitter, seed int64) (*Estimator, error) {
	if ref == nil {
		return nil, ErrNilStore
	}
	if len(holdouts) == 0 {
		return nil, ErrNoHoldout
	}
	if fitter == nil {
		return nil, ErrNilFitter
	}
	kind := holdouts[0].Kind()
	if kind == cohort.Absent {
		return nil, cohort.ErrHoldoutOutcome
	}
	for _, h := range holdouts {
		if h == nil {
			return nil, ErrNilStore
		}
		if h.Kind() != kind || h.Covariates() != ref.Covariates() {
			return nil, cohort.ErrSchemaMismatch
		}
	}

	e := &Estimator{
		ref:      ref,
		holdouts: holdouts,
		fitter:   fitter,
		kind:     kind,
		seed:     seed,
		mismatch: make([]bool, ref.Covariates()),
		classes:  make([][]float64, len(holdouts)),
		memo:     make(map[string]peMemo),
	}
	e.indexLevels()
	if kind == cohort.Multiclass {
		for m, h := range holdouts {
			e.classes[m] = distinctOutcomes(h)
		}
	}

	return e, nil
}

// indexLevels marks covariates whose holdout dictionaries contain a
// non-missing level the reference never observed.
func (e *Estimator) indexLevels() {
	var (
		j    int
		code int
		ok   bool
	)
	for _, h := range e.holdouts {
		for j = 0; j < e.ref.Covariates(); j++ {
			if e.mismatch[j] {
				continue
			}
			for _, code = range h.Levels(j) {
				if code == cohort.MissingCode {
					continue
				}
				if _, ok = e.ref.LevelRank(j, code); !ok {
					e.mismatch[j] = true

					break
				}
			}
		}
	}
}

// Kind reports the shared holdout outcome kind.
func (e *Estimator) Kind() cohort.OutcomeKind { return e.kind }

// PE estimates the predictive error of the covariate set: the mean over
// holdout imputations of error(treated fit) + error(control fit), fitted
// and scored in-sample per arm. On failure it returns +Inf alongside the
// error, so the value alone never wins a quality comparison.
func (e *Estimator) PE(set cohort.CovariateSet) (float64, error) {
	key := set.Key()
	e.mu.Lock()
	if m, ok := e.memo[key]; ok {
		e.mu.Unlock()

		return m.pe, m.err
	}
	e.mu.Unlock()

	pe, err := e.compute(set)
	if err != nil {
		pe = math.Inf(1)
	}
	e.mu.Lock()
	e.memo[key] = peMemo{pe: pe, err: err}
	e.mu.Unlock()

	return pe, err
}

// Baseline estimates PE on the full covariate set (the search's reference
// point for the PE-ratio stopping rule).
func (e *Estimator) Baseline() (float64, error) {
	return e.PE(cohort.FullSet(e.ref.Covariates()))
}

// compute runs the unmemoized estimate.
func (e *Estimator) compute(set cohort.CovariateSet) (float64, error) {
	for _, j := range set.Indices() {
		if e.mismatch[j] {
			return 0, fmt.Errorf("pefit: covariate %d: %w: %w", j, ErrLevelMismatch, ErrFitFailed)
		}
	}
	enc, err := NewEncoder(e.ref, set)
	if err != nil {
		return 0, err
	}

	// Candidate-level seed, then one stream per (imputation, arm).
	cand := deriveSeed(e.seed, keyStream(set.Key()))

	var (
		total  float64
		errArm float64
	)
	for m, hold := range e.holdouts {
		treated, control := armRows(hold)
		if errArm, err = e.armError(enc, hold, treated, e.classes[m], deriveSeed(cand, uint64(m)*2)); err != nil {
			return 0, err
		}
		total += errArm
		if errArm, err = e.armError(enc, hold, control, e.classes[m], deriveSeed(cand, uint64(m)*2+1)); err != nil {
			return 0, err
		}
		total += errArm
	}

	return total / float64(len(e.holdouts)), nil
}

// armError fits one arm in-sample and scores it by the outcome kind.
func (e *Estimator) armError(enc *Encoder, hold *cohort.UnitStore, rows []int, classes []float64, seed int64) (float64, error) {
	if len(rows) == 0 {
		return 0, fmt.Errorf("pefit: arm has no rows: %w", ErrFitFailed)
	}
	x, err := enc.Encode(hold, rows)
	if err != nil {
		return 0, err
	}
	y := make([]float64, len(rows))
	for k, i := range rows {
		y[k] = hold.Outcome(i)
	}

	switch e.kind {
	case cohort.Continuous:
		pred, err := e.fitPredict(x, y, seed)
		if err != nil {
			return 0, err
		}

		return meanSquaredError(y, pred), nil

	case cohort.Binary:
		pred, err := e.fitPredict(x, y, seed)
		if err != nil {
			return 0, err
		}
		var wrong int
		for k := range y {
			if classifyBinary(pred[k]) != y[k] {
				wrong++
			}
		}

		return float64(wrong) / float64(len(y)), nil

	default: // cohort.Multiclass
		return e.multiclassError(x, y, classes, seed)
	}
}

// multiclassError runs one-vs-rest fits over the class dictionary and
// scores the argmax against the true classes.
func (e *Estimator) multiclassError(x *mat.Dense, y []float64, classes []float64, seed int64) (float64, error) {
	var (
		n      = len(y)
		scores = make([]float64, n)
		argmax = make([]float64, n)
		target = make([]float64, n)
		k      int
	)
	for k = 0; k < n; k++ {
		scores[k] = math.Inf(-1)
	}
	for ci, class := range classes {
		for k = 0; k < n; k++ {
			if y[k] == class {
				target[k] = 1
			} else {
				target[k] = 0
			}
		}
		pred, err := e.fitPredict(x, target, deriveSeed(seed, uint64(ci)+1))
		if err != nil {
			return 0, err
		}
		for k = 0; k < n; k++ {
			if pred[k] > scores[k] {
				scores[k] = pred[k]
				argmax[k] = class
			}
		}
	}

	var wrong int
	for k = 0; k < n; k++ {
		if argmax[k] != y[k] {
			wrong++
		}
	}

	return float64(wrong) / float64(n), nil
}

// fitPredict trains through the plugin contract and predicts in-sample,
// routing the derived seed to stochastic fitters.
func (e *Estimator) fitPredict(x *mat.Dense, y []float64, seed int64) ([]float64, error) {
	var (
		m   Model
		err error
	)
	if sf, ok := e.fitter.(SeededFitter); ok {
		m, err = sf.FitSeeded(x, y, seed)
	} else {
		m, err = e.fitter.Fit(x, y)
	}
	if err != nil {
		return nil, fmt.Errorf("pefit: fitter: %w: %w", ErrFitFailed, err)
	}

	return m.Predict(x), nil
}

// armRows splits a store's positional indices by treatment arm.
func armRows(st *cohort.UnitStore) (treated, control []int) {
	for i := 0; i < st.Len(); i++ {
		if st.IsTreated(i) {
			treated = append(treated, i)
		} else {
			control = append(control, i)
		}
	}

	return treated, control
}

// distinctOutcomes returns the sorted distinct outcome values of a store.
func distinctOutcomes(st *cohort.UnitStore) []float64 {
	seen := make(map[float64]struct{}, 8)
	var out []float64
	for i := 0; i < st.Len(); i++ {
		y := st.Outcome(i)
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		out = append(out, y)
	}
	sort.Float64s(out)

	return out
}

// classifyBinary thresholds a raw score at 0.5.
func classifyBinary(score float64) float64 {
	if score >= 0.5 {
		return 1
	}

	return 0
}

// meanSquaredError scores a regression fit.
func meanSquaredError(y, pred []float64) float64 {
	var sse float64
	for k := range y {
		sse += (y[k] - pred[k]) * (y[k] - pred[k])
	}

	return sse / float64(len(y))
}
