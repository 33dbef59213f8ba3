// SPDX-License-Identifier: MIT

package pefit

import (
	"fmt"

	"github.com/katalvlaran/amatch/cohort"
	"gonum.org/v1/gonum/mat"
)

// Encoder expands categorical covariates into an indicator design matrix.
//
// Column layout, fixed at construction from a reference store's level
// dictionaries: one leading intercept column, then one 0/1 column per
// non-missing level of each active covariate, covariates in set order,
// levels in dictionary (rank) order. The layout depends only on the
// reference dictionaries, so every table encoded through one Encoder lands
// in the same feature space.
//
// Missing codes produce an all-zero indicator block for their covariate.
// Codes absent from the reference dictionary fail with ErrLevelMismatch.
type Encoder struct {
	set   cohort.CovariateSet
	idx   []int
	col   []map[int]int // per active covariate: code -> column
	width int
}

// NewEncoder builds the column layout for set against ref's dictionaries.
func NewEncoder(ref *cohort.UnitStore, set cohort.CovariateSet) (*Encoder, error) {
	if ref == nil {
		return nil, ErrNilStore
	}
	idx := set.Indices()
	if len(idx) == 0 {
		return nil, fmt.Errorf("pefit: empty covariate set: %w", ErrFitFailed)
	}
	if idx[len(idx)-1] >= ref.Covariates() {
		return nil, fmt.Errorf("pefit: covariate %d out of range: %w", idx[len(idx)-1], ErrFitFailed)
	}

	e := &Encoder{
		set:   set,
		idx:   idx,
		col:   make([]map[int]int, len(idx)),
		width: 1, // intercept
	}
	var (
		k, j int
		code int
	)
	for k, j = range idx {
		lv := ref.Levels(j)
		cols := make(map[int]int, len(lv))
		for _, code = range lv {
			if code == cohort.MissingCode {
				continue
			}
			cols[code] = e.width
			e.width++
		}
		e.col[k] = cols
	}

	return e, nil
}

// Width reports the design-matrix column count (intercept included).
func (e *Encoder) Width() int { return e.width }

// Set returns the covariate set the encoder was built for.
func (e *Encoder) Set() cohort.CovariateSet { return e.set }

// Encode builds the design matrix for the given positional rows of st.
// Every code must either be the missing sentinel (zero block) or exist in
// the reference dictionary (ErrLevelMismatch otherwise).
//
// Complexity: O(len(rows)·s) with s active covariates.
func (e *Encoder) Encode(st *cohort.UnitStore, rows []int) (*mat.Dense, error) {
	if st == nil {
		return nil, ErrNilStore
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	x := mat.NewDense(len(rows), e.width, nil)
	var (
		r, i, k, j int
		code, c    int
		ok         bool
	)
	for r, i = range rows {
		x.Set(r, 0, 1)
		for k, j = range e.idx {
			code = st.Code(i, j)
			if code == cohort.MissingCode {
				continue
			}
			if c, ok = e.col[k][code]; !ok {
				return nil, fmt.Errorf(
					"pefit: covariate %d code %d: %w: %w",
					j, code, ErrLevelMismatch, ErrFitFailed,
				)
			}
			x.Set(r, c, 1)
		}
	}

	return x, nil
}
