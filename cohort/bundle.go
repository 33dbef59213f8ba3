// SPDX-License-Identifier: MIT

package cohort

// ImputationBundle groups K completed data variants with M completed
// holdout variants sharing one covariate schema. K and M are independent
// counts: the search is re-run once per data variant, and prediction error
// inside every one of those searches is averaged across all M holdout
// variants. Unimputed inputs are bundles with K = M = 1.
//
// Bundles are assembled once and read many times; search runs clone the
// data stores they consume, so one bundle can feed concurrent runs.
type ImputationBundle struct {
	// Data holds the matching tables, one per data imputation (K >= 1).
	Data []*UnitStore

	// Holdout holds the predictive-error tables (M >= 1), shared by
	// every search.
	Holdout []*UnitStore
}

// NewImputationBundle validates the grouping and returns the bundle.
//
// Rules:
//   - both slices non-empty (ErrEmptyBundle);
//   - every store has the same covariate count (ErrSchemaMismatch);
//   - every holdout store carries outcomes of one shared kind, never
//     Absent (ErrHoldoutOutcome, ErrSchemaMismatch);
//   - matching stores either carry the holdout's outcome kind or none
//     at all (ErrSchemaMismatch).
func NewImputationBundle(data, holdout []*UnitStore) (*ImputationBundle, error) {
	if len(data) == 0 || len(holdout) == 0 {
		return nil, ErrEmptyBundle
	}

	var (
		p    = data[0].Covariates()
		kind = holdout[0].Kind()
		k    int
	)
	if kind == Absent {
		return nil, ErrHoldoutOutcome
	}
	for k = range holdout {
		if holdout[k].Covariates() != p {
			return nil, ErrSchemaMismatch
		}
		if holdout[k].Kind() == Absent {
			return nil, ErrHoldoutOutcome
		}
		if holdout[k].Kind() != kind {
			return nil, ErrSchemaMismatch
		}
	}
	for k = range data {
		if data[k].Covariates() != p {
			return nil, ErrSchemaMismatch
		}
		if dk := data[k].Kind(); dk != kind && dk != Absent {
			return nil, ErrSchemaMismatch
		}
	}

	return &ImputationBundle{Data: data, Holdout: holdout}, nil
}

// Size reports the number of data imputations K (the number of independent
// searches a bundle run fans out).
func (b *ImputationBundle) Size() int { return len(b.Data) }

// Covariates reports the shared covariate count p.
func (b *ImputationBundle) Covariates() int { return b.Data[0].Covariates() }

// Kind reports the shared holdout outcome kind.
func (b *ImputationBundle) Kind() OutcomeKind { return b.Holdout[0].Kind() }
