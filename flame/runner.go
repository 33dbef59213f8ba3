// SPDX-License-Identifier: MIT

// Package flame - public entry points.
//
// Run drives one search over one matching table. RunBundle fans out one
// independent search per data imputation of a bundle and collects the
// results in imputation order; combining them (pooling effects, averaging
// estimates) is deliberately left to the caller.
package flame

import (
	"context"
	"fmt"

	"github.com/katalvlaran/amatch/cohort"
	"golang.org/x/sync/errgroup"
)

// Run executes one search: the root exact-match pass on the full covariate
// set, then iterative covariate drops until a stop rule fires.
//
// The data store is mutated in place (match marks, weights, matched-on
// history); pass data.Clone() to keep the original pristine. Prediction
// error is averaged over the given holdout imputations. On context
// cancellation the store keeps whatever was committed before the abort and
// no result is produced.
//
// Contracts:
//   - opts must pass validation (wrapped ErrBadConfig otherwise);
//   - data non-nil, holdouts non-empty and non-nil throughout;
//   - data and holdouts must agree on schema (estimator sentinels).
//
// Complexity: O(iterations · |frontier| · (n·s + fit)) dominated by
// candidate scoring; memoized PE amortizes refits across iterations.
func Run(ctx context.Context, data *cohort.UnitStore, holdouts []*cohort.UnitStore, opts Options) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	if err := validateStores(data, holdouts); err != nil {
		return nil, err
	}

	eng, err := newSearchEngine(data, holdouts, opts)
	if err != nil {
		return nil, err
	}

	return eng.run(ctx)
}

// RunBundle executes one independent search per data imputation of the
// bundle, each against the bundle's full holdout slice. Data stores are
// cloned before running, so the bundle can be reused; results arrive in
// imputation order with Result.Imputation set.
//
// Each imputation derives its own fitter seed from Options.Seed, so bundle
// runs are reproducible end to end while imputations stay decorrelated.
// Options.Workers caps the number of concurrently running searches.
func RunBundle(ctx context.Context, b *cohort.ImputationBundle, opts Options) ([]*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b == nil {
		return nil, ErrNilBundle
	}
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	var (
		results = make([]*Result, b.Size())
		eg, ec  = errgroup.WithContext(ctx)
	)
	if opts.Workers > 0 {
		eg.SetLimit(opts.Workers)
	}
	for k := 0; k < b.Size(); k++ {
		k := k
		eg.Go(func() error {
			childOpts := opts
			childOpts.Seed = deriveSeed(opts.Seed, uint64(k))
			res, err := Run(ec, b.Data[k].Clone(), b.Holdout, childOpts)
			if err != nil {
				return fmt.Errorf("flame: imputation %d: %w", k, err)
			}
			res.Imputation = k
			results[k] = res

			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
