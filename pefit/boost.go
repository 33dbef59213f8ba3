// SPDX-License-Identifier: MIT

package pefit

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// BoostConfig is one grid point of the boosting hyperparameter search.
type BoostConfig struct {
	LearningRate float64 // shrinkage per round, > 0
	Depth        int     // tree depth limit, >= 1
	L1           float64 // leaf soft-threshold penalty, >= 0
	Rounds       int     // boosting rounds, >= 1
	Subsample    float64 // row fraction per round, in (0, 1]
}

// DefaultBoostGrid is a small lattice across the five knobs, ordered from
// the cheapest configuration; CV ties resolve to the earlier point.
var DefaultBoostGrid = []BoostConfig{
	{LearningRate: 0.1, Depth: 2, L1: 0, Rounds: 40, Subsample: 1.0},
	{LearningRate: 0.1, Depth: 3, L1: 0, Rounds: 40, Subsample: 0.8},
	{LearningRate: 0.3, Depth: 2, L1: 0.1, Rounds: 25, Subsample: 0.8},
	{LearningRate: 0.05, Depth: 3, L1: 0, Rounds: 80, Subsample: 1.0},
}

// Boost fits gradient-boosted regression trees with squared-error loss.
// The configuration is chosen from Grid by k-fold cross-validation (grid
// points scored in parallel), then refitted on all rows.
//
// Boost is stateless across fits; all randomness (fold shuffle, per-round
// row subsampling) derives from the call's seed, so FitSeeded is
// reproducible and safe for concurrent use.
type Boost struct {
	// Grid lists candidate configurations; DefaultBoostGrid when empty.
	Grid []BoostConfig

	// Folds is the CV fold count k, clamped to the row count; values
	// below 2 skip the search and use Grid[0]. Default 3.
	Folds int

	// Seed feeds plain Fit calls; FitSeeded overrides it per call.
	Seed int64
}

// NewBoost returns a Boost with the default grid and 3-fold CV.
func NewBoost() *Boost {
	return &Boost{
		Grid:  append([]BoostConfig(nil), DefaultBoostGrid...),
		Folds: 3,
	}
}

// boostModel is a fitted additive tree ensemble.
type boostModel struct {
	base  float64
	lr    float64
	trees []*treeNode
}

// Predict returns the ensemble output per row.
func (m *boostModel) Predict(x *mat.Dense) []float64 {
	n, _ := x.Dims()
	out := make([]float64, n)
	var i int
	for i = 0; i < n; i++ {
		out[i] = m.base
	}
	for _, t := range m.trees {
		for i = 0; i < n; i++ {
			out[i] += m.lr * t.eval(x, i)
		}
	}

	return out
}

// Fit trains with the struct's Seed.
func (b *Boost) Fit(x *mat.Dense, y []float64) (Model, error) {
	return b.FitSeeded(x, y, b.Seed)
}

// FitSeeded cross-validates the grid, refits the winner on all rows, and
// returns the ensemble. Same inputs and seed give bit-identical models.
//
// Complexity: O(|grid| · folds · rounds · depth · d · n log n) for the
// search plus one final training run.
func (b *Boost) FitSeeded(x *mat.Dense, y []float64, seed int64) (Model, error) {
	n, _ := x.Dims()
	if n == 0 {
		return nil, ErrNoRows
	}
	if len(y) != n {
		return nil, ErrBadTarget
	}
	grid := b.Grid
	if len(grid) == 0 {
		grid = DefaultBoostGrid
	}
	for gi, cfg := range grid {
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("pefit: grid point %d: %w", gi, err)
		}
	}

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	winner := grid[0]
	folds := b.Folds
	if folds == 0 {
		folds = 3
	}
	if folds > n {
		folds = n
	}
	if len(grid) > 1 && folds >= 2 {
		winner = grid[b.search(x, y, all, grid, folds, seed)]
	}

	rng := rngFromSeed(deriveSeed(seed, streamFinalFit))

	return trainBoost(x, y, all, winner, rng), nil
}

// Stream identifiers for seed derivation; arbitrary distinct constants.
const (
	streamFoldShuffle uint64 = 0x0f01d5
	streamFinalFit    uint64 = 0xf17a11
)

// search scores every grid point by k-fold CV and returns the index of the
// lowest mean validation MSE, earlier grid order breaking ties.
func (b *Boost) search(x *mat.Dense, y []float64, all []int, grid []BoostConfig, folds int, seed int64) int {
	// One shared shuffled order defines the folds for every grid point.
	perm := rngFromSeed(deriveSeed(seed, streamFoldShuffle)).Perm(len(all))

	score := make([]float64, len(grid))
	var eg errgroup.Group
	for gi := range grid {
		gi := gi
		eg.Go(func() error {
			var total float64
			for f := 0; f < folds; f++ {
				lo, hi := f*len(perm)/folds, (f+1)*len(perm)/folds
				var train, valid []int
				for k, p := range perm {
					if k >= lo && k < hi {
						valid = append(valid, all[p])
					} else {
						train = append(train, all[p])
					}
				}
				sort.Ints(train)
				rng := rngFromSeed(deriveSeed(seed, uint64(gi)<<20|uint64(f)+1))
				m := trainBoost(x, y, train, grid[gi], rng)
				total += validationMSE(m, x, y, valid)
			}
			score[gi] = total / float64(folds)

			return nil
		})
	}
	_ = eg.Wait() // goroutines only write their own score slot

	best := 0
	for gi := 1; gi < len(grid); gi++ {
		if score[gi] < score[best] {
			best = gi
		}
	}

	return best
}

// validationMSE scores a model on the validation rows.
func validationMSE(m Model, x *mat.Dense, y []float64, valid []int) float64 {
	if len(valid) == 0 {
		return 0
	}
	pred := m.Predict(x)
	var sse float64
	for _, i := range valid {
		sse += (y[i] - pred[i]) * (y[i] - pred[i])
	}

	return sse / float64(len(valid))
}

// trainBoost runs the boosting loop over the training rows.
func trainBoost(x *mat.Dense, y []float64, rows []int, cfg BoostConfig, rng *rand.Rand) *boostModel {
	n, _ := x.Dims()
	var base float64
	for _, i := range rows {
		base += y[i]
	}
	base /= float64(len(rows))

	var (
		pred  = make([]float64, n)
		resid = make([]float64, n)
		trees = make([]*treeNode, 0, cfg.Rounds)
		i     int
	)
	for _, i = range rows {
		pred[i] = base
	}
	for round := 0; round < cfg.Rounds; round++ {
		for _, i = range rows {
			resid[i] = y[i] - pred[i]
		}
		sample := subsampleRows(rows, cfg.Subsample, rng)
		t := buildTree(x, resid, sample, cfg.Depth, cfg.L1)
		trees = append(trees, t)
		for _, i = range rows {
			pred[i] += cfg.LearningRate * t.eval(x, i)
		}
	}

	return &boostModel{base: base, lr: cfg.LearningRate, trees: trees}
}

// subsampleRows draws ceil(frac·len) distinct rows, returned sorted so the
// tree builder sees a deterministic order.
func subsampleRows(rows []int, frac float64, rng *rand.Rand) []int {
	if frac >= 1 {
		return rows
	}
	m := int(math.Ceil(frac * float64(len(rows))))
	if m >= len(rows) {
		return rows
	}
	perm := rng.Perm(len(rows))
	sample := make([]int, m)
	for k := 0; k < m; k++ {
		sample[k] = rows[perm[k]]
	}
	sort.Ints(sample)

	return sample
}

// validate checks one grid point's ranges.
func (c BoostConfig) validate() error {
	switch {
	case !(c.LearningRate > 0) || math.IsInf(c.LearningRate, 1):
		return fmt.Errorf("learning rate %v: %w", c.LearningRate, ErrBadGrid)
	case c.Depth < 1:
		return fmt.Errorf("depth %d: %w", c.Depth, ErrBadGrid)
	case c.L1 < 0 || math.IsNaN(c.L1):
		return fmt.Errorf("l1 penalty %v: %w", c.L1, ErrBadGrid)
	case c.Rounds < 1:
		return fmt.Errorf("rounds %d: %w", c.Rounds, ErrBadGrid)
	case !(c.Subsample > 0) || c.Subsample > 1:
		return fmt.Errorf("subsample %v: %w", c.Subsample, ErrBadGrid)
	default:
		return nil
	}
}
