// SPDX-License-Identifier: MIT

// Package flame - the search engine.
//
// searchEngine drives one full search over one data imputation: the
// unconditional root pass on the full covariate set, then the drop loop of
// score → select → stop-check → commit → expand. All unit-state mutation
// happens through bitmatch.Commit on the winning candidate; a triggered stop
// rule ends the run before the winner touches anything.
package flame

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/amatch/bitmatch"
	"github.com/katalvlaran/amatch/cohort"
	"github.com/katalvlaran/amatch/pefit"
	"golang.org/x/sync/errgroup"
)

// searchEngine holds the run state of one search. It is single-owner like
// the store it mutates; only candidate scoring fans out to goroutines, and
// those write disjoint candidate slots.
type searchEngine struct {
	st        *cohort.UnitStore
	est       *pefit.Estimator
	opts      Options
	matchOpts bitmatch.Options

	front    *frontier
	baseline float64

	groups []cohort.MatchedGroup
	drops  []DropRecord
	trace  []ScoreRecord
	iter   int // committed drops so far (root pass excluded)
}

// newSearchEngine wires the estimator and matching options for one run.
// Inputs are pre-validated by Run.
func newSearchEngine(data *cohort.UnitStore, holdouts []*cohort.UnitStore, opts Options) (*searchEngine, error) {
	fitter := opts.Fitter
	if fitter == nil {
		fitter = pefit.NewRidge()
	}
	est, err := pefit.NewEstimator(data, holdouts, fitter, opts.Seed)
	if err != nil {
		return nil, err
	}

	return &searchEngine{
		st:   data,
		est:  est,
		opts: opts,
		matchOpts: bitmatch.Options{
			Replace: opts.Replace,
			Missing: opts.Missing,
		},
		front: newFrontier(),
	}, nil
}

// run executes the search to completion and assembles the result. The data
// store is mutated in place; on context cancellation the store keeps the
// match state committed so far and an error is returned instead of a result.
func (e *searchEngine) run(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("flame: run aborted: %w", err)
	}
	full := cohort.FullSet(e.st.Covariates())

	// Baseline PE prices the full covariate set once; every relative stop
	// decision is made against it. A failed baseline fit degrades to +Inf,
	// which disables the relative rule but never blocks matching itself.
	e.baseline, _ = e.est.Baseline()

	if err := e.rootPass(full); err != nil {
		return nil, err
	}
	e.front.mark(full)
	e.front.expand(full)

	if reason, done := e.postCommitStop(); done {
		return e.finish(reason), nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("flame: run aborted: %w", err)
		}
		if e.opts.EarlyStop.Iterations > 0 && e.iter >= e.opts.EarlyStop.Iterations {
			return e.finish(StopIterations), nil
		}
		if e.front.len() == 0 {
			return e.finish(StopFrontierExhausted), nil
		}

		if err := e.scoreFrontier(); err != nil {
			return nil, err
		}
		best := e.front.selectBest()
		if best == -1 {
			return e.finish(StopNoScorableCandidate), nil
		}
		winner := e.front.entries[best]

		if reason, stop := e.preCommitStop(winner); stop {
			e.logStop(reason, winner)

			return e.finish(reason), nil
		}

		if err := e.commit(winner); err != nil {
			return nil, err
		}

		e.updateFrontier(best, winner)

		if reason, done := e.postCommitStop(); done {
			return e.finish(reason), nil
		}
	}
}

// rootPass matches on the full covariate set unconditionally: exact matches
// on everything are always taken, whatever the thresholds say.
func (e *searchEngine) rootPass(full cohort.CovariateSet) error {
	out, err := bitmatch.Form(e.st, full, e.matchOpts)
	if err != nil {
		return err
	}
	bf := e.balancingFactor(out)
	c := &candidate{
		set:     full,
		dropped: RootCovariate,
		outcome: out,
		bf:      bf,
		pe:      e.baseline,
		mq:      e.opts.C*bf - e.baseline,
	}

	return e.commit(c)
}

// scoreFrontier refreshes every candidate's outcome, BF, PE and MQ against
// the current match state. Scoring is read-only on the store; candidates
// are scored in parallel, each goroutine owning exactly one entry.
func (e *searchEngine) scoreFrontier() error {
	var eg errgroup.Group
	if e.opts.Workers > 0 {
		eg.SetLimit(e.opts.Workers)
	}
	for _, c := range e.front.entries {
		c := c
		eg.Go(func() error {
			e.scoreCandidate(c)

			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if e.opts.Trace {
		for _, c := range e.front.entries {
			e.trace = append(e.trace, ScoreRecord{
				Iteration: e.iter + 1,
				Set:       c.set,
				BF:        c.bf,
				PE:        c.pe,
				MQ:        c.mq,
				Scorable:  c.scorable,
			})
		}
	}

	return nil
}

// scoreCandidate fills one candidate's per-iteration scoring state. A PE
// failure leaves the candidate unscorable for this pass without failing
// the run; other candidates stay in competition.
func (e *searchEngine) scoreCandidate(c *candidate) {
	out, err := bitmatch.Form(e.st, c.set, e.matchOpts)
	if err != nil {
		c.outcome, c.scorable = nil, false
		c.bf, c.pe, c.mq = 0, math.Inf(1), math.Inf(-1)

		return
	}
	pe, peErr := e.est.PE(c.set)

	c.outcome = out
	c.bf = e.balancingFactor(out)
	c.pe = pe
	c.mq = e.opts.C*c.bf - pe
	c.scorable = peErr == nil && !math.IsInf(pe, 0)
}

// balancingFactor computes BF for a formed outcome against the current
// match state: newly matched units per arm over the arm denominator. The
// denominator is the arm's unmatched count, or its total under replacement;
// an empty denominator contributes zero.
func (e *searchEngine) balancingFactor(out *bitmatch.Outcome) float64 {
	denomT, denomC := e.st.UnmatchedCounts()
	if e.opts.Replace {
		denomT, denomC = e.st.Totals()
	}

	var bf float64
	if denomC > 0 {
		bf += float64(out.NewControl) / float64(denomC)
	}
	if denomT > 0 {
		bf += float64(out.NewTreated) / float64(denomT)
	}

	return bf
}

// preCommitStop evaluates the threshold rules against the selected winner.
// Rules are checked in a fixed order so a run that trips several reports
// the same reason on every execution.
func (e *searchEngine) preCommitStop(w *candidate) (StopReason, bool) {
	es := e.opts.EarlyStop

	if w.pe > (1+es.PEEpsilon)*e.baseline {
		return StopPEDegraded, true
	}
	if w.pe > es.PEAbsolute {
		return StopPEAbsolute, true
	}
	if w.bf < es.BFFloor {
		return StopLowBF, true
	}

	totalT, totalC := e.st.Totals()
	unmatchedT, unmatchedC := e.st.UnmatchedCounts()
	if float64(unmatchedC-w.outcome.NewControl)/float64(totalC) < es.UnmatchedControlFloor {
		return StopControlExhausted, true
	}
	if float64(unmatchedT-w.outcome.NewTreated)/float64(totalT) < es.UnmatchedTreatedFloor {
		return StopTreatedExhausted, true
	}

	return 0, false
}

// commit applies the winner's formed outcome to the store, stamps and
// collects its groups, and records the drop.
func (e *searchEngine) commit(w *candidate) error {
	if err := bitmatch.Commit(e.st, w.set, w.outcome); err != nil {
		return err
	}

	iteration := e.iter
	if w.dropped != RootCovariate {
		iteration = e.iter + 1
	}
	for g := range w.outcome.Groups {
		grp := w.outcome.Groups[g]
		grp.ID = len(e.groups)
		grp.Iteration = iteration
		e.groups = append(e.groups, grp)
	}

	e.drops = append(e.drops, DropRecord{
		Iteration:  iteration,
		Covariate:  w.dropped,
		Set:        w.set,
		BF:         w.bf,
		PE:         w.pe,
		MQ:         w.mq,
		NewTreated: w.outcome.NewTreated,
		NewControl: w.outcome.NewControl,
		Groups:     len(w.outcome.Groups),
	})
	if w.dropped != RootCovariate {
		e.iter++
	}

	e.opts.Logger.Debug().
		Int("iteration", iteration).
		Int("dropped", w.dropped).
		Str("set", w.set.Key()).
		Float64("bf", w.bf).
		Float64("pe", w.pe).
		Float64("mq", w.mq).
		Int("new_treated", w.outcome.NewTreated).
		Int("new_control", w.outcome.NewControl).
		Int("groups", len(w.outcome.Groups)).
		Msg("matching pass committed")

	return nil
}

// updateFrontier applies the frontier policy after a commit. Greedy mode
// (FLAME, or the leading FLAMEIters drops of DAME) replaces the frontier
// with the winner's children; accumulating mode removes the winner and adds
// its children to whatever else is waiting.
func (e *searchEngine) updateFrontier(best int, w *candidate) {
	greedy := e.opts.Algo == FLAME ||
		(e.opts.Algo == DAME && e.iter <= e.opts.FLAMEIters)
	if greedy {
		e.front.clear()
	} else {
		e.front.remove(best)
	}
	e.front.expand(w.set)
}

// postCommitStop reports whether the pool is exhausted. Without replacement
// an empty arm ends the run (no group can qualify); with replacement units
// stay eligible, so the run ends only once both arms are fully matched.
func (e *searchEngine) postCommitStop() (StopReason, bool) {
	unmatchedT, unmatchedC := e.st.UnmatchedCounts()
	if e.opts.Replace {
		if unmatchedT == 0 && unmatchedC == 0 {
			return StopAllMatched, true
		}

		return 0, false
	}
	if unmatchedT == 0 || unmatchedC == 0 {
		return StopAllMatched, true
	}

	return 0, false
}

// logStop emits the candidate that tripped a threshold rule.
func (e *searchEngine) logStop(reason StopReason, w *candidate) {
	e.opts.Logger.Debug().
		Stringer("reason", reason).
		Str("set", w.set.Key()).
		Float64("bf", w.bf).
		Float64("pe", w.pe).
		Float64("baseline_pe", e.baseline).
		Msg("early stop before commit")
}
