// SPDX-License-Identifier: MIT

// Package flame - result assembly.
//
// finish freezes the engine state into a Result: per-unit reports with
// masked covariate codes, the accumulated groups with conditional effects
// attached, the drop history and the optional trace.
package flame

import (
	"github.com/google/uuid"
	"github.com/katalvlaran/amatch/cohort"
	"gonum.org/v1/gonum/stat"
)

// finish assembles the Result for a completed search and emits the
// terminal log event.
func (e *searchEngine) finish(reason StopReason) *Result {
	totalT, totalC := e.st.Totals()
	unmatchedT, unmatchedC := e.st.UnmatchedCounts()

	res := &Result{
		RunID:          uuid.New(),
		BaselinePE:     e.baseline,
		Units:          e.unitReports(),
		Groups:         e.groupsWithEffects(),
		Drops:          e.drops,
		Trace:          e.trace,
		Stop:           reason,
		Iterations:     e.iter,
		MatchedTreated: totalT - unmatchedT,
		MatchedControl: totalC - unmatchedC,
	}

	e.opts.Logger.Info().
		Stringer("stop", reason).
		Str("run_id", res.RunID.String()).
		Int("iterations", res.Iterations).
		Int("groups", len(res.Groups)).
		Int("matched_treated", res.MatchedTreated).
		Int("matched_control", res.MatchedControl).
		Msg("search finished")

	return res
}

// unitReports builds one masked report row per unit. A matched unit keeps
// its original codes on the union of its matched-on sets and MaskedCode
// everywhere else; an unmatched unit is fully masked.
func (e *searchEngine) unitReports() []UnitReport {
	var (
		n   = e.st.Len()
		p   = e.st.Covariates()
		out = make([]UnitReport, n)
		i   int
	)
	for i = 0; i < n; i++ {
		u := e.st.At(i)
		maskCodes(u.Codes, u.MatchedOn, p)
		out[i] = UnitReport{
			ID:        u.ID,
			Treated:   u.Treated,
			Outcome:   u.Outcome,
			Matched:   u.Matched,
			Weight:    u.Weight,
			MatchedOn: u.MatchedOn,
			Codes:     u.Codes,
		}
	}

	return out
}

// maskCodes overwrites, in place, every code outside the union of the
// matched-on sets with MaskedCode. codes must be an owned copy.
func maskCodes(codes []int, matchedOn []cohort.CovariateSet, p int) {
	active := make([]bool, p)
	var k int
	for _, set := range matchedOn {
		for k = 0; k < set.Len(); k++ {
			active[set.At(k)] = true
		}
	}
	for j := 0; j < p; j++ {
		if !active[j] {
			codes[j] = cohort.MaskedCode
		}
	}
}

// groupsWithEffects attaches the conditional average treatment effect to
// every accumulated group: the treated minus control outcome mean among
// members. Absent and Multiclass outcomes admit no mean gap, so their
// groups carry CATEValid == false.
func (e *searchEngine) groupsWithEffects() []cohort.MatchedGroup {
	kind := e.st.Kind()
	estimable := kind == cohort.Continuous || kind == cohort.Binary
	if !estimable {
		return e.groups
	}

	rowOf := make(map[int]int, e.st.Len())
	for i := 0; i < e.st.Len(); i++ {
		rowOf[e.st.ID(i)] = i
	}

	var (
		g       int
		treated []float64
		control []float64
	)
	for g = range e.groups {
		grp := &e.groups[g]
		treated = treated[:0]
		control = control[:0]
		for _, id := range grp.UnitIDs {
			row := rowOf[id]
			if e.st.IsTreated(row) {
				treated = append(treated, e.st.Outcome(row))
			} else {
				control = append(control, e.st.Outcome(row))
			}
		}
		grp.CATE = stat.Mean(treated, nil) - stat.Mean(control, nil)
		grp.CATEValid = true
	}

	return e.groups
}

// ATE returns the average treatment effect over all groups with a valid
// conditional effect, weighted by group size. ErrNoEffect when no group
// qualifies.
func (r *Result) ATE() (float64, error) {
	return weightedEffect(r.Groups, func(g *cohort.MatchedGroup) float64 {
		return float64(g.Treated + g.Control)
	})
}

// ATT returns the average treatment effect on the treated: group effects
// weighted by treated member count. ErrNoEffect when no group qualifies.
func (r *Result) ATT() (float64, error) {
	return weightedEffect(r.Groups, func(g *cohort.MatchedGroup) float64 {
		return float64(g.Treated)
	})
}

// weightedEffect folds valid group CATEs with the given weight function.
func weightedEffect(groups []cohort.MatchedGroup, weight func(*cohort.MatchedGroup) float64) (float64, error) {
	var sum, wsum float64
	for g := range groups {
		if !groups[g].CATEValid {
			continue
		}
		w := weight(&groups[g])
		sum += w * groups[g].CATE
		wsum += w
	}
	if wsum == 0 {
		return 0, ErrNoEffect
	}

	return sum / wsum, nil
}

// GroupsOf returns copies of every group the given unit belongs to, in
// emission order.
func (r *Result) GroupsOf(unitID int) []cohort.MatchedGroup {
	var out []cohort.MatchedGroup
	for g := range r.Groups {
		for _, id := range r.Groups[g].UnitIDs {
			if id == unitID {
				out = append(out, r.Groups[g])

				break
			}
		}
	}

	return out
}
