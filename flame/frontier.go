// SPDX-License-Identifier: MIT

// Package flame - the candidate frontier of the lattice search.
//
// The frontier holds the covariate sets competing for the next drop. A
// visited map keyed by the canonical set Key guarantees every set is scored
// under at most one frontier lifetime even when several parents share a
// child (diamond paths in the subset lattice).
package flame

import (
	"github.com/katalvlaran/amatch/bitmatch"
	"github.com/katalvlaran/amatch/cohort"
)

// candidate is one frontier entry: the set, its provenance, and the scoring
// state of the current iteration. Scoring fields are refreshed every pass
// because group formation depends on the evolving match state.
type candidate struct {
	set     cohort.CovariateSet
	dropped int // covariate removed vs the parent set; RootCovariate at the root

	outcome  *bitmatch.Outcome
	bf       float64
	pe       float64
	mq       float64
	scorable bool // finite PE this pass
}

// frontier is an ordered candidate list plus the global visited set.
// Entry order is insertion order; selection scans it stably, so equal-score
// runs resolve identically across executions.
type frontier struct {
	entries []*candidate
	visited map[string]struct{}
}

func newFrontier() *frontier {
	return &frontier{visited: make(map[string]struct{})}
}

// push appends a candidate for set unless an equal set was pushed before.
// Reports whether the candidate entered the frontier.
func (f *frontier) push(set cohort.CovariateSet, dropped int) bool {
	key := set.Key()
	if _, seen := f.visited[key]; seen {
		return false
	}
	f.visited[key] = struct{}{}
	f.entries = append(f.entries, &candidate{set: set, dropped: dropped})

	return true
}

// mark records set as visited without enqueueing it (the root set is
// matched unconditionally and must never re-enter the frontier).
func (f *frontier) mark(set cohort.CovariateSet) {
	f.visited[set.Key()] = struct{}{}
}

// expand pushes every unseen child of parent obtained by dropping one
// active covariate, in ascending covariate order. Children of size zero are
// not generated; matching on the empty set is meaningless.
func (f *frontier) expand(parent cohort.CovariateSet) {
	if parent.Len() <= 1 {
		return
	}
	var k int
	for k = 0; k < parent.Len(); k++ {
		j := parent.At(k)
		f.push(parent.Drop(j), j)
	}
}

// clear drops all entries but keeps the visited set, so a replaced frontier
// (greedy mode) never resurrects an abandoned branch.
func (f *frontier) clear() {
	f.entries = f.entries[:0]
}

// len reports the number of live candidates.
func (f *frontier) len() int { return len(f.entries) }

// selectBest returns the index of the winning scorable candidate: highest
// MQ, ties broken toward the larger set, then the lexicographically smaller
// key. Returns -1 when no candidate is scorable.
//
// Complexity: O(|frontier|).
func (f *frontier) selectBest() int {
	best := -1
	for i, c := range f.entries {
		if !c.scorable {
			continue
		}
		if best == -1 || betterThan(c, f.entries[best]) {
			best = i
		}
	}

	return best
}

// betterThan orders two scorable candidates for selection.
func betterThan(a, b *candidate) bool {
	if a.mq != b.mq {
		return a.mq > b.mq
	}
	if a.set.Len() != b.set.Len() {
		return a.set.Len() > b.set.Len()
	}

	return a.set.Key() < b.set.Key()
}

// remove deletes the entry at index i preserving the order of the rest.
func (f *frontier) remove(i int) {
	f.entries = append(f.entries[:i], f.entries[i+1:]...)
}
