// SPDX-License-Identifier: MIT

package pefit

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// treeNode is one node of a depth-limited regression tree. Internal nodes
// route rows by a single feature threshold; leaves carry a value.
type treeNode struct {
	feat  int
	thr   float64
	left  *treeNode
	right *treeNode
	value float64
	leaf  bool
}

// eval routes one design-matrix row to its leaf value.
func (t *treeNode) eval(x *mat.Dense, row int) float64 {
	n := t
	for !n.leaf {
		if x.At(row, n.feat) < n.thr {
			n = n.left
		} else {
			n = n.right
		}
	}

	return n.value
}

// buildTree grows a regression tree on target (indexed by row) over the
// given rows. Splits greedily minimize the summed squared error of the two
// sides; leaves carry the soft-thresholded row mean (L1 shrinkage).
//
// Determinism: features are scanned in ascending index order, thresholds in
// ascending value order, and strict improvement is required, so equal-gain
// splits always resolve the same way.
//
// Complexity: O(depth · d · n log n) for d features over n rows.
func buildTree(x *mat.Dense, target []float64, rows []int, depth int, l1 float64) *treeNode {
	if depth == 0 || len(rows) < 2 {
		return leafOf(target, rows, l1)
	}
	feat, thr, ok := bestSplit(x, target, rows)
	if !ok {
		return leafOf(target, rows, l1)
	}

	var lo, hi []int
	for _, i := range rows {
		if x.At(i, feat) < thr {
			lo = append(lo, i)
		} else {
			hi = append(hi, i)
		}
	}

	return &treeNode{
		feat:  feat,
		thr:   thr,
		left:  buildTree(x, target, lo, depth-1, l1),
		right: buildTree(x, target, hi, depth-1, l1),
	}
}

// leafOf builds a leaf with the soft-thresholded mean of the rows.
func leafOf(target []float64, rows []int, l1 float64) *treeNode {
	var sum float64
	for _, i := range rows {
		sum += target[i]
	}
	v := 0.0
	if len(rows) > 0 {
		v = softThreshold(sum/float64(len(rows)), l1)
	}

	return &treeNode{leaf: true, value: v}
}

// softThreshold shrinks v towards zero by l1, clamping at zero.
func softThreshold(v, l1 float64) float64 {
	switch {
	case v > l1:
		return v - l1
	case v < -l1:
		return v + l1
	default:
		return 0
	}
}

// bestSplit finds the (feature, threshold) pair with the lowest summed
// squared error over rows. ok is false when no feature separates the rows.
func bestSplit(x *mat.Dense, target []float64, rows []int) (feat int, thr float64, ok bool) {
	_, d := x.Dims()
	var (
		n        = len(rows)
		order    = make([]int, n)
		prefSum  = make([]float64, n+1)
		prefSumQ = make([]float64, n+1)
		best     = math.Inf(1)
		f, k     int
		v, t     float64
	)
	for f = 0; f < d; f++ {
		copy(order, rows)
		sort.Slice(order, func(a, b int) bool {
			va, vb := x.At(order[a], f), x.At(order[b], f)
			if va != vb {
				return va < vb
			}

			return order[a] < order[b]
		})

		for k = 0; k < n; k++ {
			t = target[order[k]]
			prefSum[k+1] = prefSum[k] + t
			prefSumQ[k+1] = prefSumQ[k] + t*t
		}

		// Candidate boundaries sit between adjacent distinct values.
		for k = 1; k < n; k++ {
			v = x.At(order[k], f)
			if v == x.At(order[k-1], f) {
				continue
			}
			sse := sseOf(prefSum[k], prefSumQ[k], k) +
				sseOf(prefSum[n]-prefSum[k], prefSumQ[n]-prefSumQ[k], n-k)
			if sse < best {
				best = sse
				feat = f
				thr = (x.At(order[k-1], f) + v) / 2
				ok = true
			}
		}
	}

	return feat, thr, ok
}

// sseOf computes Σ(t−mean)² from a sum, a sum of squares and a count.
func sseOf(sum, sumSq float64, n int) float64 {
	return sumSq - sum*sum/float64(n)
}
