// SPDX-License-Identifier: MIT

package pefit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultAlphas is the canonical ridge penalty grid.
var DefaultAlphas = []float64{0.1, 1, 10}

// Ridge solves L2-regularized least squares in closed form and selects its
// penalty per fit by generalized cross-validation:
//
//	β(α)   = (XᵀX + αI)⁻¹ Xᵀy
//	GCV(α) = (RSS(α)/n) / (1 − tr(H(α))/n)²,  H(α) = X(XᵀX+αI)⁻¹Xᵀ
//
// One symmetric eigendecomposition of the Gram matrix prices the whole
// sweep, so adding penalty candidates costs O(d² + n·d) each, not a refit.
// The winning α is refitted through a Cholesky solve of the penalized
// normal equations.
//
// Ridge is stateless across fits and safe for concurrent use.
type Ridge struct {
	// Alphas are the candidate penalties, all positive. Empty means
	// DefaultAlphas. Ties in GCV resolve to the earlier candidate.
	Alphas []float64
}

// NewRidge returns a Ridge over the given penalties, or DefaultAlphas when
// none are given.
func NewRidge(alphas ...float64) *Ridge {
	if len(alphas) == 0 {
		alphas = append([]float64(nil), DefaultAlphas...)
	}

	return &Ridge{Alphas: alphas}
}

// ridgeModel is a fitted coefficient vector.
type ridgeModel struct {
	beta *mat.VecDense
}

// Predict returns Xβ for a matrix with the fitted column layout.
func (m *ridgeModel) Predict(x *mat.Dense) []float64 {
	n, _ := x.Dims()
	var f mat.VecDense
	f.MulVec(x, m.beta)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = f.AtVec(i)
	}

	return out
}

// Fit trains the model, selecting the penalty by GCV.
//
// Complexity: O(n·d² + d³) for the Gram matrix and its eigendecomposition,
// plus O(d² + n·d) per penalty candidate.
func (r *Ridge) Fit(x *mat.Dense, y []float64) (Model, error) {
	n, d := x.Dims()
	if n == 0 {
		return nil, ErrNoRows
	}
	if len(y) != n {
		return nil, ErrBadTarget
	}
	alphas := r.Alphas
	if len(alphas) == 0 {
		alphas = DefaultAlphas
	}
	for _, a := range alphas {
		if !(a > 0) || math.IsInf(a, 1) {
			return nil, fmt.Errorf("pefit: alpha %v: %w", a, ErrBadAlpha)
		}
	}

	// Gram matrix and its spectrum: XᵀX = V Λ Vᵀ.
	var gram mat.SymDense
	gram.SymOuterK(1, x.T())

	var eig mat.EigenSym
	if !eig.Factorize(&gram, true) {
		return nil, fmt.Errorf("pefit: gram eigendecomposition failed: %w", ErrFitFailed)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Projections shared by every penalty: Xᵀy and c = Vᵀ Xᵀ y.
	var (
		xty  mat.VecDense
		cvec mat.VecDense
	)
	xty.MulVec(x.T(), mat.NewVecDense(n, y))
	cvec.MulVec(vecs.T(), &xty)

	best := math.Inf(1)
	bestAlpha := maxOf(alphas) // most regularized fallback when no GCV is finite
	var (
		w      = mat.NewVecDense(d, nil)
		beta   mat.VecDense
		fitted mat.VecDense
		lam    float64
		trH    float64
		rss    float64
		gcv    float64
		i      int
	)
	for _, alpha := range alphas {
		trH = 0
		for i = 0; i < d; i++ {
			lam = math.Max(vals[i], 0) // clamp numeric noise below zero
			w.SetVec(i, cvec.AtVec(i)/(lam+alpha))
			trH += lam / (lam + alpha)
		}
		beta.MulVec(&vecs, w)
		fitted.MulVec(x, &beta)
		rss = 0
		for i = 0; i < n; i++ {
			rss += (y[i] - fitted.AtVec(i)) * (y[i] - fitted.AtVec(i))
		}
		denom := 1 - trH/float64(n)
		if denom <= 0 {
			continue
		}
		gcv = (rss / float64(n)) / (denom * denom)
		if gcv < best {
			best = gcv
			bestAlpha = alpha
		}
	}

	return r.solve(&gram, &xty, &vecs, vals, &cvec, d, bestAlpha)
}

// solve refits at the chosen penalty: Cholesky on the penalized normal
// equations, with the eigendecomposition route as a numeric fallback.
func (r *Ridge) solve(
	gram *mat.SymDense,
	xty *mat.VecDense,
	vecs *mat.Dense,
	vals []float64,
	cvec *mat.VecDense,
	d int,
	alpha float64,
) (Model, error) {
	pen := mat.NewSymDense(d, nil)
	pen.CopySym(gram)
	for i := 0; i < d; i++ {
		pen.SetSym(i, i, pen.At(i, i)+alpha)
	}

	beta := mat.NewVecDense(d, nil)
	var chol mat.Cholesky
	if chol.Factorize(pen) {
		if err := chol.SolveVecTo(beta, xty); err == nil {
			return &ridgeModel{beta: beta}, nil
		}
	}

	// Penalized Gram should be positive definite; if finite-precision says
	// otherwise, the spectral form gives the same β.
	w := mat.NewVecDense(d, nil)
	for i := 0; i < d; i++ {
		w.SetVec(i, cvec.AtVec(i)/(math.Max(vals[i], 0)+alpha))
	}
	beta.MulVec(vecs, w)

	return &ridgeModel{beta: beta}, nil
}

// maxOf returns the largest value of a non-empty slice.
func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, v := range xs[1:] {
		if v > m {
			m = v
		}
	}

	return m
}
