// Folio - Hybrid Catalog Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/folio

package embedding

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var errFactorize = errors.New("svd factorization did not converge")

// mulSparse returns X·B for the n×d sparse matrix X and a d×l dense B.
func mulSparse(rows []sparseRow, b *mat.Dense) *mat.Dense {
	_, l := b.Dims()
	out := mat.NewDense(len(rows), l, nil)
	for i, row := range rows {
		dst := out.RawRowView(i)
		for k, j := range row.idx {
			w := row.val[k]
			src := b.RawRowView(j)
			for c := range dst {
				dst[c] += w * src[c]
			}
		}
	}
	return out
}

// mulSparseT returns Xᵀ·Q for the n×d sparse matrix X and an n×l dense Q.
func mulSparseT(rows []sparseRow, d int, q *mat.Dense) *mat.Dense {
	_, l := q.Dims()
	out := mat.NewDense(d, l, nil)
	for i, row := range rows {
		src := q.RawRowView(i)
		for k, j := range row.idx {
			w := row.val[k]
			dst := out.RawRowView(j)
			for c := range dst {
				dst[c] += w * src[c]
			}
		}
	}
	return out
}

// orthonormalize returns an orthonormal basis for the columns of a, which
// must have at least as many rows as columns.
func orthonormalize(a *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThinU) {
		return nil, errFactorize
	}
	var u mat.Dense
	svd.UTo(&u)
	return &u, nil
}

// truncatedSVD returns the top-rank right singular vectors of X as a d×rank
// matrix, using a randomized range finder with a Gaussian test matrix drawn
// from rng. Each component is sign-normalized so that its largest-magnitude
// coefficient is positive.
func truncatedSVD(ctx context.Context, rows []sparseRow, d, dim, oversample, iterations int, rng *rand.Rand) (*mat.Dense, error) {
	n := len(rows)
	limit := min(n, d)
	rank := min(dim, limit)
	if rank == 0 {
		return nil, nil
	}
	l := min(rank+oversample, limit)

	omega := mat.NewDense(d, l, nil)
	raw := omega.RawMatrix().Data
	for i := range raw {
		raw[i] = rng.NormFloat64()
	}

	y := mulSparse(rows, omega)
	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q, err := orthonormalize(y)
		if err != nil {
			return nil, err
		}
		z, err := orthonormalize(mulSparseT(rows, d, q))
		if err != nil {
			return nil, err
		}
		y = mulSparse(rows, z)
	}

	q, err := orthonormalize(y)
	if err != nil {
		return nil, err
	}

	// Bᵀ = Xᵀ·Q is d×l; its left singular vectors are the right singular vectors of X.
	bt := mulSparseT(rows, d, q)
	var svd mat.SVD
	if !svd.Factorize(bt, mat.SVDThinU) {
		return nil, errFactorize
	}
	var u mat.Dense
	svd.UTo(&u)

	components := mat.NewDense(d, rank, nil)
	components.Copy(u.Slice(0, d, 0, rank))
	flipSigns(components)
	return components, nil
}

// flipSigns makes the largest-magnitude entry of every column positive.
func flipSigns(m *mat.Dense) {
	r, c := m.Dims()
	for j := 0; j < c; j++ {
		best, bestAbs := 0.0, -1.0
		for i := 0; i < r; i++ {
			v := m.At(i, j)
			if a := math.Abs(v); a > bestAbs {
				best, bestAbs = v, a
			}
		}
		if best < 0 {
			for i := 0; i < r; i++ {
				m.Set(i, j, -m.At(i, j))
			}
		}
	}
}
