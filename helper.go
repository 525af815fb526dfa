package ctrvekf

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Identity returns an identity matrix of the provided size.
func Identity(n int) *mat.SymDense {
	return ScaledIdentity(n, 1)
}

// ScaledIdentity returns an identity matrix time the provided scale.
func ScaledIdentity(n int, s float64) *mat.SymDense {
	vals := make([]float64, n*n)
	for j := 0; j < n*n; j++ {
		if j%(n+1) == 0 {
			vals[j] = s
		}
	}
	return mat.NewSymDense(n, vals)
}

// Diagonal returns a symmetric matrix whose diagonal holds the provided values.
func Diagonal(diag ...float64) *mat.SymDense {
	n := len(diag)
	m := mat.NewSymDense(n, nil)
	for i, v := range diag {
		m.SetSym(i, i, v)
	}
	return m
}

// IsNil returns whether the provided matrix only has zero values
func IsNil(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// AsSymDense attempts return a SymDense from the provided Dense.
func AsSymDense(m *mat.Dense) (*mat.SymDense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.New("matrix must be square")
	}
	mT := m.T()
	vals := make([]float64, r*c)
	idx := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if mT.At(i, j) != m.At(i, j) {
				return nil, errors.New("matrix is not symmetric")
			}
			vals[idx] = m.At(i, j)
			idx++
		}
	}

	return mat.NewSymDense(r, vals), nil
}

// quadForm returns A*S*A'. Only the upper triangle is computed, so the
// result is symmetric whatever the rounding of the products.
func quadForm(a mat.Matrix, s mat.Symmetric) *mat.SymDense {
	var as mat.Dense
	as.Mul(a, s)
	n, _ := a.Dims()
	_, k := as.Dims()
	dst := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var v float64
			for l := 0; l < k; l++ {
				v += as.At(i, l) * a.At(j, l)
			}
			dst.SetSym(i, j, v)
		}
	}
	return dst
}

// isDiagonal returns whether all the off-diagonal terms of the provided matrix are nil.
func isDiagonal(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if i != j && m.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// isPositiveDefinite returns whether the Cholesky factorization of m succeeds.
func isPositiveDefinite(m mat.Symmetric) bool {
	var chol mat.Cholesky
	return chol.Factorize(m)
}

// isPositiveSemidefinite returns whether all the eigenvalues of m are above -tol.
func isPositiveSemidefinite(m mat.Symmetric, tol float64) bool {
	var eig mat.EigenSym
	if ok := eig.Factorize(m, false); !ok {
		return false
	}
	for _, λ := range eig.Values(nil) {
		if λ < -tol {
			return false
		}
	}
	return true
}

// isFiniteMatrix returns whether no element of m is NaN or Inf.
func isFiniteMatrix(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if !allFinite(m.At(i, j)) {
				return false
			}
		}
	}
	return true
}

// allFinite returns whether none of the provided values is NaN or Inf.
func allFinite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
