package vector

import "math"

// A SymMatrix is a d x d symmetric matrix stored flat, row-major, with
// only the upper triangle (i<=j) ever written or read by the routines
// in this file — mirroring the storage convention of
// original_source/src/Sampler.hpp's DF/A buffers, where every
// accumulation loop only ever touches entries with j>=i and the
// diagonal is added in last for numerical precision.
type SymMatrix struct {
	D    int
	Data []float64
}

// NewSymMatrix allocates a zeroed d x d symmetric matrix.
func NewSymMatrix(d int) SymMatrix {
	return SymMatrix{D: d, Data: make([]float64, d*d)}
}

func (m SymMatrix) at(i, j int) float64 {
	if i > j {
		i, j = j, i
	}
	return m.Data[i*m.D+j]
}

func (m SymMatrix) set(i, j int, v float64) {
	if i > j {
		i, j = j, i
	}
	m.Data[i*m.D+j] = v
}

// Zero clears every entry.
func (m SymMatrix) Zero() {
	for i := range m.Data {
		m.Data[i] = 0
	}
}

// RankOneUpdate accumulates dst += alpha * v v^T into the upper
// triangle only, in place, without allocating.
func (m SymMatrix) RankOneUpdate(v []float64, alpha float64) {
	d := m.D
	for i := 0; i < d; i++ {
		vi := alpha * v[i]
		row := m.Data[i*d : i*d+d]
		for j := i; j < d; j++ {
			row[j] += vi * v[j]
		}
	}
}

// AddIdentity adds c to every diagonal entry.
func (m SymMatrix) AddIdentity(c float64) {
	d := m.D
	for i := 0; i < d; i++ {
		m.Data[i*d+i] += c
	}
}

// Scale multiplies every entry by s.
func (m SymMatrix) Scale(s float64) {
	for i := range m.Data {
		m.Data[i] *= s
	}
}

// CopyUpperFrom copies src's upper triangle into m; both must share D.
func (m SymMatrix) CopyUpperFrom(src SymMatrix) {
	d := m.D
	for i := 0; i < d; i++ {
		copy(m.Data[i*d+i:i*d+d], src.Data[i*d+i:i*d+d])
	}
}

// MatVec computes dst = M v for the full (implicitly symmetrized)
// matrix. dst must not alias v.
func (m SymMatrix) MatVec(dst, v []float64) {
	d := m.D
	for i := 0; i < d; i++ {
		var sum float64
		for j := 0; j < d; j++ {
			sum += m.at(i, j) * v[j]
		}
		dst[i] = sum
	}
}

// Cholesky factorizes m in place, overwriting its upper triangle with
// the upper-triangular factor U such that m = U^T U. It assumes m is
// symmetric positive definite (guaranteed by the caller's
// regularization schedule); if it is not, the factor fills with NaNs
// and neither a panic nor a recoverable error is raised — per spec.md
// §4.1 this is an internal invariant violation, not a runtime error
// condition.
func (m SymMatrix) Cholesky() {
	d := m.D
	a := m.Data
	for k := 0; k < d; k++ {
		akk := math.Sqrt(a[k*d+k])
		a[k*d+k] = akk
		ainv := 1 / akk

		for j := k + 1; j < d; j++ {
			a[k*d+j] *= ainv
		}

		for i := k + 1; i < d; i++ {
			aki := a[k*d+i]
			row := a[i*d : i*d+d]
			krow := a[k*d : k*d+d]
			for j := i; j < d; j++ {
				row[j] -= aki * krow[j]
			}
		}
	}
}

// CholeskySolve solves m u = b in place using the upper-triangular
// factor produced by Cholesky: u holds the right-hand side b on entry
// and the solution on return (the reference algorithm solves in place
// on the same buffer that holds the right-hand side).
func (m SymMatrix) CholeskySolve(u []float64) {
	d := m.D
	a := m.Data

	// Forward substitution: treat a[j*d+i] (j<i, upper storage) as the
	// (i,j) entry of the lower-triangular factor L = U^T.
	for i := 0; i < d; i++ {
		for j := 0; j < i; j++ {
			u[i] -= a[j*d+i] * u[j]
		}
		u[i] /= a[i*d+i]
	}

	// Backward substitution against U itself.
	for i := d - 1; i >= 0; i-- {
		for j := i + 1; j < d; j++ {
			u[i] -= a[i*d+j] * u[j]
		}
		u[i] /= a[i*d+i]
	}
}
