package vector

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// eps is the smallest representable positive float64, matching
// original_source/src/Sampler.hpp's eps = numeric_limits<Real>::min().
const eps = 2.2250738585072014e-308

// SmallestEigenvalue returns the smallest eigenvalue of the symmetric
// matrix m. For d=2 and d=3 it uses the closed forms from
// Sampler.hpp::SmallestEigenvalue; for larger d it falls back to
// gonum's self-adjoint eigensolver, the same facility
// init/spectral.go uses for the Laplacian eigendecomposition.
func (m SymMatrix) SmallestEigenvalue() float64 {
	switch m.D {
	case 2:
		return smallestEigen2(m.Data)
	case 3:
		return smallestEigen3(m.Data)
	default:
		return smallestEigenGeneric(m)
	}
}

func smallestEigen2(a []float64) float64 {
	d00, d01, d11 := a[0], a[1], a[3]
	disc := (d00-d11)*(d00-d11) + 4*d01*d01
	if disc < 0 {
		disc = -disc
	}
	return 0.5 * (d00 + d11 - math.Sqrt(disc))
}

func smallestEigen3(a []float64) float64 {
	d00, d01, d02 := a[0], a[1], a[2]
	d11, d12 := a[4], a[5]
	d22 := a[8]

	p1 := d01*d01 + d02*d02 + d12*d12

	diagNorm := math.Sqrt(d00*d00 + d11*d11 + d22*d22)
	if math.Sqrt(p1) < eps*diagNorm {
		return math.Min(d00, math.Min(d11, d22))
	}

	q := (d00 + d11 + d22) / 3
	delta0, delta1, delta2 := d00-q, d11-q, d22-q
	p2 := delta0*delta0 + delta1*delta1 + delta2*delta2 + 2*p1
	p := math.Sqrt(p2 / 6)
	pinv := 1 / p

	b11 := delta0 * pinv
	b22 := delta1 * pinv
	b33 := delta2 * pinv
	b12 := d01 * pinv
	b13 := d02 * pinv
	b23 := d12 * pinv

	r := 0.5 * (2*b12*b23*b13 - b11*b23*b23 - b12*b12*b33 + b11*b22*b33 - b13*b13*b22)

	var phi float64
	switch {
	case r <= -1:
		phi = math.Pi / 3
	case r >= 1:
		phi = 0
	default:
		phi = math.Acos(r) / 3
	}

	// Eigenvalues are ordered eig2 <= eig1 <= eig0; the smallest is
	// the one shifted by phi + 2*pi/3.
	return q + 2*p*math.Cos(phi+2*math.Pi/3)
}

func smallestEigenGeneric(m SymMatrix) float64 {
	sym := mat.NewSymDense(m.D, append([]float64(nil), symmetrizedDense(m)...))

	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		return eps
	}
	values := eig.Values(nil)

	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// symmetrizedDense expands the upper-triangle storage of m into a full
// dense row-major matrix for consumption by gonum.
func symmetrizedDense(m SymMatrix) []float64 {
	d := m.D
	out := make([]float64, d*d)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			out[i*d+j] = m.at(i, j)
		}
	}
	return out
}

// Eigenvalues returns all eigenvalues of m via gonum's self-adjoint
// eigensolver, in ascending order. Used by the sampling-weight
// evaluator's quotient-space correction for d>=4, where the closed
// forms for d in {2,3} do not apply.
func (m SymMatrix) Eigenvalues() []float64 {
	sym := mat.NewSymDense(m.D, append([]float64(nil), symmetrizedDense(m)...))

	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		values := make([]float64, m.D)
		for i := range values {
			values[i] = eps
		}
		return values
	}
	return eig.Values(nil)
}

// Det returns the determinant of the symmetric matrix m via gonum's
// dense LU-based determinant, used by the sampling-weight evaluator's
// Γ and C̄ matrices for arbitrary d (spec.md §4.4). Small, closed-form
// determinants are not specified per-dimension the way the smallest
// eigenvalue is, so this stays generic across all d.
func (m SymMatrix) Det() float64 {
	dense := mat.NewDense(m.D, m.D, symmetrizedDense(m))
	return mat.Det(dense)
}
