// Package weights computes the two importance-sampling corrections a
// converged conformal-barycenter sample carries: the edge-space
// sampling weight and the edge-quotient-space sampling correction
// (spec.md §4.4).
package weights

import (
	"math"

	"github.com/cobars/cobars/vector"
)

// EdgeSpace computes the edge-space sampling weight for one converged
// sample: the change-of-variables factor between the "easy" product
// measure on the original edge directions and the measure actually
// induced on the closed-polygon directions y by solving for the
// conformal barycenter w.
//
//	Γ = Σ_k (r_k/ρ_k)² (I - y_k y_k^T)
//	C̄ = Σ_k r_k (I - y_k y_k^T)
//	prod = Π_k (1 + ‖w‖² + 2 w·y_k)
//	K_edge = prod^(d-1) · sqrt(det Γ) / det C̄
//
// Both Γ and C̄ use the shifted directions y. Ported directly from
// spec.md §4.4's edge-space weight formula.
func EdgeSpace(w, y, r, rho []float64, d, n int) float64 {
	gamma := vector.NewSymMatrix(d)
	cbar := vector.NewSymMatrix(d)

	ww := vector.Dot(w, w)
	prod := 1.0

	for k := 0; k < n; k++ {
		yk := y[k*d : k*d+d]

		gammaWeight := (r[k] / rho[k]) * (r[k] / rho[k])
		gamma.AddIdentity(gammaWeight)
		gamma.RankOneUpdate(yk, -gammaWeight)

		cbarWeight := r[k]
		cbar.AddIdentity(cbarWeight)
		cbar.RankOneUpdate(yk, -cbarWeight)

		prod *= 1 + ww + 2*vector.Dot(w, yk)
	}

	detGamma := math.Abs(gamma.Det())
	detCbar := cbar.Det()

	if detCbar == 0 {
		return 0
	}
	return ipow(prod, d-1) * math.Sqrt(detGamma) / detCbar
}

// ipow raises base to the non-negative integer power exp by
// exponentiation by squaring, avoiding math.Pow's floating-point
// exponent path for the small integer exponent spec.md §4.4 requires.
func ipow(base float64, exp int) float64 {
	result := 1.0
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

// EdgeQuotientCorrection computes the additional correction that turns
// an edge-space sampling weight into an edge-quotient-space one,
// dividing out the O(d) symmetry that acts on closed polygons up to
// rotation. Ported from
// original_source/src/Sampler.hpp::ComputeEdgeQuotientSpaceSamplingCorrection.
func EdgeQuotientCorrection(y, rho []float64, d, n int) float64 {
	if d == 2 {
		return 1
	}

	sigma := vector.NewSymMatrix(d)
	for k := 0; k < n; k++ {
		yk := y[k*d : k*d+d]
		sigma.RankOneUpdate(yk, rho[k]*rho[k])
	}

	if d == 3 {
		return edgeQuotientCorrection3(sigma)
	}
	return edgeQuotientCorrectionGeneric(sigma, d)
}

func edgeQuotientCorrection3(sigma vector.SymMatrix) float64 {
	a := sigma.Data
	a00, a01, a02 := a[0], a[1], a[2]
	a11, a12 := a[4], a[5]
	a22 := a[8]

	a00_2, a11_2, a22_2 := a00*a00, a11*a11, a22*a22
	a01_2, a02_2, a12_2 := a01*a01, a02*a02, a12*a12

	det := math.Abs(
		a00*(a11_2+a22_2-a01_2-a02_2) +
			a11*(a00_2+a22_2-a01_2-a12_2) +
			a22*(a00_2+a11_2-a02_2-a12_2) +
			2*(a00*a11*a22-a01*a02*a12),
	)
	return 1 / math.Sqrt(det)
}

// edgeQuotientCorrectionGeneric handles d>=4 via a full eigenvalue
// decomposition: the correction is 1/sqrt(prod_{i<j}(lambda_i+lambda_j)),
// exactly as the original's generic (non-2D/3D) branch computes it from
// Eigen's self-adjoint solver.
func edgeQuotientCorrectionGeneric(sigma vector.SymMatrix, d int) float64 {
	lambda := sigma.Eigenvalues()

	det := 1.0
	for i := 0; i < d; i++ {
		for j := i + 1; j < d; j++ {
			det *= lambda[i] + lambda[j]
		}
	}
	return 1 / math.Sqrt(det)
}
