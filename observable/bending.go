package observable

import (
	"fmt"
	"math"
)

// BendingEnergy is the discrete p-bending energy
// Σ_k (φ_k/ℓ_k)^P · ℓ_k / P, where φ_k is the turning angle between
// edge directions k-1 and k (indices mod n) and ℓ_k = ½(ω_{k-1}+ω_k)
// is the arc-length weight straddling vertex k. See
// original_source/src/RandomVariables/BendingEnergy.hpp. Omega
// defaults to the sampler's own edge lengths when left nil, matching
// the original's Weights_T omega = C.Omega() default.
type BendingEnergy struct {
	P     float64
	Omega []float64
}

func (b BendingEnergy) omega(s SamplerView) []float64 {
	if b.Omega != nil {
		return b.Omega
	}
	return s.EdgeLengths()
}

func (b BendingEnergy) Evaluate(s SamplerView) float64 {
	n := s.EdgeCount()
	d := s.AmbientDimension()
	y := s.EdgeCoordinates()
	omega := b.omega(s)

	var sum float64
	prev := n - 1
	for k := 0; k < n; k++ {
		length := 0.5 * (omega[prev] + omega[k])
		phi := angleBetweenUnitVectors(y[prev*d:prev*d+d], y[k*d:k*d+d])
		sum += math.Pow(phi/length, b.P) * length
		prev = k
	}
	return sum / b.P
}

func (BendingEnergy) MinValue(SamplerView) float64 { return 0 }

func (b BendingEnergy) MaxValue(s SamplerView) float64 {
	n := s.EdgeCount()
	omega := b.omega(s)

	var sum float64
	prev := n - 1
	for k := 0; k < n; k++ {
		length := 0.5 * (omega[prev] + omega[k])
		sum += math.Pow(math.Pi/length, b.P) * length
		prev = k
	}
	return sum / b.P
}

func (b BendingEnergy) Tag() string {
	return fmt.Sprintf("BendingEnergy(%v)", b.P)
}

func (b BendingEnergy) Clone() Observable {
	return BendingEnergy{P: b.P, Omega: append([]float64(nil), b.Omega...)}
}

func (BendingEnergy) RequiresSpaceCoordinates() bool { return false }
