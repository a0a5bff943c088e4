package observable

// SquaredGyrationRadius returns the squared radius of gyration
// R_g^2 = (1/n) Σ_k ‖p_k - p̄‖^2 about the vertex centroid p̄. Named in
// spec.md §1 but not present verbatim in original_source/; grounded on
// the same RequiresSpaceCoordinates contract as HydrodynamicRadius.
type SquaredGyrationRadius struct{}

func (SquaredGyrationRadius) Evaluate(s SamplerView) float64 {
	n := s.EdgeCount()
	d := s.AmbientDimension()
	p := s.SpaceCoordinates()

	centroid := make([]float64, d)
	for k := 0; k < n; k++ {
		for i := 0; i < d; i++ {
			centroid[i] += p[k*d+i]
		}
	}
	for i := range centroid {
		centroid[i] /= float64(n)
	}

	var sum float64
	for k := 0; k < n; k++ {
		for i := 0; i < d; i++ {
			diff := p[k*d+i] - centroid[i]
			sum += diff * diff
		}
	}
	return sum / float64(n)
}

func (SquaredGyrationRadius) MinValue(SamplerView) float64 { return 0 }

// MaxValue uses the loose bound R_g <= perimeter/2, since no vertex can
// be farther than half the total edge length from the centroid of a
// closed polygon.
func (SquaredGyrationRadius) MaxValue(s SamplerView) float64 {
	half := totalEdgeLength(s) / 2
	return half * half
}

func (SquaredGyrationRadius) Tag() string { return "SquaredGyrationRadius" }

func (SquaredGyrationRadius) Clone() Observable { return SquaredGyrationRadius{} }

func (SquaredGyrationRadius) RequiresSpaceCoordinates() bool { return true }
