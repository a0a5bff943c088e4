package sampler_test

import (
	"math"
	"testing"

	"github.com/cobars/cobars/internal/rand"
	"github.com/cobars/cobars/sampler"
)

func TestNewRejectsInvalidDimensions(t *testing.T) {
	if _, err := sampler.New(0, 5, sampler.DefaultSettings()); err == nil {
		t.Fatal("expected error for d=0")
	}
	if _, err := sampler.New(3, 0, sampler.DefaultSettings()); err == nil {
		t.Fatal("expected error for n=0")
	}
}

func TestNewWithWeightsRejectsMismatchedRho(t *testing.T) {
	r := []float64{0.25, 0.25, 0.25, 0.25}
	rho := []float64{1, 1, 1}
	if _, err := sampler.NewWithWeights(3, r, rho, sampler.DefaultSettings()); err == nil {
		t.Fatal("expected error for mismatched rho length")
	}
}

func TestOptimizeClosesThePolygon(t *testing.T) {
	d, n := 3, 6
	s, err := sampler.New(d, n, sampler.DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.NewFromSeed(42)
	s.RandomizeInitialEdgeCoordinates(rng)
	s.ComputeShiftVector()
	s.Optimize()

	if !s.Succeeded() && s.Residual() > 10*s.EdgeLengths()[0] {
		t.Fatalf("solver failed to converge: residual=%v, iter=%d", s.Residual(), s.IterationCount())
	}

	y := s.EdgeCoordinates()
	r := s.EdgeLengths()
	sum := make([]float64, d)
	for k := 0; k < n; k++ {
		for i := 0; i < d; i++ {
			sum[i] += r[k] * y[k*d+i]
		}
	}
	for i, v := range sum {
		if math.Abs(v) > 1e-6 {
			t.Errorf("weighted sum of edge directions not closed at index %d: %v", i, v)
		}
	}

	for k := 0; k < n; k++ {
		yk := y[k*d : k*d+d]
		var norm2 float64
		for _, v := range yk {
			norm2 += v * v
		}
		if math.Abs(norm2-1) > 1e-9 {
			t.Errorf("edge %d direction not unit length: ‖y‖²=%v", k, norm2)
		}
	}
}

func TestComputeSpaceCoordinatesClosesPolygon(t *testing.T) {
	d, n := 2, 5
	s, err := sampler.New(d, n, sampler.DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.NewFromSeed(7)
	s.RandomizeInitialEdgeCoordinates(rng)
	s.ComputeShiftVector()
	s.Optimize()
	s.ComputeSpaceCoordinates()

	p := s.SpaceCoordinates()
	first := p[0:d]
	last := p[n*d : n*d+d]

	for i := 0; i < d; i++ {
		if math.Abs(first[i]-last[i]) > 1e-6 {
			t.Errorf("polygon did not close: p[0][%d]=%v, p[n][%d]=%v", i, first[i], i, last[i])
		}
	}
}

func TestSamplingWeightsArePositive(t *testing.T) {
	d, n := 3, 8
	s, err := sampler.New(d, n, sampler.DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.NewFromSeed(123)
	s.RandomizeInitialEdgeCoordinates(rng)
	s.ComputeShiftVector()
	s.Optimize()

	s.ComputeEdgeSpaceSamplingWeight()
	s.ComputeEdgeQuotientSpaceSamplingCorrection()

	if s.EdgeSpaceSamplingWeight() < 0 {
		t.Errorf("edge-space sampling weight negative: %v", s.EdgeSpaceSamplingWeight())
	}
	if s.EdgeQuotientSpaceSamplingWeight() < 0 {
		t.Errorf("edge-quotient-space sampling weight negative: %v", s.EdgeQuotientSpaceSamplingWeight())
	}
}

// TestSamplingWeightsWithinScenarioS1Bounds checks the numeric bounds
// spec.md §8 scenario S1 gives for d=3, n=4, equilateral (r_k=1/4,
// rho_k=1): K_edge must land in (0,1] and K_quot in (0,10).
func TestSamplingWeightsWithinScenarioS1Bounds(t *testing.T) {
	d, _ := 3, 4
	r := []float64{0.25, 0.25, 0.25, 0.25}
	rho := []float64{1, 1, 1, 1}

	s, err := sampler.NewWithWeights(d, r, rho, sampler.DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.NewFromSeed(1)
	s.RandomizeInitialEdgeCoordinates(rng)
	s.ComputeShiftVector()
	s.Optimize()

	if !s.Succeeded() {
		t.Fatalf("solver failed to converge: residual=%v, iter=%d", s.Residual(), s.IterationCount())
	}

	s.ComputeEdgeSpaceSamplingWeight()
	s.ComputeEdgeQuotientSpaceSamplingCorrection()

	kEdge := s.EdgeSpaceSamplingWeight()
	kQuot := s.EdgeQuotientSpaceSamplingWeight()

	if kEdge <= 0 || kEdge > 1 {
		t.Errorf("K_edge = %v, want in (0, 1] per scenario S1", kEdge)
	}
	if kQuot <= 0 || kQuot >= 10 {
		t.Errorf("K_quot = %v, want in (0, 10) per scenario S1", kQuot)
	}
}

func TestRandomSphericalPointsFillsUnitVectors(t *testing.T) {
	d, sampleCount := 3, 50
	out := make([]float64, sampleCount*d)

	if err := sampler.RandomSphericalPoints(out, d, sampleCount, 4); err != nil {
		t.Fatal(err)
	}

	for k := 0; k < sampleCount; k++ {
		v := out[k*d : k*d+d]
		var norm2 float64
		for _, x := range v {
			norm2 += x * x
		}
		if math.Abs(norm2-1) > 1e-9 {
			t.Errorf("point %d not unit length: ‖v‖²=%v", k, norm2)
		}
	}
}

func TestRandomSphericalPointsRejectsMismatchedLength(t *testing.T) {
	out := make([]float64, 10)
	if err := sampler.RandomSphericalPoints(out, 3, 5, 1); err == nil {
		t.Fatal("expected error for out length not matching sampleCount*d")
	}
}

func TestReadShiftVectorFallsBackToBarycenterNearBoundary(t *testing.T) {
	d, n := 2, 4
	s, err := sampler.New(d, n, sampler.DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.NewFromSeed(99)
	s.RandomizeInitialEdgeCoordinates(rng)

	// A shift vector right at the boundary should be rejected in favor
	// of the computed Euclidean barycenter.
	s.ReadShiftVector([]float64{0.9999999999, 0})

	w := s.ShiftVector()
	ww := w[0]*w[0] + w[1]*w[1]
	if ww > 1-1e-9 {
		t.Errorf("ReadShiftVector did not fall back away from the boundary: ‖w‖²=%v", ww)
	}
}
