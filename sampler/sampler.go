// Package sampler drives one instance of the conformal-barycenter
// Newton solver end to end for n edges of ambient dimension d: reading
// edge lengths and quotient weights, seeding or reading initial edge
// directions, running the solver to convergence, and computing space
// coordinates and sampling weights from the result. Grounded on
// original_source/src/Sampler.hpp's public surface and on
// umap.UMAP/umap.New/umap.Config for the Go constructor-plus-config
// idiom.
package sampler

import (
	"fmt"
	"math"

	"github.com/cobars/cobars/internal/rand"
	"github.com/cobars/cobars/sampler/weights"
	"github.com/cobars/cobars/solver"
	"github.com/cobars/cobars/vector"
)

const eps = 2.2250738585072014e-308
const smallOne = 1 - 16*eps

// Sampler owns the buffers and computed state for one sample: the
// Newton solver (edge directions X/Y, shift W, edge lengths R), the
// quotient weights rho, the derived space (vertex) coordinates, and the
// two sampling weights computed after convergence. It is not safe for
// concurrent use; batch.OptimizeBatch/RandomClosedPolygons/SampleBinned
// give each worker goroutine its own.
type Sampler struct {
	solver *solver.Solver

	d, n int

	rho []float64
	p   []float64

	edgeSpaceWeight     float64
	quotientCorrection  float64
	quotientSpaceWeight float64
}

// New allocates a Sampler for n unweighted edges (r_k=1/n, rho_k=1) of
// ambient dimension d.
func New(d, n int, settings Settings) (*Sampler, error) {
	if d <= 0 {
		return nil, fmt.Errorf("sampler: ambient dimension must be positive, got %d", d)
	}
	if n <= 0 {
		return nil, fmt.Errorf("sampler: edge count must be positive, got %d", n)
	}

	s := newSampler(d, n, settings)

	r := make([]float64, n)
	for i := range r {
		r[i] = 1 / float64(n)
		s.rho[i] = 1
	}
	s.solver.ReadEdgeLengths(r)

	return s, nil
}

// NewWithWeights allocates a Sampler with caller-supplied edge lengths
// r and quotient weights rho, both of length n = len(r).
func NewWithWeights(d int, r, rho []float64, settings Settings) (*Sampler, error) {
	n := len(r)
	if d <= 0 {
		return nil, fmt.Errorf("sampler: ambient dimension must be positive, got %d", d)
	}
	if n <= 0 {
		return nil, fmt.Errorf("sampler: edge count must be positive, got %d", n)
	}
	if len(rho) != n {
		return nil, fmt.Errorf("sampler: rho has length %d, want %d to match edge lengths", len(rho), n)
	}

	s := newSampler(d, n, settings)

	if err := s.ReadEdgeLengths(r); err != nil {
		return nil, err
	}
	if err := s.ReadRho(rho); err != nil {
		return nil, err
	}
	return s, nil
}

func newSampler(d, n int, settings Settings) *Sampler {
	return &Sampler{
		solver: solver.New(d, n, settings.Settings),
		d:      d,
		n:      n,
		rho:    make([]float64, n),
		p:      make([]float64, (n+1)*d),
	}
}

// ReadEdgeLengths overwrites the sampler's edge-length weights and
// recomputes their reciprocal sum.
func (s *Sampler) ReadEdgeLengths(r []float64) error {
	if len(r) != s.n {
		return fmt.Errorf("sampler: edge lengths length %d, want %d", len(r), s.n)
	}
	s.solver.ReadEdgeLengths(r)
	return nil
}

// ReadRho overwrites the sampler's quotient-space weights.
func (s *Sampler) ReadRho(rho []float64) error {
	if len(rho) != s.n {
		return fmt.Errorf("sampler: rho length %d, want %d", len(rho), s.n)
	}
	copy(s.rho, rho)
	return nil
}

// ReadInitialEdgeCoordinates copies x (row-major n*d) into the
// sampler's initial-direction buffer, optionally renormalizing each
// direction to unit length first.
func (s *Sampler) ReadInitialEdgeCoordinates(x []float64, normalize bool) error {
	if len(x) != s.n*s.d {
		return fmt.Errorf("sampler: initial edge coordinates length %d, want %d", len(x), s.n*s.d)
	}
	copy(s.solver.X, x)
	if normalize {
		s.normalizeInitialEdgeCoordinates()
	}
	return nil
}

func (s *Sampler) normalizeInitialEdgeCoordinates() {
	d := s.d
	for k := 0; k < s.n; k++ {
		vector.Normalize(s.solver.X[k*d : k*d+d])
	}
}

// RandomizeInitialEdgeCoordinates fills the initial-direction buffer
// with n independent uniform points on the unit (d-1)-sphere, drawn
// from rng via the standard Gaussian-then-normalize construction.
func (s *Sampler) RandomizeInitialEdgeCoordinates(rng *rand.MT19937_64) {
	d := s.d
	for k := 0; k < s.n; k++ {
		buf := s.solver.X[k*d : k*d+d]
		var r2 float64
		for i := 0; i < d; i++ {
			z := rng.NormFloat64()
			buf[i] = z
			r2 += z * z
		}
		inv := 1 / math.Sqrt(r2)
		for i := range buf {
			buf[i] *= inv
		}
	}
}

// ReadShiftVector copies w into the sampler's current shift, falling
// back to the Euclidean barycenter if w does not lie safely inside the
// ball (‖w‖² >= 1-16*eps), matching
// original_source/src/Sampler.hpp::ReadShiftVector.
func (s *Sampler) ReadShiftVector(w []float64) {
	copy(s.solver.W, w)
	if vector.NormSquared(s.solver.W) >= smallOne {
		s.ComputeShiftVector()
	}
}

// Optimize runs the Newton iteration to convergence from the current
// shift W.
func (s *Sampler) Optimize() {
	s.solver.Optimize()
}

// ComputeShiftVector sets W to the r-weighted Euclidean barycenter of
// the current initial directions X, the standard starting guess.
func (s *Sampler) ComputeShiftVector() {
	d := s.d
	w := make([]float64, d)
	for k := 0; k < s.n; k++ {
		rk := s.solver.R[k]
		x := s.solver.X[k*d : k*d+d]
		for i := 0; i < d; i++ {
			w[i] += x[i] * rk
		}
	}
	for i := 0; i < d; i++ {
		s.solver.W[i] = w[i] * s.solver.TotalRInv
	}
}

// ComputeSpaceCoordinates integrates the converged edge directions Y
// (weighted by R) into vertex positions P, centering the polygon so
// that the unweighted mean of its n edge midpoints sits at the origin.
func (s *Sampler) ComputeSpaceCoordinates() {
	d := s.d
	barycenter := make([]float64, d)
	accumulator := make([]float64, d)

	y := s.solver.Y
	for k := 0; k < s.n; k++ {
		rk := s.solver.R[k]
		yk := y[k*d : k*d+d]
		for i := 0; i < d; i++ {
			offset := rk * yk[i]
			barycenter[i] += accumulator[i] + 0.5*offset
			accumulator[i] += offset
		}
	}

	for i := 0; i < d; i++ {
		s.p[i] = -barycenter[i] / float64(s.n)
	}

	for k := 0; k < s.n; k++ {
		rk := s.solver.R[k]
		yk := y[k*d : k*d+d]
		for i := 0; i < d; i++ {
			s.p[(k+1)*d+i] = s.p[k*d+i] + rk*yk[i]
		}
	}
}

// ComputeEdgeSpaceSamplingWeight computes and stores the edge-space
// sampling weight for the currently converged sample.
func (s *Sampler) ComputeEdgeSpaceSamplingWeight() {
	s.edgeSpaceWeight = weights.EdgeSpace(s.solver.W, s.solver.Y, s.solver.R, s.rho, s.d, s.n)
}

// ComputeEdgeQuotientSpaceSamplingCorrection computes and stores the
// quotient-space correction and the resulting quotient-space sampling
// weight; ComputeEdgeSpaceSamplingWeight must be called first.
func (s *Sampler) ComputeEdgeQuotientSpaceSamplingCorrection() {
	s.quotientCorrection = weights.EdgeQuotientCorrection(s.solver.Y, s.rho, s.d, s.n)
	s.quotientSpaceWeight = s.edgeSpaceWeight * s.quotientCorrection
}

// SolverSettings returns the settings the underlying Newton solver was
// constructed with, letting a batch driver spin up further Samplers
// (one per worker) configured identically to s.
func (s *Sampler) SolverSettings() solver.Settings { return s.solver.Settings }

// EdgeCount returns n, the number of edges.
func (s *Sampler) EdgeCount() int { return s.n }

// AmbientDimension returns d, the ambient dimension fixed at construction.
func (s *Sampler) AmbientDimension() int { return s.d }

// IterationCount returns the number of Newton iterations the last
// Optimize call ran.
func (s *Sampler) IterationCount() int { return s.solver.Iter }

// Residual returns the Euclidean norm of the barycenter equation's
// residual after the last Optimize call.
func (s *Sampler) Residual() float64 { return s.solver.Residual }

// ErrorEstimator returns the quadratic-convergence error bound computed
// once the Kantorovich condition is satisfied, or +Inf otherwise.
func (s *Sampler) ErrorEstimator() float64 { return s.solver.ErrorEstimator }

// Succeeded reports whether the last Optimize call converged within
// tolerance.
func (s *Sampler) Succeeded() bool { return s.solver.SucceededQ }

// EdgeSpaceSamplingWeight returns the last computed edge-space
// sampling weight.
func (s *Sampler) EdgeSpaceSamplingWeight() float64 { return s.edgeSpaceWeight }

// EdgeQuotientSpaceSamplingWeight returns the last computed
// quotient-space sampling weight.
func (s *Sampler) EdgeQuotientSpaceSamplingWeight() float64 { return s.quotientSpaceWeight }

// ShiftVector returns the current shift W (row length d).
func (s *Sampler) ShiftVector() []float64 { return s.solver.W }

// InitialEdgeCoordinates returns the original (unshifted) edge
// directions X (row-major n*d).
func (s *Sampler) InitialEdgeCoordinates() []float64 { return s.solver.X }

// EdgeCoordinates returns the shifted edge directions Y (row-major n*d).
func (s *Sampler) EdgeCoordinates() []float64 { return s.solver.Y }

// SpaceCoordinates returns the vertex positions P (row-major (n+1)*d),
// valid after ComputeSpaceCoordinates.
func (s *Sampler) SpaceCoordinates() []float64 { return s.p }

// EdgeLengths returns the edge-length weights R (length n).
func (s *Sampler) EdgeLengths() []float64 { return s.solver.R }

// Rho returns the quotient-space weights (length n).
func (s *Sampler) Rho() []float64 { return s.rho }

// VertexPosition returns the k-th vertex position, a length-d slice
// into SpaceCoordinates.
func (s *Sampler) VertexPosition(k int) []float64 {
	return s.p[k*s.d : k*s.d+s.d]
}
