package solver_test

import (
	"math"
	"testing"

	"github.com/cobars/cobars/solver"
)

func TestOptimizeConvergesWithMonotoneResidual(t *testing.T) {
	d, n := 2, 3
	s := solver.New(d, n, solver.DefaultSettings())

	x := [][2]float64{{1, 0}, {0, 1}, {-1, 0}}
	for k, xi := range x {
		copy(s.X[k*d:k*d+d], xi[:])
	}
	// The longest edge is shorter than half the total length, so a
	// closed non-degenerate triangle and a barycenter inside the ball
	// exist.
	s.ReadEdgeLengths([]float64{0.4, 0.3, 0.3})

	var residuals []float64

	s.Shift()
	s.DifferentialAndHessian()
	residuals = append(residuals, s.Residual)
	s.SearchDirection()

	for s.Iter < s.Settings.MaxIter && s.ContinueQ {
		s.Iter++
		s.LineSearchPotential()
		s.DifferentialAndHessian()
		residuals = append(residuals, s.Residual)
		s.SearchDirection()
	}

	if s.Residual > 1e-8 {
		t.Fatalf("solver did not converge: residual=%v after %d iterations", s.Residual, s.Iter)
	}

	for i := 1; i < len(residuals); i++ {
		if residuals[i] > residuals[i-1]+1e-12 {
			t.Errorf("residual increased at iteration %d: %v -> %v", i, residuals[i-1], residuals[i])
		}
	}
}

func TestOptimizeClosesAfterConvergence(t *testing.T) {
	d, n := 2, 4
	s := solver.New(d, n, solver.DefaultSettings())

	angles := []float64{0, math.Pi / 2, math.Pi, 3 * math.Pi / 2}
	for k, a := range angles {
		s.X[k*d+0] = math.Cos(a)
		s.X[k*d+1] = math.Sin(a)
	}
	s.ReadEdgeLengths([]float64{0.4, 0.1, 0.4, 0.1})

	s.Optimize()

	if s.Residual > s.Settings.Tolerance*10 {
		t.Fatalf("residual too large after Optimize: %v", s.Residual)
	}
	if !s.SucceededQ {
		t.Errorf("expected SucceededQ after convergence, got false (residual=%v, errorestimator=%v)", s.Residual, s.ErrorEstimator)
	}

	// Once converged, one more Newton step from the same state should
	// produce a search direction that has essentially vanished.
	s.Shift()
	s.DifferentialAndHessian()
	s.SearchDirection()

	for i := range s.U {
		if math.Abs(s.U[i]) > 1e-4 {
			t.Errorf("search direction did not vanish near convergence: U=%v", s.U)
		}
	}
}

// TestSolverConvergesUniquelyForEquilateralTriangle checks that for the
// unweighted d=2, n=3 configuration, Optimize converges to residual
// <=1e-12 from several unrelated starting directions, and that the
// resulting directions always land 120 degrees apart (cube roots of
// unity up to rotation) regardless of where the search started.
// Tolerance is tightened to 1e-14: with the default sqrt(eps) the
// solver stops as soon as its error estimate 2*residual/lambda_min
// drops below about 1.5e-8, which can leave a residual near 1e-10.
func TestSolverConvergesUniquelyForEquilateralTriangle(t *testing.T) {
	d, n := 2, 3
	r := []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
	settings := solver.DefaultSettings()
	settings.Tolerance = 1e-14

	starts := [][3][2]float64{
		{{1, 0}, {0, 1}, {-1, 0}},
		{{0.6, 0.8}, {-0.9, 0.1}, {0.2, -0.9}},
		{{-1, 0}, {0, -1}, {0.99, 0.14}},
	}

	for si, start := range starts {
		s := solver.New(d, n, settings)
		for k, xi := range start {
			norm := math.Hypot(xi[0], xi[1])
			s.X[k*d], s.X[k*d+1] = xi[0]/norm, xi[1]/norm
		}
		s.ReadEdgeLengths(r)
		s.Optimize()

		if s.Residual > 1e-12 {
			t.Fatalf("start %d: residual %v exceeds 1e-12", si, s.Residual)
		}

		y := s.Y
		for a := 0; a < n; a++ {
			for b := a + 1; b < n; b++ {
				dot := y[a*d]*y[b*d] + y[a*d+1]*y[b*d+1]
				if math.Abs(dot+0.5) > 1e-9 {
					t.Errorf("start %d: pair (%d,%d) dot=%v, want -0.5", si, a, b, dot)
				}
			}
		}
	}
}

// TestOptimizeGivesUpWithoutCrashingAtMaxIterOne checks the give-up
// path spec.md §8 scenario S6 describes: with MaxIter=1 on a
// configuration far from its fixed point, Optimize must stop after one
// Newton step with SucceededQ=false, ContinueQ=true (it was cut off by
// MaxIter, not by its own convergence or give-up logic), a residual
// still above tolerance, and no NaNs anywhere in the result.
func TestOptimizeGivesUpWithoutCrashingAtMaxIterOne(t *testing.T) {
	settings := solver.DefaultSettings()
	settings.MaxIter = 1

	d, n := 3, 6
	s := solver.New(d, n, settings)

	dirs := [][3]float64{
		{1, 0, 0}, {0.99, 0.1, 0}, {0.98, -0.1, 0.05},
		{0.97, 0.05, -0.05}, {0.99, 0, 0.1}, {-1, 0, 0},
	}
	for k, v := range dirs {
		norm := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
		s.X[k*d], s.X[k*d+1], s.X[k*d+2] = v[0]/norm, v[1]/norm, v[2]/norm
	}
	s.ReadEdgeLengths([]float64{1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6})

	s.Optimize()

	if s.Iter > settings.MaxIter {
		t.Fatalf("Optimize ran %d iterations, want at most MaxIter=%d", s.Iter, settings.MaxIter)
	}
	if s.SucceededQ {
		t.Errorf("expected SucceededQ=false when MaxIter=1 stops before convergence")
	}
	if !s.ContinueQ {
		t.Errorf("expected ContinueQ=true: stopped by MaxIter, not by give-up/converge logic")
	}
	if s.Residual <= s.Settings.Tolerance {
		t.Errorf("residual %v unexpectedly at or below tolerance %v after a single step", s.Residual, s.Settings.Tolerance)
	}
	if math.IsNaN(s.Residual) {
		t.Fatalf("residual is NaN")
	}
	for i, v := range s.Y {
		if math.IsNaN(v) {
			t.Fatalf("Y[%d] is NaN", i)
		}
	}
}

func TestPotentialDecreasesAlongAcceptedStep(t *testing.T) {
	d, n := 2, 3
	s := solver.New(d, n, solver.DefaultSettings())

	x := [][2]float64{{1, 0}, {0, 1}, {-0.6, -0.8}}
	for k, xi := range x {
		copy(s.X[k*d:k*d+d], xi[:])
	}
	s.ReadEdgeLengths([]float64{0.5, 0.3, 0.2})

	s.Shift()
	s.DifferentialAndHessian()
	s.SearchDirection()

	if !s.ContinueQ {
		t.Skip("initial configuration already at the solver's fixed point")
	}

	before := s.Residual
	s.LineSearchPotential()
	s.DifferentialAndHessian()

	// ArmijoQ records whether the accepted step passed the sufficient
	// decrease test phi(tau) - sigma*tau*Dphi(0) < 0 on the potential.
	if !s.ArmijoQ {
		t.Errorf("accepted step did not decrease the potential enough to pass the Armijo test")
	}
	if s.Residual > before+1e-12 {
		t.Errorf("residual grew across an accepted line-search step: %v -> %v", before, s.Residual)
	}
}
