package solver

import (
	"math"

	"github.com/cobars/cobars/mobius"
	"github.com/cobars/cobars/vector"
)

const (
	eps     = 2.2250738585072014e-308
	bigOne  = 1 + 16*eps
	gFactor = 4
)

var infinity = math.Inf(1)

// Solver runs the regularized damped Newton iteration that finds the
// conformal-barycenter shift for a fixed set of N unit vectors of
// ambient dimension D. It owns the edge-direction buffers (X, the
// original directions; Y, their image under the current shift) and the
// Newton state (W, U, Z, F, DF). A Solver is not safe for concurrent
// use: the batch orchestrator gives every worker goroutine its own.
type Solver struct {
	Settings Settings

	D, N int

	X, Y []float64

	R         []float64
	TotalRInv float64

	W, U, Z, F []float64
	DF, A      vector.SymMatrix

	dfu []float64

	Iter int

	SquaredResidual float64
	Residual        float64

	LambdaMin      float64
	Q              float64
	ErrorEstimator float64

	LinesearchQ bool
	SucceededQ  bool
	ContinueQ   bool
	ArmijoQ     bool
}

// New allocates a Solver for n edges of ambient dimension d, with every
// buffer it needs for the lifetime of one sample.
func New(d, n int, settings Settings) *Solver {
	return &Solver{
		Settings:       settings,
		D:              d,
		N:              n,
		X:              make([]float64, n*d),
		Y:              make([]float64, n*d),
		R:              make([]float64, n),
		TotalRInv:      1,
		W:              make([]float64, d),
		U:              make([]float64, d),
		Z:              make([]float64, d),
		F:              make([]float64, d),
		DF:             vector.NewSymMatrix(d),
		A:              vector.NewSymMatrix(d),
		dfu:            make([]float64, d),
		LambdaMin:      eps,
		Q:              1,
		ErrorEstimator: infinity,
		LinesearchQ:    settings.UseLinesearch && settings.ArmijoSlopeFactor > 0,
		ContinueQ:      true,
	}
}

// ReadEdgeLengths copies r into R and recomputes TotalRInv = 1/sum(R),
// the normalization applied throughout whenever the weights do not
// already sum to 1.
func (s *Solver) ReadEdgeLengths(r []float64) {
	copy(s.R, r)
	var sum float64
	for _, v := range r {
		sum += v
	}
	s.TotalRInv = 1 / sum
}

// Shift overwrites Y with the image of X under the current shift W.
func (s *Solver) Shift() {
	mobius.Shift(s.X, s.W, s.Y, s.N, s.D)
}

// InverseShiftBy composes the current shift W with the tangent step z,
// moving W toward the barycenter found by the last Newton step.
func (s *Solver) InverseShiftBy(z []float64) {
	mobius.InverseShift(s.W, z)
}

// Potential evaluates the log-potential merit function at the trial
// tangent step currently held in Z, the default line search's merit
// function (spec.md §4.3).
func (s *Solver) Potential() float64 {
	d := s.D
	zz := vector.NormSquared(s.Z)
	a := bigOne + zz
	c := bigOne - zz
	b := 1 / c

	var value float64
	for k := 0; k < s.N; k++ {
		y := s.Y[k*d : k*d+d]
		yz := vector.Dot(y, s.Z)
		value += s.R[k] * math.Log(math.Abs((a-2*yz)*b))
	}
	return value * s.TotalRInv
}

// DifferentialAndHessian assembles F = -1/2 (weighted mean of Y) and
// DF = I - (weighted second moment of Y), the residual and Hessian of
// the hyperbolic barycenter equation, from the current Y and R. The
// identity is added to DF last, after every other accumulation, for
// the same precision reason Sampler.hpp adds it last.
func (s *Solver) DifferentialAndHessian() {
	d, n := s.D, s.N
	F := s.F
	DF := s.DF

	DF.Zero()
	for i := range F {
		F[i] = 0
	}

	for k := 0; k < n; k++ {
		y := s.Y[k*d : k*d+d]
		rk := s.R[k]
		for i := 0; i < d; i++ {
			factor := rk * y[i]
			F[i] -= factor
			row := DF.Data[i*d : i*d+d]
			for j := i; j < d; j++ {
				row[j] -= factor * y[j]
			}
		}
	}

	s.SquaredResidual = 0
	for i := 0; i < d; i++ {
		F[i] *= s.TotalRInv
		s.SquaredResidual += F[i] * F[i]
		F[i] *= 0.5

		row := DF.Data[i*d : i*d+d]
		for j := i; j < d; j++ {
			row[j] *= s.TotalRInv
		}
	}

	s.Residual = math.Sqrt(s.SquaredResidual)

	for i := 0; i < d; i++ {
		DF.Data[i*d+i] += 1
	}
}

// SearchDirection decides, from the current residual, whether the
// Kantorovich condition already guarantees convergence (in which case
// line search is switched off and an error estimator is computed) or
// whether another damped Newton step is needed, then solves the
// regularized system DF u = -F for the search direction U via
// Cholesky.
func (s *Solver) SearchDirection() {
	d := s.D
	tol := s.Settings.Tolerance

	if s.Residual < 100*tol {
		s.LambdaMin = s.DF.SmallestEigenvalue()
		s.Q = 4 * s.Residual / (s.LambdaMin * s.LambdaMin)

		if s.Q < 1 {
			s.ErrorEstimator = 0.5 * s.LambdaMin * s.Q
			s.LinesearchQ = false
			s.ContinueQ = s.ErrorEstimator > tol
			s.SucceededQ = !s.ContinueQ
		} else {
			s.ErrorEstimator = infinity
			s.LinesearchQ = s.Settings.UseLinesearch && s.Settings.ArmijoSlopeFactor > 0
			s.ContinueQ = s.Residual > s.Settings.GiveUpTolerance
		}
	} else {
		s.Q = bigOne
		s.LambdaMin = eps
		s.ErrorEstimator = infinity
		s.LinesearchQ = s.Settings.UseLinesearch && s.Settings.ArmijoSlopeFactor > 0
		floor := s.Settings.GiveUpTolerance
		if tol > floor {
			floor = tol
		}
		s.ContinueQ = s.Residual > floor
	}

	c := s.Settings.Regularization * s.SquaredResidual
	s.A.CopyUpperFrom(s.DF)
	s.A.AddIdentity(c)
	s.A.Cholesky()

	for i := 0; i < d; i++ {
		s.U[i] = -s.F[i]
	}
	s.A.CholeskySolve(s.U)
}

// LineSearchPotential is the default line search: it backtracks the
// Newton step U with the log-potential as merit function until the
// Armijo sufficient-decrease condition holds (or MaxBacktrackings is
// exhausted), then commits the accepted tangent step by folding it
// into W and re-shifting X into Y.
func (s *Solver) LineSearchPotential() {
	d := s.D
	tau := 1.0
	uNorm := vector.Norm(s.U)

	scale := tau * mobius.Tanhc(tau*uNorm)
	for i := 0; i < d; i++ {
		s.Z[i] = scale * s.U[i]
	}

	if s.LinesearchQ {
		gamma := s.Settings.ArmijoShrinkFactor
		sigma := s.Settings.ArmijoSlopeFactor

		var dphi0 float64
		for i := 0; i < d; i++ {
			dphi0 += s.F[i] * s.U[i]
		}
		dphi0 *= gFactor

		backtrackings := 0
		phiTau := s.Potential()
		s.ArmijoQ = phiTau-sigma*tau*dphi0 < 0

		for !s.ArmijoQ && backtrackings < s.Settings.MaxBacktrackings {
			backtrackings++

			tau1 := gamma * tau
			tau2 := -0.5 * sigma * tau * tau * dphi0 / (phiTau - tau*dphi0)
			tau = math.Max(tau1, tau2)

			scale = tau * mobius.Tanhc(tau*uNorm)
			for i := 0; i < d; i++ {
				s.Z[i] = scale * s.U[i]
			}

			phiTau = s.Potential()
			s.ArmijoQ = phiTau-sigma*tau*dphi0 < 0
		}
	}

	s.InverseShiftBy(s.Z)
	s.Shift()
}

// LineSearchResidual is a diagnostic alternative to LineSearchPotential
// that uses the squared residual itself as merit function. It is not
// used by Optimize's default loop (spec.md §4.3); it exists so callers
// investigating solver behavior can compare the two backtracking
// strategies. slope is computed as the true 2 F^T DF u — the original
// implementation this ports declared it as an uninitialized constant
// inside the accumulation loop, which cannot compile; here it is a
// genuine accumulator.
func (s *Solver) LineSearchResidual() {
	d := s.D
	tau := 1.0
	uNorm := vector.Norm(s.U)

	s.DF.MatVec(s.dfu, s.U)
	slope := 2 * vector.Dot(s.F, s.dfu)

	scale := tau * mobius.Tanhc(tau*uNorm)
	for i := 0; i < d; i++ {
		s.Z[i] = scale * s.U[i]
	}

	s.InverseShiftBy(s.Z)
	s.Shift()

	squaredResidualAt0 := s.SquaredResidual

	s.DifferentialAndHessian()

	if s.LinesearchQ {
		sigma := s.Settings.ArmijoSlopeFactor
		gamma := s.Settings.ArmijoShrinkFactor
		backtrackings := 0

		s.ArmijoQ = s.SquaredResidual-squaredResidualAt0-sigma*tau*slope < 0

		for !s.ArmijoQ && backtrackings < s.Settings.MaxBacktrackings {
			backtrackings++

			tau1 := gamma * tau
			tau2 := -0.5 * sigma * tau * tau * slope / (s.SquaredResidual - squaredResidualAt0 - tau*slope)
			tau = math.Max(tau1, tau2)

			scale = tau * mobius.Tanhc(tau*uNorm)
			for i := 0; i < d; i++ {
				s.Z[i] = scale * s.U[i]
			}

			s.InverseShiftBy(s.Z)
			s.Shift()

			s.DifferentialAndHessian()

			s.ArmijoQ = s.SquaredResidual-squaredResidualAt0-sigma*tau*slope < 0
		}
	}
}

// Optimize runs the full damped Newton iteration to convergence or
// until Settings.MaxIter is exhausted, starting from the current W.
func (s *Solver) Optimize() {
	s.Iter = 0
	s.LinesearchQ = s.Settings.UseLinesearch && s.Settings.ArmijoSlopeFactor > 0
	s.SucceededQ = false
	s.ContinueQ = true

	s.Shift()
	s.DifferentialAndHessian()
	s.SearchDirection()

	for s.Iter < s.Settings.MaxIter && s.ContinueQ {
		s.Iter++

		s.LineSearchPotential()
		s.DifferentialAndHessian()
		s.SearchDirection()
	}
}
