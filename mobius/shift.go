// Package mobius implements the Möbius shift kernel of the Poincaré
// ball: the forward shift of sphere points and the inverse (tangent)
// shift of ball points that the conformal-barycenter solver iterates
// against, plus the stable tanhc evaluator the exponential-map step
// needs. See spec.md §4.2 and original_source/src/Sampler.hpp's
// Shift/InverseShift/tanhc for the exact algebra this ports.
package mobius

import "math"

// boundaryThreshold is the squared-norm cutoff above which shifted
// sphere points are renormalized to guard against drift near the ball
// boundary — the sampler's only such guard (spec.md §4.2, §9).
const boundaryThreshold = 0.99*0.99 + 16*eps

const eps = 2.2250738585072014e-308

// Shift maps each of the n unit vectors packed in xs (row-major, n*d)
// through the Möbius automorphism of the ball determined by w, writing
// the result into ys (also row-major, n*d). ys may alias xs. Points
// whose image falls close enough to the boundary that ‖w‖² exceeds
// boundaryThreshold are renormalized back onto the unit sphere after
// the shift, since the rational formula loses precision there.
func Shift(xs, w, ys []float64, n, d int) {
	ww := dot(w, w)

	renorm := ww > boundaryThreshold

	for k := 0; k < n; k++ {
		x := xs[k*d : k*d+d]
		y := ys[k*d : k*d+d]

		wx := dot(w, x)
		denom := 1 + ww - 2*wx
		a := 1 - ww
		b := 2*wx - 2

		for i := 0; i < d; i++ {
			y[i] = (a*x[i] + b*w[i]) / denom
		}

		if renorm {
			n2 := dot(y, y)
			if n2 > 0 {
				inv := 1 / math.Sqrt(n2)
				for i := 0; i < d; i++ {
					y[i] *= inv
				}
			}
		}
	}
}

// InverseShift composes the current ball point w with a tangent step z,
// updating w in place to the Möbius sum w' = w (+) z. This is used
// after each Newton/line-search step to move the current shift toward
// the origin of the next iteration's local coordinates.
func InverseShift(w, z []float64) {
	d := len(w)

	ww := dot(w, w)
	wz := dot(w, z)
	zz := dot(z, z)

	a := 1 - ww
	b := 1 + zz + 2*wz
	c := bigOne + 2*wz + ww*zz
	inv := 1 / c

	for i := 0; i < d; i++ {
		w[i] = (a*z[i] + b*w[i]) * inv
	}
}

// bigOne stabilizes InverseShift's denominator against catastrophic
// cancellation when w and z nearly cancel, matching Sampler.hpp's
// big_one = 1 + 16*eps.
const bigOne = 1 + 16*eps

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Tanhc computes tanh(t)/t in a numerically stable way: a degree-4/4
// Padé approximant near t=0 (where the naive ratio loses precision),
// the direct formula in the well-conditioned middle range, and 1/|t|
// for large |t| where tanh(t) has saturated to ±1.
func Tanhc(t float64) float64 {
	t2 := t * t

	switch {
	case t2 <= 1:
		const a0, a1, a2, a3, a4 = 1.0, 7.0 / 51.0, 1.0 / 255.0, 2.0 / 69615.0, 1.0 / 34459425.0
		const b0, b1, b2, b3, b4 = 1.0, 8.0 / 17.0, 7.0 / 255.0, 4.0 / 9945.0, 1.0 / 765765.0

		num := a0 + t2*(a1+t2*(a2+t2*(a3+t2*a4)))
		den := b0 + t2*(b1+t2*(b2+t2*(b3+t2*b4)))
		return num / den
	case t2 <= 7:
		return math.Tanh(t) / t
	default:
		return 1 / math.Abs(t)
	}
}
