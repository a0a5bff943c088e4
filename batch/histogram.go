package batch

import "math"

// accumulator holds one worker's private bin and moment tensors before
// they are merged into the shared Result. Both tensors are logically
// 3 x funCount x {binCount,momentCount}: axis 0 selects the sampling
// weight the accumulation is with respect to (0 = uniform, 1 =
// edge-space, 2 = edge-quotient-space), matching the three-weight
// layout of Sampler.hpp::Sample_Binned's Tensor3 buffers.
type accumulator struct {
	funCount, binCount, momentCount int
	bins                            []float64
	moments                         []float64
}

func newAccumulator(funCount, binCount, momentCount int) *accumulator {
	return &accumulator{
		funCount:    funCount,
		binCount:    binCount,
		momentCount: momentCount,
		bins:        make([]float64, 3*funCount*binCount),
		moments:     make([]float64, 3*funCount*momentCount),
	}
}

// accumulate folds one observable evaluation for function i into the
// bin and moment tensors under all three weights.
func (a *accumulator) accumulate(i int, val, kEdge, kQuot, factor, low float64, binCount int) {
	weights := [3]float64{1, kEdge, kQuot}

	binIdx := int(math.Floor(factor * (val - low)))
	if binIdx >= 0 && binIdx <= binCount-1 {
		for w := 0; w < 3; w++ {
			a.bins[a.binIndex(w, i, binIdx)] += weights[w]
		}
	}

	values := weights
	for w := 0; w < 3; w++ {
		a.moments[a.momentIndex(w, i, 0)] += values[w]
	}
	for j := 1; j < a.momentCount; j++ {
		for w := 0; w < 3; w++ {
			values[w] *= val
			a.moments[a.momentIndex(w, i, j)] += values[w]
		}
	}
}

func (a *accumulator) binIndex(w, i, bin int) int {
	return (w*a.funCount+i)*a.binCount + bin
}

func (a *accumulator) momentIndex(w, i, j int) int {
	return (w*a.funCount+i)*a.momentCount + j
}
