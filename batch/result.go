package batch

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cobars/cobars/observable"
)

// Result holds the histograms and moments SampleBinned accumulated
// across an entire batch, plus enough metadata (tags, ranges) to
// interpret and normalize them. Bins and Moments are logically
// 3 x FunCount x {BinCount,MomentCount}, flattened row-major; axis 0
// is the sampling weight (0=uniform, 1=edge-space, 2=edge-quotient-space).
type Result struct {
	FunCount, BinCount, MomentCount int
	Tags                            []string
	Ranges                          [][2]float64

	Bins    []float64
	Moments []float64
}

func newResult(funCount, binCount, momentCount int, obs []observable.Observable, ranges [][2]float64) *Result {
	tags := make([]string, funCount)
	for i, f := range obs {
		tags[i] = f.Tag()
	}
	return &Result{
		FunCount:    funCount,
		BinCount:    binCount,
		MomentCount: momentCount,
		Tags:        tags,
		Ranges:      ranges,
		Bins:        make([]float64, 3*funCount*binCount),
		Moments:     make([]float64, 3*funCount*momentCount),
	}
}

// mergeAccumulator adds one worker's private accumulator into the
// shared Result, mirroring Sample_Binned's "#pragma omp critical"
// add_to_buffer reduction. It is not safe to call concurrently: callers
// collect each chunk's accumulator first (see chunkAccumulator in
// batch.go) and merge them one at a time, in a fixed chunk order, after
// every worker has finished — so that the sum spec.md's Testable
// Property 6 requires to be bitwise reproducible does not depend on the
// nondeterministic order in which goroutines happen to complete.
func mergeAccumulator(r *Result, local *accumulator) {
	for i, v := range local.bins {
		r.Bins[i] += v
	}
	for i, v := range local.moments {
		r.Moments[i] += v
	}
}

func (r *Result) binIndex(w, i, bin int) int {
	return (w*r.FunCount+i)*r.BinCount + bin
}

func (r *Result) momentIndex(w, i, j int) int {
	return (w*r.FunCount+i)*r.MomentCount + j
}

// Normalize divides every bin and moment slice by its own zeroth
// moment (the total mass sampled under that weight), turning raw sums
// into a normalized histogram and normalized moment sequence. Mirrors
// Sampler.hpp::NormalizeBinnedSamples, using gonum/floats.Scale in
// place of its hand-rolled scale_buffer.
func (r *Result) Normalize() {
	for w := 0; w < 3; w++ {
		for i := 0; i < r.FunCount; i++ {
			total := r.Moments[r.momentIndex(w, i, 0)]
			if total == 0 {
				continue
			}
			factor := 1 / total

			bins := r.Bins[r.binIndex(w, i, 0):r.binIndex(w, i, r.BinCount)]
			floats.Scale(factor, bins)

			moments := r.Moments[r.momentIndex(w, i, 0):r.momentIndex(w, i, r.MomentCount)]
			floats.Scale(factor, moments)
		}
	}
}

// ObservableSummary reports the mean and standard deviation of the i-th
// observable under the uniform sampling weight, estimated from its raw
// (unnormalized) histogram via gonum/stat.Mean and gonum/stat.Variance
// over the bin centers weighted by bin counts. This is a supplemental
// diagnostic alongside the exact binned moments, not a replacement for
// them: a coarse bin_count gives a coarse estimate.
func (r *Result) ObservableSummary(i int) (mean, stddev float64) {
	low, high := r.Ranges[i][0], r.Ranges[i][1]
	width := (high - low) / float64(r.BinCount)

	centers := make([]float64, r.BinCount)
	counts := make([]float64, r.BinCount)
	for b := 0; b < r.BinCount; b++ {
		centers[b] = low + (float64(b)+0.5)*width
		counts[b] = r.Bins[r.binIndex(0, i, b)]
	}

	mean = stat.Mean(centers, counts)
	stddev = math.Sqrt(stat.Variance(centers, counts))
	return mean, stddev
}
