// Package batch drives many independent samples of a sampler.Sampler
// in parallel: closing a batch of caller-supplied initial edge
// directions (OptimizeBatch), drawing a batch of fresh random closed
// polygons together with their sampling weights (RandomClosedPolygons),
// and binning a list of observables into histograms and moments across
// a large random sample (SampleBinned). Grounded on umap.go's Fit
// staged pipeline and internal/parallel's worker-partition pattern, and
// on original_source/src/Sampler.hpp::OptimizeBatch/
// RandomClosedPolygons/Sample_Binned for the per-sample algorithms.
package batch

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cobars/cobars/internal/parallel"
	"github.com/cobars/cobars/observable"
	"github.com/cobars/cobars/sampler"
)

// OptimizeBatch closes sampleCount independent instances of the edge
// polygon problem, one per row of xIn (row-major sampleCount*n*d, n =
// s.EdgeCount(), d = s.AmbientDimension()), writing the converged
// shift vectors into wOut (sampleCount*d) and edge directions into yOut
// (sampleCount*n*d). Each worker owns a private Sampler seeded with s's
// edge lengths so no state is shared across goroutines.
// Grounded on Sampler.hpp::OptimizeBatch.
func OptimizeBatch(s *sampler.Sampler, xIn []float64, wOut, yOut []float64, sampleCount int, normalize bool, bs Settings) error {
	d, n := s.AmbientDimension(), s.EdgeCount()

	if len(xIn) != sampleCount*n*d {
		return fmt.Errorf("batch: xIn has length %d, want %d", len(xIn), sampleCount*n*d)
	}
	if len(wOut) != sampleCount*d {
		return fmt.Errorf("batch: wOut has length %d, want %d", len(wOut), sampleCount*d)
	}
	if len(yOut) != sampleCount*n*d {
		return fmt.Errorf("batch: yOut has length %d, want %d", len(yOut), sampleCount*n*d)
	}

	workers := bs.workerCount()
	var done int64

	parallel.ForChunks(0, sampleCount, workers, func(chunkStart, chunkEnd int) {
		w, err := sampler.NewWithWeights(d, s.EdgeLengths(), s.Rho(), sampler.Settings{Settings: s.SolverSettings()})
		if err != nil {
			panic(err)
		}

		for k := chunkStart; k < chunkEnd; k++ {
			x := xIn[k*n*d : (k+1)*n*d]
			if err := w.ReadInitialEdgeCoordinates(x, normalize); err != nil {
				panic(err)
			}

			w.ComputeShiftVector()
			w.Optimize()

			copy(wOut[k*d:(k+1)*d], w.ShiftVector())
			copy(yOut[k*n*d:(k+1)*n*d], w.EdgeCoordinates())
		}

		newDone := atomic.AddInt64(&done, int64(chunkEnd-chunkStart))
		bs.reportProgress(int(newDone), sampleCount)
	})

	return nil
}

// RandomClosedPolygons draws sampleCount independent random closed
// polygons from scratch: each worker seeds its own private RNG (from
// bs.RNGFactory when set, otherwise from system entropy) and its own
// Sampler, drawing random initial edge
// directions, converging, and computing both sampling weights.
// xOut/wOut/yOut/kEdge/kQuot are caller-allocated with the same shapes
// as in OptimizeBatch (kEdge, kQuot length sampleCount).
// Grounded on Sampler.hpp::RandomClosedPolygons.
func RandomClosedPolygons(s *sampler.Sampler, xOut, wOut, yOut, kEdge, kQuot []float64, sampleCount int, bs Settings) error {
	d, n := s.AmbientDimension(), s.EdgeCount()

	if len(xOut) != sampleCount*n*d {
		return fmt.Errorf("batch: xOut has length %d, want %d", len(xOut), sampleCount*n*d)
	}
	if len(wOut) != sampleCount*d {
		return fmt.Errorf("batch: wOut has length %d, want %d", len(wOut), sampleCount*d)
	}
	if len(yOut) != sampleCount*n*d {
		return fmt.Errorf("batch: yOut has length %d, want %d", len(yOut), sampleCount*n*d)
	}
	if len(kEdge) != sampleCount || len(kQuot) != sampleCount {
		return fmt.Errorf("batch: kEdge/kQuot must have length %d", sampleCount)
	}

	workers := bs.workerCount()
	var done int64
	var chunkErr error

	parallel.ForChunks(0, sampleCount, workers, func(chunkStart, chunkEnd int) {
		w, err := sampler.NewWithWeights(d, s.EdgeLengths(), s.Rho(), sampler.Settings{Settings: s.SolverSettings()})
		if err != nil {
			panic(err)
		}
		rng, err := bs.newRNG(chunkStart)
		if err != nil {
			chunkErr = err
			return
		}

		for k := chunkStart; k < chunkEnd; k++ {
			w.RandomizeInitialEdgeCoordinates(rng)
			copy(xOut[k*n*d:(k+1)*n*d], w.InitialEdgeCoordinates())

			w.ComputeShiftVector()
			w.Optimize()

			copy(wOut[k*d:(k+1)*d], w.ShiftVector())
			copy(yOut[k*n*d:(k+1)*n*d], w.EdgeCoordinates())

			w.ComputeEdgeSpaceSamplingWeight()
			w.ComputeEdgeQuotientSpaceSamplingCorrection()

			kEdge[k] = w.EdgeSpaceSamplingWeight()
			kQuot[k] = w.EdgeQuotientSpaceSamplingWeight()
		}

		newDone := atomic.AddInt64(&done, int64(chunkEnd-chunkStart))
		bs.reportProgress(int(newDone), sampleCount)
	})

	return chunkErr
}

// SampleBinned draws sampleCount independent random closed polygons and
// bins each observable in obs into a histogram over its corresponding
// entry in ranges ([2]float64{low, high}), plus accumulates the first
// momentCount raw moments, each under all three sampling weights
// (uniform, edge-space, edge-quotient-space). Returns an error and does
// no work if len(obs) != len(ranges), or if any observable in obs
// implements observable.DimensionAware and declares a Dimension()
// other than s.AmbientDimension() (the dimension-mismatch abort spec.md
// §7 requires). Grounded on Sampler.hpp::Sample_Binned, whose C++
// analogue is a dynamic-downcast-and-abort against the
// RandomVariable<AmbDim,...> template parameter.
func SampleBinned(s *sampler.Sampler, obs []observable.Observable, ranges [][2]float64, binCount, momentCount, sampleCount int, bs Settings) (*Result, error) {
	if len(obs) != len(ranges) {
		return nil, fmt.Errorf("batch: obs has length %d, ranges has length %d", len(obs), len(ranges))
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("batch: obs must be non-empty")
	}
	if err := checkDimensions(s, obs); err != nil {
		return nil, err
	}

	if binCount < 1 {
		binCount = 1
	}
	if momentCount < 3 {
		momentCount = 3
	}

	funCount := len(obs)
	d, _ := s.AmbientDimension(), s.EdgeCount()

	result := newResult(funCount, binCount, momentCount, obs, ranges)

	factor := make([]float64, funCount)
	for i, r := range ranges {
		factor[i] = float64(binCount) / (r[1] - r[0])
	}

	workers := bs.workerCount()
	var done int64
	var chunkErr error
	var mu sync.Mutex
	var chunks []chunkAccumulator

	parallel.ForChunks(0, sampleCount, workers, func(chunkStart, chunkEnd int) {
		w, err := sampler.NewWithWeights(d, s.EdgeLengths(), s.Rho(), sampler.Settings{Settings: s.SolverSettings()})
		if err != nil {
			panic(err)
		}
		rng, err := bs.newRNG(chunkStart)
		if err != nil {
			chunkErr = err
			return
		}

		localFuncs := make([]observable.Observable, funCount)
		for i, f := range obs {
			localFuncs[i] = f.Clone()
		}
		needsSpace := false
		for _, f := range localFuncs {
			if f.RequiresSpaceCoordinates() {
				needsSpace = true
				break
			}
		}

		local := newAccumulator(funCount, binCount, momentCount)

		for k := chunkStart; k < chunkEnd; k++ {
			w.RandomizeInitialEdgeCoordinates(rng)
			w.ComputeShiftVector()
			w.Optimize()

			if needsSpace {
				w.ComputeSpaceCoordinates()
			}

			w.ComputeEdgeSpaceSamplingWeight()
			w.ComputeEdgeQuotientSpaceSamplingCorrection()

			kEdge := w.EdgeSpaceSamplingWeight()
			kQuot := w.EdgeQuotientSpaceSamplingWeight()

			for i, f := range localFuncs {
				val := f.Evaluate(w)
				local.accumulate(i, val, kEdge, kQuot, factor[i], ranges[i][0], binCount)
			}
		}

		mu.Lock()
		chunks = append(chunks, chunkAccumulator{start: chunkStart, acc: local})
		mu.Unlock()

		newDone := atomic.AddInt64(&done, int64(chunkEnd-chunkStart))
		bs.reportProgress(int(newDone), sampleCount)
	})

	if chunkErr != nil {
		return nil, chunkErr
	}

	// Merge in a fixed order (ascending chunk start, not goroutine
	// completion order) so the floating-point summation itself is
	// reproducible bit for bit under a fixed seed, not just the inputs
	// to it.
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].start < chunks[j].start })
	for _, c := range chunks {
		mergeAccumulator(result, c.acc)
	}

	return result, nil
}

// chunkAccumulator pairs a worker chunk's starting sample index with
// the local accumulator it produced, so SampleBinned can sort chunks
// back into a deterministic merge order after they finish out of order.
type chunkAccumulator struct {
	start int
	acc   *accumulator
}

// checkDimensions rejects any observable that declares (via the
// optional observable.DimensionAware interface) an ambient dimension
// other than s's, before a single sample is drawn.
func checkDimensions(s *sampler.Sampler, obs []observable.Observable) error {
	d := s.AmbientDimension()
	for i, f := range obs {
		aware, ok := f.(observable.DimensionAware)
		if !ok {
			continue
		}
		if want := aware.Dimension(); want != d {
			return fmt.Errorf("batch: obs[%d] (%s) is dimension %d, sampler is dimension %d", i, f.Tag(), want, d)
		}
	}
	return nil
}
