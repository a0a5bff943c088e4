package sampler

import (
	"fmt"
	"math"

	"github.com/cobars/cobars/internal/parallel"
	"github.com/cobars/cobars/internal/rand"
)

// RandomSphericalPoints fills out (row-major sampleCount*d) with
// sampleCount independent uniform random points on the unit
// (d-1)-sphere in R^d, partitioning the work across threadCount
// goroutines, each seeded from its own entropy source. threadCount<=0
// selects parallel.NumWorkers(), the GOMAXPROCS default.
//
// This is the bulk, sampler-independent direction generator spec.md §6
// names alongside the per-Sampler RandomizeInitialEdgeCoordinates:
// where RandomizeInitialEdgeCoordinates fills one sampler's n edge
// directions from a caller-supplied RNG, RandomSphericalPoints draws
// sampleCount standalone directions with its own internally managed,
// per-worker RNGs — the shape original_source/src/Sampler.hpp's own
// RandomSphericalPoints(x_out, sample_count, thread_count) uses for its
// thread_count>1 branch (a fresh std::mt19937_64 seeded from
// std::random_device per OpenMP thread).
func RandomSphericalPoints(out []float64, d, sampleCount, threadCount int) error {
	if d <= 0 {
		return fmt.Errorf("sampler: ambient dimension must be positive, got %d", d)
	}
	if len(out) != sampleCount*d {
		return fmt.Errorf("sampler: out has length %d, want %d", len(out), sampleCount*d)
	}
	if threadCount <= 0 {
		threadCount = parallel.NumWorkers()
	}

	var chunkErr error
	parallel.ForChunks(0, sampleCount, threadCount, func(chunkStart, chunkEnd int) {
		if chunkErr != nil {
			return
		}
		rng, err := rand.NewFromEntropy()
		if err != nil {
			chunkErr = err
			return
		}

		for k := chunkStart; k < chunkEnd; k++ {
			buf := out[k*d : k*d+d]
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
	})

	return chunkErr
}
