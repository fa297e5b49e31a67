// Package sampling draws collocation points over a rectangular domain and
// implements residual-based adaptive resampling.
package sampling

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/samplemv"
)

// Sampler names accepted by Draw.
const (
	Halton         = "Halton"
	LatinHypercube = "LHS"
	Uniform        = "Uniform"
)

// Draw returns n points in the box described by ranges, one row per point.
func Draw(sampler string, n int, ranges []r1.Interval, seed uint64) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sampling: invalid number of points %d", n)
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("sampling: empty domain")
	}
	for i, r := range ranges {
		if !(r.Min < r.Max) {
			return nil, fmt.Errorf("sampling: empty range %d [%v, %v]", i, r.Min, r.Max)
		}
	}

	src := rand.NewSource(seed)
	box := distmv.NewUniform(ranges, src)
	batch := mat.NewDense(n, len(ranges), nil)
	switch sampler {
	case Halton:
		samplemv.Halton{Kind: samplemv.Owen, Q: box, Src: src}.Sample(batch)
	case LatinHypercube:
		samplemv.LatinHypercube{Q: box, Src: src}.Sample(batch)
	case Uniform:
		for i := 0; i < n; i++ {
			box.Rand(batch.RawRowView(i))
		}
	default:
		return nil, fmt.Errorf("sampling: unknown sampler %q", sampler)
	}
	return batch, nil
}
