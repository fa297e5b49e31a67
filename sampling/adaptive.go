package sampling

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// ResidualFunc evaluates the PDE residual at every row of x. The values are
// only used to rank points, they carry no gradient.
type ResidualFunc func(x *mat.Dense) ([]float64, error)

// Options configures ResidualBasedAdaptive.
type Options struct {
	// Sampler draws the candidate pool, see Draw.
	Sampler string
	// K sharpens the density: candidates are weighted by |r|^K.
	K float64
	// C is added to the normalised weights, keeping a uniform floor.
	C float64
	// PoolFactor is the size of the candidate pool relative to the number of
	// points requested. Values below 1 mean 10.
	PoolFactor int
	Seed       uint64
}

// DefaultOptions mirrors the usual RAD setting k=1, c=1 on a Halton pool.
func DefaultOptions() Options {
	return Options{Sampler: Halton, K: 1, C: 1, PoolFactor: 10}
}

// ResidualBasedAdaptive draws n points from a candidate pool, without
// replacement, with probability proportional to |r|^k / mean(|r|^k) + c
// (Wu et al., "A comprehensive study of non-adaptive and residual-based
// adaptive sampling for PINNs", 2023).
func ResidualBasedAdaptive(res ResidualFunc, n int, ranges []r1.Interval, opts Options) (*mat.Dense, error) {
	if res == nil {
		return nil, fmt.Errorf("sampling: nil residual function")
	}
	factor := opts.PoolFactor
	if factor < 1 {
		factor = 10
	}
	pool, err := Draw(opts.Sampler, n*factor, ranges, opts.Seed)
	if err != nil {
		return nil, err
	}
	r, err := res(pool)
	if err != nil {
		return nil, fmt.Errorf("sampling: residual: %w", err)
	}
	rows, dim := pool.Dims()
	if len(r) != rows {
		return nil, fmt.Errorf("sampling: residual returned %d values for %d points", len(r), rows)
	}

	weights := Density(r, opts.K, opts.C)
	picker := sampleuv.NewWeighted(weights, rand.NewSource(opts.Seed+1))
	out := mat.NewDense(n, dim, nil)
	for i := 0; i < n; i++ {
		idx, ok := picker.Take()
		if !ok {
			return nil, fmt.Errorf("sampling: candidate pool exhausted after %d points", i)
		}
		out.SetRow(i, pool.RawRowView(idx))
	}
	return out, nil
}

// Density returns the unnormalised RAD weights |r|^k / mean(|r|^k) + c. When
// every residual vanishes the weights are uniform.
func Density(r []float64, k, c float64) []float64 {
	w := make([]float64, len(r))
	for i, v := range r {
		w[i] = math.Pow(math.Abs(v), k)
		if math.IsNaN(w[i]) || math.IsInf(w[i], 0) {
			w[i] = 0
		}
	}
	mean := floats.Sum(w) / float64(len(w))
	if mean == 0 {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	floats.Scale(1/mean, w)
	floats.AddConst(c, w)
	return w
}
