package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"derpinns/sampling"
)

// Config describes how many collocation points of each type to draw.
type Config struct {
	Interior int
	Initial  int
	// Boundary is the number of points on each side of each asset.
	Boundary int
	Sampler  string
	Seed     uint64
	// Payoff is the initial condition u(x, 0). Nil selects BasketCall.
	Payoff func(x []float64) float64
	// BottomBoundary, when set, supplies targets on the bottom boundary of
	// asset i, typically the solution of the problem without asset i.
	BottomBoundary func(x []float64, i int) float64
}

// DefaultConfig is a small configuration suitable for experiments.
func DefaultConfig() Config {
	return Config{Interior: 64, Initial: 16, Boundary: 8, Sampler: sampling.Halton}
}

// BasketCall is max(mean_i e^{x_i} - 1, 0), the dimensionless payoff of an
// equally weighted basket call struck at K.
func BasketCall(x []float64) float64 {
	mean := 0.0
	for _, xi := range x {
		mean += math.Exp(xi)
	}
	return math.Max(mean/float64(len(x))-1, 0)
}

// MaxCall is max(max_i e^{x_i} - 1, 0), the call on the best of the assets.
// On a bottom boundary with e^{XMin} < 1 it equals the payoff of the problem
// without that asset, so lower dimensional solutions can be reused there.
func MaxCall(x []float64) float64 {
	best := math.Inf(-1)
	for _, xi := range x {
		best = math.Max(best, xi)
	}
	return math.Max(math.Exp(best)-1, 0)
}

// SampledDataset holds every collocation point of a problem in one Batch.
type SampledDataset struct {
	Params *Params
	Config Config
	data   *Batch
}

// NewSampledDataset draws all points described by cfg.
func NewSampledDataset(params *Params, cfg Config) (*SampledDataset, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if cfg.Interior < 0 || cfg.Initial < 0 || cfg.Boundary < 0 {
		return nil, fmt.Errorf("dataset: negative point counts in %+v", cfg)
	}
	if cfg.Sampler == "" {
		cfg.Sampler = sampling.Halton
	}
	if cfg.Payoff == nil {
		cfg.Payoff = BasketCall
	}

	n := params.NAssets
	width := MaskWidth(n)
	ranges := params.DomainRanges()
	var (
		xs    [][]float64
		ys    []float64
		masks [][]bool
	)
	add := func(pts *mat.Dense, column int, target func(p []float64) float64) {
		if pts == nil {
			return
		}
		rows, _ := pts.Dims()
		for r := 0; r < rows; r++ {
			p := append([]float64(nil), pts.RawRowView(r)...)
			m := make([]bool, width)
			m[column] = true
			xs = append(xs, p)
			ys = append(ys, target(p))
			masks = append(masks, m)
		}
	}
	draw := func(count int, seed uint64) (*mat.Dense, error) {
		if count == 0 {
			return nil, nil
		}
		return sampling.Draw(cfg.Sampler, count, ranges, cfg.Seed+seed)
	}
	zero := func([]float64) float64 { return 0 }

	interior, err := draw(cfg.Interior, 0)
	if err != nil {
		return nil, err
	}
	add(interior, InteriorColumn, zero)

	initial, err := draw(cfg.Initial, 1)
	if err != nil {
		return nil, err
	}
	if initial != nil {
		rows, _ := initial.Dims()
		for r := 0; r < rows; r++ {
			initial.Set(r, n, 0)
		}
	}
	add(initial, InitialColumn, func(p []float64) float64 { return cfg.Payoff(p[:n]) })

	for i := 0; i < n; i++ {
		top, err := draw(cfg.Boundary, uint64(2+2*i))
		if err != nil {
			return nil, err
		}
		pin(top, i, params.XMax)
		add(top, TopColumn(i), zero)

		bottom, err := draw(cfg.Boundary, uint64(3+2*i))
		if err != nil {
			return nil, err
		}
		pin(bottom, i, params.XMin)
		asset := i
		bottomTarget := zero
		if cfg.BottomBoundary != nil {
			bottomTarget = func(p []float64) float64 { return cfg.BottomBoundary(p, asset) }
		}
		add(bottom, BottomColumn(i), bottomTarget)
	}

	data, err := NewBatch(xs, ys, masks)
	if err != nil {
		return nil, err
	}
	return &SampledDataset{Params: params, Config: cfg, data: data}, nil
}

func pin(pts *mat.Dense, column int, value float64) {
	if pts == nil {
		return
	}
	rows, _ := pts.Dims()
	for r := 0; r < rows; r++ {
		pts.Set(r, column, value)
	}
}

// NewFromBatch wraps an existing batch, for instance one read by LoadBatch.
func NewFromBatch(params *Params, data *Batch) (*SampledDataset, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if data.Dim() != params.Dim() {
		return nil, fmt.Errorf("dataset: batch width %d, want %d", data.Dim(), params.Dim())
	}
	return &SampledDataset{Params: params, data: data}, nil
}

// Len is the number of points.
func (d *SampledDataset) Len() int {
	return d.data.Len()
}

// All returns the full batch. Callers must not modify it.
func (d *SampledDataset) All() *Batch {
	return d.data
}

// WithoutAsset projects points onto the problem without asset i: coordinate i
// is removed. Used to evaluate a lower dimensional solution on a bottom boundary.
func WithoutAsset(x []float64, i int) []float64 {
	out := make([]float64, 0, len(x)-1)
	out = append(out, x[:i]...)
	return append(out, x[i+1:]...)
}
