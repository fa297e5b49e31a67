package closure

import (
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	"derpinns/dataset"
	"derpinns/sampling"
)

// BatchHook prepares a freshly loaded batch before any loss is computed.
type BatchHook interface {
	Prepare(env *Env, b *dataset.Batch) error
}

// loaderChecker is implemented by hooks that only work with some loaders.
type loaderChecker interface {
	CheckLoader(opts dataset.LoaderOptions, size int) error
}

// AdaptiveResampler replaces the interior points of every batch with a sample
// drawn where the current interior residual is largest. The candidate pool is
// drawn independently of the batch, so the batch must be the full dataset.
type AdaptiveResampler struct {
	Options sampling.Options
	calls   uint64
}

func NewAdaptiveResampler(opts sampling.Options) *AdaptiveResampler {
	return &AdaptiveResampler{Options: opts}
}

func (a *AdaptiveResampler) CheckLoader(opts dataset.LoaderOptions, size int) error {
	if !opts.FullBatch(size) {
		return ErrIncompatibleLoader
	}
	return nil
}

// residual evaluates the interior residual at candidate points. Only the
// values are returned; the graph built for them is dropped.
func (a *AdaptiveResampler) residual(env *Env) sampling.ResidualFunc {
	return func(x *mat.Dense) ([]float64, error) {
		rows, cols := x.Dims()
		data := make([]float64, 0, rows*cols)
		for i := 0; i < rows; i++ {
			data = append(data, x.RawRowView(i)...)
		}
		d, err := env.Engine.Derivatives(tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data)))
		if err != nil {
			return nil, err
		}
		r := make([]float64, rows)
		for i := range r {
			r[i] = env.Residuals.Interior(d.Point(i)).Value()
		}
		return r, nil
	}
}

// Prepare overwrites the interior rows of b in place.
func (a *AdaptiveResampler) Prepare(env *Env, b *dataset.Batch) error {
	rows := b.Rows(dataset.InteriorColumn)
	if len(rows) == 0 {
		return nil
	}
	opts := a.Options
	opts.Seed += a.calls
	a.calls++
	x, err := sampling.ResidualBasedAdaptive(a.residual(env), len(rows), env.Params.DomainRanges(), opts)
	if err != nil {
		return err
	}
	for k, row := range rows {
		b.SetPoint(row, x.RawRowView(k))
	}
	return nil
}
