package closure

import (
	"math"
	"testing"

	"gorgonia.org/tensor"

	"derpinns/autograd"
	"derpinns/dataset"
	"derpinns/neuralnet"
)

func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func testParams(t *testing.T, n int) *dataset.Params {
	t.Helper()
	sigma := make([]float64, n)
	for i := range sigma {
		sigma[i] = 0.2 + 0.1*float64(i)
	}
	p, err := dataset.NewParams(sigma, 0.05, dataset.UniformCorrelation(n, 0.5))
	if err != nil {
		t.Fatalf("NewParams returned an unexpected error: %v", err)
	}
	return p
}

// polyModel is u = x0^2 + 3 x0 x1 - x1^2 + x0 + 2 tau on two assets, with
// u_x = (2x0 + 3x1 + 1, 3x0 - 2x1), u_tau = 2 and u_xx = [[2, 3], [3, -2]].
type polyModel struct{}

func (polyModel) Forward(x []*autograd.Var) []*autograd.Var {
	return []*autograd.Var{autograd.Sum(
		autograd.Square(x[0]),
		autograd.Scale(autograd.Mul(x[0], x[1]), 3),
		autograd.Neg(autograd.Square(x[1])),
		x[0],
		autograd.Scale(x[2], 2),
	)}
}

// nanModel diverged.
type nanModel struct{}

func (nanModel) Forward(x []*autograd.Var) []*autograd.Var {
	return []*autograd.Var{autograd.Mul(x[0], autograd.Const(math.NaN()))}
}

// firstOrderPoly returns polyModel's u followed by a deliberately wrong
// estimate of its first derivatives: (u_x0 + 1, u_x1, u_tau).
type firstOrderPoly struct{}

func (firstOrderPoly) Forward(x []*autograd.Var) []*autograd.Var {
	u := polyModel{}.Forward(x)[0]
	ux0 := autograd.Sum(autograd.Scale(x[0], 2), autograd.Scale(x[1], 3), autograd.Const(2))
	ux1 := autograd.Sub(autograd.Scale(x[0], 3), autograd.Scale(x[1], 2))
	return []*autograd.Var{u, ux0, ux1, autograd.Const(2)}
}

// noopOptimizer only evaluates the closure.
type noopOptimizer struct{}

func (noopOptimizer) Step(closure neuralnet.Closure) (float64, error) {
	loss, err := closure()
	if err != nil {
		return 0, err
	}
	return loss.Value(), nil
}

// batchOf builds a batch where row k is marked in columns[k] only; -1 marks nothing.
func batchOf(t *testing.T, nAssets int, x [][]float64, y []float64, columns []int) *dataset.Batch {
	t.Helper()
	mask := make([][]bool, len(x))
	for k := range mask {
		mask[k] = make([]bool, dataset.MaskWidth(nAssets))
		if columns[k] >= 0 {
			mask[k][columns[k]] = true
		}
	}
	b, err := dataset.NewBatch(x, y, mask)
	if err != nil {
		t.Fatalf("NewBatch returned an unexpected error: %v", err)
	}
	return b
}

func configure(t *testing.T, c *Closure, model Model, params *dataset.Params, b *dataset.Batch) *Closure {
	t.Helper()
	data, err := dataset.NewFromBatch(params, b)
	if err != nil {
		t.Fatalf("NewFromBatch returned an unexpected error: %v", err)
	}
	c = c.WithDevice(CPU).
		WithDType(tensor.Float64).
		WithModel(model).
		WithOptimizer(noopOptimizer{}).
		WithDataset(data, dataset.LoaderOptions{})
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate returned an unexpected error: %v", err)
	}
	return c
}

func coords(rows ...[]float64) *tensor.Dense {
	var data []float64
	for _, r := range rows {
		data = append(data, r...)
	}
	return tensor.New(tensor.WithShape(len(rows), len(rows[0])), tensor.WithBacking(data))
}

func nan() float64 {
	return math.NaN()
}
