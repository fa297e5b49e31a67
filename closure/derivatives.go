package closure

import (
	"fmt"

	"gorgonia.org/tensor"

	"derpinns/autograd"
)

// Model is the differentiable surrogate: one coordinate row in, its outputs out.
type Model interface {
	Forward(x []*autograd.Var) []*autograd.Var
}

// Derivatives holds u and its derivatives for every point of a batch:
// U and UTau are [batch], UX is [batch][n] and UXX is [batch][n][n].
type Derivatives struct {
	U    []*autograd.Var
	UTau []*autograd.Var
	UX   [][]*autograd.Var
	UXX  [][][]*autograd.Var
}

// Point returns the derivative tuple of point i.
func (d Derivatives) Point(i int) Point {
	return Point{U: d.U[i], UTau: d.UTau[i], UX: d.UX[i], UXX: d.UXX[i]}
}

// Len is the number of points.
func (d Derivatives) Len() int {
	return len(d.U)
}

// FirstOrderDerivatives adds the model's own derivative estimates. UTau and
// UX of the embedded Derivatives are the predicted ones and UXX is derived
// from them; UTauTrue and UXTrue come from differentiating U.
type FirstOrderDerivatives struct {
	Derivatives
	UTauTrue []*autograd.Var
	UXTrue   [][]*autograd.Var
}

// Engine differentiates a model with respect to its input coordinates.
type Engine struct {
	model   Model
	nAssets int
	dtype   tensor.Dtype
}

func NewEngine(model Model, nAssets int, dtype tensor.Dtype) *Engine {
	return &Engine{model: model, nAssets: nAssets, dtype: dtype}
}

// inputs lifts every coordinate of x into a leaf that requires gradients.
func (e *Engine) inputs(x *tensor.Dense) ([][]*autograd.Var, []*autograd.Var, error) {
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != e.nAssets+1 {
		return nil, nil, fmt.Errorf("closure: coordinates of shape %v, want [batch %d]", shape, e.nAssets+1)
	}
	data := x.Float64s()
	rows := make([][]*autograd.Var, shape[0])
	flat := make([]*autograd.Var, 0, len(data))
	for i := range rows {
		rows[i] = make([]*autograd.Var, shape[1])
		for j := range rows[i] {
			v := data[i*shape[1]+j]
			if e.dtype == tensor.Float32 {
				v = float64(float32(v))
			}
			rows[i][j] = autograd.Leaf(v)
			flat = append(flat, rows[i][j])
		}
	}
	return rows, flat, nil
}

func (e *Engine) forward(rows [][]*autograd.Var, width int) ([][]*autograd.Var, error) {
	out := make([][]*autograd.Var, len(rows))
	for i, row := range rows {
		out[i] = e.model.Forward(row)
		if len(out[i]) < width {
			return nil, fmt.Errorf("closure: model returned %d outputs, want %d", len(out[i]), width)
		}
	}
	return out, nil
}

// split cuts a flat gradient over all inputs into the spatial part and the time part.
func (e *Engine) split(flat []*autograd.Var, batch int) ([][]*autograd.Var, []*autograd.Var) {
	dim := e.nAssets + 1
	ux := make([][]*autograd.Var, batch)
	utau := make([]*autograd.Var, batch)
	for i := 0; i < batch; i++ {
		ux[i] = flat[i*dim : i*dim+e.nAssets]
		utau[i] = flat[i*dim+e.nAssets]
	}
	return ux, utau
}

// hessian differentiates every column of ux once more. All passes share the
// graph built by the forward pass and the first gradient.
func (e *Engine) hessian(ux [][]*autograd.Var, flat []*autograd.Var) [][][]*autograd.Var {
	batch := len(ux)
	uxx := make([][][]*autograd.Var, batch)
	for i := range uxx {
		uxx[i] = make([][]*autograd.Var, e.nAssets)
	}
	column := make([]*autograd.Var, batch)
	for j := 0; j < e.nAssets; j++ {
		for i := range ux {
			column[i] = ux[i][j]
		}
		row, _ := e.split(autograd.Grad(column, flat, autograd.CreateGraph()), batch)
		for i := range uxx {
			uxx[i][j] = row[i]
		}
	}
	return uxx
}

// Derivatives evaluates the model on x and returns u, u_tau, u_x and u_xx.
func (e *Engine) Derivatives(x *tensor.Dense) (Derivatives, error) {
	rows, flat, err := e.inputs(x)
	if err != nil {
		return Derivatives{}, err
	}
	out, err := e.forward(rows, 1)
	if err != nil {
		return Derivatives{}, err
	}
	u := make([]*autograd.Var, len(out))
	for i := range out {
		u[i] = out[i][0]
	}

	ux, utau := e.split(autograd.Grad(u, flat, autograd.CreateGraph()), len(rows))
	d := Derivatives{U: u, UTau: utau, UX: ux, UXX: e.hessian(ux, flat)}
	if err := CheckFinite(d); err != nil {
		return Derivatives{}, err
	}
	return d, nil
}

// FirstOrderDerivatives evaluates a model whose output is u followed by its
// own estimate of (u_x, u_tau).
func (e *Engine) FirstOrderDerivatives(x *tensor.Dense) (FirstOrderDerivatives, error) {
	rows, flat, err := e.inputs(x)
	if err != nil {
		return FirstOrderDerivatives{}, err
	}
	out, err := e.forward(rows, e.nAssets+2)
	if err != nil {
		return FirstOrderDerivatives{}, err
	}
	batch := len(rows)
	u := make([]*autograd.Var, batch)
	uxHat := make([][]*autograd.Var, batch)
	utauHat := make([]*autograd.Var, batch)
	for i := range out {
		u[i] = out[i][0]
		uxHat[i] = out[i][1 : 1+e.nAssets]
		utauHat[i] = out[i][1+e.nAssets]
	}

	uxTrue, utauTrue := e.split(autograd.Grad(u, flat, autograd.CreateGraph()), batch)
	d := FirstOrderDerivatives{
		Derivatives: Derivatives{U: u, UTau: utauHat, UX: uxHat, UXX: e.hessian(uxHat, flat)},
		UTauTrue:    utauTrue,
		UXTrue:      uxTrue,
	}
	if err := CheckFinite(d.Derivatives); err != nil {
		return FirstOrderDerivatives{}, err
	}
	if autograd.AnyNaN(utauTrue) {
		return FirstOrderDerivatives{}, &NumericalError{Quantity: "u_tau_true"}
	}
	for _, row := range uxTrue {
		if autograd.AnyNaN(row) {
			return FirstOrderDerivatives{}, &NumericalError{Quantity: "u_x_true"}
		}
	}
	return d, nil
}

// Predict evaluates u on x without recording a graph.
func (e *Engine) Predict(x *tensor.Dense) ([]float64, error) {
	var (
		u   []float64
		err error
	)
	autograd.NoGrad(func() {
		var rows [][]*autograd.Var
		if rows, _, err = e.inputs(x); err != nil {
			return
		}
		var out [][]*autograd.Var
		if out, err = e.forward(rows, 1); err != nil {
			return
		}
		u = make([]float64, len(out))
		for i := range out {
			u[i] = out[i][0].Value()
		}
	})
	return u, err
}

// CheckFinite reports a *NumericalError for the first NaN it finds, checking
// u_tau, u_x, u_xx and u in that order.
func CheckFinite(d Derivatives) error {
	if autograd.AnyNaN(d.UTau) {
		return &NumericalError{Quantity: "u_tau"}
	}
	for _, row := range d.UX {
		if autograd.AnyNaN(row) {
			return &NumericalError{Quantity: "u_x"}
		}
	}
	for _, m := range d.UXX {
		for _, row := range m {
			if autograd.AnyNaN(row) {
				return &NumericalError{Quantity: "u_xx"}
			}
		}
	}
	if autograd.AnyNaN(d.U) {
		return &NumericalError{Quantity: "u"}
	}
	return nil
}
