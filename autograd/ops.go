package autograd

import "math"

// Add returns a + b.
func Add(a, b *Var) *Var {
	return newOp(a.value+b.value, edge{node: a, d: 1}, edge{node: b, d: 1})
}

// Sub returns a - b.
func Sub(a, b *Var) *Var {
	return newOp(a.value-b.value, edge{node: a, d: 1}, edge{node: b, d: -1})
}

// Neg returns -a.
func Neg(a *Var) *Var {
	return Scale(a, -1)
}

// Mul returns a * b.
func Mul(a, b *Var) *Var {
	return newOp(a.value*b.value,
		edge{node: a, d: b.value, dv: b},
		edge{node: b, d: a.value, dv: a})
}

// Div returns a / b.
func Div(a, b *Var) *Var {
	return newOp(a.value/b.value,
		edge{node: a, d: 1 / b.value, partial: func() *Var { return Div(Const(1), b) }},
		edge{node: b, d: -a.value / (b.value * b.value), partial: func() *Var { return Neg(Div(a, Square(b))) }})
}

// Scale returns c * a for a constant c.
func Scale(a *Var, c float64) *Var {
	return newOp(c*a.value, edge{node: a, d: c})
}

// Shift returns a + c for a constant c.
func Shift(a *Var, c float64) *Var {
	return newOp(a.value+c, edge{node: a, d: 1})
}

// Square returns a * a.
func Square(a *Var) *Var {
	return newOp(a.value*a.value, edge{node: a, d: 2 * a.value, partial: func() *Var { return Scale(a, 2) }})
}

// Exp returns e^a.
func Exp(a *Var) *Var {
	value := math.Exp(a.value)
	out := newOp(value, edge{node: a, d: value})
	if out.requires {
		out.parents[0].dv = out
	}
	return out
}

// Log returns the natural logarithm of a.
func Log(a *Var) *Var {
	return newOp(math.Log(a.value), edge{node: a, d: 1 / a.value, partial: func() *Var { return Div(Const(1), a) }})
}

// Tanh returns the hyperbolic tangent of a.
func Tanh(a *Var) *Var {
	t := math.Tanh(a.value)
	var out *Var
	out = newOp(t, edge{node: a, d: 1 - t*t, partial: func() *Var {
		return Sub(Const(1), Square(out))
	}})
	return out
}

// Sigmoid returns 1 / (1 + e^-a).
func Sigmoid(a *Var) *Var {
	s := 1 / (1 + math.Exp(-a.value))
	var out *Var
	out = newOp(s, edge{node: a, d: s * (1 - s), partial: func() *Var {
		return Mul(out, Sub(Const(1), out))
	}})
	return out
}

// ReLU returns max(a, 0). Its second derivative is zero everywhere.
func ReLU(a *Var) *Var {
	step := 0.0
	if a.value > 0 {
		step = 1
	}
	return newOp(a.value*step, edge{node: a, d: step})
}

// LeakyReLU returns a for positive a and alpha*a otherwise.
func LeakyReLU(a *Var, alpha float64) *Var {
	slope := alpha
	if a.value > 0 {
		slope = 1
	}
	return newOp(a.value*slope, edge{node: a, d: slope})
}

// Sum adds all of vs. The empty sum is zero.
func Sum(vs ...*Var) *Var {
	if len(vs) == 0 {
		return Zero()
	}
	total := 0.0
	edges := make([]edge, len(vs))
	for i, v := range vs {
		total += v.value
		edges[i] = edge{node: v, d: 1}
	}
	return newOp(total, edges...)
}

// Mean averages vs. The mean of nothing is zero.
func Mean(vs ...*Var) *Var {
	if len(vs) == 0 {
		return Zero()
	}
	return Scale(Sum(vs...), 1/float64(len(vs)))
}

// MeanSquare returns the mean of the squares of vs, or zero when vs is empty.
func MeanSquare(vs []*Var) *Var {
	if len(vs) == 0 {
		return Zero()
	}
	sq := make([]*Var, len(vs))
	for i, v := range vs {
		sq[i] = Square(v)
	}
	return Mean(sq...)
}

// Affine returns bias + sum_i w[i]*x[i] as a single node.
func Affine(w, x []*Var, bias *Var) *Var {
	total := bias.value
	edges := make([]edge, 0, 2*len(w)+1)
	edges = append(edges, edge{node: bias, d: 1})
	for i := range w {
		total += w[i].value * x[i].value
		edges = append(edges,
			edge{node: w[i], d: x[i].value, dv: x[i]},
			edge{node: x[i], d: w[i].value, dv: w[i]})
	}
	return newOp(total, edges...)
}
