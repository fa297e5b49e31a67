// Package autograd implements reverse-mode automatic differentiation over
// scalar values.
//
// Every operation on a *Var that requires gradients records its parents and
// the local partial derivative with respect to each of them. The partials are
// themselves built from *Var operations, so a gradient taken with CreateGraph
// is again a differentiable expression: the Hessian of a model output is the
// gradient of its gradient, taken against the same graph.
//
// The graph is never freed by a gradient pass, which makes every pass behave
// like a retained graph. The package keeps a single gradient-recording switch
// (see NoGrad) and is meant to be driven from one goroutine.
package autograd

import (
	"fmt"
	"math"
)

// Var is a node of the computation graph.
type Var struct {
	value    float64
	grad     float64
	requires bool
	leaf     bool
	parents  []edge

	// mark is the traversal that last visited the node and order its
	// position in that traversal's topological order.
	mark  uint64
	order int
}

// edge links a node to one of its parents. d is the local derivative at the
// forward value. When the local derivative must itself be differentiable,
// dv holds it if it already exists as a node and partial builds it otherwise;
// with neither set it is the constant d.
type edge struct {
	node    *Var
	d       float64
	dv      *Var
	partial func() *Var
}

// local returns the local derivative as a node, or nil when it is the constant e.d.
func (e edge) local() *Var {
	if e.dv != nil {
		return e.dv
	}
	if e.partial != nil {
		return e.partial()
	}
	return nil
}

var noGradDepth int

// NoGrad runs fn with gradient recording switched off. Every Var created
// inside fn is a constant.
func NoGrad(fn func()) {
	noGradDepth++
	defer func() { noGradDepth-- }()
	fn()
}

// GradEnabled reports whether new operations record their parents.
func GradEnabled() bool {
	return noGradDepth == 0
}

// Const returns a Var that never requires gradients.
func Const(value float64) *Var {
	return &Var{value: value, leaf: true}
}

// Zero is shorthand for Const(0).
func Zero() *Var {
	return Const(0)
}

// Leaf returns a Var that requires gradients: a model parameter or an input
// coordinate we want derivatives against.
func Leaf(value float64) *Var {
	return &Var{value: value, leaf: true, requires: true}
}

// newOp keeps the edges whose parent requires gradients. It takes ownership
// of the edges slice.
func newOp(value float64, edges ...edge) *Var {
	v := &Var{value: value}
	if !GradEnabled() {
		return v
	}
	kept := edges[:0]
	for _, e := range edges {
		if e.node.requires {
			kept = append(kept, e)
		}
	}
	if len(kept) > 0 {
		v.parents = kept
		v.requires = true
	}
	return v
}

// Value returns the forward value.
func (v *Var) Value() float64 {
	return v.value
}

// SetValue overwrites the value of a leaf. Optimizers use it to update
// parameters between steps.
func (v *Var) SetValue(value float64) {
	if !v.leaf {
		panic("autograd: SetValue on a non-leaf Var")
	}
	v.value = value
}

// Grad returns the gradient accumulated by Backward.
func (v *Var) Grad() float64 {
	return v.grad
}

// ZeroGrad resets the accumulated gradient.
func (v *Var) ZeroGrad() {
	v.grad = 0
}

// RequiresGrad reports whether gradients flow through v.
func (v *Var) RequiresGrad() bool {
	return v.requires
}

// IsNaN reports whether the value is not-a-number.
func (v *Var) IsNaN() bool {
	return math.IsNaN(v.value)
}

func (v *Var) String() string {
	return fmt.Sprintf("Var(%g)", v.value)
}

// Values extracts the forward values of vs.
func Values(vs []*Var) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = v.value
	}
	return out
}

// Consts wraps every value in a constant.
func Consts(xs []float64) []*Var {
	out := make([]*Var, len(xs))
	for i, x := range xs {
		out[i] = Const(x)
	}
	return out
}

// Leaves wraps every value in a Var that requires gradients.
func Leaves(xs []float64) []*Var {
	out := make([]*Var, len(xs))
	for i, x := range xs {
		out[i] = Leaf(x)
	}
	return out
}

// AnyNaN reports whether any of vs is not-a-number.
func AnyNaN(vs []*Var) bool {
	for _, v := range vs {
		if v.IsNaN() {
			return true
		}
	}
	return false
}
