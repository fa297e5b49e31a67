package autograd

type gradConfig struct {
	createGraph bool
}

// GradOption tunes a Grad call.
type GradOption func(*gradConfig)

// CreateGraph records the gradient computation itself, so the returned
// gradients can be differentiated again.
func CreateGraph() GradOption {
	return func(c *gradConfig) { c.createGraph = true }
}

// traversal counts topological sorts; a node belongs to the current one when
// its mark equals it.
var traversal uint64

// topo returns the nodes reachable from outputs through edges that require
// gradients, every parent ahead of its children. Each returned node's order
// field is its index in the result.
func topo(outputs []*Var) []*Var {
	type frame struct {
		v    *Var
		next int
	}
	traversal++
	epoch := traversal
	var (
		order []*Var
		stack []frame
	)
	for _, out := range outputs {
		if !out.requires || out.mark == epoch {
			continue
		}
		out.mark = epoch
		stack = append(stack[:0], frame{v: out})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.v.parents) {
				p := top.v.parents[top.next].node
				top.next++
				if p.mark != epoch {
					p.mark = epoch
					stack = append(stack, frame{v: p})
				}
				continue
			}
			top.v.order = len(order)
			order = append(order, top.v)
			stack = stack[:len(stack)-1]
		}
	}
	return order
}

// reached reports whether v was sorted by the latest topo call.
func reached(v *Var) bool {
	return v.requires && v.mark == traversal
}

// adjoints runs the reverse sweep on numbers only.
func adjoints(outputs []*Var) ([]*Var, []float64) {
	order := topo(outputs)
	adj := make([]float64, len(order))
	for _, y := range outputs {
		if y.requires {
			adj[y.order]++
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		g := adj[i]
		if g == 0 {
			continue
		}
		for _, e := range order[i].parents {
			adj[e.node.order] += g * e.d
		}
	}
	return order, adj
}

// Grad returns d(sum(outputs))/d(input) for every input. Inputs the outputs do
// not depend on get a zero constant.
//
// Without CreateGraph the result is a set of constants. With it, the result is
// part of the graph and can be passed to Grad or Backward again.
func Grad(outputs, inputs []*Var, opts ...GradOption) []*Var {
	var cfg gradConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	grads := make([]*Var, len(inputs))
	if !cfg.createGraph {
		_, adj := adjoints(outputs)
		for i, x := range inputs {
			if reached(x) {
				grads[i] = Const(adj[x.order])
			} else {
				grads[i] = Zero()
			}
		}
		return grads
	}

	order := topo(outputs)
	epoch := traversal
	adj := make([]*Var, len(order))
	accumulate := func(v, g *Var) {
		if prev := adj[v.order]; prev != nil {
			adj[v.order] = Add(prev, g)
			return
		}
		adj[v.order] = g
	}
	for _, y := range outputs {
		if y.requires {
			accumulate(y, Const(1))
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		g := adj[i]
		if g == nil {
			continue
		}
		for _, e := range order[i].parents {
			var contrib *Var
			switch local := e.local(); {
			case local != nil:
				contrib = Mul(g, local)
			case e.d == 1:
				contrib = g
			default:
				contrib = Scale(g, e.d)
			}
			accumulate(e.node, contrib)
		}
	}
	for i, x := range inputs {
		if x.requires && x.mark == epoch && adj[x.order] != nil {
			grads[i] = adj[x.order]
		} else {
			grads[i] = Zero()
		}
	}
	return grads
}

// Backward accumulates d(output)/d(leaf) into every leaf that requires
// gradients. Call ZeroGrad on the leaves between steps.
func Backward(output *Var) {
	if !output.requires {
		return
	}
	order, adj := adjoints([]*Var{output})
	for i, n := range order {
		if n.leaf {
			n.grad += adj[i]
		}
	}
}
