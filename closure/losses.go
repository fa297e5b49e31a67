package closure

import (
	"derpinns/autograd"
	"derpinns/dataset"
	"derpinns/neuralnet"
)

// Env is what a strategy needs to evaluate a batch.
type Env struct {
	Engine    *Engine
	Residuals Residuals
	Params    *dataset.Params
}

// LossComputer turns a batch into loss components.
type LossComputer interface {
	ComputeLosses(env *Env, b *dataset.Batch) (Losses, error)
}

// pdeRule evaluates interior, initial and both boundaries through the
// residual functions.
func pdeRule(res Residuals, d Derivatives, b *dataset.Batch) SubsetRule {
	return func(s Subset) RowResidual {
		switch s.Kind {
		case InteriorSubset:
			return func(row int) *autograd.Var { return res.Interior(d.Point(row)) }
		case InitialSubset:
			return func(row int) *autograd.Var { return res.Initial(d.U[row], autograd.Const(b.Target(row))) }
		case TopSubset:
			return func(row int) *autograd.Var { return res.TopBoundary(d.Point(row), s.Asset) }
		case BottomSubset:
			return func(row int) *autograd.Var { return res.BottomBoundary(d.Point(row), s.Asset) }
		}
		return nil
	}
}

// StandardLosses is the PDE-residual form on every subset.
type StandardLosses struct{}

func (StandardLosses) ComputeLosses(env *Env, b *dataset.Batch) (Losses, error) {
	d, err := env.Engine.Derivatives(b.X)
	if err != nil {
		return Losses{}, err
	}
	return Aggregate(b, pdeRule(env.Residuals, d, b)), nil
}

// InteriorOnlyLosses drops every boundary term; boundary losses stay zero.
type InteriorOnlyLosses struct{}

func (InteriorOnlyLosses) ComputeLosses(env *Env, b *dataset.Batch) (Losses, error) {
	d, err := env.Engine.Derivatives(b.X)
	if err != nil {
		return Losses{}, err
	}
	rule := pdeRule(env.Residuals, d, b)
	return Aggregate(b, func(s Subset) RowResidual {
		if s.Kind == TopSubset || s.Kind == BottomSubset {
			return nil
		}
		return rule(s)
	}), nil
}

// BoundaryReuseLosses supervises the bottom boundary of asset i directly
// against the batch targets, the solution of the problem without asset i.
// The top boundary keeps the PDE form.
type BoundaryReuseLosses struct{}

func (BoundaryReuseLosses) ComputeLosses(env *Env, b *dataset.Batch) (Losses, error) {
	d, err := env.Engine.Derivatives(b.X)
	if err != nil {
		return Losses{}, err
	}
	rule := pdeRule(env.Residuals, d, b)
	return Aggregate(b, func(s Subset) RowResidual {
		if s.Kind == BottomSubset {
			return func(row int) *autograd.Var { return ValueMatch(d.U[row], autograd.Const(b.Target(row))) }
		}
		return rule(s)
	}), nil
}

// FirstOrderLosses evaluates the residuals with the model's own first
// derivatives and adds a compatibility loss between those and the ones
// obtained by differentiating u.
type FirstOrderLosses struct{}

func (FirstOrderLosses) ComputeLosses(env *Env, b *dataset.Batch) (Losses, error) {
	d, err := env.Engine.FirstOrderDerivatives(b.X)
	if err != nil {
		return Losses{}, err
	}
	l := Aggregate(b, pdeRule(env.Residuals, d.Derivatives, b))

	var hat, truth []*autograd.Var
	for i := range d.UX {
		hat = append(hat, d.UX[i]...)
		truth = append(truth, d.UXTrue[i]...)
	}
	mse := &neuralnet.MeanSquaredError{}
	l.Compatibility = autograd.Add(mse.Compute(d.UTau, d.UTauTrue), mse.Compute(hat, truth))
	return l, nil
}
