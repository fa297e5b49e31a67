package neuralnet

import (
	"errors"
	"math"

	"derpinns/autograd"
)

// Closure evaluates the training objective once. The optimizer calls it, runs
// the backward pass and updates its parameters.
type Closure func() (*autograd.Var, error)

// Optimizer applies one update to its parameters from the loss a closure produces.
type Optimizer interface {
	Step(closure Closure) (float64, error)
}

func zeroGrad(params []*autograd.Var) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

func evaluate(params []*autograd.Var, closure Closure) (float64, error) {
	if closure == nil {
		return 0, errors.New("nil closure")
	}
	zeroGrad(params)
	loss, err := closure()
	if err != nil {
		return 0, err
	}
	autograd.Backward(loss)
	return loss.Value(), nil
}

// SGD implements gradient descent with L2 regularization.
type SGD struct {
	params []*autograd.Var
	Lr     float64
	L2     float64
}

func NewSGD(params []*autograd.Var, lr float64, l2 float64) (*SGD, error) {
	if lr <= 0 {
		return nil, errors.New("invalid learning rate")
	}
	if len(params) == 0 {
		return nil, errors.New("no parameters to optimize")
	}
	return &SGD{params: params, Lr: lr, L2: l2}, nil
}

// Step runs the closure, backpropagates and updates every parameter.
func (o *SGD) Step(closure Closure) (float64, error) {
	loss, err := evaluate(o.params, closure)
	if err != nil {
		return 0, err
	}
	for _, p := range o.params {
		w := p.Value()
		p.SetValue(w - o.Lr*(p.Grad()+o.L2*w))
	}
	return loss, nil
}

// Adam keeps first and second moment estimates per parameter.
type Adam struct {
	params []*autograd.Var
	M, V   []float64
	LR     float64
	Beta1  float64 // Typically 0.9
	Beta2  float64 // Typically 0.999
	Eps    float64
	T      int // Timestep (for bias correction)
}

func NewAdam(params []*autograd.Var, lr float64) (*Adam, error) {
	if lr <= 0 {
		return nil, errors.New("invalid learning rate")
	}
	if len(params) == 0 {
		return nil, errors.New("no parameters to optimize")
	}
	return &Adam{
		params: params,
		M:      make([]float64, len(params)),
		V:      make([]float64, len(params)),
		LR:     lr,
		Beta1:  0.9,
		Beta2:  0.999,
		Eps:    1e-8,
	}, nil
}

func (opt *Adam) Step(closure Closure) (float64, error) {
	loss, err := evaluate(opt.params, closure)
	if err != nil {
		return 0, err
	}
	opt.T++
	bc1 := 1.0 - math.Pow(opt.Beta1, float64(opt.T))
	bc2 := 1.0 - math.Pow(opt.Beta2, float64(opt.T))

	for i, p := range opt.params {
		g := p.Grad()
		opt.M[i] = opt.Beta1*opt.M[i] + (1-opt.Beta1)*g
		opt.V[i] = opt.Beta2*opt.V[i] + (1-opt.Beta2)*g*g

		mHat := opt.M[i] / bc1
		vHat := opt.V[i] / bc2
		p.SetValue(p.Value() - opt.LR*mHat/(math.Sqrt(vHat)+opt.Eps))
	}
	return loss, nil
}
