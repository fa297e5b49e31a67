package neuralnet

import "derpinns/autograd"

// ActivationFunction is applied to every neuron output of a layer. It must be
// built from autograd operations so that second derivatives flow through it.
type ActivationFunction interface {
	Activate(x *autograd.Var) *autograd.Var
}

type ReLU struct{}

func (r ReLU) Activate(x *autograd.Var) *autograd.Var {
	return autograd.ReLU(x)
}

type LeakyReLU struct {
	alpha float64
}

func NewLeakyReLU(alpha float64) LeakyReLU {
	return LeakyReLU{alpha: alpha}
}

func (l LeakyReLU) Activate(x *autograd.Var) *autograd.Var {
	return autograd.LeakyReLU(x, l.alpha)
}

type Sigmoid struct{}

func (s Sigmoid) Activate(x *autograd.Var) *autograd.Var {
	return autograd.Sigmoid(x)
}

// Tanh is the default hidden activation: PDE residuals need a non-zero
// second derivative, which rules out ReLU for hidden layers.
type Tanh struct{}

func (t Tanh) Activate(x *autograd.Var) *autograd.Var {
	return autograd.Tanh(x)
}

type Linear struct{}

func (t Linear) Activate(x *autograd.Var) *autograd.Var {
	return x
}
