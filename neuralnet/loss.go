package neuralnet

import "derpinns/autograd"

// LossFunction reduces a prediction against its target to a scalar loss.
type LossFunction interface {
	// Compute returns the loss of output against target. Both have the same length.
	Compute(output []*autograd.Var, target []*autograd.Var) *autograd.Var
}

// MeanSquaredError is the mean of (output - target)^2. An empty pair has zero loss.
type MeanSquaredError struct{}

func (mse *MeanSquaredError) Compute(output []*autograd.Var, target []*autograd.Var) *autograd.Var {
	diff := make([]*autograd.Var, len(output))
	for i := range output {
		diff[i] = autograd.Sub(output[i], target[i])
	}
	return autograd.MeanSquare(diff)
}
