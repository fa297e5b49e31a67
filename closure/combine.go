package closure

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"derpinns/autograd"
)

// Report is what a step records in the training state.
type Report struct {
	Interior float64
	Boundary float64
	Initial  float64
}

// Combiner reduces loss components to the scalar the optimizer minimises.
type Combiner interface {
	Combine(l Losses) (*autograd.Var, Report)
}

// StaticSum is interior + sum(boundary) + initial (+ compatibility).
type StaticSum struct{}

func (StaticSum) Combine(l Losses) (*autograd.Var, Report) {
	boundary := l.BoundarySum()
	terms := []*autograd.Var{l.Interior, boundary, l.Initial}
	if l.Compatibility != nil {
		terms = append(terms, l.Compatibility)
	}
	return autograd.Sum(terms...), Report{
		Interior: l.Interior.Value(),
		Boundary: boundary.Value(),
		Initial:  l.Initial.Value(),
	}
}

// BalancingOptions configure ReLoBRaLo.
type BalancingOptions struct {
	// Alpha is the exponential moving average coefficient.
	Alpha float64
	// Tau is the softmax temperature.
	Tau float64
	// RhoProb is the probability of keeping the historical weights rather
	// than looking back to the first step.
	RhoProb float64
	Seed    uint64
}

// DefaultBalancingOptions are the values recommended by Bischof & Kraus (2021).
func DefaultBalancingOptions() BalancingOptions {
	return BalancingOptions{Alpha: 0.999, Tau: 0.1, RhoProb: 0.999}
}

const balancingEpsilon = 1e-8

// BalancingState is carried from one step to the next. All vectors have one
// entry per loss term, ordered as Losses.Vector.
type BalancingState struct {
	Loss0      []float64
	LossPrev   []float64
	LambdaPrev []float64
}

// LossBalancer implements relative loss balancing with random lookback
// (ReLoBRaLo, https://arxiv.org/abs/2110.09813).
type LossBalancer struct {
	opts      BalancingOptions
	bernoulli distuv.Bernoulli
	State     BalancingState
}

func NewLossBalancer(opts BalancingOptions) *LossBalancer {
	return &LossBalancer{
		opts:      opts,
		bernoulli: distuv.Bernoulli{P: opts.RhoProb, Src: rand.NewSource(opts.Seed)},
	}
}

// BalancedWeights returns m * softmax(current / (tau*reference + eps)).
func BalancedWeights(current, reference []float64, tau float64) []float64 {
	m := float64(len(current))
	z := make([]float64, len(current))
	for i := range current {
		z[i] = current[i] / (tau*reference[i] + balancingEpsilon)
	}
	lse := floats.LogSumExp(z)
	for i := range z {
		z[i] = m * math.Exp(z[i]-lse)
	}
	return z
}

// update advances the state with the current loss values and returns the
// weights to apply to them. It runs outside the graph.
func (lb *LossBalancer) update(current []float64, rho float64) []float64 {
	m := len(current)
	if lb.State.Loss0 == nil {
		lb.State.Loss0 = append([]float64(nil), current...)
	}
	if lb.State.LossPrev == nil {
		lb.State.LossPrev = append([]float64(nil), current...)
	}
	if lb.State.LambdaPrev == nil {
		lb.State.LambdaPrev = make([]float64, m)
		floats.AddConst(1, lb.State.LambdaPrev)
	}

	bal0 := BalancedWeights(current, lb.State.Loss0, lb.opts.Tau)
	balPrev := BalancedWeights(current, lb.State.LossPrev, lb.opts.Tau)

	lambda := make([]float64, m)
	for i := range lambda {
		hist := rho*lb.State.LambdaPrev[i] + (1-rho)*bal0[i]
		lambda[i] = lb.opts.Alpha*hist + (1-lb.opts.Alpha)*balPrev[i]
	}
	lb.State.LambdaPrev = lambda
	lb.State.LossPrev = append([]float64(nil), current...)
	return lambda
}

// Combine weighs every term with the updated lambda. The reported values are
// the weighted ones.
func (lb *LossBalancer) Combine(l Losses) (*autograd.Var, Report) {
	rho := lb.bernoulli.Rand()
	terms := l.Vector()
	var lambda []float64
	autograd.NoGrad(func() {
		lambda = lb.update(autograd.Values(terms), rho)
	})

	weighted := make([]*autograd.Var, len(terms))
	values := make([]float64, len(terms))
	for i, term := range terms {
		weighted[i] = autograd.Scale(term, lambda[i])
		values[i] = weighted[i].Value()
	}
	if l.Compatibility != nil {
		weighted = append(weighted, l.Compatibility)
	}
	return autograd.Sum(weighted...), Report{
		Interior: values[0],
		Initial:  values[1],
		Boundary: floats.Sum(values[2:]),
	}
}
