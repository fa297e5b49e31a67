package neuralnet

import (
	"errors"
	"testing"

	"derpinns/autograd"
)

func TestNewSGDInvalidLearningRate(t *testing.T) {
	params := []*autograd.Var{autograd.Leaf(1)}
	if _, err := NewSGD(params, 0, 0); err == nil {
		t.Error("NewSGD with lr=0 did not return error")
	}
	if _, err := NewSGD(params, -1, 0); err == nil {
		t.Error("NewSGD with lr=-1 did not return error")
	}
	if _, err := NewSGD(nil, 0.1, 0); err == nil {
		t.Error("NewSGD without parameters did not return error")
	}
}

func TestSGDStep(t *testing.T) {
	const epsilon = 1e-9
	w := autograd.Leaf(1.0)
	sgd, err := NewSGD([]*autograd.Var{w}, 0.1, 0.01)
	if err != nil {
		t.Fatalf("NewSGD returned an unexpected error: %v", err)
	}
	// loss = (2w - 1)^2, grad = 4(2w - 1) = 4
	loss, err := sgd.Step(func() (*autograd.Var, error) {
		return autograd.Square(autograd.Shift(autograd.Scale(w, 2), -1)), nil
	})
	if err != nil {
		t.Fatalf("SGD.Step returned an unexpected error: %v", err)
	}
	if !floatEquals(loss, 1, epsilon) {
		t.Errorf("loss = %v; want 1", loss)
	}
	expected := 1.0 - 0.1*(4+0.01*1.0)
	if !floatEquals(w.Value(), expected, epsilon) {
		t.Errorf("weight = %v; want %v", w.Value(), expected)
	}
}

func TestStepPropagatesClosureError(t *testing.T) {
	w := autograd.Leaf(1.0)
	adam, err := NewAdam([]*autograd.Var{w}, 0.01)
	if err != nil {
		t.Fatalf("NewAdam returned an unexpected error: %v", err)
	}
	boom := errors.New("boom")
	if _, err := adam.Step(func() (*autograd.Var, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Errorf("Adam.Step error = %v; want %v", err, boom)
	}
	if w.Value() != 1.0 {
		t.Errorf("weight changed to %v after failed step", w.Value())
	}
	if _, err := adam.Step(nil); err == nil {
		t.Error("Adam.Step(nil) did not return error")
	}
}

func TestAdamFirstStepMovesByLearningRate(t *testing.T) {
	w := autograd.Leaf(3.0)
	adam, err := NewAdam([]*autograd.Var{w}, 0.05)
	if err != nil {
		t.Fatalf("NewAdam returned an unexpected error: %v", err)
	}
	if _, err := adam.Step(func() (*autograd.Var, error) { return autograd.Square(w), nil }); err != nil {
		t.Fatalf("Adam.Step returned an unexpected error: %v", err)
	}
	// After bias correction the first update is lr * g / |g|.
	if !floatEquals(w.Value(), 3.0-0.05, 1e-6) {
		t.Errorf("weight = %v; want approx %v", w.Value(), 3.0-0.05)
	}
}

func TestAdamReducesQuadratic(t *testing.T) {
	w := autograd.Leaf(2.0)
	adam, _ := NewAdam([]*autograd.Var{w}, 0.1)
	first, _ := adam.Step(func() (*autograd.Var, error) { return autograd.Square(w), nil })
	var last float64
	for i := 0; i < 50; i++ {
		last, _ = adam.Step(func() (*autograd.Var, error) { return autograd.Square(w), nil })
	}
	if last >= first {
		t.Errorf("loss did not decrease: first %v, last %v", first, last)
	}
}

func TestAdamKeepsMomentumOnZeroGradient(t *testing.T) {
	w := autograd.Leaf(3.0)
	adam, err := NewAdam([]*autograd.Var{w}, 0.05)
	if err != nil {
		t.Fatalf("NewAdam returned an unexpected error: %v", err)
	}
	if _, err := adam.Step(func() (*autograd.Var, error) { return autograd.Square(w), nil }); err != nil {
		t.Fatalf("Adam.Step returned an unexpected error: %v", err)
	}
	m, v, after := adam.M[0], adam.V[0], w.Value()
	// the loss no longer depends on w
	if _, err := adam.Step(func() (*autograd.Var, error) { return autograd.Scale(w, 0), nil }); err != nil {
		t.Fatalf("Adam.Step returned an unexpected error: %v", err)
	}
	if !floatEquals(adam.M[0], adam.Beta1*m, 1e-12) || !floatEquals(adam.V[0], adam.Beta2*v, 1e-12) {
		t.Errorf("moments = (%v, %v); want (%v, %v)", adam.M[0], adam.V[0], adam.Beta1*m, adam.Beta2*v)
	}
	if w.Value() >= after {
		t.Errorf("weight = %v; want below %v from momentum", w.Value(), after)
	}
}
