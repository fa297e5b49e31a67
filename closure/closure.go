// Package closure builds the training objective of a physics-informed
// network for the dimensionless multi-asset Black-Scholes equation.
//
// A Closure is configured once with a model, a dataset, a device, a dtype and
// an optimizer, plus a strategy: how losses are computed (LossComputer), how
// they are combined (Combiner) and how batches are prepared (BatchHook). Each
// Step evaluates one batch and returns the scalar loss, still attached to the
// graph so the optimizer can backpropagate it.
//
// A Closure is not safe for concurrent use.
package closure

import (
	"fmt"
	"log"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"

	"derpinns/autograd"
	"derpinns/dataset"
	"derpinns/neuralnet"
	"derpinns/sampling"
)

// Device names where the computation runs.
type Device string

const CPU Device = "cpu"

type Closure struct {
	device    Device
	dtype     tensor.Dtype
	model     Model
	loader    *dataset.Loader
	optimizer neuralnet.Optimizer
	logger    *log.Logger

	losses    LossComputer
	combiner  Combiner
	hooks     []BatchHook
	residuals Residuals
	// custom is set once WithResiduals replaced the PDE of the dataset.
	custom bool

	batch *dataset.Batch
	state State
	err   error
}

// New returns a closure with the given strategy. The presets below cover the
// usual combinations.
func New(losses LossComputer, combiner Combiner, hooks ...BatchHook) *Closure {
	return &Closure{
		losses:   losses,
		combiner: combiner,
		hooks:    hooks,
		state:    NewState(),
		logger:   log.New(os.Stderr, "", log.LstdFlags),
	}
}

// NewDimlessBS is the baseline: PDE residuals everywhere, summed.
func NewDimlessBS() *Closure {
	return New(StandardLosses{}, StaticSum{})
}

// NewResidualBasedAdaptiveSampling resamples interior points before every
// batch. It requires a full-batch, unshuffled loader.
func NewResidualBasedAdaptiveSampling(opts sampling.Options) *Closure {
	return New(StandardLosses{}, StaticSum{}, NewAdaptiveResampler(opts))
}

// NewLossBalancing weighs the loss terms with ReLoBRaLo.
func NewLossBalancing(opts BalancingOptions) *Closure {
	return New(StandardLosses{}, NewLossBalancer(opts))
}

// NewPINNBoundary supervises bottom boundaries against the dataset targets.
func NewPINNBoundary() *Closure {
	return New(BoundaryReuseLosses{}, StaticSum{})
}

// NewFirstOrder expects a model predicting u and (u_x, u_tau).
func NewFirstOrder() *Closure {
	return New(FirstOrderLosses{}, StaticSum{})
}

// NewOnlyInterior trains on interior and initial points only.
func NewOnlyInterior() *Closure {
	return New(InteriorOnlyLosses{}, StaticSum{})
}

// NewRBAOnlyInterior combines adaptive resampling with NewOnlyInterior.
func NewRBAOnlyInterior(opts sampling.Options) *Closure {
	return New(InteriorOnlyLosses{}, StaticSum{}, NewAdaptiveResampler(opts))
}

func (c *Closure) fail(field, reason string) *Closure {
	if c.err == nil {
		c.err = &ConfigurationError{Field: field, Reason: reason}
	}
	return c
}

func (c *Closure) WithDevice(device Device) *Closure {
	switch device {
	case "":
		return c.fail("device", "empty")
	case CPU:
		c.device = device
		return c
	}
	return c.fail("device", fmt.Sprintf("unsupported device %q", device))
}

func (c *Closure) WithDType(dtype tensor.Dtype) *Closure {
	if dtype.Type == nil {
		return c.fail("dtype", "empty")
	}
	if dtype != tensor.Float32 && dtype != tensor.Float64 {
		return c.fail("dtype", fmt.Sprintf("unsupported dtype %v", dtype))
	}
	c.dtype = dtype
	return c
}

func (c *Closure) WithModel(model Model) *Closure {
	if model == nil {
		return c.fail("model", "nil")
	}
	c.model = model
	return c
}

func (c *Closure) WithOptimizer(optimizer neuralnet.Optimizer) *Closure {
	if optimizer == nil {
		return c.fail("optimizer", "nil")
	}
	c.optimizer = optimizer
	return c
}

// WithDataset takes the PDE constants from data and batches it with opts.
func (c *Closure) WithDataset(data *dataset.SampledDataset, opts dataset.LoaderOptions) *Closure {
	if data == nil || data.Params == nil {
		return c.fail("dataset", "nil")
	}
	loader, err := dataset.NewLoader(data, opts)
	if err != nil {
		return c.fail("dataset", err.Error())
	}
	for _, h := range c.hooks {
		if lc, ok := h.(loaderChecker); ok {
			if err := lc.CheckLoader(opts, data.Len()); err != nil {
				return c.fail("dataset", err.Error())
			}
		}
	}
	c.loader = loader
	if !c.custom {
		c.residuals = NewPDE(data.Params)
	}
	return c
}

// WithResiduals replaces the PDE residuals derived from the dataset.
func (c *Closure) WithResiduals(residuals Residuals) *Closure {
	if residuals == nil {
		return c.fail("residuals", "nil")
	}
	c.residuals = residuals
	c.custom = true
	return c
}

func (c *Closure) WithLogger(logger *log.Logger) *Closure {
	if logger == nil {
		return c.fail("logger", "nil")
	}
	c.logger = logger
	return c
}

// Validate returns the first configuration error, or a *ConfigurationError
// naming the first collaborator still missing.
func (c *Closure) Validate() error {
	if c.err != nil {
		return c.err
	}
	switch {
	case c.device == "":
		return &ConfigurationError{Field: "device", Reason: "not set"}
	case c.dtype.Type == nil:
		return &ConfigurationError{Field: "dtype", Reason: "not set"}
	case c.model == nil:
		return &ConfigurationError{Field: "model", Reason: "not set"}
	case c.loader == nil:
		return &ConfigurationError{Field: "dataset", Reason: "not set"}
	case c.optimizer == nil:
		return &ConfigurationError{Field: "optimizer", Reason: "not set"}
	case c.losses == nil || c.combiner == nil:
		return &ConfigurationError{Field: "strategy", Reason: "not set"}
	}
	return nil
}

func (c *Closure) env() *Env {
	params := c.loader.Dataset().Params
	return &Env{
		Engine:    NewEngine(c.model, params.NAssets, c.dtype),
		Residuals: c.residuals,
		Params:    params,
	}
}

// NextBatch loads the next batch and runs the batch hooks on it.
func (c *Closure) NextBatch() error {
	if err := c.Validate(); err != nil {
		return err
	}
	b := c.loader.Next()
	env := c.env()
	for _, h := range c.hooks {
		if err := h.Prepare(env, b); err != nil {
			return err
		}
	}
	c.batch = b
	return nil
}

// Batch returns the current batch, nil before the first NextBatch.
func (c *Closure) Batch() *dataset.Batch {
	return c.batch
}

// ComputeLosses evaluates the loss components of the current batch.
func (c *Closure) ComputeLosses() (Losses, error) {
	if err := c.Validate(); err != nil {
		return Losses{}, err
	}
	if c.batch == nil {
		if err := c.NextBatch(); err != nil {
			return Losses{}, err
		}
	}
	l, err := c.losses.ComputeLosses(c.env(), c.batch)
	if err != nil {
		return Losses{}, err
	}
	if err := l.checkFinite(); err != nil {
		return Losses{}, err
	}
	return l, nil
}

type stepConfig struct {
	updateState bool
}

// StepOption tunes a single Step.
type StepOption func(*stepConfig)

// WithoutStateUpdate skips recording the step's losses.
func WithoutStateUpdate() StepOption {
	return func(c *stepConfig) { c.updateState = false }
}

// Step computes the training objective on the current batch, loading one if
// none is loaded yet. On error nothing is recorded.
func (c *Closure) Step(opts ...StepOption) (*autograd.Var, error) {
	cfg := stepConfig{updateState: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	l, err := c.ComputeLosses()
	if err != nil {
		return nil, err
	}
	total, report := c.combiner.Combine(l)
	if cfg.updateState {
		c.state.appendLosses(report)
	}
	return total, nil
}

// Optimize loads the next batch and hands Step to the optimizer.
func (c *Closure) Optimize() (float64, error) {
	if err := c.NextBatch(); err != nil {
		return 0, err
	}
	return c.optimizer.Step(func() (*autograd.Var, error) { return c.Step() })
}

// UpdateErrors records externally computed error metrics.
func (c *Closure) UpdateErrors(maxErr, l2RelErr float64) {
	c.state.appendErrors(maxErr, l2RelErr)
}

// EvaluateErrors compares the model against exact values at x and records
// the max absolute error and the relative L2 error.
func (c *Closure) EvaluateErrors(x *tensor.Dense, exact []float64) (maxErr, l2RelErr float64, err error) {
	if err := c.Validate(); err != nil {
		return 0, 0, err
	}
	u, err := c.env().Engine.Predict(x)
	if err != nil {
		return 0, 0, err
	}
	if len(u) != len(exact) {
		return 0, 0, fmt.Errorf("closure: %d predictions for %d exact values", len(u), len(exact))
	}
	norm := floats.Norm(exact, 2)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return 0, 0, fmt.Errorf("closure: relative error against exact values of norm %v", norm)
	}
	maxErr = floats.Distance(u, exact, math.Inf(1))
	l2RelErr = floats.Distance(u, exact, 2) / norm
	if math.IsNaN(maxErr) || math.IsNaN(l2RelErr) {
		return 0, 0, &NumericalError{Quantity: "u"}
	}
	c.UpdateErrors(maxErr, l2RelErr)
	return maxErr, l2RelErr, nil
}

// State returns a copy of the training state.
func (c *Closure) State() State {
	return c.state.Clone()
}

// LogState prints the latest recorded losses.
func (c *Closure) LogState() {
	interior, ok := c.state.Last(InteriorLoss)
	if !ok {
		return
	}
	boundary, _ := c.state.Last(BoundaryLoss)
	initial, _ := c.state.Last(InitialLoss)
	c.logger.Printf("Interior Loss: %g", interior)
	c.logger.Printf("Boundary Loss: %g", boundary)
	c.logger.Printf("Initial Condition Loss: %g", initial)
	c.logger.Printf("Total Loss: %g", interior+boundary+initial)
}
