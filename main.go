package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"

	"derpinns/closure"
	"derpinns/dataset"
	"derpinns/neuralnet"
	"derpinns/sampling"
)

const evalPoints = 64

func parseHidden(s string) ([]int, error) {
	var hidden []int
	for _, f := range strings.Split(s, ",") {
		if f == "" {
			continue
		}
		h, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || h <= 0 {
			return nil, fmt.Errorf("invalid layer width %q", f)
		}
		hidden = append(hidden, h)
	}
	return hidden, nil
}

func newClosure(strategy string, seed uint64) (*closure.Closure, error) {
	rad := sampling.DefaultOptions()
	rad.Seed = seed
	switch strategy {
	case "standard":
		return closure.NewDimlessBS(), nil
	case "rad":
		return closure.NewResidualBasedAdaptiveSampling(rad), nil
	case "relobralo":
		opts := closure.DefaultBalancingOptions()
		opts.Seed = seed
		return closure.NewLossBalancing(opts), nil
	case "boundary":
		return closure.NewPINNBoundary(), nil
	case "first-order":
		return closure.NewFirstOrder(), nil
	case "interior":
		return closure.NewOnlyInterior(), nil
	case "rad-interior":
		return closure.NewRBAOnlyInterior(rad), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", strategy)
}

// blackScholes is the dimensionless European call e^x N(d1) - e^{-r tau} N(d2).
func blackScholes(x, tau, sigma, r float64) float64 {
	if tau == 0 {
		return math.Max(math.Exp(x)-1, 0)
	}
	sd := sigma * math.Sqrt(tau)
	d1 := (x + (r+0.5*sigma*sigma)*tau) / sd
	return math.Exp(x)*distuv.UnitNormal.CDF(d1) - math.Exp(-r*tau)*distuv.UnitNormal.CDF(d1-sd)
}

// reducedSolution prices the bottom boundary of asset i of a two-asset
// problem with the closed-form solution of the problem without asset i.
func reducedSolution(p *dataset.Params) (func(x []float64, i int) float64, error) {
	if p.NAssets != 2 {
		return nil, fmt.Errorf("boundary reuse needs the %d-asset solution, only available in closed form for 2 assets", p.NAssets-1)
	}
	reduced := make([]*dataset.Params, p.NAssets)
	for i := range reduced {
		r, err := p.Reduced(i)
		if err != nil {
			return nil, err
		}
		reduced[i] = r
	}
	return func(x []float64, i int) float64 {
		y := dataset.WithoutAsset(x, i)
		return blackScholes(y[0], y[1], reduced[i].Sigma[0], reduced[i].R)
	}, nil
}

// datasetConfig is DefaultConfig, plus max-call payoff and reused bottom
// targets for the boundary strategy.
func datasetConfig(strategy string, p *dataset.Params, seed uint64) (dataset.Config, error) {
	cfg := dataset.DefaultConfig()
	cfg.Seed = seed
	if strategy != "boundary" {
		return cfg, nil
	}
	bottom, err := reducedSolution(p)
	if err != nil {
		return dataset.Config{}, err
	}
	cfg.Payoff = dataset.MaxCall
	cfg.BottomBoundary = bottom
	return cfg, nil
}

// evaluation returns points on the line tau = TauMax with their exact values.
func evaluation(p *dataset.Params) (*tensor.Dense, []float64) {
	data := make([]float64, 0, evalPoints*2)
	exact := make([]float64, evalPoints)
	for i := range exact {
		x := p.XMin + (p.XMax-p.XMin)*float64(i)/float64(evalPoints-1)
		data = append(data, x, p.TauMax)
		exact[i] = blackScholes(x, p.TauMax, p.Sigma[0], p.R)
	}
	return tensor.New(tensor.WithShape(evalPoints, 2), tensor.WithBacking(data)), exact
}

func main() {
	var (
		assets   = flag.Int("assets", 1, "number of assets")
		sigma    = flag.Float64("sigma", 0.2, "volatility of every asset")
		rate     = flag.Float64("r", 0.05, "risk-free rate")
		corr     = flag.Float64("rho", 0, "pairwise correlation")
		hidden   = flag.String("hidden", "16,16", "hidden layer widths")
		steps    = flag.Int("steps", 500, "training steps")
		lr       = flag.Float64("lr", 1e-3, "Adam learning rate")
		strategy = flag.String("strategy", "standard", "standard, rad, relobralo, boundary, first-order, interior or rad-interior")
		batch    = flag.Int("batch", 0, "batch size, 0 for full batch")
		seed     = flag.Uint64("seed", 42, "random seed")
		every    = flag.Int("log", 50, "log every n steps")
		save     = flag.String("save", "", "directory to write the collocation points to")
	)
	flag.Parse()

	widths, err := parseHidden(*hidden)
	if err != nil {
		fmt.Println("Error parsing layers:", err)
		os.Exit(2)
	}
	sigmas := make([]float64, *assets)
	for i := range sigmas {
		sigmas[i] = *sigma
	}
	params, err := dataset.NewParams(sigmas, *rate, dataset.UniformCorrelation(*assets, *corr))
	if err != nil {
		fmt.Println("Error building parameters:", err)
		os.Exit(2)
	}

	cfg, err := datasetConfig(*strategy, params, *seed)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(2)
	}
	data, err := dataset.NewSampledDataset(params, cfg)
	if err != nil {
		fmt.Println("Error sampling dataset:", err)
		os.Exit(1)
	}
	if *save != "" {
		if err := dataset.SaveBatch(*save, data.All()); err != nil {
			fmt.Println("Error saving dataset:", err)
			os.Exit(1)
		}
	}

	outputs := 1
	if *strategy == "first-order" {
		outputs = *assets + 2
	}
	nn := neuralnet.NewNeuralNetworkWithSeed(params.Dim(), widths, outputs, neuralnet.Tanh{}, neuralnet.Linear{}, *seed)
	adam, err := neuralnet.NewAdam(nn.Parameters(), *lr)
	if err != nil {
		fmt.Println("Error building optimizer:", err)
		os.Exit(2)
	}

	c, err := newClosure(*strategy, *seed)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(2)
	}
	c = c.WithDevice(closure.CPU).
		WithDType(tensor.Float64).
		WithModel(nn).
		WithOptimizer(adam).
		WithDataset(data, dataset.LoaderOptions{BatchSize: *batch, Shuffle: *batch > 0, Seed: *seed})
	if err := c.Validate(); err != nil {
		fmt.Println("Error configuring closure:", err)
		os.Exit(2)
	}

	var evalX *tensor.Dense
	var exact []float64
	if *assets == 1 {
		evalX, exact = evaluation(params)
	}

	for step := 1; step <= *steps; step++ {
		loss, err := c.Optimize()
		if err != nil {
			fmt.Println(fmt.Sprintf("Step %d failed: %v", step, err))
			os.Exit(1)
		}
		if *every > 0 && step%*every == 0 {
			fmt.Println(fmt.Sprintf("Step %d: loss %.6g", step, loss))
			c.LogState()
			if evalX != nil {
				maxErr, l2, err := c.EvaluateErrors(evalX, exact)
				if err != nil {
					fmt.Println("Error evaluating:", err)
					continue
				}
				fmt.Println(fmt.Sprintf("Max error %.4g, relative L2 error %.4g", maxErr, l2))
			}
		}
	}
}
