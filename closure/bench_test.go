package closure

import (
	"testing"

	"gorgonia.org/tensor"

	"derpinns/dataset"
	"derpinns/neuralnet"
)

func benchmarkStep(b *testing.B, nAssets int, hidden []int) {
	sigma := make([]float64, nAssets)
	for i := range sigma {
		sigma[i] = 0.2
	}
	params, err := dataset.NewParams(sigma, 0.05, dataset.UniformCorrelation(nAssets, 0.3))
	if err != nil {
		b.Fatal(err)
	}
	data, err := dataset.NewSampledDataset(params, dataset.DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	nn := neuralnet.NewNeuralNetwork(params.Dim(), hidden, 1, nil, nil)
	adam, err := neuralnet.NewAdam(nn.Parameters(), 1e-3)
	if err != nil {
		b.Fatal(err)
	}
	c := NewDimlessBS().
		WithDevice(CPU).
		WithDType(tensor.Float64).
		WithModel(nn).
		WithOptimizer(adam).
		WithDataset(data, dataset.LoaderOptions{})
	if err := c.Validate(); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Optimize(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkStep(b *testing.B) {
	b.Run("1asset", func(b *testing.B) { benchmarkStep(b, 1, []int{16, 16}) })
	b.Run("2assets", func(b *testing.B) { benchmarkStep(b, 2, []int{16, 16}) })
}
