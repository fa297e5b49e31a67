package neuralnet

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/rand"

	"derpinns/autograd"
)

type Neuron struct {
	weights []*autograd.Var
	bias    *autograd.Var
}

type Layer struct {
	neurons    []*Neuron
	activation ActivationFunction
}

// NeuralNetwork is a fully connected network whose parameters live in the
// autograd graph, so its outputs can be differentiated with respect to both
// its inputs and its parameters.
type NeuralNetwork struct {
	layers    []*Layer
	inputSize int
}

// NewNeuralNetwork builds an MLP with Xavier-initialised weights. Hidden
// layers use hiddenActivation and the output layer outputActivation; nil
// selects Tanh and Linear respectively.
func NewNeuralNetwork(inputSize int, hidden []int, outputSize int, hiddenActivation, outputActivation ActivationFunction) *NeuralNetwork {
	return NewNeuralNetworkWithSeed(inputSize, hidden, outputSize, hiddenActivation, outputActivation, uint64(NNSeed(inputSize, hidden, outputSize)))
}

// NewNeuralNetworkWithSeed is NewNeuralNetwork with an explicit initialisation seed.
func NewNeuralNetworkWithSeed(inputSize int, hidden []int, outputSize int, hiddenActivation, outputActivation ActivationFunction, seed uint64) *NeuralNetwork {
	if hiddenActivation == nil {
		hiddenActivation = Tanh{}
	}
	if outputActivation == nil {
		outputActivation = Linear{}
	}
	rng := rand.New(rand.NewSource(seed))

	nn := &NeuralNetwork{
		// hidden + output
		layers:    make([]*Layer, 0, len(hidden)+1),
		inputSize: inputSize,
	}
	sizes := append(append([]int{inputSize}, hidden...), outputSize)
	for i := 1; i < len(sizes); i++ {
		in, out := sizes[i-1], sizes[i]
		layer := &Layer{
			neurons:    make([]*Neuron, out),
			activation: hiddenActivation,
		}
		if i == len(sizes)-1 {
			layer.activation = outputActivation
		}
		for j := range layer.neurons {
			neuron := &Neuron{
				weights: make([]*autograd.Var, in),
				bias:    autograd.Leaf(0),
			}
			for k := range neuron.weights {
				neuron.weights[k] = autograd.Leaf(xavierInit(rng, in, out))
			}
			layer.neurons[j] = neuron
		}
		nn.layers = append(nn.layers, layer)
	}
	return nn
}

func (nn *NeuralNetwork) SetActivation(layerIndex int, activation ActivationFunction) {
	nn.layers[layerIndex].activation = activation
}

func NNSeed(inputSize int, hidden []int, outputSize int) int {
	seed := inputSize
	for _, h := range hidden {
		seed = seed + h
	}
	return seed + outputSize
}

// Forward evaluates the network on one input point.
func (nn *NeuralNetwork) Forward(input []*autograd.Var) []*autograd.Var {
	if len(input) != nn.inputSize {
		panic(fmt.Sprintf("neuralnet: input of size %d, want %d", len(input), nn.inputSize))
	}
	current := input
	for _, layer := range nn.layers {
		next := make([]*autograd.Var, len(layer.neurons))
		for j, neuron := range layer.neurons {
			next[j] = layer.activation.Activate(autograd.Affine(neuron.weights, current, neuron.bias))
		}
		current = next
	}
	return current
}

// Parameters returns every weight and bias, layer by layer.
func (nn *NeuralNetwork) Parameters() []*autograd.Var {
	var params []*autograd.Var
	for _, layer := range nn.layers {
		for _, neuron := range layer.neurons {
			params = append(params, neuron.weights...)
			params = append(params, neuron.bias)
		}
	}
	return params
}

// InputSize is the width of one input point.
func (nn *NeuralNetwork) InputSize() int {
	return nn.inputSize
}

// OutputSize is the width of one output.
func (nn *NeuralNetwork) OutputSize() int {
	return len(nn.layers[len(nn.layers)-1].neurons)
}

func xavierInit(rng *rand.Rand, numInputs int, numOutputs int) float64 {
	limit := math.Sqrt(6.0 / float64(numInputs+numOutputs))
	return 2*rng.Float64()*limit - limit
}

// Debug
func (l *Layer) String() string {
	var sb strings.Builder
	for i, neuron := range l.neurons {
		sb.WriteString(fmt.Sprintf("Neuron %d: bias=%.4f weights=%v\n", i, neuron.bias.Value(), autograd.Values(neuron.weights)))
	}
	return sb.String()
}

func (nn *NeuralNetwork) String() string {
	var sb strings.Builder
	for i, layer := range nn.layers {
		sb.WriteString(fmt.Sprintf("Layer %d:\n%s\n", i, layer.String()))
	}
	return sb.String()
}
