package nn

import (
	"math/rand"

	"github.com/FelixBenning/DeepOBS/tensor"
)

// Linear is a fully connected layer: output = input @ Wᵀ + b.
// The weight is regularizable; the bias is not.
type Linear[B tensor.Backend] struct {
	Weight *Parameter[B] // [outFeatures, inFeatures]
	Bias   *Parameter[B] // [outFeatures]

	outFeatures int
	backend     B
}

// NewLinear creates a dense layer. The weight is initialized from a
// zero-mean normal with stddev sqrt(1 / outFeatures); the bias starts
// at zero.
func NewLinear[B tensor.Backend](name string, inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[B] {
	return &Linear[B]{
		Weight:      NewParameter(name+"/w", linearInit(outFeatures, inFeatures, rng, backend), true),
		Bias:        NewParameter(name+"/b", tensor.Zeros[float32](tensor.Shape{outFeatures}, backend), false),
		outFeatures: outFeatures,
		backend:     backend,
	}
}

// Forward computes input @ Wᵀ + b for input of shape [N, inFeatures].
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := input.MatMul(l.Weight.Tensor().T())
	return out.Add(l.Bias.Tensor().Reshape(1, l.outFeatures))
}

// Parameters returns the weight and bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.Weight, l.Bias}
}
