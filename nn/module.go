// Package nn implements the neural-network building blocks the benchmark
// problems are assembled from: the Module interface, trainable Parameters
// with weight-decay bookkeeping, convolution / batch normalization /
// linear layers, activations, pooling, and classification losses.
package nn

import "github.com/FelixBenning/DeepOBS/tensor"

// Module is the base interface for network components.
//
// Modules compose into larger architectures; a module's Parameters
// include those of any nested modules.
type Module[B tensor.Backend] interface {
	// Forward computes the module output for the given input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	// Modules without parameters return nil.
	Parameters() []*Parameter[B]
}
