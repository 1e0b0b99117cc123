package nn

import "github.com/FelixBenning/DeepOBS/tensor"

// Parameter is a named trainable tensor.
//
// Parameters flagged as regularizable contribute to the L2 penalty
// computed by L2Regularization. Convolution and linear weights are
// regularizable; biases and batch normalization scale/offset are not.
type Parameter[B tensor.Backend] struct {
	name          string
	tensor        *tensor.Tensor[float32, B]
	regularizable bool
}

// NewParameter creates a parameter wrapping the given tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B], regularizable bool) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t, regularizable: regularizable}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string { return p.name }

// Tensor returns the underlying tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] { return p.tensor }

// Regularizable reports whether the parameter is subject to weight decay.
func (p *Parameter[B]) Regularizable() bool { return p.regularizable }

// NumElements returns the number of scalar values in the parameter.
func (p *Parameter[B]) NumElements() int { return p.tensor.NumElements() }
