package nn

import (
	"fmt"

	"github.com/FelixBenning/DeepOBS/tensor"
)

// reluBackend is satisfied by backends that provide a fused ReLU
// kernel, such as the cpu backend and the autodiff decorator.
type reluBackend interface {
	ReLU(x *tensor.RawTensor) *tensor.RawTensor
}

// ReLU is the rectified linear activation, max(x, 0).
type ReLU[B tensor.Backend] struct {
	backend B
}

// NewReLU creates a ReLU activation.
func NewReLU[B tensor.Backend](backend B) *ReLU[B] {
	return &ReLU[B]{backend: backend}
}

// Forward applies the activation element-wise.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	rb, ok := any(r.backend).(reluBackend)
	if !ok {
		panic(fmt.Sprintf("relu: backend %s does not implement ReLU", r.backend.Name()))
	}
	return tensor.New[float32, B](rb.ReLU(input.Raw()), r.backend)
}

// Parameters returns nil; the activation has no parameters.
func (r *ReLU[B]) Parameters() []*Parameter[B] { return nil }
