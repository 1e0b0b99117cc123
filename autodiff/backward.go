package autodiff

import (
	"fmt"

	"github.com/FelixBenning/DeepOBS/tensor"
)

// BackwardCapable is implemented by backends that carry a gradient tape.
type BackwardCapable interface {
	tensor.Backend
	GetTape() *GradientTape
}

// GetTape returns the gradient tape (BackwardCapable).
func (b *Backend[B]) GetTape() *GradientTape {
	return b.tape
}

// Backward computes gradients of t with respect to every tensor on the
// tape, seeding the output gradient with ones. Returns a map keyed by
// RawTensor identity.
//
// Example:
//
//	backend.Tape().StartRecording()
//	loss := meanLoss.Add(regularization)
//	grads := autodiff.Backward(loss, backend)
//	wGrad := grads[weight.Tensor().Raw()]
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.GetTape()
	if tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}

	outputGrad, err := tensor.NewRaw(t.Shape(), t.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("backward: failed to create output gradient: %v", err))
	}
	if t.DType() != tensor.Float32 {
		panic(fmt.Sprintf("backward: unsupported dtype %s", t.DType()))
	}
	data := outputGrad.AsFloat32()
	for i := range data {
		data[i] = 1
	}

	return tape.Backward(t.Raw(), outputGrad, backend)
}
