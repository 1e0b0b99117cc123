// Package autodiff implements reverse-mode automatic differentiation with
// a decorator backend.
//
// Backend wraps any tensor.Backend and records every operation on a
// GradientTape during the forward pass. Backward walks the tape in
// reverse, applying each operation's chain rule and accumulating
// gradients for tensors used more than once (residual connections do this
// constantly).
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	loss := ... // forward pass through tensor ops
//	grads := autodiff.Backward(loss, backend)
package autodiff

import (
	"fmt"

	"github.com/FelixBenning/DeepOBS/autodiff/ops"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// Backend decorates an inner backend with gradient recording. It
// implements tensor.Backend, so the same model code runs recorded or not.
type Backend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates an autodiff Backend wrapping the given backend.
func New[B tensor.Backend](inner B) *Backend[B] {
	return &Backend[B]{
		inner: inner,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for recording control.
func (b *Backend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *Backend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *Backend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *Backend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records the operation.
func (b *Backend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(x, y)
	b.tape.Record(ops.NewAddOp(x, y, result))
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *Backend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(x, y)
	b.tape.Record(ops.NewSubOp(x, y, result))
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *Backend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(x, y)
	b.tape.Record(ops.NewMulOp(x, y, result))
	return result
}

// Div performs element-wise division and records the operation.
func (b *Backend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Div(x, y)
	b.tape.Record(ops.NewDivOp(x, y, result))
	return result
}

// AddScalar adds a scalar and records the operation.
func (b *Backend[B]) AddScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	result := b.inner.AddScalar(x, scalar)
	b.tape.Record(ops.NewAddScalarOp(x, result))
	return result
}

// MulScalar multiplies by a scalar and records the operation.
func (b *Backend[B]) MulScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	result := b.inner.MulScalar(x, scalar)
	b.tape.Record(ops.NewMulScalarOp(x, result, scalar))
	return result
}

// Rsqrt computes 1/sqrt(x) and records the operation.
func (b *Backend[B]) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Rsqrt(x)
	b.tape.Record(ops.NewRsqrtOp(x, result))
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *Backend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(x, y)
	b.tape.Record(ops.NewMatMulOp(x, y, result))
	return result
}

// Conv2D performs convolution and records the operation.
func (b *Backend[B]) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	result := b.inner.Conv2D(input, kernel, stride, padding)
	b.tape.Record(ops.NewConv2DOp(input, kernel, result, stride, padding))
	return result
}

// Conv2DInputBackward passes through to the inner backend. Gradient
// kernels are never themselves differentiated.
func (b *Backend[B]) Conv2DInputBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DInputBackward(input, kernel, outputGrad, stride, padding)
}

// Conv2DKernelBackward passes through to the inner backend.
func (b *Backend[B]) Conv2DKernelBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DKernelBackward(input, kernel, outputGrad, stride, padding)
}

// MaxPool2D performs max pooling and records the operation.
func (b *Backend[B]) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	result := b.inner.MaxPool2D(input, kernelSize, stride)
	b.tape.Record(ops.NewMaxPool2DOp(input, result, kernelSize, stride))
	return result
}

// MaxPool2DBackward passes through to the inner backend.
func (b *Backend[B]) MaxPool2DBackward(input, outputGrad *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	return b.inner.MaxPool2DBackward(input, outputGrad, kernelSize, stride)
}

// Reshape changes the tensor's shape and records the operation; without
// recording, gradients would never reach reshaped parameters.
func (b *Backend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	b.tape.Record(ops.NewReshapeOp(t, result))
	return result
}

// Transpose permutes dimensions and records the operation.
func (b *Backend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	if len(axes) == 0 {
		nd := len(t.Shape())
		axes = make([]int, nd)
		for i := range axes {
			axes[i] = nd - 1 - i
		}
	}
	result := b.inner.Transpose(t, axes...)
	b.tape.Record(ops.NewTransposeOp(t, result, axes))
	return result
}

// Expand broadcasts to a shape and records the operation.
func (b *Backend[B]) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Expand(x, shape)
	b.tape.Record(ops.NewExpandOp(x, result))
	return result
}

// Sum reduces all elements and records the operation.
func (b *Backend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sum(x)
	b.tape.Record(ops.NewSumOp(x, result))
	return result
}

// Mean reduces all elements to their mean and records the operation.
func (b *Backend[B]) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mean(x)
	b.tape.Record(ops.NewMeanOp(x, result))
	return result
}

// SumDim sums along a dimension and records the operation.
func (b *Backend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.SumDim(x, dim, keepDim)
	b.tape.Record(ops.NewSumDimOp(x, result, dim, keepDim))
	return result
}

// MeanDim averages along a dimension and records the operation.
func (b *Backend[B]) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.MeanDim(x, dim, keepDim)
	b.tape.Record(ops.NewMeanDimOp(x, result, dim, keepDim))
	return result
}

// reluBackend is the optional inner-backend capability ReLU forwards to.
type reluBackend interface {
	ReLU(*tensor.RawTensor) *tensor.RawTensor
}

// ReLU applies max(0, x) and records the operation. The inner backend
// must provide the forward kernel.
func (b *Backend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	rb, ok := any(b.inner).(reluBackend)
	if !ok {
		panic(fmt.Sprintf("relu: backend %s does not implement ReLU", b.inner.Name()))
	}
	result := rb.ReLU(x)
	b.tape.Record(ops.NewReLUOp(x, result))
	return result
}

// SoftmaxCrossEntropy computes per-example softmax cross-entropy losses
// [batch] from logits [batch, classes] and int32 targets [batch], and
// records the fused operation.
func (b *Backend[B]) SoftmaxCrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	result := ops.SoftmaxCrossEntropyForward(logits, targets, b.Device())
	b.tape.Record(ops.NewSoftmaxCrossEntropyOp(logits, targets, result))
	return result
}
