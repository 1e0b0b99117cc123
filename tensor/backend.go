package tensor

// Backend defines the primitive operations a compute backend must provide
// for the benchmark suite. The CPU backend implements it directly; the
// autodiff backend decorates any Backend and records operations on a tape.
//
// Binary elementwise operations broadcast their operands (NumPy rules).
// Gradient kernels for convolution and pooling live on the backend so the
// autodiff ops stay pure orchestration.
type Backend interface {
	// Elementwise binary operations (with broadcasting).
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations.
	AddScalar(x *RawTensor, scalar float32) *RawTensor
	MulScalar(x *RawTensor, scalar float32) *RawTensor

	// Unary math.
	Rsqrt(x *RawTensor) *RawTensor

	// Matrix multiplication: [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// Convolution and pooling, NCHW layout.
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	Conv2DInputBackward(input, kernel, outputGrad *RawTensor, stride, padding int) *RawTensor
	Conv2DKernelBackward(input, kernel, outputGrad *RawTensor, stride, padding int) *RawTensor
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor
	MaxPool2DBackward(input, outputGrad *RawTensor, kernelSize, stride int) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor
	Expand(x *RawTensor, shape Shape) *RawTensor

	// Reductions. Sum and Mean reduce to a single-element tensor.
	Sum(x *RawTensor) *RawTensor
	Mean(x *RawTensor) *RawTensor
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
