package ops

import "github.com/FelixBenning/DeepOBS/tensor"

// MatMulOp records C = A @ B.
//
// Backward:
//
//	dL/dA = dL/dC @ Bᵀ
//	dL/dB = Aᵀ @ dL/dC
type MatMulOp struct {
	a      *tensor.RawTensor
	b      *tensor.RawTensor
	output *tensor.RawTensor
}

// NewMatMulOp creates a MatMulOp.
func NewMatMulOp(a, b, output *tensor.RawTensor) *MatMulOp {
	return &MatMulOp{a: a, b: b, output: output}
}

// Backward computes [dL/dA, dL/dB].
func (op *MatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradA := backend.MatMul(outputGrad, backend.Transpose(op.b))
	gradB := backend.MatMul(backend.Transpose(op.a), outputGrad)
	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns [A, B].
func (op *MatMulOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.a, op.b}
}

// Output returns A @ B.
func (op *MatMulOp) Output() *tensor.RawTensor {
	return op.output
}
