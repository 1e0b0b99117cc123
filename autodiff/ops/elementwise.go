package ops

import "github.com/FelixBenning/DeepOBS/tensor"

// binary is shared bookkeeping for the elementwise arithmetic ops.
type binary struct {
	a, b   *tensor.RawTensor
	output *tensor.RawTensor
}

// Inputs returns the operand tensors [a, b].
func (op *binary) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.a, op.b}
}

// Output returns the result tensor.
func (op *binary) Output() *tensor.RawTensor {
	return op.output
}

// AddOp records a + b. Gradient flows unchanged to both operands, summed
// back over broadcast dimensions.
type AddOp struct{ binary }

// NewAddOp creates an AddOp.
func NewAddOp(a, b, output *tensor.RawTensor) *AddOp {
	return &AddOp{binary{a, b, output}}
}

// Backward computes [dL/da, dL/db] for a + b.
func (op *AddOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceToShape(outputGrad, op.a.Shape(), backend),
		reduceToShape(outputGrad, op.b.Shape(), backend),
	}
}

// SubOp records a - b.
type SubOp struct{ binary }

// NewSubOp creates a SubOp.
func NewSubOp(a, b, output *tensor.RawTensor) *SubOp {
	return &SubOp{binary{a, b, output}}
}

// Backward computes [dL/da, dL/db] for a - b: the b gradient is negated.
func (op *SubOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradB := backend.MulScalar(outputGrad, -1)
	return []*tensor.RawTensor{
		reduceToShape(outputGrad, op.a.Shape(), backend),
		reduceToShape(gradB, op.b.Shape(), backend),
	}
}

// MulOp records a * b. d(a*b)/da = b and d(a*b)/db = a.
type MulOp struct{ binary }

// NewMulOp creates a MulOp.
func NewMulOp(a, b, output *tensor.RawTensor) *MulOp {
	return &MulOp{binary{a, b, output}}
}

// Backward computes [dL/da, dL/db] for a * b.
func (op *MulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradA := backend.Mul(outputGrad, op.b)
	gradB := backend.Mul(outputGrad, op.a)
	return []*tensor.RawTensor{
		reduceToShape(gradA, op.a.Shape(), backend),
		reduceToShape(gradB, op.b.Shape(), backend),
	}
}

// DivOp records a / b. d(a/b)/da = 1/b, d(a/b)/db = -a/b².
type DivOp struct{ binary }

// NewDivOp creates a DivOp.
func NewDivOp(a, b, output *tensor.RawTensor) *DivOp {
	return &DivOp{binary{a, b, output}}
}

// Backward computes [dL/da, dL/db] for a / b.
func (op *DivOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradA := backend.Div(outputGrad, op.b)

	// dL/db = -outputGrad * (a/b) / b = -outputGrad * output / b
	gradB := backend.Mul(outputGrad, op.output)
	gradB = backend.Div(gradB, op.b)
	gradB = backend.MulScalar(gradB, -1)

	return []*tensor.RawTensor{
		reduceToShape(gradA, op.a.Shape(), backend),
		reduceToShape(gradB, op.b.Shape(), backend),
	}
}
