package ops

import "github.com/FelixBenning/DeepOBS/tensor"

// reduction is shared bookkeeping for the single-dimension reductions.
type reduction struct {
	input   *tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
	dimSize int
}

func newReduction(input, output *tensor.RawTensor, dim int, keepDim bool) reduction {
	actual := dim
	if actual < 0 {
		actual += len(input.Shape())
	}
	return reduction{
		input:   input,
		output:  output,
		dim:     dim,
		keepDim: keepDim,
		dimSize: input.Shape()[actual],
	}
}

// Inputs returns [input].
func (op *reduction) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the reduced tensor.
func (op *reduction) Output() *tensor.RawTensor {
	return op.output
}

// broadcastGrad expands the (possibly unsqueezed) output gradient back to
// the input shape.
func (op *reduction) broadcastGrad(outputGrad *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	g := outputGrad
	if !op.keepDim {
		g = unsqueezeDim(g, op.dim, op.input.Shape())
	}
	return backend.Expand(g, op.input.Shape())
}

// SumDimOp records sum(x, dim). The gradient broadcasts back unchanged.
type SumDimOp struct{ reduction }

// NewSumDimOp creates a SumDimOp.
func NewSumDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{newReduction(input, output, dim, keepDim)}
}

// Backward broadcasts the output gradient over the reduced dimension.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{op.broadcastGrad(outputGrad, backend)}
}

// MeanDimOp records mean(x, dim). The gradient broadcasts back divided by
// the reduced dimension's size.
type MeanDimOp struct{ reduction }

// NewMeanDimOp creates a MeanDimOp.
func NewMeanDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *MeanDimOp {
	return &MeanDimOp{newReduction(input, output, dim, keepDim)}
}

// Backward broadcasts the scaled output gradient over the reduced dimension.
func (op *MeanDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	g := op.broadcastGrad(outputGrad, backend)
	return []*tensor.RawTensor{backend.MulScalar(g, 1/float32(op.dimSize))}
}

// SumOp records the full reduction sum(x) -> [1]. The gradient is the
// scalar gradient broadcast over the whole input.
type SumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{input: input, output: output}
}

// Backward broadcasts the scalar gradient over the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	g := outputGrad.WithShape(onesLike(op.input.Shape()))
	return []*tensor.RawTensor{backend.Expand(g, op.input.Shape())}
}

// Inputs returns [input].
func (op *SumOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the [1]-shaped sum.
func (op *SumOp) Output() *tensor.RawTensor {
	return op.output
}

// MeanOp records the full reduction mean(x) -> [1].
type MeanOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewMeanOp creates a MeanOp.
func NewMeanOp(input, output *tensor.RawTensor) *MeanOp {
	return &MeanOp{input: input, output: output}
}

// Backward broadcasts the scalar gradient divided by the element count.
func (op *MeanOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	g := outputGrad.WithShape(onesLike(op.input.Shape()))
	g = backend.Expand(g, op.input.Shape())
	return []*tensor.RawTensor{backend.MulScalar(g, 1/float32(op.input.NumElements()))}
}

// Inputs returns [input].
func (op *MeanOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the [1]-shaped mean.
func (op *MeanOp) Output() *tensor.RawTensor {
	return op.output
}

// onesLike builds an all-ones shape of the same rank, the broadcast
// source shape for a scalar gradient.
func onesLike(shape tensor.Shape) tensor.Shape {
	out := make(tensor.Shape, len(shape))
	for i := range out {
		out[i] = 1
	}
	return out
}
