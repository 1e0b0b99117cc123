package ops

import "github.com/FelixBenning/DeepOBS/tensor"

// reduceToShape sums a gradient down to the shape of a broadcast input.
// Broadcasting expanded leading dimensions and size-1 dimensions on the
// forward pass; the chain rule sums gradients over exactly those.
func reduceToShape(grad *tensor.RawTensor, target tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	g := grad
	for len(g.Shape()) > len(target) {
		g = backend.SumDim(g, 0, false)
	}
	for i, d := range target {
		if d == 1 && g.Shape()[i] != 1 {
			g = backend.SumDim(g, i, true)
		}
	}
	if !g.Shape().Equal(target) {
		g = g.WithShape(target)
	}
	return g
}

// unsqueezeDim re-inserts a reduced dimension of size 1 so the gradient
// broadcasts back over the input shape.
func unsqueezeDim(grad *tensor.RawTensor, dim int, inputShape tensor.Shape) *tensor.RawTensor {
	if dim < 0 {
		dim += len(inputShape)
	}
	shape := make(tensor.Shape, 0, len(inputShape))
	shape = append(shape, inputShape[:dim]...)
	shape = append(shape, 1)
	shape = append(shape, inputShape[dim+1:]...)
	return grad.WithShape(shape)
}
