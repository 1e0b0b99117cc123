package cpu

import (
	"fmt"

	"github.com/FelixBenning/DeepOBS/tensor"
)

// Sum reduces all elements to a single-element tensor of shape [1].
func (c *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	mustFloat32("sum", x)

	var total float64
	for _, v := range x.AsFloat32() {
		total += float64(v)
	}

	out := tensor.MustNewRaw(tensor.Shape{1}, tensor.Float32, c.Device())
	out.AsFloat32()[0] = float32(total)
	return out
}

// Mean reduces all elements to their mean, shape [1].
func (c *CPUBackend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	out := c.Sum(x)
	out.AsFloat32()[0] /= float32(x.NumElements())
	return out
}

// SumDim sums along one dimension. Negative dims count from the end.
func (c *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return c.reduceDim("sum_dim", x, dim, keepDim, false)
}

// MeanDim averages along one dimension. Negative dims count from the end.
func (c *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return c.reduceDim("mean_dim", x, dim, keepDim, true)
}

func (c *CPUBackend) reduceDim(op string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	mustFloat32(op, x)

	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("%s: dimension %d out of range for shape %v", op, dim, x.Shape()))
	}

	outShape := reducedShape(shape, dim, keepDim)
	out := tensor.MustNewRaw(outShape, tensor.Float32, c.Device())
	outData := out.AsFloat32()
	xData := x.AsFloat32()

	// Split the index space into outer / reduced / inner parts so the
	// reduction walks memory with a fixed inner stride.
	outer, size, inner := 1, shape[dim], 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			var total float64
			base := o*size*inner + in
			for k := 0; k < size; k++ {
				total += float64(xData[base+k*inner])
			}
			if mean {
				total /= float64(size)
			}
			outData[o*inner+in] = float32(total)
		}
	}

	return out
}

// reducedShape drops or squeezes the reduced dimension. Fully reducing a
// 1D tensor with keepDim=false yields shape [1] rather than a 0D scalar.
func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	out := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		switch {
		case i != dim:
			out = append(out, d)
		case keepDim:
			out = append(out, 1)
		}
	}
	if len(out) == 0 {
		out = tensor.Shape{1}
	}
	return out
}
