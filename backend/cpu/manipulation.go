package cpu

import (
	"fmt"

	"github.com/FelixBenning/DeepOBS/tensor"
)

// Reshape returns a view of the same buffer under a new shape.
func (c *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	return t.WithShape(resolveShape(t.Shape(), newShape))
}

// resolveShape substitutes a single -1 dimension with the value that
// preserves the element count.
func resolveShape(old, shape tensor.Shape) tensor.Shape {
	out := shape.Clone()
	infer := -1
	known := 1
	for i, d := range out {
		if d == -1 {
			if infer >= 0 {
				panic(fmt.Sprintf("reshape: multiple -1 dimensions in %v", shape))
			}
			infer = i
			continue
		}
		known *= d
	}
	if infer >= 0 {
		total := old.NumElements()
		if known == 0 || total%known != 0 {
			panic(fmt.Sprintf("reshape: cannot infer dimension for %v -> %v", old, shape))
		}
		out[infer] = total / known
	}
	return out
}

// Transpose permutes dimensions by copying into a freshly strided buffer.
// With no axes, all dimensions are reversed.
func (c *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	nd := len(shape)

	if len(axes) == 0 {
		axes = make([]int, nd)
		for i := range axes {
			axes[i] = nd - 1 - i
		}
	}
	if len(axes) != nd {
		panic(fmt.Sprintf("transpose: %d axes for %dD tensor", len(axes), nd))
	}

	outShape := make(tensor.Shape, nd)
	for i, ax := range axes {
		outShape[i] = shape[ax]
	}

	out := tensor.MustNewRaw(outShape, t.DType(), c.Device())
	if t.DType() != tensor.Float32 {
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}
	outData := out.AsFloat32()
	inData := t.AsFloat32()

	inStrides := t.Strides()
	outStrides := outShape.ComputeStrides()

	for i := range outData {
		src := 0
		for d := 0; d < nd; d++ {
			idx := (i / outStrides[d]) % outShape[d]
			src += idx * inStrides[axes[d]]
		}
		outData[i] = inData[src]
	}

	return out
}

// Expand materializes a broadcast of x to the given shape.
func (c *CPUBackend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if _, _, err := tensor.BroadcastShapes(x.Shape(), shape); err != nil {
		panic(fmt.Sprintf("expand: %v", err))
	}

	out := tensor.MustNewRaw(shape, tensor.Float32, c.Device())
	copy(out.AsFloat32(), broadcastData(x, shape))
	return out
}
