// Package cpu implements the tensor.Backend interface with pure-Go
// float32 kernels. Larger kernels split their work across goroutines,
// sized from the detected CPU topology.
package cpu

import (
	"fmt"
	"math"

	"github.com/FelixBenning/DeepOBS/internal/parallel"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// CPUBackend executes tensor operations on the host CPU.
type CPUBackend struct {
	cfg parallel.Config
}

// New creates a CPU backend with default parallelism.
func New() *CPUBackend {
	return &CPUBackend{cfg: parallel.DefaultConfig()}
}

// Name returns the backend name.
func (c *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (c *CPUBackend) Device() tensor.Device {
	return tensor.CPU
}

// mustFloat32 asserts the operand dtype. The compute kernels are float32;
// int32 tensors only carry labels and never reach arithmetic.
func mustFloat32(op string, ts ...*tensor.RawTensor) {
	for _, t := range ts {
		if t.DType() != tensor.Float32 {
			panic(fmt.Sprintf("%s: unsupported dtype %s", op, t.DType()))
		}
	}
}

// Add performs element-wise addition with broadcasting.
func (c *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binaryOp("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (c *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binaryOp("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (c *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binaryOp("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (c *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binaryOp("div", a, b, func(x, y float32) float32 { return x / y })
}

// binaryOp applies f element-wise after broadcasting both operands to a
// common shape. Equal shapes take the tight-loop path; mismatched shapes
// materialize the broadcast first, which keeps the kernel simple at the
// cost of a copy.
func (c *CPUBackend) binaryOp(name string, a, b *tensor.RawTensor, f func(x, y float32) float32) *tensor.RawTensor {
	mustFloat32(name, a, b)

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	out := tensor.MustNewRaw(outShape, tensor.Float32, c.Device())
	outData := out.AsFloat32()

	aData := a.AsFloat32()
	bData := b.AsFloat32()
	if needsBroadcast {
		if !a.Shape().Equal(outShape) {
			aData = broadcastData(a, outShape)
		}
		if !b.Shape().Equal(outShape) {
			bData = broadcastData(b, outShape)
		}
	}

	parallel.For(len(outData), func(i int) {
		outData[i] = f(aData[i], bData[i])
	}, c.cfg)

	return out
}

// broadcastData materializes x's data under the broadcast target shape.
func broadcastData(x *tensor.RawTensor, target tensor.Shape) []float32 {
	xShape := x.Shape()
	xStrides := x.Strides()
	xData := x.AsFloat32()

	out := make([]float32, target.NumElements())
	targetStrides := target.ComputeStrides()
	offset := len(target) - len(xShape)

	for i := range out {
		src := 0
		for d := 0; d < len(xShape); d++ {
			idx := (i / targetStrides[d+offset]) % target[d+offset]
			if xShape[d] != 1 {
				src += idx * xStrides[d]
			}
		}
		out[i] = xData[src]
	}
	return out
}

// AddScalar adds a scalar to every element.
func (c *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	return c.unaryOp("add_scalar", x, func(v float32) float32 { return v + scalar })
}

// MulScalar multiplies every element by a scalar.
func (c *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	return c.unaryOp("mul_scalar", x, func(v float32) float32 { return v * scalar })
}

// Rsqrt computes the element-wise reciprocal square root.
func (c *CPUBackend) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unaryOp("rsqrt", x, func(v float32) float32 {
		return float32(1.0 / math.Sqrt(float64(v)))
	})
}

func (c *CPUBackend) unaryOp(name string, x *tensor.RawTensor, f func(float32) float32) *tensor.RawTensor {
	mustFloat32(name, x)

	out := tensor.MustNewRaw(x.Shape(), tensor.Float32, c.Device())
	outData := out.AsFloat32()
	xData := x.AsFloat32()

	parallel.For(len(outData), func(i int) {
		outData[i] = f(xData[i])
	}, c.cfg)

	return out
}
