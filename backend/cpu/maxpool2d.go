package cpu

import (
	"fmt"
	"math"

	"github.com/FelixBenning/DeepOBS/internal/parallel"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// MaxPool2D performs 2D max pooling with no padding (VALID semantics).
//
// Input shape:  [N, C, H, W]
// Output shape: [N, C, H_out, W_out] with out = (in - kernelSize)/stride + 1.
func (c *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	mustFloat32("maxpool2d", input)

	n, ch, h, w := convDims("maxpool2d", input)
	hOut := (h-kernelSize)/stride + 1
	wOut := (w-kernelSize)/stride + 1
	if hOut <= 0 || wOut <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid output size %dx%d", hOut, wOut))
	}

	out := tensor.MustNewRaw(tensor.Shape{n, ch, hOut, wOut}, tensor.Float32, c.Device())
	outData := out.AsFloat32()
	inData := input.AsFloat32()

	cfg := c.cfg
	cfg.MinChunkSize = 1

	parallel.For(n*ch, func(task int) {
		plane := inData[task*h*w : (task+1)*h*w]
		outPlane := outData[task*hOut*wOut : (task+1)*hOut*wOut]
		for ho := 0; ho < hOut; ho++ {
			for wo := 0; wo < wOut; wo++ {
				best := float32(math.Inf(-1))
				for y := 0; y < kernelSize; y++ {
					for x := 0; x < kernelSize; x++ {
						v := plane[(ho*stride+y)*w+(wo*stride+x)]
						if v > best {
							best = v
						}
					}
				}
				outPlane[ho*wOut+wo] = best
			}
		}
	}, cfg)

	return out
}

// MaxPool2DBackward routes each output gradient to the input position that
// produced the maximum. Ties go to the first maximal position in
// row-major window order.
func (c *CPUBackend) MaxPool2DBackward(input, outputGrad *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	mustFloat32("maxpool2d_backward", input, outputGrad)

	n, ch, h, w := convDims("maxpool2d_backward", input)
	gShape := outputGrad.Shape()
	hOut, wOut := gShape[2], gShape[3]

	out := tensor.MustNewRaw(input.Shape(), tensor.Float32, c.Device())
	outData := out.AsFloat32()
	inData := input.AsFloat32()
	gradData := outputGrad.AsFloat32()

	cfg := c.cfg
	cfg.MinChunkSize = 1

	parallel.For(n*ch, func(task int) {
		plane := inData[task*h*w : (task+1)*h*w]
		gradPlane := gradData[task*hOut*wOut : (task+1)*hOut*wOut]
		outPlane := outData[task*h*w : (task+1)*h*w]
		for ho := 0; ho < hOut; ho++ {
			for wo := 0; wo < wOut; wo++ {
				best := float32(math.Inf(-1))
				bestIdx := 0
				for y := 0; y < kernelSize; y++ {
					for x := 0; x < kernelSize; x++ {
						idx := (ho*stride+y)*w + (wo*stride + x)
						if plane[idx] > best {
							best = plane[idx]
							bestIdx = idx
						}
					}
				}
				outPlane[bestIdx] += gradPlane[ho*wOut+wo]
			}
		}
	}, cfg)

	return out
}
