package cpu

import (
	"github.com/FelixBenning/DeepOBS/internal/parallel"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// Conv2DInputBackward computes the gradient of Conv2D with respect to the
// input: each output gradient element scatters back through the kernel
// window it was computed from.
//
// Shapes:
//
//	input:      [N, C_in, H, W]        (only its shape is used)
//	kernel:     [C_out, C_in, K, K]
//	outputGrad: [N, C_out, H_out, W_out]
//	result:     [N, C_in, H, W]
func (c *CPUBackend) Conv2DInputBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	mustFloat32("conv2d_input_backward", kernel, outputGrad)

	n, cIn, h, w := convDims("conv2d_input_backward", input)
	kShape := kernel.Shape()
	cOut, kh, kw := kShape[0], kShape[2], kShape[3]
	gShape := outputGrad.Shape()
	hOut, wOut := gShape[2], gShape[3]

	out := tensor.MustNewRaw(input.Shape(), tensor.Float32, c.Device())
	outData := out.AsFloat32()
	kernelData := kernel.AsFloat32()
	gradData := outputGrad.AsFloat32()

	cfg := c.cfg
	cfg.MinChunkSize = 1

	// Parallel over batch: each task writes a disjoint input-gradient slab.
	parallel.For(n, func(b int) {
		for co := 0; co < cOut; co++ {
			for ho := 0; ho < hOut; ho++ {
				for wo := 0; wo < wOut; wo++ {
					g := gradData[((b*cOut+co)*hOut+ho)*wOut+wo]
					if g == 0 {
						continue
					}
					for ci := 0; ci < cIn; ci++ {
						for y := 0; y < kh; y++ {
							ih := ho*stride - padding + y
							if ih < 0 || ih >= h {
								continue
							}
							for x := 0; x < kw; x++ {
								iw := wo*stride - padding + x
								if iw < 0 || iw >= w {
									continue
								}
								outData[((b*cIn+ci)*h+ih)*w+iw] += g * kernelData[((co*cIn+ci)*kh+y)*kw+x]
							}
						}
					}
				}
			}
		}
	}, cfg)

	return out
}

// Conv2DKernelBackward computes the gradient of Conv2D with respect to the
// kernel: a correlation of the input with the output gradient.
//
// Result shape: [C_out, C_in, K, K].
func (c *CPUBackend) Conv2DKernelBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	mustFloat32("conv2d_kernel_backward", input, outputGrad)

	n, cIn, h, w := convDims("conv2d_kernel_backward", input)
	kShape := kernel.Shape()
	cOut, kh, kw := kShape[0], kShape[2], kShape[3]
	gShape := outputGrad.Shape()
	hOut, wOut := gShape[2], gShape[3]

	out := tensor.MustNewRaw(kernel.Shape(), tensor.Float32, c.Device())
	outData := out.AsFloat32()
	inputData := input.AsFloat32()
	gradData := outputGrad.AsFloat32()

	cfg := c.cfg
	cfg.MinChunkSize = 1

	// Parallel over output channels: each task owns one kernel slab.
	parallel.For(cOut, func(co int) {
		for b := 0; b < n; b++ {
			for ho := 0; ho < hOut; ho++ {
				for wo := 0; wo < wOut; wo++ {
					g := gradData[((b*cOut+co)*hOut+ho)*wOut+wo]
					if g == 0 {
						continue
					}
					for ci := 0; ci < cIn; ci++ {
						for y := 0; y < kh; y++ {
							ih := ho*stride - padding + y
							if ih < 0 || ih >= h {
								continue
							}
							for x := 0; x < kw; x++ {
								iw := wo*stride - padding + x
								if iw < 0 || iw >= w {
									continue
								}
								outData[((co*cIn+ci)*kh+y)*kw+x] += g * inputData[((b*cIn+ci)*h+ih)*w+iw]
							}
						}
					}
				}
			}
		}
	}, cfg)

	return out
}
