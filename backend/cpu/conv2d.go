package cpu

import (
	"fmt"

	"github.com/FelixBenning/DeepOBS/internal/parallel"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// Conv2D performs 2D convolution using the im2col algorithm.
//
// Input shape:  [N, C_in, H, W]
// Kernel shape: [C_out, C_in, K, K]
// Output shape: [N, C_out, H_out, W_out]
//
// where out = (in + 2*padding - K)/stride + 1.
//
// Im2col lowers the convolution to a matrix product: input patches become
// rows of a column buffer, the kernel is already laid out as a
// [C_out, C_in*K*K] matrix in row-major order, and each output element is
// a dot product between a kernel row and a patch row.
func (c *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	mustFloat32("conv2d", input, kernel)

	n, cIn, h, w := convDims("conv2d", input)
	kShape := kernel.Shape()
	if len(kShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in,K,K], got %v", kShape))
	}
	cOut, kh, kw := kShape[0], kShape[2], kShape[3]
	if kShape[1] != cIn {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", cIn, kShape[1]))
	}

	hOut := (h+2*padding-kh)/stride + 1
	wOut := (w+2*padding-kw)/stride + 1
	if hOut <= 0 || wOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output size %dx%d (check stride/padding)", hOut, wOut))
	}

	colWidth := cIn * kh * kw
	colBuf := im2col(input.AsFloat32(), n, cIn, h, w, kh, kw, hOut, wOut, stride, padding)

	out := tensor.MustNewRaw(tensor.Shape{n, cOut, hOut, wOut}, tensor.Float32, c.Device())
	outData := out.AsFloat32()
	kernelData := kernel.AsFloat32()

	spatial := hOut * wOut
	cfg := c.cfg
	cfg.MinChunkSize = 1

	// One task per (batch, out-channel) plane.
	parallel.For(n*cOut, func(task int) {
		b := task / cOut
		co := task % cOut
		kRow := kernelData[co*colWidth : (co+1)*colWidth]
		for s := 0; s < spatial; s++ {
			patch := colBuf[(b*spatial+s)*colWidth : (b*spatial+s+1)*colWidth]
			var sum float32
			for i, kv := range kRow {
				sum += kv * patch[i]
			}
			outData[(b*cOut+co)*spatial+s] = sum
		}
	}, cfg)

	return out
}

// im2col unrolls input patches into rows: [N*H_out*W_out, C_in*K*K].
// Out-of-bounds (padding) positions stay zero.
func im2col(input []float32, n, cIn, h, w, kh, kw, hOut, wOut, stride, padding int) []float32 {
	colWidth := cIn * kh * kw
	col := make([]float32, n*hOut*wOut*colWidth)

	for b := 0; b < n; b++ {
		for ho := 0; ho < hOut; ho++ {
			for wo := 0; wo < wOut; wo++ {
				row := col[((b*hOut+ho)*wOut+wo)*colWidth:][:colWidth]
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
							row[(ci*kh+y)*kw+x] = input[((b*cIn+ci)*h+ih)*w+iw]
						}
					}
				}
			}
		}
	}
	return col
}

// convDims validates a 4D NCHW tensor and returns its dimensions.
func convDims(op string, t *tensor.RawTensor) (n, c, h, w int) {
	s := t.Shape()
	if len(s) != 4 {
		panic(fmt.Sprintf("%s: expected 4D input [N,C,H,W], got %v", op, s))
	}
	return s[0], s[1], s[2], s[3]
}
