package cpu

import (
	"fmt"

	"github.com/FelixBenning/DeepOBS/internal/parallel"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// MatMul performs 2D matrix multiplication: [M, K] @ [K, N] -> [M, N].
//
// Rows of the result are computed independently, so the work is split
// across workers by output row. The inner loop iterates k-major to walk
// both operands sequentially in memory.
func (c *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	mustFloat32("matmul", a, b)

	aShape := a.Shape()
	bShape := b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D operands, got %v @ %v", aShape, bShape))
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("matmul: inner dimensions do not match: %v @ %v", aShape, bShape))
	}

	m, k, n := aShape[0], aShape[1], bShape[1]

	out := tensor.MustNewRaw(tensor.Shape{m, n}, tensor.Float32, c.Device())
	outData := out.AsFloat32()
	aData := a.AsFloat32()
	bData := b.AsFloat32()

	cfg := c.cfg
	cfg.MinChunkSize = 1 // A row is already a substantial unit of work.

	parallel.For(m, func(i int) {
		row := outData[i*n : (i+1)*n]
		for kk := 0; kk < k; kk++ {
			av := aData[i*k+kk]
			if av == 0 {
				continue
			}
			bRow := bData[kk*n : (kk+1)*n]
			for j := range row {
				row[j] += av * bRow[j]
			}
		}
	}, cfg)

	return out
}
