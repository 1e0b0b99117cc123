package cpu

import "github.com/FelixBenning/DeepOBS/tensor"

// ReLU applies max(0, x) element-wise. ReLU lives outside the core
// Backend interface; callers discover it via interface assertion.
func (c *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unaryOp("relu", x, func(v float32) float32 {
		if v > 0 {
			return v
		}
		return 0
	})
}
