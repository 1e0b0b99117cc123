package nn

import "github.com/FelixBenning/DeepOBS/tensor"

// L2Regularization returns the L2 weight-decay penalty over the
// regularizable parameters:
//
//	weightDecay/2 · Σ sum(w²)
//
// Biases and batch normalization parameters are skipped. The penalty
// is built from tensor operations so gradients flow back into the
// weights. Returns nil when no parameter is regularizable.
func L2Regularization[B tensor.Backend](params []*Parameter[B], weightDecay float32) *tensor.Tensor[float32, B] {
	var total *tensor.Tensor[float32, B]
	for _, p := range params {
		if !p.Regularizable() {
			continue
		}
		w := p.Tensor()
		sq := w.Mul(w).Sum()
		if total == nil {
			total = sq
		} else {
			total = total.Add(sq)
		}
	}
	if total == nil {
		return nil
	}
	return total.MulScalar(0.5 * weightDecay)
}
