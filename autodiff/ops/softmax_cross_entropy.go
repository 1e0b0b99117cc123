package ops

import (
	"fmt"
	"math"

	"github.com/FelixBenning/DeepOBS/tensor"
)

// SoftmaxCrossEntropyOp records per-example softmax cross-entropy losses.
//
// Forward, per example b:
//
//	losses[b] = logsumexp(logits[b]) - logits[b][targets[b]]
//
// computed with the max-shift trick for numerical stability.
//
// Backward, given the per-example upstream gradient g[b]:
//
//	dL/dlogits[b,i] = g[b] * (softmax(logits[b])[i] - 1{i == targets[b]})
//
// Keeping the losses per-example (rather than pre-averaged) mirrors how
// the benchmark exposes them; averaging is a separate MeanOp on the tape,
// so the 1/batch factor arrives through g.
type SoftmaxCrossEntropyOp struct {
	logits  *tensor.RawTensor // [batch, classes]
	targets *tensor.RawTensor // [batch] int32 class indices
	output  *tensor.RawTensor // [batch] losses
}

// NewSoftmaxCrossEntropyOp creates a SoftmaxCrossEntropyOp.
func NewSoftmaxCrossEntropyOp(logits, targets, output *tensor.RawTensor) *SoftmaxCrossEntropyOp {
	return &SoftmaxCrossEntropyOp{logits: logits, targets: targets, output: output}
}

// Backward computes the logits gradient. No gradient flows to targets.
func (op *SoftmaxCrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logits.Shape()
	batch, classes := shape[0], shape[1]

	grad := tensor.MustNewRaw(shape, tensor.Float32, op.logits.Device())
	gradData := grad.AsFloat32()
	logitsData := op.logits.AsFloat32()
	targetsData := op.targets.AsInt32()
	upstream := outputGrad.AsFloat32()

	for b := 0; b < batch; b++ {
		row := logitsData[b*classes : (b+1)*classes]
		probs := softmax(row)
		g := upstream[b]
		target := int(targetsData[b])
		for i := 0; i < classes; i++ {
			p := probs[i]
			if i == target {
				p -= 1
			}
			gradData[b*classes+i] = g * p
		}
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns [logits]. Targets are constants.
func (op *SoftmaxCrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

// Output returns the [batch] losses tensor.
func (op *SoftmaxCrossEntropyOp) Output() *tensor.RawTensor {
	return op.output
}

// SoftmaxCrossEntropyForward computes the per-example losses. It is used
// by the autodiff backend for the forward pass and by tests directly.
func SoftmaxCrossEntropyForward(logits, targets *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("softmax_cross_entropy: logits must be 2D [batch, classes], got %v", shape))
	}
	batch, classes := shape[0], shape[1]

	targetsData := targets.AsInt32()
	if len(targetsData) != batch {
		panic(fmt.Sprintf("softmax_cross_entropy: %d targets for batch %d", len(targetsData), batch))
	}

	out := tensor.MustNewRaw(tensor.Shape{batch}, tensor.Float32, device)
	outData := out.AsFloat32()
	logitsData := logits.AsFloat32()

	for b := 0; b < batch; b++ {
		row := logitsData[b*classes : (b+1)*classes]
		target := int(targetsData[b])
		if target < 0 || target >= classes {
			panic(fmt.Sprintf("softmax_cross_entropy: target %d out of range [0, %d)", target, classes))
		}
		outData[b] = logSumExp(row) - row[target]
	}

	return out
}

// logSumExp computes log(Σ exp(z)) with the max shifted out to avoid
// overflow.
func logSumExp(z []float32) float32 {
	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}
	var sum float64
	for _, v := range z {
		sum += math.Exp(float64(v - maxZ))
	}
	return maxZ + float32(math.Log(sum))
}

// softmax computes exp(z - logsumexp(z)).
func softmax(z []float32) []float32 {
	lse := logSumExp(z)
	out := make([]float32, len(z))
	for i, v := range z {
		out[i] = float32(math.Exp(float64(v - lse)))
	}
	return out
}
