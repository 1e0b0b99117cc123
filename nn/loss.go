package nn

import (
	"fmt"

	"github.com/FelixBenning/DeepOBS/tensor"
)

// crossEntropyBackend is satisfied by backends that provide a fused
// softmax cross-entropy kernel, such as the autodiff decorator.
type crossEntropyBackend interface {
	SoftmaxCrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
}

// SoftmaxCrossEntropy computes per-example softmax cross-entropy losses
// from logits and integer class labels.
type SoftmaxCrossEntropy[B tensor.Backend] struct {
	backend B
}

// NewSoftmaxCrossEntropy creates the loss.
func NewSoftmaxCrossEntropy[B tensor.Backend](backend B) *SoftmaxCrossEntropy[B] {
	return &SoftmaxCrossEntropy[B]{backend: backend}
}

// Losses returns the per-example losses, shape [N], for logits of
// shape [N, numClasses] and targets of shape [N].
func (l *SoftmaxCrossEntropy[B]) Losses(logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	cb, ok := any(l.backend).(crossEntropyBackend)
	if !ok {
		panic(fmt.Sprintf("softmax cross-entropy: backend %s does not implement SoftmaxCrossEntropy", l.backend.Name()))
	}
	return tensor.New[float32, B](cb.SoftmaxCrossEntropy(logits.Raw(), targets.Raw()), l.backend)
}

// Accuracy returns the fraction of rows whose argmax matches the target.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) float32 {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("accuracy: logits must be 2D, got shape %v", shape))
	}
	batch, numClasses := shape[0], shape[1]
	if targets.NumElements() != batch {
		panic(fmt.Sprintf("accuracy: %d logit rows but %d targets", batch, targets.NumElements()))
	}

	data := logits.Data()
	labels := targets.Data()
	correct := 0
	for b := 0; b < batch; b++ {
		row := data[b*numClasses : (b+1)*numClasses]
		argmax := 0
		for i := 1; i < numClasses; i++ {
			if row[i] > row[argmax] {
				argmax = i
			}
		}
		if int32(argmax) == labels[b] {
			correct++
		}
	}
	return float32(correct) / float32(batch)
}
