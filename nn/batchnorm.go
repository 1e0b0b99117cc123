package nn

import "github.com/FelixBenning/DeepOBS/tensor"

// BatchNorm2D normalizes [N, C, H, W] input per channel.
//
// In training mode the layer normalizes with the batch statistics
// (biased moments over the batch and spatial dimensions) and updates
// its moving averages as avg = decay·avg + (1−decay)·batch. In
// evaluation mode the moving averages are used instead. Gradients flow
// through the batch statistics.
//
// Gamma and Beta are trainable but not regularizable.
type BatchNorm2D[B tensor.Backend] struct {
	Gamma *Parameter[B] // [C], initialized to ones
	Beta  *Parameter[B] // [C], initialized to zeros

	movingMean *tensor.Tensor[float32, B] // [1, C, 1, 1]
	movingVar  *tensor.Tensor[float32, B] // [1, C, 1, 1]

	numFeatures int
	decay       float32
	eps         float32
	training    bool
}

// NewBatchNorm2D creates a batch normalization layer over numFeatures
// channels with the given moving-average decay.
func NewBatchNorm2D[B tensor.Backend](name string, numFeatures int, decay float32, backend B) *BatchNorm2D[B] {
	bufShape := tensor.Shape{1, numFeatures, 1, 1}
	return &BatchNorm2D[B]{
		Gamma:       NewParameter(name+"/gamma", tensor.Ones[float32](tensor.Shape{numFeatures}, backend), false),
		Beta:        NewParameter(name+"/beta", tensor.Zeros[float32](tensor.Shape{numFeatures}, backend), false),
		movingMean:  tensor.Zeros[float32](bufShape, backend),
		movingVar:   tensor.Ones[float32](bufShape, backend),
		numFeatures: numFeatures,
		decay:       decay,
		eps:         1e-5,
		training:    true,
	}
}

// SetTraining switches between batch statistics (true) and moving
// statistics (false).
func (bn *BatchNorm2D[B]) SetTraining(training bool) { bn.training = training }

// Training reports whether the layer uses batch statistics.
func (bn *BatchNorm2D[B]) Training() bool { return bn.training }

// MovingMean returns the moving mean buffer, shape [1, C, 1, 1].
func (bn *BatchNorm2D[B]) MovingMean() *tensor.Tensor[float32, B] { return bn.movingMean }

// MovingVariance returns the moving variance buffer, shape [1, C, 1, 1].
func (bn *BatchNorm2D[B]) MovingVariance() *tensor.Tensor[float32, B] { return bn.movingVar }

// Forward normalizes the input and applies the learned scale and offset.
func (bn *BatchNorm2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	var normalized *tensor.Tensor[float32, B]
	if bn.training {
		// Biased moments over batch and spatial dimensions, [1, C, 1, 1].
		mean := input.MeanDim(0, true).MeanDim(2, true).MeanDim(3, true)
		centered := input.Sub(mean)
		variance := centered.Mul(centered).MeanDim(0, true).MeanDim(2, true).MeanDim(3, true)
		bn.updateMovingStats(mean, variance)
		normalized = centered.Mul(variance.AddScalar(bn.eps).Rsqrt())
	} else {
		centered := input.Sub(bn.movingMean)
		normalized = centered.Mul(bn.movingVar.AddScalar(bn.eps).Rsqrt())
	}
	gamma := bn.Gamma.Tensor().Reshape(1, bn.numFeatures, 1, 1)
	beta := bn.Beta.Tensor().Reshape(1, bn.numFeatures, 1, 1)
	return normalized.Mul(gamma).Add(beta)
}

// updateMovingStats folds the batch statistics into the moving averages.
// This is plain bookkeeping and stays off the gradient tape.
func (bn *BatchNorm2D[B]) updateMovingStats(mean, variance *tensor.Tensor[float32, B]) {
	avgMean := bn.movingMean.Data()
	avgVar := bn.movingVar.Data()
	batchMean := mean.Data()
	batchVar := variance.Data()
	for i := range avgMean {
		avgMean[i] = bn.decay*avgMean[i] + (1-bn.decay)*batchMean[i]
		avgVar[i] = bn.decay*avgVar[i] + (1-bn.decay)*batchVar[i]
	}
}

// Parameters returns gamma and beta.
func (bn *BatchNorm2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.Gamma, bn.Beta}
}
