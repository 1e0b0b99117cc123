package nn

import (
	"math"
	"math/rand"

	"github.com/FelixBenning/DeepOBS/tensor"
)

// convInit draws a convolution kernel from a zero-mean normal with
// stddev sqrt(1 / (kh * kw * outChannels)).
func convInit[B tensor.Backend](outChannels, inChannels, kh, kw int, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	stddev := math.Sqrt(1.0 / float64(kh*kw*outChannels))
	return tensor.Randn(tensor.Shape{outChannels, inChannels, kh, kw}, stddev, rng, backend)
}

// linearInit draws a dense weight matrix from a zero-mean normal with
// stddev sqrt(1 / outFeatures).
func linearInit[B tensor.Backend](outFeatures, inFeatures int, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	stddev := math.Sqrt(1.0 / float64(outFeatures))
	return tensor.Randn(tensor.Shape{outFeatures, inFeatures}, stddev, rng, backend)
}
