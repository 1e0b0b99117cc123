package nn

import (
	"math/rand"

	"github.com/FelixBenning/DeepOBS/tensor"
)

// Conv2D is a 2D convolution over [N, C, H, W] input with symmetric
// zero padding. The weight is regularizable; the optional bias is not.
type Conv2D[B tensor.Backend] struct {
	Weight *Parameter[B]
	Bias   *Parameter[B] // nil when the layer has no bias

	outChannels int
	stride      int
	padding     int
	backend     B
}

// NewConv2D creates a convolution layer. The kernel is initialized from
// a zero-mean normal with stddev sqrt(1 / (kernelSize² · outChannels)).
func NewConv2D[B tensor.Backend](name string, inChannels, outChannels, kernelSize, stride, padding int, bias bool, rng *rand.Rand, backend B) *Conv2D[B] {
	c := &Conv2D[B]{
		Weight:      NewParameter(name+"/w", convInit(outChannels, inChannels, kernelSize, kernelSize, rng, backend), true),
		outChannels: outChannels,
		stride:      stride,
		padding:     padding,
		backend:     backend,
	}
	if bias {
		c.Bias = NewParameter(name+"/b", tensor.Zeros[float32](tensor.Shape{outChannels}, backend), false)
	}
	return c
}

// Forward applies the convolution. Input shape [N, CIn, H, W], output
// shape [N, COut, HOut, WOut].
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := c.backend.Conv2D(input.Raw(), c.Weight.Tensor().Raw(), c.stride, c.padding)
	out := tensor.New[float32, B](raw, c.backend)
	if c.Bias != nil {
		out = out.Add(c.Bias.Tensor().Reshape(1, c.outChannels, 1, 1))
	}
	return out
}

// Parameters returns the weight and, if present, the bias.
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	if c.Bias == nil {
		return []*Parameter[B]{c.Weight}
	}
	return []*Parameter[B]{c.Weight, c.Bias}
}
