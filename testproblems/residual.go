package testproblems

import (
	"fmt"
	"math/rand"

	"github.com/FelixBenning/DeepOBS/nn"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// shortcutKind selects how a transition unit carries its input past the
// residual branch.
type shortcutKind int

const (
	shortcutIdentity shortcutKind = iota
	shortcutMaxPool               // same channels, strided: spatial max pooling
	shortcutConv                  // channel change: strided 1×1 convolution
)

// residualUnit is one unit of a wide residual block.
//
// The first unit of each block is a transition: batch norm and ReLU are
// applied once, the shortcut branches off the activated tensor, and the
// first convolution may be strided. Later units are pre-activation
// units with an identity shortcut from the raw input.
type residualUnit[B tensor.Backend] struct {
	transition bool

	bn1   *nn.BatchNorm2D[B]
	conv1 *nn.Conv2D[B]
	bn2   *nn.BatchNorm2D[B]
	conv2 *nn.Conv2D[B]

	shortcut     shortcutKind
	shortcutConv *nn.Conv2D[B] // set when shortcut == shortcutConv
	shortcutPool *nn.MaxPool2D[B]
	relu         *nn.ReLU[B]
}

// newTransitionUnit builds the first unit of a block, mapping
// inChannels to outChannels with the given stride.
func newTransitionUnit[B tensor.Backend](name string, inChannels, outChannels, stride int, bnDecay float32, rng *rand.Rand, backend B) *residualUnit[B] {
	u := &residualUnit[B]{
		transition: true,
		bn1:        nn.NewBatchNorm2D(name+"/bn_1", inChannels, bnDecay, backend),
		conv1:      nn.NewConv2D(name+"/conv_1", inChannels, outChannels, 3, stride, 1, false, rng, backend),
		bn2:        nn.NewBatchNorm2D(name+"/bn_2", outChannels, bnDecay, backend),
		conv2:      nn.NewConv2D(name+"/conv_2", outChannels, outChannels, 3, 1, 1, false, rng, backend),
		relu:       nn.NewReLU(backend),
	}
	switch {
	case inChannels == outChannels && stride == 1:
		u.shortcut = shortcutIdentity
	case inChannels == outChannels:
		u.shortcut = shortcutMaxPool
		u.shortcutPool = nn.NewMaxPool2D(stride, stride, backend)
	default:
		u.shortcut = shortcutConv
		u.shortcutConv = nn.NewConv2D(name+"/shortcut", inChannels, outChannels, 1, stride, 0, false, rng, backend)
	}
	return u
}

// newIdentityUnit builds a later, non-strided unit of a block.
func newIdentityUnit[B tensor.Backend](name string, channels int, bnDecay float32, rng *rand.Rand, backend B) *residualUnit[B] {
	return &residualUnit[B]{
		bn1:   nn.NewBatchNorm2D(name+"/bn_1", channels, bnDecay, backend),
		conv1: nn.NewConv2D(name+"/conv_1", channels, channels, 3, 1, 1, false, rng, backend),
		bn2:   nn.NewBatchNorm2D(name+"/bn_2", channels, bnDecay, backend),
		conv2: nn.NewConv2D(name+"/conv_2", channels, channels, 3, 1, 1, false, rng, backend),
		relu:  nn.NewReLU(backend),
	}
}

func (u *residualUnit[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if u.transition {
		x := u.relu.Forward(u.bn1.Forward(input))

		var shortcut *tensor.Tensor[float32, B]
		switch u.shortcut {
		case shortcutIdentity:
			shortcut = x
		case shortcutMaxPool:
			shortcut = u.shortcutPool.Forward(x)
		case shortcutConv:
			shortcut = u.shortcutConv.Forward(x)
		default:
			panic(fmt.Sprintf("unknown shortcut kind %d", u.shortcut))
		}

		r := u.conv1.Forward(x)
		r = u.relu.Forward(u.bn2.Forward(r))
		r = u.conv2.Forward(r)
		return r.Add(shortcut)
	}

	r := u.conv1.Forward(u.relu.Forward(u.bn1.Forward(input)))
	r = u.conv2.Forward(u.relu.Forward(u.bn2.Forward(r)))
	return r.Add(input)
}

func (u *residualUnit[B]) Parameters() []*nn.Parameter[B] {
	params := append(u.bn1.Parameters(), u.conv1.Parameters()...)
	params = append(params, u.bn2.Parameters()...)
	params = append(params, u.conv2.Parameters()...)
	if u.shortcutConv != nil {
		params = append(params, u.shortcutConv.Parameters()...)
	}
	return params
}

func (u *residualUnit[B]) batchNorms() []*nn.BatchNorm2D[B] {
	return []*nn.BatchNorm2D[B]{u.bn1, u.bn2}
}
