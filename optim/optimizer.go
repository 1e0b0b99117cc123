// Package optim implements gradient-based parameter update rules.
package optim

import (
	"github.com/FelixBenning/DeepOBS/nn"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// Optimizer updates parameters from a gradient map produced by
// autodiff.Backward.
type Optimizer[B tensor.Backend] interface {
	// Step applies one update using the given gradients. Parameters
	// without a gradient in the map are left unchanged.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// LearningRate returns the current learning rate.
	LearningRate() float32

	// SetLearningRate changes the learning rate, for schedules.
	SetLearningRate(lr float32)
}

// gradientFor looks up the gradient of p by RawTensor identity.
func gradientFor[B tensor.Backend](p *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) []float32 {
	g, ok := grads[p.Tensor().Raw()]
	if !ok {
		return nil
	}
	return g.AsFloat32()
}
