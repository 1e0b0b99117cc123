package optim

import (
	"github.com/FelixBenning/DeepOBS/nn"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// SGD is stochastic gradient descent with classical momentum:
//
//	v = momentum·v + g
//	w = w − lr·v
//
// With momentum 0 it reduces to plain gradient descent.
type SGD[B tensor.Backend] struct {
	params   []*nn.Parameter[B]
	lr       float32
	momentum float32
	velocity [][]float32 // aligned with params, nil until first use
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float32 // learning rate (default: 0.01)
	Momentum float32 // momentum factor (default: 0, range [0, 1))
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[B]{
		params:   params,
		lr:       config.LR,
		momentum: config.Momentum,
		velocity: make([][]float32, len(params)),
	}
}

// Step applies one SGD update.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for i, p := range s.params {
		grad := gradientFor(p, grads)
		if grad == nil {
			continue
		}
		data := p.Tensor().Data()

		if s.momentum == 0 {
			for j := range data {
				data[j] -= s.lr * grad[j]
			}
			continue
		}

		if s.velocity[i] == nil {
			s.velocity[i] = make([]float32, len(data))
		}
		v := s.velocity[i]
		for j := range data {
			v[j] = s.momentum*v[j] + grad[j]
			data[j] -= s.lr * v[j]
		}
	}
}

// LearningRate returns the current learning rate.
func (s *SGD[B]) LearningRate() float32 { return s.lr }

// SetLearningRate changes the learning rate.
func (s *SGD[B]) SetLearningRate(lr float32) { s.lr = lr }
