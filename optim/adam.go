package optim

import (
	"math"

	"github.com/FelixBenning/DeepOBS/nn"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// Adam implements the Adam update rule with bias correction.
type Adam[B tensor.Backend] struct {
	params []*nn.Parameter[B]
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32

	step int
	m    [][]float32 // first moment, aligned with params
	v    [][]float32 // second moment, aligned with params
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LR    float32    // learning rate (default: 0.001)
	Betas [2]float32 // running-average coefficients (default: [0.9, 0.999])
	Eps   float32    // numerical stability term (default: 1e-8)
}

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas == [2]float32{} {
		config.Betas = [2]float32{0.9, 0.999}
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam[B]{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make([][]float32, len(params)),
		v:      make([][]float32, len(params)),
	}
}

// Step applies one Adam update.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.step++
	correction1 := 1 - float32(math.Pow(float64(a.beta1), float64(a.step)))
	correction2 := 1 - float32(math.Pow(float64(a.beta2), float64(a.step)))

	for i, p := range a.params {
		grad := gradientFor(p, grads)
		if grad == nil {
			continue
		}
		data := p.Tensor().Data()

		if a.m[i] == nil {
			a.m[i] = make([]float32, len(data))
			a.v[i] = make([]float32, len(data))
		}
		m, v := a.m[i], a.v[i]

		for j := range data {
			g := grad[j]
			m[j] = a.beta1*m[j] + (1-a.beta1)*g
			v[j] = a.beta2*v[j] + (1-a.beta2)*g*g
			mHat := m[j] / correction1
			vHat := v[j] / correction2
			data[j] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}

// LearningRate returns the current learning rate.
func (a *Adam[B]) LearningRate() float32 { return a.lr }

// SetLearningRate changes the learning rate.
func (a *Adam[B]) SetLearningRate(lr float32) { a.lr = lr }
