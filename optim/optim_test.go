package optim_test

import (
	"math"
	"testing"

	"github.com/FelixBenning/DeepOBS/backend/cpu"
	"github.com/FelixBenning/DeepOBS/nn"
	"github.com/FelixBenning/DeepOBS/optim"
	"github.com/FelixBenning/DeepOBS/tensor"
)

func makeParam(t *testing.T, backend *cpu.CPUBackend, values []float32) *nn.Parameter[*cpu.CPUBackend] {
	t.Helper()
	w, err := tensor.FromSlice(values, tensor.Shape{len(values)}, backend)
	if err != nil {
		t.Fatal(err)
	}
	return nn.NewParameter("w", w, true)
}

func makeGrads(t *testing.T, backend *cpu.CPUBackend, p *nn.Parameter[*cpu.CPUBackend], values []float32) map[*tensor.RawTensor]*tensor.RawTensor {
	t.Helper()
	g, err := tensor.FromSlice(values, tensor.Shape{len(values)}, backend)
	if err != nil {
		t.Fatal(err)
	}
	return map[*tensor.RawTensor]*tensor.RawTensor{p.Tensor().Raw(): g.Raw()}
}

// TestSGDStep checks the plain gradient descent update.
func TestSGDStep(t *testing.T) {
	backend := cpu.New()
	p := makeParam(t, backend, []float32{1, 2, 3})
	grads := makeGrads(t, backend, p, []float32{0.5, -0.5, 1})

	sgd := optim.NewSGD([]*nn.Parameter[*cpu.CPUBackend]{p}, optim.SGDConfig{LR: 0.1})
	sgd.Step(grads)

	want := []float32{0.95, 2.05, 2.9}
	for i, w := range want {
		if got := p.Tensor().Data()[i]; math.Abs(float64(got-w)) > 1e-6 {
			t.Errorf("param[%d] = %v, want %v", i, got, w)
		}
	}
}

// TestSGDMomentum checks velocity accumulation over two steps:
// v1 = g, v2 = momentum·g + g.
func TestSGDMomentum(t *testing.T) {
	backend := cpu.New()
	p := makeParam(t, backend, []float32{0})
	grads := makeGrads(t, backend, p, []float32{1})

	sgd := optim.NewSGD([]*nn.Parameter[*cpu.CPUBackend]{p}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	sgd.Step(grads)
	sgd.Step(grads)

	// After step 1: w = -0.1. After step 2: v = 1.9, w = -0.1 - 0.19.
	want := float32(-0.29)
	if got := p.Tensor().Data()[0]; math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("param = %v, want %v", got, want)
	}
}

// TestAdamFirstStep verifies that the bias-corrected first step moves
// the parameter by approximately lr in the gradient direction.
func TestAdamFirstStep(t *testing.T) {
	backend := cpu.New()
	p := makeParam(t, backend, []float32{1, 1})
	grads := makeGrads(t, backend, p, []float32{10, -0.1})

	adam := optim.NewAdam([]*nn.Parameter[*cpu.CPUBackend]{p}, optim.AdamConfig{LR: 0.01})
	adam.Step(grads)

	// mHat/sqrt(vHat) = sign(g) on the first step, up to eps.
	want := []float32{1 - 0.01, 1 + 0.01}
	for i, w := range want {
		if got := p.Tensor().Data()[i]; math.Abs(float64(got-w)) > 1e-4 {
			t.Errorf("param[%d] = %v, want %v", i, got, w)
		}
	}
}

// TestMissingGradient verifies parameters without gradients stay put.
func TestMissingGradient(t *testing.T) {
	backend := cpu.New()
	p := makeParam(t, backend, []float32{42})

	sgd := optim.NewSGD([]*nn.Parameter[*cpu.CPUBackend]{p}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	sgd.Step(map[*tensor.RawTensor]*tensor.RawTensor{})

	if got := p.Tensor().Data()[0]; got != 42 {
		t.Errorf("param = %v, want unchanged 42", got)
	}
}

// TestConfigDefaults verifies zero-value configs fall back to the
// standard hyperparameters.
func TestConfigDefaults(t *testing.T) {
	backend := cpu.New()
	p := makeParam(t, backend, []float32{0})
	params := []*nn.Parameter[*cpu.CPUBackend]{p}

	if got := optim.NewSGD(params, optim.SGDConfig{}).LearningRate(); got != 0.01 {
		t.Errorf("SGD default LR = %v, want 0.01", got)
	}
	if got := optim.NewAdam(params, optim.AdamConfig{}).LearningRate(); got != 0.001 {
		t.Errorf("Adam default LR = %v, want 0.001", got)
	}
}

// TestSetLearningRate checks the schedule hook.
func TestSetLearningRate(t *testing.T) {
	backend := cpu.New()
	p := makeParam(t, backend, []float32{0})

	var opts = []optim.Optimizer[*cpu.CPUBackend]{
		optim.NewSGD([]*nn.Parameter[*cpu.CPUBackend]{p}, optim.SGDConfig{LR: 0.1}),
		optim.NewAdam([]*nn.Parameter[*cpu.CPUBackend]{p}, optim.AdamConfig{LR: 0.1}),
	}
	for _, opt := range opts {
		opt.SetLearningRate(0.01)
		if got := opt.LearningRate(); got != 0.01 {
			t.Errorf("LearningRate = %v, want 0.01", got)
		}
	}
}
