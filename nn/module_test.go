package nn_test

import (
	"math/rand"
	"testing"

	"github.com/FelixBenning/DeepOBS/backend/cpu"
	"github.com/FelixBenning/DeepOBS/nn"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// TestModuleInterface verifies that concrete types implement Module.
func TestModuleInterface(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(42))

	tests := []struct {
		name   string
		module nn.Module[*cpu.CPUBackend]
		input  tensor.Shape
		output tensor.Shape
	}{
		{
			name:   "Conv2D",
			module: nn.NewConv2D("conv", 3, 16, 3, 1, 1, false, rng, backend),
			input:  tensor.Shape{2, 3, 8, 8},
			output: tensor.Shape{2, 16, 8, 8},
		},
		{
			name:   "Conv2D strided",
			module: nn.NewConv2D("conv", 16, 32, 3, 2, 1, false, rng, backend),
			input:  tensor.Shape{2, 16, 8, 8},
			output: tensor.Shape{2, 32, 4, 4},
		},
		{
			name:   "Linear",
			module: nn.NewLinear("fc", 10, 5, rng, backend),
			input:  tensor.Shape{2, 10},
			output: tensor.Shape{2, 5},
		},
		{
			name:   "BatchNorm2D",
			module: nn.NewBatchNorm2D("bn", 3, 0.9, backend),
			input:  tensor.Shape{4, 3, 8, 8},
			output: tensor.Shape{4, 3, 8, 8},
		},
		{
			name:   "ReLU",
			module: nn.NewReLU(backend),
			input:  tensor.Shape{2, 3, 8, 8},
			output: tensor.Shape{2, 3, 8, 8},
		},
		{
			name:   "MaxPool2D",
			module: nn.NewMaxPool2D(3, 2, backend),
			input:  tensor.Shape{2, 3, 9, 9},
			output: tensor.Shape{2, 3, 4, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tensor.Randn(tt.input, 1.0, rng, backend)
			output := tt.module.Forward(input)
			if !output.Shape().Equal(tt.output) {
				t.Errorf("output shape = %v, want %v", output.Shape(), tt.output)
			}
			_ = tt.module.Parameters()
		})
	}
}

// TestParameterRegularizable verifies the weight-decay bookkeeping:
// conv and linear weights carry the flag, biases and batch norm
// parameters do not.
func TestParameterRegularizable(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(42))

	conv := nn.NewConv2D("conv", 3, 8, 3, 1, 1, true, rng, backend)
	if !conv.Weight.Regularizable() {
		t.Error("conv weight should be regularizable")
	}
	if conv.Bias.Regularizable() {
		t.Error("conv bias should not be regularizable")
	}

	fc := nn.NewLinear("fc", 8, 4, rng, backend)
	if !fc.Weight.Regularizable() {
		t.Error("linear weight should be regularizable")
	}
	if fc.Bias.Regularizable() {
		t.Error("linear bias should not be regularizable")
	}

	bn := nn.NewBatchNorm2D("bn", 8, 0.9, backend)
	for _, p := range bn.Parameters() {
		if p.Regularizable() {
			t.Errorf("batch norm parameter %s should not be regularizable", p.Name())
		}
	}
}

// TestConvNoBias verifies that a bias-free convolution exposes only
// the weight.
func TestConvNoBias(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(7))

	conv := nn.NewConv2D("conv", 3, 8, 3, 1, 1, false, rng, backend)
	if conv.Bias != nil {
		t.Error("expected nil bias")
	}
	if got := len(conv.Parameters()); got != 1 {
		t.Errorf("Parameters() returned %d params, want 1", got)
	}
}

// TestL2Regularization checks the L2 penalty value and that only
// regularizable parameters contribute.
func TestL2Regularization(t *testing.T) {
	backend := cpu.New()

	w, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	if err != nil {
		t.Fatal(err)
	}
	b, err := tensor.FromSlice([]float32{10, 10}, tensor.Shape{2}, backend)
	if err != nil {
		t.Fatal(err)
	}

	params := []*nn.Parameter[*cpu.CPUBackend]{
		nn.NewParameter("w", w, true),
		nn.NewParameter("b", b, false),
	}

	// 0.1/2 * (1 + 4 + 9 + 16) = 1.5; the bias is excluded.
	penalty := nn.L2Regularization(params, 0.1)
	if got := penalty.Item(); !approxEqual(got, 1.5, 1e-6) {
		t.Errorf("L2Regularization = %v, want 1.5", got)
	}

	if nn.L2Regularization(params[1:], 0.1) != nil {
		t.Error("expected nil penalty without regularizable params")
	}
}

func approxEqual(a, b, tol float32) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tol
}
