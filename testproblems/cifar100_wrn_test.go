package testproblems_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FelixBenning/DeepOBS/autodiff"
	"github.com/FelixBenning/DeepOBS/backend/cpu"
	"github.com/FelixBenning/DeepOBS/datasets/cifar100"
	"github.com/FelixBenning/DeepOBS/testproblems"
	"github.com/FelixBenning/DeepOBS/tensor"
)

func smallConfig() testproblems.Config {
	return testproblems.Config{
		BatchSize:        4,
		NumResidualUnits: 1,
		K:                1,
		WeightDecay:      5e-4,
		BNDecay:          0.9,
		Seed:             42,
	}
}

func smallData() *cifar100.Data {
	return cifar100.Synthetic(16, 8, rand.New(rand.NewSource(0)))
}

func TestForwardShape(t *testing.T) {
	backend := cpu.New()
	p, err := testproblems.NewCifar100WRN(smallData(), smallConfig(), backend)
	require.NoError(t, err)

	p.SetPhase(cifar100.PhaseTest)
	batch, ok := p.Iterator().Next()
	require.True(t, ok)

	logits := p.Forward(batch.Images)
	assert.True(t, logits.Shape().Equal(tensor.Shape{4, 100}),
		"logits shape = %v", logits.Shape())

	losses := p.Losses(logits, batch.Labels)
	assert.True(t, losses.Shape().Equal(tensor.Shape{4}),
		"losses shape = %v", losses.Shape())

	acc := p.Accuracy(logits, batch.Labels)
	assert.GreaterOrEqual(t, acc, float32(0))
	assert.LessOrEqual(t, acc, float32(1))
}

// Parameter counts: conv_0 and the final batch norm and fc layer give
// 5 tensors; each block has a transition unit (6 tensors, plus one for
// a convolutional shortcut) and NumResidualUnits-1 identity units with
// 6 tensors each.
func TestParameterCount(t *testing.T) {
	backend := cpu.New()

	// k=1: only blocks 2 and 3 change channel count, so only they get
	// shortcut convolutions.
	p, err := testproblems.NewCifar100WRN(smallData(), smallConfig(), backend)
	require.NoError(t, err)
	assert.Len(t, p.Parameters(), 5+6+7+7)

	// k=4: every block changes channels.
	cfg := smallConfig()
	cfg.K = 4
	cfg.NumResidualUnits = 2
	p, err = testproblems.NewCifar100WRN(smallData(), cfg, backend)
	require.NoError(t, err)
	assert.Len(t, p.Parameters(), 5+3*(7+6))
}

func TestVariants(t *testing.T) {
	backend := cpu.New()
	cfg := smallConfig()

	wrn164, err := testproblems.NewCifar100WRN164(smallData(), cfg, backend)
	require.NoError(t, err)
	assert.Len(t, wrn164.Parameters(), 5+3*(7+6))

	wrn404, err := testproblems.NewCifar100WRN404(smallData(), cfg, backend)
	require.NoError(t, err)
	assert.Len(t, wrn404.Parameters(), 5+3*(7+5*6))
}

func TestRegularizationExcludesBiasesAndBatchNorm(t *testing.T) {
	backend := cpu.New()
	p, err := testproblems.NewCifar100WRN(smallData(), smallConfig(), backend)
	require.NoError(t, err)

	regularizable := 0
	for _, param := range p.Parameters() {
		if param.Regularizable() {
			regularizable++
		}
	}
	// Weights only: conv_0, 3 transition units with 2 convs each, two
	// shortcut convs, and the fc weight.
	assert.Equal(t, 1+3*2+2+1, regularizable)

	penalty := p.RegularizationLoss()
	require.NotNil(t, penalty)
	assert.Greater(t, penalty.Item(), float32(0))
}

func TestZeroWeightDecay(t *testing.T) {
	backend := cpu.New()
	cfg := smallConfig()
	cfg.WeightDecay = 0
	p, err := testproblems.NewCifar100WRN(smallData(), cfg, backend)
	require.NoError(t, err)
	assert.Nil(t, p.RegularizationLoss())
}

func TestSetPhaseTogglesBatchNorm(t *testing.T) {
	backend := cpu.New()
	p, err := testproblems.NewCifar100WRN(smallData(), smallConfig(), backend)
	require.NoError(t, err)

	p.SetPhase(cifar100.PhaseTest)
	assert.Equal(t, cifar100.PhaseTest, p.Phase())

	// In eval mode with fresh moving statistics the forward pass is
	// deterministic across calls.
	batch, ok := p.Iterator().Next()
	require.True(t, ok)
	first := p.Forward(batch.Images)
	second := p.Forward(batch.Images)
	assert.Equal(t, first.Data(), second.Data())

	// In training mode the forward pass updates the moving statistics.
	p.SetPhase(cifar100.PhaseTrain)
	assert.Equal(t, cifar100.PhaseTrain, p.Phase())
	p.Forward(batch.Images)
	p.SetPhase(cifar100.PhaseTest)
	third := p.Forward(batch.Images)
	assert.NotEqual(t, first.Data(), third.Data())
}

func TestGradientsReachAllParameters(t *testing.T) {
	backend := autodiff.New(cpu.New())
	p, err := testproblems.NewCifar100WRN(smallData(), smallConfig(), backend)
	require.NoError(t, err)

	p.SetPhase(cifar100.PhaseTrain)
	batch, ok := p.Iterator().Next()
	require.True(t, ok)

	backend.Tape().StartRecording()
	defer backend.Tape().Clear()

	logits := p.Forward(batch.Images)
	loss := p.Losses(logits, batch.Labels).Mean()
	loss = loss.Add(p.RegularizationLoss())

	grads := autodiff.Backward(loss, backend)
	for _, param := range p.Parameters() {
		grad, ok := grads[param.Tensor().Raw()]
		require.True(t, ok, "no gradient for %s", param.Name())
		assert.True(t, grad.Shape().Equal(param.Tensor().Shape()),
			"%s: gradient shape %v, parameter shape %v", param.Name(), grad.Shape(), param.Tensor().Shape())
	}
}

func TestConfigValidation(t *testing.T) {
	backend := cpu.New()
	data := smallData()

	bad := []testproblems.Config{
		{BatchSize: 0, NumResidualUnits: 1, K: 1, BNDecay: 0.9},
		{BatchSize: 4, NumResidualUnits: 0, K: 1, BNDecay: 0.9},
		{BatchSize: 4, NumResidualUnits: 1, K: 0, BNDecay: 0.9},
		{BatchSize: 4, NumResidualUnits: 1, K: 1, BNDecay: 0.9, WeightDecay: -1},
		{BatchSize: 4, NumResidualUnits: 1, K: 1, BNDecay: 1.5},
	}
	for i, cfg := range bad {
		_, err := testproblems.NewCifar100WRN(data, cfg, backend)
		assert.Error(t, err, "config %d should be rejected", i)
	}
}
