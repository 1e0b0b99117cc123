package testproblems

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FelixBenning/DeepOBS/autodiff"
	"github.com/FelixBenning/DeepOBS/backend/cpu"
	"github.com/FelixBenning/DeepOBS/tensor"
)

func TestTransitionShortcutSelection(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(1))

	cases := []struct {
		name                string
		inCh, outCh, stride int
		want                shortcutKind
	}{
		{"identity", 16, 16, 1, shortcutIdentity},
		{"maxpool", 16, 16, 2, shortcutMaxPool},
		{"conv_channel_change", 16, 32, 2, shortcutConv},
		{"conv_channel_change_unstrided", 16, 32, 1, shortcutConv},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := newTransitionUnit("unit", tc.inCh, tc.outCh, tc.stride, 0.9, rng, backend)
			assert.Equal(t, tc.want, u.shortcut)
			assert.Equal(t, tc.want == shortcutMaxPool, u.shortcutPool != nil)
			assert.Equal(t, tc.want == shortcutConv, u.shortcutConv != nil)
		})
	}
}

// TestMaxPoolShortcut exercises the strided same-width transition unit:
// the shortcut max-pools the activated input, so the residual sum and
// the pooling backward pass both have to line up with the strided
// convolution branch.
func TestMaxPoolShortcut(t *testing.T) {
	backend := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(7))

	u := newTransitionUnit("unit", 4, 4, 2, 0.9, rng, backend)
	require.Equal(t, shortcutMaxPool, u.shortcut)
	// bn_1 gamma/beta, conv_1 weight, bn_2 gamma/beta, conv_2 weight.
	require.Len(t, u.Parameters(), 6)

	input := tensor.Randn(tensor.Shape{2, 4, 8, 8}, 1, rng, backend)

	backend.Tape().StartRecording()
	defer backend.Tape().Clear()

	out := u.Forward(input)
	assert.True(t, out.Shape().Equal(tensor.Shape{2, 4, 4, 4}),
		"output shape = %v", out.Shape())

	grads := autodiff.Backward(out.Mean(), backend)
	for _, param := range u.Parameters() {
		grad, ok := grads[param.Tensor().Raw()]
		require.True(t, ok, "no gradient for %s", param.Name())
		assert.True(t, grad.Shape().Equal(param.Tensor().Shape()),
			"%s: gradient shape %v, parameter shape %v", param.Name(), grad.Shape(), param.Tensor().Shape())
	}

	grad, ok := grads[input.Raw()]
	require.True(t, ok, "no gradient reached the input")
	assert.True(t, grad.Shape().Equal(input.Shape()))
}
