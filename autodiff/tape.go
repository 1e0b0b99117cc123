package autodiff

import (
	"github.com/FelixBenning/DeepOBS/autodiff/ops"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// GradientTape records operations during the forward pass and replays
// them in reverse to compute gradients.
type GradientTape struct {
	operations []ops.Operation
	recording  bool
}

// NewGradientTape creates an empty tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]ops.Operation, 0, 64),
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() {
	t.recording = false
}

// IsRecording reports whether the tape is currently recording.
func (t *GradientTape) IsRecording() bool {
	return t.recording
}

// Record appends an operation if the tape is recording.
func (t *GradientTape) Record(op ops.Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int {
	return len(t.operations)
}

// Clear drops all recorded operations. Recording state is preserved, so a
// training step can Clear between iterations without re-arming the tape.
func (t *GradientTape) Clear() {
	t.operations = t.operations[:0]
}

// Backward walks the tape in reverse from the given output, applying the
// chain rule and accumulating gradients when a tensor feeds several
// operations. Returns a map from RawTensor identity to its gradient.
func (t *GradientTape) Backward(output, outputGrad *tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	if len(t.operations) == 0 {
		return grads
	}

	// Gradient arithmetic must not append to the tape.
	wasRecording := t.recording
	t.recording = false
	defer func() { t.recording = wasRecording }()

	grads[output] = outputGrad

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		outGrad := grads[op.Output()]
		if outGrad == nil {
			// No gradient reaches this operation's output.
			continue
		}

		inputGrads := op.Backward(outGrad, backend)
		for j, input := range op.Inputs() {
			g := inputGrads[j]
			if g == nil {
				continue
			}
			if existing := grads[input]; existing != nil {
				g = backend.Add(existing, g)
			}
			grads[input] = g
		}
	}

	return grads
}
