package nn

import "github.com/FelixBenning/DeepOBS/tensor"

// MaxPool2D is a 2D max pooling layer over [N, C, H, W] input.
type MaxPool2D[B tensor.Backend] struct {
	kernelSize int
	stride     int
	backend    B
}

// NewMaxPool2D creates a max pooling layer with the given window and stride.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, backend B) *MaxPool2D[B] {
	return &MaxPool2D[B]{kernelSize: kernelSize, stride: stride, backend: backend}
}

// Forward applies max pooling. Output spatial size is (in − kernel)/stride + 1.
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := m.backend.MaxPool2D(input.Raw(), m.kernelSize, m.stride)
	return tensor.New[float32, B](raw, m.backend)
}

// Parameters returns nil; pooling has no parameters.
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] { return nil }
