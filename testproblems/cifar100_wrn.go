// Package testproblems assembles benchmark problems: a network
// architecture, its loss and accuracy, weight-decay bookkeeping, and
// phase-aware data loading.
package testproblems

import (
	"fmt"
	"math/rand"

	"github.com/FelixBenning/DeepOBS/datasets/cifar100"
	"github.com/FelixBenning/DeepOBS/nn"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// Config holds the hyperparameters of a wide residual network problem.
type Config struct {
	// BatchSize is the mini-batch size for all phases.
	BatchSize int
	// NumResidualUnits is the number of residual units per block;
	// network depth is 6·NumResidualUnits + 4.
	NumResidualUnits int
	// K is the widening factor.
	K int
	// WeightDecay scales the L2 penalty on the weights (not biases).
	WeightDecay float32
	// BNDecay is the moving-average decay of the batch norm layers.
	BNDecay float32
	// TrainEvalSize bounds the fixed training subset used for
	// evaluation; <= 0 defaults to the test split size.
	TrainEvalSize int
	// Seed drives weight initialization, shuffling, and augmentation.
	Seed int64
}

func (c Config) validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.NumResidualUnits < 1 {
		return fmt.Errorf("need at least one residual unit, got %d", c.NumResidualUnits)
	}
	if c.K < 1 {
		return fmt.Errorf("widening factor must be at least 1, got %d", c.K)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("weight decay must be non-negative, got %v", c.WeightDecay)
	}
	if c.BNDecay <= 0 || c.BNDecay >= 1 {
		return fmt.Errorf("batch norm decay must be in (0, 1), got %v", c.BNDecay)
	}
	return nil
}

// Cifar100WRN is a wide residual network on CIFAR-100. It exposes
// per-example losses, accuracy, and the L2 weight penalty, and drives
// its data loading and batch norm layers from the active phase.
type Cifar100WRN[B tensor.Backend] struct {
	cfg     Config
	data    *cifar100.DataLoading[B]
	backend B
	phase   cifar100.Phase

	conv0  *nn.Conv2D[B]
	units  []*residualUnit[B]
	bnLast *nn.BatchNorm2D[B]
	relu   *nn.ReLU[B]
	fc     *nn.Linear[B]
	loss   *nn.SoftmaxCrossEntropy[B]

	params []*nn.Parameter[B]
	bns    []*nn.BatchNorm2D[B]
}

// NewCifar100WRN builds the network over the given dataset. Filter
// counts per block are [16, 16k, 32k, 64k] with strides [1, 2, 2].
func NewCifar100WRN[B tensor.Backend](data *cifar100.Data, cfg Config, backend B) (*Cifar100WRN[B], error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("cifar100 wrn: %w", err)
	}

	loading, err := cifar100.NewDataLoading(data, cfg.BatchSize, cfg.TrainEvalSize, cfg.Seed, backend)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	filters := []int{16, 16 * cfg.K, 32 * cfg.K, 64 * cfg.K}
	strides := []int{1, 2, 2}

	p := &Cifar100WRN[B]{
		cfg:     cfg,
		data:    loading,
		backend: backend,
		phase:   cifar100.PhaseTrain,
		conv0:   nn.NewConv2D("conv_0", cifar100.Channels, filters[0], 3, 1, 1, false, rng, backend),
		relu:    nn.NewReLU(backend),
		loss:    nn.NewSoftmaxCrossEntropy(backend),
	}

	for block := 1; block <= 3; block++ {
		name := fmt.Sprintf("unit_%d_0", block)
		p.units = append(p.units,
			newTransitionUnit(name, filters[block-1], filters[block], strides[block-1], cfg.BNDecay, rng, backend))
		for j := 1; j < cfg.NumResidualUnits; j++ {
			name = fmt.Sprintf("unit_%d_%d", block, j)
			p.units = append(p.units, newIdentityUnit(name, filters[block], cfg.BNDecay, rng, backend))
		}
	}

	p.bnLast = nn.NewBatchNorm2D("unit_last/bn", filters[3], cfg.BNDecay, backend)
	p.fc = nn.NewLinear("fc", filters[3], cifar100.NumClasses, rng, backend)

	p.params = append(p.params, p.conv0.Parameters()...)
	for _, u := range p.units {
		p.params = append(p.params, u.Parameters()...)
		p.bns = append(p.bns, u.batchNorms()...)
	}
	p.params = append(p.params, p.bnLast.Parameters()...)
	p.params = append(p.params, p.fc.Parameters()...)
	p.bns = append(p.bns, p.bnLast)

	return p, nil
}

// NewCifar100WRN404 builds the WRN-40-4 variant: 6 residual units per
// block and widening factor 4.
func NewCifar100WRN404[B tensor.Backend](data *cifar100.Data, cfg Config, backend B) (*Cifar100WRN[B], error) {
	cfg.NumResidualUnits, cfg.K = 6, 4
	return NewCifar100WRN(data, cfg, backend)
}

// NewCifar100WRN164 builds the WRN-16-4 variant: 2 residual units per
// block and widening factor 4.
func NewCifar100WRN164[B tensor.Backend](data *cifar100.Data, cfg Config, backend B) (*Cifar100WRN[B], error) {
	cfg.NumResidualUnits, cfg.K = 2, 4
	return NewCifar100WRN(data, cfg, backend)
}

// Forward computes class logits for a batch of images [N, 3, 32, 32].
func (p *Cifar100WRN[B]) Forward(images *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x := p.conv0.Forward(images)
	for _, u := range p.units {
		x = u.Forward(x)
	}
	x = p.relu.Forward(p.bnLast.Forward(x))
	// Global average over the spatial dimensions, [N, C, H, W] -> [N, C].
	x = x.MeanDim(3, false).MeanDim(2, false)
	return p.fc.Forward(x)
}

// Losses returns the per-example softmax cross-entropy losses, shape [N].
func (p *Cifar100WRN[B]) Losses(logits *tensor.Tensor[float32, B], labels *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	return p.loss.Losses(logits, labels)
}

// Accuracy returns the fraction of correctly classified examples.
func (p *Cifar100WRN[B]) Accuracy(logits *tensor.Tensor[float32, B], labels *tensor.Tensor[int32, B]) float32 {
	return nn.Accuracy(logits, labels)
}

// RegularizationLoss returns the weight-decay penalty over the conv and
// fc weights, or nil when the weight decay factor is zero.
func (p *Cifar100WRN[B]) RegularizationLoss() *tensor.Tensor[float32, B] {
	if p.cfg.WeightDecay == 0 {
		return nil
	}
	return nn.L2Regularization(p.params, p.cfg.WeightDecay)
}

// Parameters returns all trainable parameters.
func (p *Cifar100WRN[B]) Parameters() []*nn.Parameter[B] {
	return p.params
}

// SetPhase switches the data source and the batch norm mode. Batch
// statistics are used only in the training phase.
func (p *Cifar100WRN[B]) SetPhase(phase cifar100.Phase) {
	p.phase = phase
	training := phase == cifar100.PhaseTrain
	for _, bn := range p.bns {
		bn.SetTraining(training)
	}
}

// Phase returns the active phase.
func (p *Cifar100WRN[B]) Phase() cifar100.Phase { return p.phase }

// Iterator starts one pass over the active phase's data.
func (p *Cifar100WRN[B]) Iterator() *cifar100.Iterator[B] {
	return p.data.Iterator(p.phase)
}

// DataLoading returns the underlying loader.
func (p *Cifar100WRN[B]) DataLoading() *cifar100.DataLoading[B] { return p.data }
