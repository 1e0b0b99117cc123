package cifar100

import (
	"fmt"
	"math/rand"

	"github.com/sourcegraph/conc/pool"

	"github.com/FelixBenning/DeepOBS/internal/parallel"
	"github.com/FelixBenning/DeepOBS/tensor"
)

// Phase selects which split a batch iterator draws from and whether
// augmentation is applied.
type Phase int

const (
	// PhaseTrain serves shuffled, augmented training batches. Partial
	// trailing batches are dropped.
	PhaseTrain Phase = iota
	// PhaseTrainEval serves a fixed subset of the training data
	// without augmentation, for evaluating the training loss.
	PhaseTrainEval
	// PhaseTest serves the test split without augmentation.
	PhaseTest
)

func (p Phase) String() string {
	switch p {
	case PhaseTrain:
		return "train"
	case PhaseTrainEval:
		return "train_eval"
	case PhaseTest:
		return "test"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Batch is one mini-batch of images and fine labels.
type Batch[B tensor.Backend] struct {
	Images *tensor.Tensor[float32, B] // [N, 3, 32, 32]
	Labels *tensor.Tensor[int32, B]   // [N]
}

// DataLoading serves mini-batches of CIFAR-100 images for the three
// phases. All images are per-image standardized; training batches are
// additionally augmented with random crops, flips, and color jitter.
type DataLoading[B tensor.Backend] struct {
	data          *Data
	batchSize     int
	trainEvalSize int
	rng           *rand.Rand
	workers       int
	backend       B
}

// NewDataLoading creates a loader. trainEvalSize bounds the fixed
// training subset served in PhaseTrainEval; values <= 0 or larger than
// the training split default to the test split size (capped at the
// training split).
func NewDataLoading[B tensor.Backend](data *Data, batchSize, trainEvalSize int, seed int64, backend B) (*DataLoading[B], error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("cifar100: batch size must be positive, got %d", batchSize)
	}
	if batchSize > len(data.Train) || batchSize > len(data.Test) {
		return nil, fmt.Errorf("cifar100: batch size %d exceeds split sizes (%d train, %d test)",
			batchSize, len(data.Train), len(data.Test))
	}
	if trainEvalSize <= 0 {
		trainEvalSize = len(data.Test)
	}
	if trainEvalSize > len(data.Train) {
		trainEvalSize = len(data.Train)
	}

	workers := parallel.DefaultConfig().NumWorkers
	return &DataLoading[B]{
		data:          data,
		batchSize:     batchSize,
		trainEvalSize: trainEvalSize,
		rng:           rand.New(rand.NewSource(seed)),
		workers:       workers,
		backend:       backend,
	}, nil
}

// BatchSize returns the configured mini-batch size.
func (dl *DataLoading[B]) BatchSize() int { return dl.batchSize }

// TrainEvalSize returns the size of the fixed training-evaluation subset.
func (dl *DataLoading[B]) TrainEvalSize() int { return dl.trainEvalSize }

// Iterator starts one pass over the given phase. Training passes are
// reshuffled each call.
func (dl *DataLoading[B]) Iterator(phase Phase) *Iterator[B] {
	var examples []Example
	augmented := false
	dropRemainder := false

	switch phase {
	case PhaseTrain:
		examples = make([]Example, len(dl.data.Train))
		copy(examples, dl.data.Train)
		dl.rng.Shuffle(len(examples), func(i, j int) {
			examples[i], examples[j] = examples[j], examples[i]
		})
		augmented = true
		dropRemainder = true
	case PhaseTrainEval:
		examples = dl.data.Train[:dl.trainEvalSize]
	case PhaseTest:
		examples = dl.data.Test
	default:
		panic(fmt.Sprintf("cifar100: unknown phase %d", int(phase)))
	}

	return &Iterator[B]{
		loader:        dl,
		examples:      examples,
		augmented:     augmented,
		dropRemainder: dropRemainder,
	}
}

// Iterator walks one pass of a phase in mini-batches.
type Iterator[B tensor.Backend] struct {
	loader        *DataLoading[B]
	examples      []Example
	augmented     bool
	dropRemainder bool
	offset        int
}

// Next returns the next batch, or false when the pass is exhausted.
func (it *Iterator[B]) Next() (*Batch[B], bool) {
	remaining := len(it.examples) - it.offset
	if remaining == 0 {
		return nil, false
	}
	n := it.loader.batchSize
	if remaining < n {
		if it.dropRemainder {
			return nil, false
		}
		n = remaining
	}

	batch := it.examples[it.offset : it.offset+n]
	it.offset += n
	return it.loader.buildBatch(batch, it.augmented), true
}

// buildBatch decodes, optionally augments, and standardizes n examples
// into batch tensors. Per-image work runs on a worker pool; per-image
// seeds are drawn up front so results do not depend on scheduling.
func (dl *DataLoading[B]) buildBatch(examples []Example, augmented bool) *Batch[B] {
	n := len(examples)
	images := tensor.Zeros[float32](tensor.Shape{n, Channels, ImageSize, ImageSize}, dl.backend)
	labels := tensor.Zeros[int32](tensor.Shape{n}, dl.backend)

	imageData := images.Data()
	labelData := labels.Data()

	seeds := make([]int64, n)
	if augmented {
		for i := range seeds {
			seeds[i] = dl.rng.Int63()
		}
	}

	p := pool.New().WithMaxGoroutines(dl.workers)
	for i := range examples {
		i := i // capture per-iteration; the toolchain predates Go 1.22 loop-variable scoping
		p.Go(func() {
			pixels := examples[i].Pixels
			if augmented {
				pixels = augment(pixels, rand.New(rand.NewSource(seeds[i])))
			} else {
				clone := make([]float32, len(pixels))
				copy(clone, pixels)
				pixels = clone
			}
			standardize(pixels)
			copy(imageData[i*pixelBytes:(i+1)*pixelBytes], pixels)
			labelData[i] = examples[i].Label
		})
	}
	p.Wait()

	return &Batch[B]{Images: images, Labels: labels}
}
