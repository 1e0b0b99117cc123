// Package cifar100 loads the CIFAR-100 binary dataset and serves
// batches for the three evaluation phases: augmented training batches,
// a fixed training subset for evaluation, and the test set.
package cifar100

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
)

const (
	// ImageSize is the height and width of a CIFAR image.
	ImageSize = 32
	// Channels is the number of color channels.
	Channels = 3
	// NumClasses is the number of fine labels.
	NumClasses = 100

	// TrainRecords and TestRecords are the official split sizes.
	TrainRecords = 50000
	TestRecords  = 10000

	pixelBytes  = Channels * ImageSize * ImageSize
	recordBytes = 2 + pixelBytes // coarse label, fine label, pixels
)

// Example is one decoded image with its fine label. Pixels are stored
// channel-major (CHW), scaled to [0, 1].
type Example struct {
	Pixels []float32 // [Channels * ImageSize * ImageSize]
	Label  int32
}

// Data holds the decoded training and test splits.
type Data struct {
	Train []Example
	Test  []Example
}

// Load reads train.bin and test.bin from dir.
func Load(dir string) (*Data, error) {
	train, err := loadFile(filepath.Join(dir, "train.bin"), TrainRecords)
	if err != nil {
		return nil, err
	}
	test, err := loadFile(filepath.Join(dir, "test.bin"), TestRecords)
	if err != nil {
		return nil, err
	}
	return &Data{Train: train, Test: test}, nil
}

func loadFile(path string, wantRecords int) ([]Example, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cifar100: %w", err)
	}
	defer f.Close()

	examples, err := ReadRecords(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("cifar100: reading %s: %w", path, err)
	}
	if len(examples) != wantRecords {
		return nil, fmt.Errorf("cifar100: %s holds %d records, want %d", path, len(examples), wantRecords)
	}
	return examples, nil
}

// ReadRecords decodes CIFAR-100 binary records until EOF. Each record
// is one coarse label byte, one fine label byte, and 3072 pixel bytes
// (red, green, blue planes, row-major).
func ReadRecords(r io.Reader) ([]Example, error) {
	var examples []Example
	record := make([]byte, recordBytes)
	for {
		if _, err := io.ReadFull(r, record); err != nil {
			if err == io.EOF {
				return examples, nil
			}
			if err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("truncated record %d", len(examples))
			}
			return nil, err
		}

		pixels := make([]float32, pixelBytes)
		for i, b := range record[2:] {
			pixels[i] = float32(b) / 255
		}
		examples = append(examples, Example{Pixels: pixels, Label: int32(record[1])})
	}
}

// Synthetic generates a random in-memory dataset with the CIFAR-100
// geometry, for tests and smoke runs without the real files.
func Synthetic(numTrain, numTest int, rng *rand.Rand) *Data {
	gen := func(n int) []Example {
		examples := make([]Example, n)
		for i := range examples {
			pixels := make([]float32, pixelBytes)
			for j := range pixels {
				pixels[j] = rng.Float32()
			}
			examples[i] = Example{Pixels: pixels, Label: int32(rng.Intn(NumClasses))}
		}
		return examples
	}
	return &Data{Train: gen(numTrain), Test: gen(numTest)}
}
