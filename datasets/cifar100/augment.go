package cifar100

import (
	"math"
	"math/rand"
)

const (
	cropPadding   = 4
	maxBrightness = 63.0 / 255
	minContrast   = 0.2
	maxContrast   = 1.8
)

// augment applies the training-time distortions in place of the input:
// zero-pad by 4 pixels and crop a random 32×32 window, flip
// horizontally with probability 1/2, then jitter brightness and
// contrast. The result is not yet standardized.
func augment(pixels []float32, rng *rand.Rand) []float32 {
	out := randomCrop(pixels, rng)
	if rng.Intn(2) == 1 {
		flipHorizontal(out)
	}
	adjustBrightness(out, (rng.Float32()*2-1)*maxBrightness)
	adjustContrast(out, minContrast+rng.Float32()*(maxContrast-minContrast))
	return out
}

// randomCrop zero-pads the image by cropPadding on every side and cuts
// a random ImageSize×ImageSize window.
func randomCrop(pixels []float32, rng *rand.Rand) []float32 {
	top := rng.Intn(2*cropPadding + 1)
	left := rng.Intn(2*cropPadding + 1)

	out := make([]float32, len(pixels))
	for c := 0; c < Channels; c++ {
		plane := pixels[c*ImageSize*ImageSize:]
		outPlane := out[c*ImageSize*ImageSize:]
		for y := 0; y < ImageSize; y++ {
			srcY := y + top - cropPadding
			if srcY < 0 || srcY >= ImageSize {
				continue // stays zero
			}
			for x := 0; x < ImageSize; x++ {
				srcX := x + left - cropPadding
				if srcX < 0 || srcX >= ImageSize {
					continue
				}
				outPlane[y*ImageSize+x] = plane[srcY*ImageSize+srcX]
			}
		}
	}
	return out
}

func flipHorizontal(pixels []float32) {
	for c := 0; c < Channels; c++ {
		plane := pixels[c*ImageSize*ImageSize:]
		for y := 0; y < ImageSize; y++ {
			row := plane[y*ImageSize : (y+1)*ImageSize]
			for i, j := 0, ImageSize-1; i < j; i, j = i+1, j-1 {
				row[i], row[j] = row[j], row[i]
			}
		}
	}
}

func adjustBrightness(pixels []float32, delta float32) {
	for i := range pixels {
		pixels[i] += delta
	}
}

// adjustContrast scales each channel's deviation from its mean.
func adjustContrast(pixels []float32, factor float32) {
	planeLen := ImageSize * ImageSize
	for c := 0; c < Channels; c++ {
		plane := pixels[c*planeLen : (c+1)*planeLen]
		var sum float32
		for _, v := range plane {
			sum += v
		}
		mean := sum / float32(planeLen)
		for i := range plane {
			plane[i] = (plane[i]-mean)*factor + mean
		}
	}
}

// standardize normalizes the image in place to zero mean and unit
// variance, with the stddev floored at 1/sqrt(numPixels) so constant
// images stay finite.
func standardize(pixels []float32) {
	n := float64(len(pixels))

	var sum float64
	for _, v := range pixels {
		sum += float64(v)
	}
	mean := sum / n

	var sqSum float64
	for _, v := range pixels {
		d := float64(v) - mean
		sqSum += d * d
	}
	stddev := math.Sqrt(sqSum / n)
	if floor := 1 / math.Sqrt(n); stddev < floor {
		stddev = floor
	}

	for i := range pixels {
		pixels[i] = float32((float64(pixels[i]) - mean) / stddev)
	}
}
