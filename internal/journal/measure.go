package journal

import (
	"encoding/binary"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/livestack/internal/camera"
)

// maxSamples bounds how many pixel values are read per frame.
const maxSamples = 1 << 16

// sourceLevels returns the mean and sample standard deviation of the raw
// pixel values in f.Source. ok is false for compressed or error frames.
// Multi-byte samples are little-endian.
func sourceLevels(f *camera.Frame) (mean, stdDev float64, ok bool) {
	width := 1
	switch f.Format.Type {
	case camera.StreamMono8, camera.StreamRaw8, camera.StreamRGB24, camera.StreamYUV2:
	case camera.StreamMono16, camera.StreamRaw16, camera.StreamRGB48:
		width = 2
	default:
		return 0, 0, false
	}
	n := len(f.Source) / width
	if n < 2 {
		return 0, 0, false
	}
	stride := 1
	if n > maxSamples {
		stride = (n + maxSamples - 1) / maxSamples
	}
	x := make([]float64, 0, n/stride+1)
	for i := 0; i < n; i += stride {
		if width == 1 {
			x = append(x, float64(f.Source[i]))
		} else {
			x = append(x, float64(binary.LittleEndian.Uint16(f.Source[2*i:])))
		}
	}
	mean, stdDev = stat.MeanStdDev(x, nil)
	return mean, stdDev, true
}

// histogramMean returns the count-weighted mean bin index of a stacker
// histogram, or false when the histogram is empty.
func histogramMean(hist []int) (float64, bool) {
	if len(hist) == 0 {
		return 0, false
	}
	bins := make([]float64, len(hist))
	weights := make([]float64, len(hist))
	var total float64
	for i, c := range hist {
		bins[i] = float64(i)
		weights[i] = float64(c)
		total += weights[i]
	}
	if total == 0 {
		return 0, false
	}
	return stat.Mean(bins, weights), true
}
