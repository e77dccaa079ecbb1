package audio

import "math"

// Mixdown averages interleaved integer frames of the given channel count into
// a mono sequence. A trailing partial frame is dropped.
func Mixdown(data []int, channels int) []int {
	if channels <= 1 {
		return data
	}
	frames := len(data) / channels
	out := make([]int, frames)
	for i := range frames {
		sum := 0
		for c := range channels {
			sum += data[i*channels+c]
		}
		out[i] = sum / channels
	}
	return out
}

// IntToFloat scales signed integer PCM of the given bit depth into [-1, 1].
func IntToFloat(data []int, bitDepth int) []float64 {
	scale := fullScale(bitDepth)
	out := make([]float64, len(data))
	for i, s := range data {
		out[i] = float64(s) / scale
	}
	return out
}

// FloatToInt quantizes float samples to signed integer PCM of the given bit
// depth, clamping to the representable range.
func FloatToInt(samples []float64, bitDepth int) []int {
	scale := fullScale(bitDepth)
	hi := int(scale) - 1
	lo := -int(scale)
	out := make([]int, len(samples))
	for i, s := range samples {
		v := int(math.Round(s * scale))
		if v > hi {
			v = hi
		} else if v < lo {
			v = lo
		}
		out[i] = v
	}
	return out
}

// PeakNormalize scales samples in place so the largest magnitude equals peak.
// Silent input is left untouched.
func PeakNormalize(samples []float64, peak float64) {
	var m float64
	for _, s := range samples {
		m = max(m, math.Abs(s))
	}
	if m == 0 {
		return
	}
	g := peak / m
	for i := range samples {
		samples[i] *= g
	}
}

func fullScale(bitDepth int) float64 {
	return float64(int64(1) << (bitDepth - 1))
}
