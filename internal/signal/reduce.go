package signal

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultStdThreshold is how many standard deviations above the mean noise
// level a bin must sit to be kept at full gain.
const DefaultStdThreshold = 1.5

// ReduceNoise applies spectral gating to x and returns a new slice of the
// same length.
//
// The noise profile is learnt from the frames of x whose energy is at or
// below its noise floor. Bins louder than the profile's mean plus
// stdThreshold standard deviations pass unchanged; quieter bins are
// attenuated by intensity, which is clamped to [0, 1].
func ReduceNoise(x []float64, intensity, stdThreshold float64) []float64 {
	out := make([]float64, len(x))
	if len(x) < 2 || intensity <= 0 {
		copy(out, x)
		return out
	}
	intensity = min(intensity, 1)

	spec := paddedSTFT(x, min(ReductionFrame, len(x)))
	_, energy := framePowerEnergy(spec)
	floor := noiseFloorOf(energy)

	bins := len(spec.frames[0])
	mags := make([][]float64, len(spec.frames))
	for t, frame := range spec.frames {
		mags[t] = make([]float64, bins)
		for k, c := range frame {
			mags[t][k] = 20 * math.Log10(cmplxAbs(c)+noiseEpsilon)
		}
	}

	gate := make([]float64, bins)
	column := make([]float64, 0, len(spec.frames))
	for k := range bins {
		column = column[:0]
		for t, e := range energy {
			if e <= floor {
				column = append(column, mags[t][k])
			}
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		gate[k] = mean + stdThreshold*std
	}

	attenuation := complex(1-intensity, 0)
	for t, frame := range spec.frames {
		for k := range frame {
			if mags[t][k] <= gate[k] {
				frame[k] *= attenuation
			}
		}
	}
	return istft(spec, len(x))
}
