package signal

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	noiseEpsilon = 1e-10

	floorQuantile    = 0.10
	fallbackQuantile = 0.05
	// minFloorShare is the share of frames that must sit at or below the
	// default quantile before it is trusted as the floor.
	minFloorShare = 0.10
)

// SNR estimates the signal-to-noise ratio of x in decibels.
//
// Frames whose spectral energy exceeds the mean energy of all frames count
// as speech; the rest count as noise. The result is the ratio of the mean
// power of the two groups, or 0 when there is no speech power.
func SNR(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	power, energy := framePowerEnergy(stft(x, analysisFrame(len(x))))
	return snrFromFrames(power, energy)
}

func snrFromFrames(power, energy []float64) float64 {
	threshold := stat.Mean(energy, nil)

	var speech, noise []float64
	for t, e := range energy {
		if e > threshold {
			speech = append(speech, power[t])
		} else {
			noise = append(noise, power[t])
		}
	}

	speechPower := meanOrZero(speech)
	if speechPower <= 0 {
		return 0
	}
	noisePower := max(meanOrZero(noise), noiseEpsilon)
	return 10 * math.Log10(speechPower/noisePower)
}

// NoiseFloor estimates the spectral energy of the background noise in x.
// It is the 10th percentile of per-frame energy, or the 5th percentile when
// fewer than a tenth of the frames reach down to the 10th.
func NoiseFloor(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	_, energy := framePowerEnergy(stft(x, analysisFrame(len(x))))
	return noiseFloorOf(energy)
}

func noiseFloorOf(energy []float64) float64 {
	sorted := slices.Clone(energy)
	slices.Sort(sorted)

	floor := stat.Quantile(floorQuantile, stat.LinInterp, sorted, nil)
	below := 0
	for _, e := range sorted {
		if e > floor {
			break
		}
		below++
	}
	if float64(below) < minFloorShare*float64(len(sorted)) {
		floor = stat.Quantile(fallbackQuantile, stat.LinInterp, sorted, nil)
	}
	return floor
}

func meanOrZero(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Sum(v) / float64(len(v))
}
