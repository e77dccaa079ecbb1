package signal

import (
	"errors"
	"fmt"
	"math"
)

// Speed factor bounds accepted by [Stretch].
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// ErrSpeedOutOfRange is returned for a speed factor outside [MinSpeed, MaxSpeed].
var ErrSpeedOutOfRange = errors.New("signal: speed factor out of range")

// Stretch changes the tempo of x by speed without changing its pitch, using
// waveform-similarity overlap-add. speed > 1 shortens the signal. The result
// has round(len(x)/speed) samples. A speed of exactly 1 returns a copy.
func Stretch(x []float64, sampleRate int, speed float64) ([]float64, error) {
	if math.IsNaN(speed) || speed < MinSpeed || speed > MaxSpeed {
		return nil, fmt.Errorf("%w: %v not in [%v, %v]", ErrSpeedOutOfRange, speed, MinSpeed, MaxSpeed)
	}
	if speed == 1 || len(x) == 0 {
		out := make([]float64, len(x))
		copy(out, x)
		return out, nil
	}

	// 40ms windows with 50% overlap and a quarter-window search radius.
	frame := max(64, 2*(sampleRate/50))
	synHop := frame / 2
	tolerance := frame / 4
	win := hann(frame)

	outLen := int(math.Round(float64(len(x)) / speed))
	acc := make([]float64, outLen+frame)
	norm := make([]float64, outLen+frame)

	at := func(i int) float64 {
		if i < 0 || i >= len(x) {
			return 0
		}
		return x[i]
	}

	prev := 0
	for k := 0; k*synHop < outLen; k++ {
		pos := prev
		if k > 0 {
			nominal := int(math.Round(float64(k*synHop) * speed))
			pos = bestOffset(at, prev+synHop, nominal, tolerance, frame)
		}
		off := k * synHop
		for i := range frame {
			acc[off+i] += at(pos+i) * win[i]
			norm[off+i] += win[i]
		}
		prev = pos
	}

	out := make([]float64, outLen)
	for i := range out {
		if norm[i] > 1e-10 {
			out[i] = acc[i] / norm[i]
		}
	}
	return out, nil
}

// bestOffset searches [nominal-tolerance, nominal+tolerance] for the input
// position whose frame best correlates with the natural continuation of the
// previous frame.
func bestOffset(at func(int) float64, natural, nominal, tolerance, frame int) int {
	best, bestScore := nominal, math.Inf(-1)
	for cand := nominal - tolerance; cand <= nominal+tolerance; cand++ {
		var score float64
		for i := 0; i < frame; i += 2 {
			score += at(natural+i) * at(cand+i)
		}
		if score > bestScore {
			best, bestScore = cand, score
		}
	}
	return best
}
