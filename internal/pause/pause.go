// Package pause counts the silent stretches in a recording.
package pause

import (
	"math"
	"time"

	"github.com/MrWong99/speechscore/pkg/audio"
)

// Stock parameters.
const (
	DefaultMinSilence  = 500 * time.Millisecond
	DefaultThresholdDB = -40.0
)

// seekStep is the stride of the sliding window.
const seekStep = time.Millisecond

// Params configure silence detection.
type Params struct {
	// MinSilence is the shortest stretch that counts as a pause.
	MinSilence time.Duration
	// ThresholdDB is the RMS level, relative to full scale, at or below which
	// a window is silent.
	ThresholdDB float64
}

// DefaultParams returns the stock parameters.
func DefaultParams() Params {
	return Params{MinSilence: DefaultMinSilence, ThresholdDB: DefaultThresholdDB}
}

// Span is a silent stretch [Start, End) measured from the buffer start.
type Span struct {
	Start time.Duration
	End   time.Duration
}

// Silences returns the silent stretches of b that last at least
// p.MinSilence. Windows of MinSilence slide in 1ms steps; overlapping or
// touching silent windows merge into one span.
func Silences(b *audio.Buffer, p Params) []Span {
	if b.SampleRate <= 0 || p.MinSilence <= 0 {
		return nil
	}
	totalMS := int(b.Duration() / time.Millisecond)
	winMS := int(p.MinSilence / time.Millisecond)
	stepMS := int(seekStep / time.Millisecond)
	if totalMS < winMS {
		return nil
	}

	// prefix[i] is the sum of squares of the first i samples.
	prefix := make([]float64, len(b.Samples)+1)
	for i, s := range b.Samples {
		prefix[i+1] = prefix[i] + s*s
	}
	sampleAt := func(ms int) int {
		return min(len(b.Samples), ms*b.SampleRate/1000)
	}
	threshold := math.Pow(10, p.ThresholdDB/20)
	silent := func(ms int) bool {
		lo, hi := sampleAt(ms), sampleAt(ms+winMS)
		if hi <= lo {
			return true
		}
		return math.Sqrt((prefix[hi]-prefix[lo])/float64(hi-lo)) <= threshold
	}

	last := totalMS - winMS
	var starts []int
	for ms := 0; ms <= last; ms += stepMS {
		if silent(ms) {
			starts = append(starts, ms)
		}
	}
	if last%stepMS != 0 && silent(last) {
		starts = append(starts, last)
	}
	if len(starts) == 0 {
		return nil
	}

	var (
		spans      []Span
		rangeStart = starts[0]
		prev       = starts[0]
	)
	for _, s := range starts[1:] {
		continuous := s == prev+stepMS
		gap := s > prev+winMS
		if !continuous && gap {
			spans = append(spans, msSpan(rangeStart, prev+winMS))
			rangeStart = s
		}
		prev = s
	}
	return append(spans, msSpan(rangeStart, prev+winMS))
}

// Count returns the number of pauses in b. A single silent span covering
// the whole buffer means there was no speech to pause between, and
// counts as zero.
func Count(b *audio.Buffer, p Params) int {
	spans := Silences(b, p)
	if len(spans) == 1 {
		total := b.Duration().Truncate(time.Millisecond)
		if spans[0].Start == 0 && spans[0].End >= total {
			return 0
		}
	}
	return len(spans)
}

func msSpan(start, end int) Span {
	return Span{Start: time.Duration(start) * time.Millisecond, End: time.Duration(end) * time.Millisecond}
}
