package signal

import "math"

// VAD framing.
const (
	VADFrame = 2048
	VADHop   = 512
)

// Interval is a half-open sample range [Start, End).
type Interval struct {
	Start int
	End   int
}

// Len returns End-Start.
func (iv Interval) Len() int { return iv.End - iv.Start }

// SplitVoiced returns the non-silent intervals of x in order. A frame is
// non-silent when its RMS is within topDB decibels of the loudest frame.
// Intervals never overlap.
func SplitVoiced(x []float64, topDB float64) []Interval {
	n := len(x)
	if n == 0 {
		return nil
	}
	rms := frameRMS(x, VADFrame, VADHop)

	var ref float64
	for _, r := range rms {
		ref = max(ref, r)
	}
	if ref == 0 {
		return nil
	}

	var (
		out    []Interval
		start  = -1
		last   = len(rms) - 1
		cutoff = -topDB
	)
	for t, r := range rms {
		voiced := r > 0 && 20*math.Log10(r/ref) > cutoff
		switch {
		case voiced && start < 0:
			start = t
		case !voiced && start >= 0:
			out = append(out, Interval{Start: start * VADHop, End: min(n, t*VADHop)})
			start = -1
		}
		if voiced && t == last {
			out = append(out, Interval{Start: start * VADHop, End: n})
		}
	}
	return out
}

// frameRMS returns the RMS of each frame. Buffers shorter than one frame
// yield a single frame over the whole buffer.
func frameRMS(x []float64, frame, hop int) []float64 {
	if len(x) <= frame {
		return []float64{rmsOf(x)}
	}
	count := 1 + (len(x)-frame)/hop
	out := make([]float64, count)
	for t := range count {
		out[t] = rmsOf(x[t*hop : t*hop+frame])
	}
	return out
}

func rmsOf(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var s float64
	for _, v := range x {
		s += v * v
	}
	return math.Sqrt(s / float64(len(x)))
}
