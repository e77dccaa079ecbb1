// Package audio holds the in-memory representation of a request's audio and
// the codecs that move it in and out of WAV containers.
package audio

import "time"

// Buffer is a mono signal of float samples in [-1, 1]. A buffer belongs to
// the request that decoded it and is never shared.
type Buffer struct {
	Samples []float64

	// SampleRate in Hz.
	SampleRate int

	// BitDepth is the sample width of the WAV the buffer was decoded from,
	// or 0 when the buffer did not come from a WAV.
	BitDepth int
}

// Len returns the number of samples.
func (b *Buffer) Len() int { return len(b.Samples) }

// Duration returns the length of the signal in time.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Clone returns a deep copy of b.
func (b *Buffer) Clone() *Buffer {
	s := make([]float64, len(b.Samples))
	copy(s, b.Samples)
	return &Buffer{Samples: s, SampleRate: b.SampleRate, BitDepth: b.BitDepth}
}
