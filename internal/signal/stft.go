// Package signal estimates the quality of a speech recording and improves it
// without making it worse.
//
// All functions work on mono float samples in [-1, 1]. They are CPU-bound,
// allocate their own scratch space and hold no state between calls.
package signal

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Default analysis sizes.
const (
	// MaxAnalysisFrame caps the frame used for quality estimation.
	MaxAnalysisFrame = 2048
	// ReductionFrame is the frame used for noise suppression.
	ReductionFrame = 512
)

// spectrogram is a short-time Fourier transform: frames[t][k] is bin k of
// frame t.
type spectrogram struct {
	frames [][]complex128
	nfft   int
	hop    int
}

// hann returns a periodic Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

func hopFor(nfft int) int {
	return max(1, nfft/4)
}

// stft frames x without padding. The last partial frame is dropped, so x
// must hold at least nfft samples.
func stft(x []float64, nfft int) spectrogram {
	hop := hopFor(nfft)
	count := 1 + (len(x)-nfft)/hop
	fft := fourier.NewFFT(nfft)
	win := hann(nfft)
	seg := make([]float64, nfft)

	s := spectrogram{frames: make([][]complex128, count), nfft: nfft, hop: hop}
	for t := range count {
		off := t * hop
		for i := range seg {
			seg[i] = x[off+i] * win[i]
		}
		s.frames[t] = fft.Coefficients(nil, seg)
	}
	return s
}

// paddedSTFT frames x after padding half a frame of zeros on the left and
// enough on the right that every input sample is covered by a non-zero part
// of at least one window. Use with istft.
func paddedSTFT(x []float64, nfft int) spectrogram {
	hop := hopFor(nfft)
	left := nfft / 2
	total := left + len(x) + nfft/2
	if rem := (total - nfft) % hop; rem != 0 {
		total += hop - rem
	}
	padded := make([]float64, max(total, nfft))
	copy(padded[left:], x)
	return stft(padded, nfft)
}

// istft inverts a paddedSTFT by weighted overlap-add and returns n samples.
func istft(s spectrogram, n int) []float64 {
	nfft, hop := s.nfft, s.hop
	length := nfft + hop*(len(s.frames)-1)
	acc := make([]float64, length)
	norm := make([]float64, length)
	fft := fourier.NewFFT(nfft)
	win := hann(nfft)
	seg := make([]float64, nfft)

	for t, coeff := range s.frames {
		fft.Sequence(seg, coeff)
		off := t * hop
		for i, v := range seg {
			acc[off+i] += v / float64(nfft) * win[i]
			norm[off+i] += win[i] * win[i]
		}
	}

	out := make([]float64, n)
	left := nfft / 2
	for i := range out {
		j := left + i
		if j >= length {
			break
		}
		if norm[j] > 1e-10 {
			out[i] = acc[j] / norm[j]
		}
	}
	return out
}

// framePowerEnergy returns, per frame, the mean squared magnitude over bins
// and the summed magnitude over bins.
func framePowerEnergy(s spectrogram) (power, energy []float64) {
	power = make([]float64, len(s.frames))
	energy = make([]float64, len(s.frames))
	for t, bins := range s.frames {
		var p, e float64
		for _, c := range bins {
			m := cmplxAbs(c)
			p += m * m
			e += m
		}
		power[t] = p / float64(len(bins))
		energy[t] = e
	}
	return power, energy
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// analysisFrame picks the quality-estimation frame size for n samples.
func analysisFrame(n int) int {
	return min(n, MaxAnalysisFrame)
}
