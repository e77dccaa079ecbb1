package audio

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func sine(n, rate int, freq, amp float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return s
}

func TestWAVRoundTrip(t *testing.T) {
	t.Parallel()

	in := &Buffer{Samples: sine(1600, 16000, 440, 0.5), SampleRate: 16000}
	data, err := EncodeWAV(in, 16)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if !IsRIFFWave(data) {
		t.Fatalf("encoded output lacks RIFF/WAVE header: % x", data[:12])
	}

	out, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if out.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", out.SampleRate)
	}
	if out.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16", out.BitDepth)
	}
	if out.Len() != in.Len() {
		t.Fatalf("Len = %d, want %d", out.Len(), in.Len())
	}
	for i := range in.Samples {
		if d := math.Abs(in.Samples[i] - out.Samples[i]); d > 1.0/32768 {
			t.Fatalf("sample %d differs by %v", i, d)
		}
	}
}

func TestWAVRoundTrip_KeepsBitDepth(t *testing.T) {
	t.Parallel()

	for _, depth := range []int{16, 24, 32} {
		in := &Buffer{Samples: sine(800, 16000, 440, 0.5), SampleRate: 16000}
		data, err := EncodeWAV(in, depth)
		if err != nil {
			t.Fatalf("EncodeWAV(%d): %v", depth, err)
		}
		out, err := DecodeWAV(data)
		if err != nil {
			t.Fatalf("DecodeWAV(%d-bit): %v", depth, err)
		}
		if out.BitDepth != depth {
			t.Errorf("BitDepth = %d, want %d", out.BitDepth, depth)
		}
		if c := out.Clone(); c.BitDepth != depth {
			t.Errorf("Clone BitDepth = %d, want %d", c.BitDepth, depth)
		}
	}
}

func TestDecodeWAV_StereoMixdown(t *testing.T) {
	t.Parallel()

	var f memFile
	enc := wav.NewEncoder(&f, 8000, 16, 2, formatPCM)
	if err := enc.Write(&goaudio.IntBuffer{
		Data:           []int{1000, 3000, -1000, -3000},
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 8000},
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := DecodeWAV(f.buf)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	want := []float64{2000.0 / 32768, -2000.0 / 32768}
	if len(b.Samples) != len(want) {
		t.Fatalf("samples = %v, want %v", b.Samples, want)
	}
	for i := range want {
		if b.Samples[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, b.Samples[i], want[i])
		}
	}
}

func TestDecodeWAV_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := DecodeWAV([]byte("definitely not audio")); !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("err = %v, want ErrInvalidWAV", err)
	}
	if _, err := DecodeWAV(nil); !errors.Is(err, ErrInvalidWAV) {
		t.Errorf("nil input err = %v, want ErrInvalidWAV", err)
	}
}

func TestDecodeBase64(t *testing.T) {
	t.Parallel()

	plain := EncodeBase64([]byte("RIFF"))
	for _, in := range []string{plain, "  " + plain + "\n", "data:audio/wav;base64," + plain} {
		got, err := DecodeBase64(in)
		if err != nil {
			t.Fatalf("DecodeBase64(%q): %v", in, err)
		}
		if string(got) != "RIFF" {
			t.Errorf("DecodeBase64(%q) = %q", in, got)
		}
	}
	if _, err := DecodeBase64("!!not base64!!"); err == nil {
		t.Error("expected error for malformed base64")
	}
}

func TestMemFileSeekPatch(t *testing.T) {
	t.Parallel()

	var f memFile
	f.Write([]byte("abcdef"))
	if _, err := f.Seek(2, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	f.Write([]byte("XY"))
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		t.Fatal(err)
	}
	f.Write([]byte("g"))
	if !bytes.Equal(f.buf, []byte("abXYefg")) {
		t.Errorf("buf = %q, want abXYefg", f.buf)
	}
	if _, err := f.Seek(-100, io.SeekCurrent); err == nil {
		t.Error("expected error for negative seek")
	}
}
