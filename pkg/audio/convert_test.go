package audio_test

import (
	"math"
	"testing"

	"github.com/MrWong99/speechscore/pkg/audio"
)

func TestMixdown(t *testing.T) {
	// Two stereo frames: L=100,R=200 and L=-100,R=-200
	got := audio.Mixdown([]int{100, 200, -100, -200}, 2)
	want := []int{150, -150}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMixdown_PartialFrameDropped(t *testing.T) {
	got := audio.Mixdown([]int{3, 3, 3, 9, 9}, 3)
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("got %v, want [3]", got)
	}
}

func TestMixdown_Mono(t *testing.T) {
	in := []int{1, 2, 3}
	if got := audio.Mixdown(in, 1); len(got) != 3 {
		t.Errorf("mono passthrough changed length: %v", got)
	}
}

func TestFloatToInt_Clamping(t *testing.T) {
	got := audio.FloatToInt([]float64{1.5, -2, 0.5, 0}, 16)
	want := []int{32767, -32768, 16384, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestIntToFloat(t *testing.T) {
	got := audio.IntToFloat([]int{-32768, 16384, 0}, 16)
	want := []float64{-1, 0.5, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPeakNormalize(t *testing.T) {
	s := []float64{0.1, -0.25, 0.2}
	audio.PeakNormalize(s, 1)
	if math.Abs(s[1]+1) > 1e-12 {
		t.Errorf("peak sample = %v, want -1", s[1])
	}
	if math.Abs(s[0]-0.4) > 1e-12 {
		t.Errorf("scaled sample = %v, want 0.4", s[0])
	}

	silent := []float64{0, 0}
	audio.PeakNormalize(silent, 1)
	if silent[0] != 0 || silent[1] != 0 {
		t.Errorf("silent input modified: %v", silent)
	}
}

func TestBufferDuration(t *testing.T) {
	b := &audio.Buffer{Samples: make([]float64, 8000), SampleRate: 16000}
	if got := b.Duration().Milliseconds(); got != 500 {
		t.Errorf("Duration = %dms, want 500ms", got)
	}
	c := b.Clone()
	c.Samples[0] = 1
	if b.Samples[0] != 0 {
		t.Error("Clone shares sample storage")
	}
}
