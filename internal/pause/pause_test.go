package pause

import (
	"math"
	"testing"
	"time"

	"github.com/MrWong99/speechscore/pkg/audio"
)

const rate = 16000

// build concatenates segments; a positive amplitude is a 200Hz tone, zero is
// digital silence.
func build(segs ...seg) *audio.Buffer {
	var s []float64
	for _, seg := range segs {
		n := int(seg.d.Seconds() * rate)
		for i := range n {
			s = append(s, seg.amp*math.Sin(2*math.Pi*200*float64(i)/rate))
		}
	}
	return &audio.Buffer{Samples: s, SampleRate: rate}
}

type seg struct {
	d   time.Duration
	amp float64
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestCount(t *testing.T) {
	t.Parallel()

	p500 := DefaultParams()
	p100 := Params{MinSilence: 100 * time.Millisecond, ThresholdDB: -40}

	tests := []struct {
		name string
		buf  *audio.Buffer
		p    Params
		want int
	}{
		{
			name: "all silent is not a pause",
			buf:  build(seg{2 * time.Second, 0}),
			p:    p500,
			want: 0,
		},
		{
			name: "all silent at short window",
			buf:  build(seg{time.Second, 0}),
			p:    p100,
			want: 0,
		},
		{
			name: "two pauses",
			buf:  build(seg{ms(500), 0.5}, seg{ms(700), 0}, seg{ms(500), 0.5}, seg{ms(600), 0}, seg{ms(500), 0.5}),
			p:    p500,
			want: 2,
		},
		{
			name: "gap shorter than minimum",
			buf:  build(seg{ms(500), 0.5}, seg{ms(300), 0}, seg{ms(500), 0.5}),
			p:    p500,
			want: 0,
		},
		{
			name: "same gap at 100ms",
			buf:  build(seg{ms(500), 0.5}, seg{ms(300), 0}, seg{ms(500), 0.5}),
			p:    p100,
			want: 1,
		},
		{
			name: "leading silence counts",
			buf:  build(seg{ms(800), 0}, seg{ms(700), 0.5}),
			p:    p500,
			want: 1,
		},
		{
			name: "shorter than window",
			buf:  build(seg{ms(300), 0}),
			p:    p500,
			want: 0,
		},
		{
			name: "quiet tone below threshold",
			buf:  build(seg{time.Second, 0.003}),
			p:    p500,
			want: 0,
		},
		{
			name: "continuous speech",
			buf:  build(seg{2 * time.Second, 0.5}),
			p:    p500,
			want: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Count(tc.buf, tc.p); got != tc.want {
				t.Errorf("Count = %d, want %d (spans %v)", got, tc.want, Silences(tc.buf, tc.p))
			}
		})
	}
}

func TestSilencesBounds(t *testing.T) {
	t.Parallel()

	b := build(seg{ms(500), 0.5}, seg{ms(700), 0}, seg{ms(500), 0.5})
	spans := Silences(b, DefaultParams())
	if len(spans) != 1 {
		t.Fatalf("spans = %v, want 1", spans)
	}
	near := func(got, want time.Duration) bool {
		d := got - want
		return d >= -time.Millisecond && d <= time.Millisecond
	}
	if !near(spans[0].Start, ms(500)) || !near(spans[0].End, ms(1200)) {
		t.Errorf("span = %v, want about [500ms, 1200ms)", spans[0])
	}
}

func TestSilencesThresholdMatters(t *testing.T) {
	t.Parallel()

	// A tone at about -53 dBFS RMS is silence at -40 dB but not at -60 dB.
	b := build(seg{ms(600), 0.5}, seg{ms(700), 0.003}, seg{ms(600), 0.5})
	if got := len(Silences(b, Params{MinSilence: ms(500), ThresholdDB: -40})); got != 1 {
		t.Errorf("at -40dB got %d spans, want 1", got)
	}
	if got := len(Silences(b, Params{MinSilence: ms(500), ThresholdDB: -60})); got != 0 {
		t.Errorf("at -60dB got %d spans, want 0", got)
	}
}

func TestSilencesInvalid(t *testing.T) {
	t.Parallel()

	if got := Silences(&audio.Buffer{Samples: make([]float64, 100)}, DefaultParams()); got != nil {
		t.Errorf("zero sample rate gave %v", got)
	}
	if got := Silences(build(seg{time.Second, 0}), Params{}); got != nil {
		t.Errorf("zero window gave %v", got)
	}
}
