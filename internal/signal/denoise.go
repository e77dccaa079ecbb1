package signal

import (
	"cmp"
	"context"
	"slices"

	"github.com/MrWong99/speechscore/pkg/audio"
)

// IntensityStep maps initial SNRs strictly below BelowDB to Intensity.
type IntensityStep struct {
	BelowDB   float64
	Intensity float64
}

// DenoiserConfig tunes an [AdaptiveDenoiser].
type DenoiserConfig struct {
	// VADTopDB is the cutoff below the loudest frame for voice activity.
	VADTopDB float64
	// Steps select the suppression intensity from the whole-buffer SNR. The
	// first step, in ascending BelowDB order, that the SNR falls under wins.
	Steps []IntensityStep
	// DefaultIntensity applies when no step matches.
	DefaultIntensity float64
	// StdThreshold is passed through to [ReduceNoise].
	StdThreshold float64
	// Peak is the target magnitude for peak normalization of a kept result.
	Peak float64
}

// DefaultDenoiserConfig returns the stock tuning.
func DefaultDenoiserConfig() DenoiserConfig {
	return DenoiserConfig{
		VADTopDB: 40,
		Steps: []IntensityStep{
			{BelowDB: 10, Intensity: 0.7},
			{BelowDB: 15, Intensity: 0.5},
			{BelowDB: 20, Intensity: 0.22},
		},
		DefaultIntensity: 0.1,
		StdThreshold:     DefaultStdThreshold,
		Peak:             1.0,
	}
}

// IntervalReport describes the outcome for one voiced interval.
type IntervalReport struct {
	Interval
	Before float64
	After  float64
	Kept   bool
}

// DenoiseResult is the output of [AdaptiveDenoiser.Denoise].
type DenoiseResult struct {
	Buffer     *audio.Buffer
	InitialSNR float64
	FinalSNR   float64
	Intensity  float64
	// RolledBack is set when every change was discarded and Buffer holds the
	// tempo-adjusted input unchanged.
	RolledBack bool
	Intervals  []IntervalReport
}

// AdaptiveDenoiser suppresses background noise one voiced interval at a time
// and keeps a change only when it raises the estimated SNR. It never returns
// a result that scores worse than its input.
type AdaptiveDenoiser struct {
	cfg DenoiserConfig
}

// NewAdaptiveDenoiser returns a denoiser with the given tuning.
func NewAdaptiveDenoiser(cfg DenoiserConfig) *AdaptiveDenoiser {
	cfg.Steps = slices.SortedFunc(slices.Values(cfg.Steps), func(a, b IntensityStep) int {
		return cmp.Compare(a.BelowDB, b.BelowDB)
	})
	return &AdaptiveDenoiser{cfg: cfg}
}

// Config returns the tuning in effect.
func (d *AdaptiveDenoiser) Config() DenoiserConfig {
	cfg := d.cfg
	cfg.Steps = slices.Clone(d.cfg.Steps)
	return cfg
}

// IntensityFor returns the suppression intensity chosen for a whole-buffer
// SNR of snr decibels.
func (d *AdaptiveDenoiser) IntensityFor(snr float64) float64 {
	for _, s := range d.cfg.Steps {
		if snr < s.BelowDB {
			return s.Intensity
		}
	}
	return d.cfg.DefaultIntensity
}

// Denoise tempo-adjusts b by speed, then suppresses noise. b is not
// modified. The context is checked between intervals.
func (d *AdaptiveDenoiser) Denoise(ctx context.Context, b *audio.Buffer, speed float64) (DenoiseResult, error) {
	stretched, err := Stretch(b.Samples, b.SampleRate, speed)
	if err != nil {
		return DenoiseResult{}, err
	}
	base := &audio.Buffer{Samples: stretched, SampleRate: b.SampleRate, BitDepth: b.BitDepth}

	initial := SNR(base.Samples)
	intensity := d.IntensityFor(initial)
	res := DenoiseResult{InitialSNR: initial, Intensity: intensity}

	work := slices.Clone(base.Samples)
	improved := false
	for _, iv := range SplitVoiced(base.Samples, d.cfg.VADTopDB) {
		if err := ctx.Err(); err != nil {
			return DenoiseResult{}, err
		}
		seg := base.Samples[iv.Start:iv.End]
		rep := IntervalReport{Interval: iv, Before: SNR(seg)}

		reduced := ReduceNoise(seg, intensity, d.cfg.StdThreshold)
		rep.After = SNR(reduced)
		if rep.After > rep.Before {
			copy(work[iv.Start:iv.End], reduced)
			rep.Kept = true
			improved = true
		}
		res.Intervals = append(res.Intervals, rep)
	}

	final := SNR(work)
	if !improved || final < initial {
		res.Buffer = base
		res.FinalSNR = initial
		res.RolledBack = true
		return res, nil
	}

	audio.PeakNormalize(work, d.cfg.Peak)
	res.Buffer = &audio.Buffer{Samples: work, SampleRate: b.SampleRate, BitDepth: b.BitDepth}
	res.FinalSNR = final
	return res, nil
}
