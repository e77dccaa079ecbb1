package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrWong99/speechscore/internal/config"
	"github.com/MrWong99/speechscore/internal/observe"
	"github.com/MrWong99/speechscore/internal/pause"
	"github.com/MrWong99/speechscore/internal/phoneme"
	"github.com/MrWong99/speechscore/internal/pronounce"
	"github.com/MrWong99/speechscore/internal/resilience"
	"github.com/MrWong99/speechscore/internal/rnnoise"
	"github.com/MrWong99/speechscore/internal/scoring"
	"github.com/MrWong99/speechscore/internal/signal"
	"github.com/MrWong99/speechscore/internal/transcript/confidence"
)

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Config → components ────────────────────────────────────────────────────────

func tunables(cfg *config.Config) scoring.Tunables {
	d := cfg.Audio.Denoiser
	steps := make([]signal.IntensityStep, len(d.IntensitySteps))
	for i, s := range d.IntensitySteps {
		steps[i] = signal.IntensityStep{BelowDB: s.BelowDB, Intensity: s.Intensity}
	}
	return scoring.Tunables{
		Thresholds: confidence.Thresholds{
			MultiWord:  cfg.Text.MultiWordThreshold,
			SingleWord: cfg.Text.SingleWordThreshold,
		},
		Pause: pause.Params{
			MinSilence:  cfg.Audio.Pause.MinSilence(),
			ThresholdDB: cfg.Audio.Pause.ThresholdDB,
		},
		Denoiser: signal.DenoiserConfig{
			VADTopDB:         d.VADTopDB,
			Steps:            steps,
			DefaultIntensity: d.DefaultIntensity,
			StdThreshold:     d.NoiseStdThreshold,
			Peak:             d.Peak,
		},
		SpeedFactor: d.SpeedFactor,
	}
}

func scoringConfig(cfg *config.Config) scoring.Config {
	return scoring.Config{
		Languages:            cfg.Text.Languages,
		PhonemeLanguage:      cfg.Text.PhonemeLanguage,
		DenoiseMode:          string(cfg.Audio.Denoiser.Mode),
		MaxConcurrentDenoise: cfg.Audio.Denoiser.MaxConcurrent,
		Tunables:             tunables(cfg),
	}
}

func rnnoiseConfig(r config.RNNoiseConfig) rnnoise.Config {
	return rnnoise.Config{
		FFmpegPath:         r.FFmpegPath,
		ModelPath:          r.ModelPath,
		Timeout:            r.Timeout,
		Workers:            r.Workers,
		QueueSize:          r.QueueSize,
		Padding:            time.Duration(r.PaddingMS) * time.Millisecond,
		PaddedContentTypes: r.PaddedContentTypes,
		Tempo:              r.Tempo,
		Breaker: resilience.BreakerConfig{
			MaxFailures:  r.Breaker.MaxFailures,
			ResetTimeout: r.Breaker.ResetTimeout,
		},
	}
}

// newTokenizer builds the process-wide tokenizer whose anomaly table lives
// as long as the process. Every fallback also feeds the anomaly counter.
func newTokenizer(cfg *config.Config, m *observe.Metrics) *phoneme.Tokenizer {
	opts := []phoneme.Option{
		phoneme.WithAnomalyHook(func(string) { m.RecordAnomaly(context.Background()) }),
	}
	if cfg.Text.CacheSize > 0 {
		opts = append(opts, phoneme.WithCache(cfg.Text.CacheSize))
	}
	return phoneme.NewTokenizer(opts...)
}

// newDictionary returns the embedded seed dictionary, merged with the
// configured file when one is set.
func newDictionary(cfg *config.Config) (*pronounce.Dictionary, error) {
	dict := pronounce.New()
	if cfg.Text.DictionaryPath == "" {
		return dict, nil
	}
	n, err := dict.LoadFile(cfg.Text.DictionaryPath)
	if err != nil {
		return nil, err
	}
	slog.Info("pronunciation dictionary loaded", "path", cfg.Text.DictionaryPath, "entries", n, "total", dict.Len())
	return dict, nil
}

// ── Hot reload ─────────────────────────────────────────────────────────────────

// reloader applies the hot-reloadable parts of a config change. The
// watcher has already warned about restart-only keys.
func reloader(level *slog.LevelVar, svc *scoring.Service) config.ReloadFunc {
	return func(r config.Reload) {
		if r.Diff.LogLevelChanged {
			level.Set(slogLevel(r.Diff.NewLogLevel))
			slog.Info("log level changed", "level", r.Diff.NewLogLevel)
		}
		if r.Diff.TunablesChanged() {
			svc.ApplyTunables(tunables(r.New))
			slog.Info("scoring tunables applied",
				"thresholds", r.Diff.ThresholdsChanged,
				"pause", r.Diff.PauseChanged,
				"denoiser", r.Diff.DenoiserChanged,
			)
		}
	}
}

// logAnomalies dumps the unrecognised-symbol table, most frequent first.
func logAnomalies(tok *phoneme.Tokenizer) {
	snap := tok.Anomalies().Snapshot()
	if len(snap) == 0 {
		return
	}
	attrs := make([]any, 0, len(snap))
	for _, a := range snap {
		attrs = append(attrs, slog.Int(a.Symbol, a.Count))
	}
	slog.Info("unrecognised phoneme symbols", slog.Group("counts", attrs...))
}
