package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/speechscore/internal/config"
)

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"log level", func(c *config.Config) { c.Server.LogLevel = "verbose" }, "server.log_level"},
		{"listen addr", func(c *config.Config) { c.Server.ListenAddr = "" }, "server.listen_addr"},
		{"read timeout", func(c *config.Config) { c.Server.ReadTimeout = 0 }, "server.read_timeout"},
		{"body limit", func(c *config.Config) { c.Server.MaxBodyBytes = -1 }, "server.max_body_bytes"},
		{"no languages", func(c *config.Config) { c.Text.Languages = nil }, "text.languages"},
		{"duplicate language", func(c *config.Config) { c.Text.Languages = []string{"en", "EN"} }, "duplicate"},
		{"blank language", func(c *config.Config) { c.Text.Languages = []string{"en", " "} }, "text.languages[1] is empty"},
		{"phoneme language", func(c *config.Config) { c.Text.PhonemeLanguage = "fr" }, "text.phoneme_language"},
		{"multi threshold", func(c *config.Config) { c.Text.MultiWordThreshold = 101 }, "text.multi_word_threshold"},
		{"single threshold", func(c *config.Config) { c.Text.SingleWordThreshold = -1 }, "text.single_word_threshold"},
		{"cache size", func(c *config.Config) { c.Text.CacheSize = -5 }, "text.cache_size"},
		{"min silence", func(c *config.Config) { c.Audio.Pause.MinSilenceMS = 0 }, "audio.pause.min_silence_ms"},
		{"silence threshold", func(c *config.Config) { c.Audio.Pause.ThresholdDB = 3 }, "audio.pause.threshold_db"},
		{"mode", func(c *config.Config) { c.Audio.Denoiser.Mode = "wiener" }, "audio.denoiser.mode"},
		{"speed", func(c *config.Config) { c.Audio.Denoiser.SpeedFactor = 2.5 }, "audio.denoiser.speed_factor"},
		{"vad", func(c *config.Config) { c.Audio.Denoiser.VADTopDB = 0 }, "audio.denoiser.vad_top_db"},
		{"intensity", func(c *config.Config) { c.Audio.Denoiser.DefaultIntensity = 1.5 }, "audio.denoiser.default_intensity"},
		{"step intensity", func(c *config.Config) {
			c.Audio.Denoiser.IntensitySteps = []config.IntensityStep{{BelowDB: 10, Intensity: -0.1}}
		}, "intensity_steps[0]"},
		{"peak", func(c *config.Config) { c.Audio.Denoiser.Peak = 0 }, "audio.denoiser.peak"},
		{"max concurrent", func(c *config.Config) { c.Audio.Denoiser.MaxConcurrent = -1 }, "audio.denoiser.max_concurrent"},
		{"metrics path", func(c *config.Config) { c.Observe.MetricsPath = "metrics" }, "observe.metrics_path"},
		{"metrics collides", func(c *config.Config) { c.Observe.MetricsPath = "/healthz" }, "collides"},
		{"service name", func(c *config.Config) { c.Observe.ServiceName = "" }, "observe.service_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			tt.mutate(cfg)
			err := config.Validate(cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidate_RNNoiseOnlyWhenSelected(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Audio.RNNoise.Workers = 0
	cfg.Audio.RNNoise.Tempo = 0.1

	if err := config.Validate(cfg); err != nil {
		t.Fatalf("adaptive mode should ignore rnnoise settings, got: %v", err)
	}

	cfg.Audio.Denoiser.Mode = config.DenoiseRNNoise
	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected error for rnnoise mode with bad settings, got nil")
	}
	for _, want := range []string{"audio.rnnoise.workers", "audio.rnnoise.tempo"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidate_RNNoiseRequiresPaths(t *testing.T) {
	t.Parallel()
	yaml := `
audio:
  denoiser:
    mode: rnnoise
  rnnoise:
    ffmpeg_path: ""
    model_path: ""
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for empty rnnoise paths, got nil")
	}
	for _, want := range []string{"audio.rnnoise.ffmpeg_path", "audio.rnnoise.model_path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: bananas
text:
  phoneme_language: xx
audio:
  denoiser:
    speed_factor: 9
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	msg := err.Error()
	for _, want := range []string{"server.log_level", "text.phoneme_language", "audio.denoiser.speed_factor"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error should mention %q, got: %v", want, msg)
		}
	}
}

func TestValidate_RelaxedSingleWordIsOnlyAWarning(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Text.SingleWordThreshold = 90
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
