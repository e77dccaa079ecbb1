package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bounds shared with the packages that consume these settings.
const (
	minSpeed, maxSpeed = 0.5, 2.0
	// ffmpeg's atempo accepts [0.5, 100].
	minTempo, maxTempo = 0.5, 100.0
)

// reservedPaths are served by the API and health handlers.
var reservedPaths = []string{"/getTextMatrices", "/getPhonemes", "/audio_processing", "/healthz", "/readyz"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over [Default] and validates the result.
// Unknown keys are rejected. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	// Server
	s := cfg.Server
	if s.ListenAddr == "" {
		add("server.listen_addr is required")
	}
	if s.LogLevel != "" && !s.LogLevel.IsValid() {
		add("server.log_level %q is invalid; valid values: debug, info, warn, error", s.LogLevel)
	}
	if s.ReadTimeout <= 0 {
		add("server.read_timeout must be positive, got %s", s.ReadTimeout)
	}
	if s.WriteTimeout <= 0 {
		add("server.write_timeout must be positive, got %s", s.WriteTimeout)
	}
	if s.ShutdownTimeout <= 0 {
		add("server.shutdown_timeout must be positive, got %s", s.ShutdownTimeout)
	}
	if s.MaxBodyBytes <= 0 {
		add("server.max_body_bytes must be positive, got %d", s.MaxBodyBytes)
	}

	// Text
	t := cfg.Text
	if len(t.Languages) == 0 {
		add("text.languages must list at least one language")
	}
	seen := make(map[string]int, len(t.Languages))
	for i, lang := range t.Languages {
		code := strings.ToLower(strings.TrimSpace(lang))
		if code == "" {
			add("text.languages[%d] is empty", i)
			continue
		}
		if prev, ok := seen[code]; ok {
			add("text.languages[%d] %q is a duplicate of text.languages[%d]", i, lang, prev)
		}
		seen[code] = i
	}
	if _, ok := seen[strings.ToLower(strings.TrimSpace(t.PhonemeLanguage))]; !ok {
		add("text.phoneme_language %q is not in text.languages", t.PhonemeLanguage)
	}
	if t.MultiWordThreshold < 0 || t.MultiWordThreshold > 100 {
		add("text.multi_word_threshold %d is out of range [0, 100]", t.MultiWordThreshold)
	}
	if t.SingleWordThreshold < 0 || t.SingleWordThreshold > 100 {
		add("text.single_word_threshold %d is out of range [0, 100]", t.SingleWordThreshold)
	}
	if t.SingleWordThreshold > t.MultiWordThreshold {
		slog.Warn("text.single_word_threshold is stricter than text.multi_word_threshold",
			"single_word", t.SingleWordThreshold, "multi_word", t.MultiWordThreshold)
	}
	if t.CacheSize < 0 {
		add("text.cache_size must not be negative, got %d", t.CacheSize)
	}

	// Audio
	p := cfg.Audio.Pause
	if p.MinSilenceMS <= 0 {
		add("audio.pause.min_silence_ms must be positive, got %d", p.MinSilenceMS)
	}
	if p.ThresholdDB > 0 {
		add("audio.pause.threshold_db %.1f must be at or below 0 dBFS", p.ThresholdDB)
	}

	d := cfg.Audio.Denoiser
	if !d.Mode.IsValid() {
		add("audio.denoiser.mode %q is invalid; valid values: adaptive, rnnoise", d.Mode)
	}
	if d.SpeedFactor < minSpeed || d.SpeedFactor > maxSpeed {
		add("audio.denoiser.speed_factor %.2f is out of range [%.1f, %.1f]", d.SpeedFactor, minSpeed, maxSpeed)
	}
	if d.VADTopDB <= 0 {
		add("audio.denoiser.vad_top_db must be positive, got %.1f", d.VADTopDB)
	}
	if !unit(d.DefaultIntensity) {
		add("audio.denoiser.default_intensity %.2f is out of range [0, 1]", d.DefaultIntensity)
	}
	for i, step := range d.IntensitySteps {
		if !unit(step.Intensity) {
			add("audio.denoiser.intensity_steps[%d].intensity %.2f is out of range [0, 1]", i, step.Intensity)
		}
	}
	if d.NoiseStdThreshold < 0 {
		add("audio.denoiser.noise_std_threshold must not be negative, got %.2f", d.NoiseStdThreshold)
	}
	if d.Peak <= 0 || d.Peak > 1 {
		add("audio.denoiser.peak %.2f is out of range (0, 1]", d.Peak)
	}
	if d.MaxConcurrent < 0 {
		add("audio.denoiser.max_concurrent must not be negative, got %d", d.MaxConcurrent)
	}

	if d.Mode == DenoiseRNNoise {
		errs = append(errs, validateRNNoise(cfg.Audio.RNNoise)...)
	}

	// Observe
	o := cfg.Observe
	if o.ServiceName == "" {
		add("observe.service_name is required")
	}
	if !strings.HasPrefix(o.MetricsPath, "/") {
		add("observe.metrics_path %q must start with /", o.MetricsPath)
	}
	for _, r := range reservedPaths {
		if o.MetricsPath == r {
			add("observe.metrics_path %q collides with a built-in route", o.MetricsPath)
		}
	}

	return errors.Join(errs...)
}

func validateRNNoise(r RNNoiseConfig) []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if r.FFmpegPath == "" {
		add("audio.rnnoise.ffmpeg_path is required when audio.denoiser.mode is rnnoise")
	}
	if r.ModelPath == "" {
		add("audio.rnnoise.model_path is required when audio.denoiser.mode is rnnoise")
	}
	if r.Timeout <= 0 {
		add("audio.rnnoise.timeout must be positive, got %s", r.Timeout)
	}
	if r.Workers <= 0 {
		add("audio.rnnoise.workers must be positive, got %d", r.Workers)
	}
	if r.QueueSize < 0 {
		add("audio.rnnoise.queue_size must not be negative, got %d", r.QueueSize)
	}
	if r.PaddingMS < 0 {
		add("audio.rnnoise.padding_ms must not be negative, got %d", r.PaddingMS)
	}
	if r.Tempo < minTempo || r.Tempo > maxTempo {
		add("audio.rnnoise.tempo %.2f is out of range [%.1f, %.0f]", r.Tempo, minTempo, maxTempo)
	}
	if r.Breaker.MaxFailures <= 0 {
		add("audio.rnnoise.breaker.max_failures must be positive, got %d", r.Breaker.MaxFailures)
	}
	if r.Breaker.ResetTimeout <= 0 {
		add("audio.rnnoise.breaker.reset_timeout must be positive, got %s", r.Breaker.ResetTimeout)
	}
	return errs
}

func unit(v float64) bool { return v >= 0 && v <= 1 }
