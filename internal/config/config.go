// Package config provides the configuration schema, defaults, loader and
// hot-reload watcher for the speechscore service.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// DenoiseMode selects the denoising backend.
type DenoiseMode string

const (
	// DenoiseAdaptive runs the in-process spectral gate with SNR rollback.
	DenoiseAdaptive DenoiseMode = "adaptive"

	// DenoiseRNNoise delegates to ffmpeg's arnndn filter.
	DenoiseRNNoise DenoiseMode = "rnnoise"
)

// IsValid reports whether m is a recognised denoise mode.
func (m DenoiseMode) IsValid() bool {
	return m == DenoiseAdaptive || m == DenoiseRNNoise
}

// Config is the root configuration structure. It is loaded from YAML with
// [Load] or [LoadFromReader] on top of [Default].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Text    TextConfig    `yaml:"text"`
	Audio   AudioConfig   `yaml:"audio"`
	Observe ObserveConfig `yaml:"observe"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Hot-reloadable.
	LogLevel LogLevel `yaml:"log_level"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies. Base64 audio dominates the size.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// TextConfig tunes the text path.
type TextConfig struct {
	// Languages is the allow-list of request language codes.
	Languages []string `yaml:"languages"`

	// PhonemeLanguage is the language for which phoneme lists are produced.
	// It must be one of Languages.
	PhonemeLanguage string `yaml:"phoneme_language"`

	// MultiWordThreshold and SingleWordThreshold are the fuzzy acceptance
	// bars on the 0–100 scale. Hot-reloadable.
	MultiWordThreshold  int `yaml:"multi_word_threshold"`
	SingleWordThreshold int `yaml:"single_word_threshold"`

	// DictionaryPath optionally names a CMU-format pronunciation dictionary
	// merged over the embedded seed.
	DictionaryPath string `yaml:"dictionary_path"`

	// CacheSize bounds the tokenizer memo cache. Zero disables it.
	CacheSize int `yaml:"cache_size"`
}

// AudioConfig tunes the audio path.
type AudioConfig struct {
	Pause    PauseConfig    `yaml:"pause"`
	Denoiser DenoiserConfig `yaml:"denoiser"`
	RNNoise  RNNoiseConfig  `yaml:"rnnoise"`
}

// PauseConfig configures silence detection. Hot-reloadable.
type PauseConfig struct {
	MinSilenceMS int     `yaml:"min_silence_ms"`
	ThresholdDB  float64 `yaml:"threshold_db"`
}

// MinSilence returns MinSilenceMS as a duration.
func (p PauseConfig) MinSilence() time.Duration {
	return time.Duration(p.MinSilenceMS) * time.Millisecond
}

// IntensityStep maps an initial SNR below BelowDB to a suppression intensity.
type IntensityStep struct {
	BelowDB   float64 `yaml:"below_db"`
	Intensity float64 `yaml:"intensity"`
}

// DenoiserConfig tunes denoising. Mode and MaxConcurrent take effect on
// restart; the remaining fields are hot-reloadable.
type DenoiserConfig struct {
	Mode              DenoiseMode     `yaml:"mode"`
	SpeedFactor       float64         `yaml:"speed_factor"`
	VADTopDB          float64         `yaml:"vad_top_db"`
	DefaultIntensity  float64         `yaml:"default_intensity"`
	IntensitySteps    []IntensityStep `yaml:"intensity_steps"`
	NoiseStdThreshold float64         `yaml:"noise_std_threshold"`
	Peak              float64         `yaml:"peak"`
	MaxConcurrent     int             `yaml:"max_concurrent"`
}

// RNNoiseConfig configures the ffmpeg arnndn backend.
type RNNoiseConfig struct {
	FFmpegPath         string        `yaml:"ffmpeg_path"`
	ModelPath          string        `yaml:"model_path"`
	Timeout            time.Duration `yaml:"timeout"`
	Workers            int           `yaml:"workers"`
	QueueSize          int           `yaml:"queue_size"`
	PaddingMS          int           `yaml:"padding_ms"`
	PaddedContentTypes []string      `yaml:"padded_content_types"`
	Tempo              float64       `yaml:"tempo"`
	Breaker            BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker around ffmpeg.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// ObserveConfig holds telemetry settings.
type ObserveConfig struct {
	ServiceName string `yaml:"service_name"`
	MetricsPath string `yaml:"metrics_path"`
}

// Default returns the stock configuration. A config file only needs to name
// the fields it changes.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			LogLevel:        LogInfo,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    32 << 20,
		},
		Text: TextConfig{
			Languages:           []string{"en", "ta", "te", "kn", "hi", "gu"},
			PhonemeLanguage:     "en",
			MultiWordThreshold:  80,
			SingleWordThreshold: 60,
			CacheSize:           65536,
		},
		Audio: AudioConfig{
			Pause: PauseConfig{MinSilenceMS: 500, ThresholdDB: -40},
			Denoiser: DenoiserConfig{
				Mode:             DenoiseAdaptive,
				SpeedFactor:      1.0,
				VADTopDB:         40,
				DefaultIntensity: 0.1,
				IntensitySteps: []IntensityStep{
					{BelowDB: 10, Intensity: 0.7},
					{BelowDB: 15, Intensity: 0.5},
					{BelowDB: 20, Intensity: 0.22},
				},
				NoiseStdThreshold: 1.5,
				Peak:              1.0,
				MaxConcurrent:     4,
			},
			RNNoise: RNNoiseConfig{
				FFmpegPath:         "ffmpeg",
				ModelPath:          "./audio_model/cb.rnnn",
				Timeout:            30 * time.Second,
				Workers:            2,
				QueueSize:          16,
				PaddingMS:          100,
				PaddedContentTypes: []string{"word"},
				Tempo:              0.75,
				Breaker:            BreakerConfig{MaxFailures: 5, ResetTimeout: 30 * time.Second},
			},
		},
		Observe: ObserveConfig{
			ServiceName: "speechscore",
			MetricsPath: "/metrics",
		},
	}
}
