package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Hot-reloadable groups get a flag each; everything else that changed is
// listed in RestartRequired by its YAML key.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ThresholdsChanged bool
	PauseChanged      bool
	DenoiserChanged   bool

	RestartRequired []string
}

// TunablesChanged reports whether any scoring tunable changed.
func (d ConfigDiff) TunablesChanged() bool {
	return d.ThresholdsChanged || d.PauseChanged || d.DenoiserChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	ot, nt := old.Text, new.Text
	d.ThresholdsChanged = ot.MultiWordThreshold != nt.MultiWordThreshold ||
		ot.SingleWordThreshold != nt.SingleWordThreshold
	d.PauseChanged = old.Audio.Pause != new.Audio.Pause
	d.DenoiserChanged = denoiserTunablesChanged(old.Audio.Denoiser, new.Audio.Denoiser)

	restart := func(key string, changed bool) {
		if changed {
			d.RestartRequired = append(d.RestartRequired, key)
		}
	}
	so, sn := old.Server, new.Server
	restart("server.listen_addr", so.ListenAddr != sn.ListenAddr)
	restart("server.read_timeout", so.ReadTimeout != sn.ReadTimeout)
	restart("server.write_timeout", so.WriteTimeout != sn.WriteTimeout)
	restart("server.shutdown_timeout", so.ShutdownTimeout != sn.ShutdownTimeout)
	restart("server.max_body_bytes", so.MaxBodyBytes != sn.MaxBodyBytes)
	restart("text.languages", !slices.Equal(ot.Languages, nt.Languages))
	restart("text.phoneme_language", ot.PhonemeLanguage != nt.PhonemeLanguage)
	restart("text.dictionary_path", ot.DictionaryPath != nt.DictionaryPath)
	restart("text.cache_size", ot.CacheSize != nt.CacheSize)
	restart("audio.denoiser.mode", old.Audio.Denoiser.Mode != new.Audio.Denoiser.Mode)
	restart("audio.denoiser.max_concurrent", old.Audio.Denoiser.MaxConcurrent != new.Audio.Denoiser.MaxConcurrent)
	restart("audio.rnnoise", !rnnoiseEqual(old.Audio.RNNoise, new.Audio.RNNoise))
	restart("observe", old.Observe != new.Observe)

	return d
}

// denoiserTunablesChanged compares the hot-reloadable denoiser fields.
func denoiserTunablesChanged(old, new DenoiserConfig) bool {
	return old.SpeedFactor != new.SpeedFactor ||
		old.VADTopDB != new.VADTopDB ||
		old.DefaultIntensity != new.DefaultIntensity ||
		old.NoiseStdThreshold != new.NoiseStdThreshold ||
		old.Peak != new.Peak ||
		!slices.Equal(old.IntensitySteps, new.IntensitySteps)
}

func rnnoiseEqual(a, b RNNoiseConfig) bool {
	return a.FFmpegPath == b.FFmpegPath &&
		a.ModelPath == b.ModelPath &&
		a.Timeout == b.Timeout &&
		a.Workers == b.Workers &&
		a.QueueSize == b.QueueSize &&
		a.PaddingMS == b.PaddingMS &&
		a.Tempo == b.Tempo &&
		a.Breaker == b.Breaker &&
		slices.Equal(a.PaddedContentTypes, b.PaddedContentTypes)
}
