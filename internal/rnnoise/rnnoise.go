// Package rnnoise denoises WAV audio with ffmpeg's arnndn filter and a
// pretrained recurrent noise model.
//
// Calls run on a small fixed worker pool, each under its own timeout, and
// behind a circuit breaker that fails fast while ffmpeg keeps failing.
package rnnoise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/speechscore/internal/resilience"
	"github.com/MrWong99/speechscore/pkg/audio"
)

// Errors returned by [Filter.Denoise].
var (
	ErrMalformedInput = errors.New("rnnoise: input is not a RIFF/WAVE stream")
	ErrProcess        = errors.New("rnnoise: ffmpeg failed")
	ErrTimeout        = errors.New("rnnoise: ffmpeg timed out")
	ErrPoolClosed     = errors.New("rnnoise: filter is closed")
)

// Config tunes a [Filter].
type Config struct {
	FFmpegPath string
	ModelPath  string
	// Timeout bounds one ffmpeg run.
	Timeout time.Duration
	Workers int
	// QueueSize is how many jobs may wait for a free worker.
	QueueSize int
	// Padding is the silence added at both ends for padded content types.
	Padding time.Duration
	// PaddedContentTypes are matched case-insensitively.
	PaddedContentTypes []string
	// Tempo is the atempo factor applied before the model.
	Tempo float64
	// Breaker tunes the circuit breaker. Name and IsFailure are set by
	// the filter.
	Breaker resilience.BreakerConfig
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:         "ffmpeg",
		ModelPath:          "./audio_model/cb.rnnn",
		Timeout:            30 * time.Second,
		Workers:            2,
		QueueSize:          16,
		Padding:            100 * time.Millisecond,
		PaddedContentTypes: []string{"word"},
		Tempo:              0.75,
		Breaker:            resilience.BreakerConfig{MaxFailures: 5, ResetTimeout: 30 * time.Second},
	}
}

// Filter denoises audio through ffmpeg. It is safe for concurrent use.
type Filter struct {
	cfg     Config
	pool    *pool
	breaker *resilience.Breaker
	log     *slog.Logger
}

// Option configures a [Filter].
type Option func(*Filter)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Filter) { f.log = l }
}

// WithStateChange reports circuit breaker transitions.
func WithStateChange(fn func(name string, from, to resilience.State)) Option {
	return func(f *Filter) { f.cfg.Breaker.OnStateChange = fn }
}

// New starts the worker pool. Call [Filter.Close] to stop it.
func New(cfg Config, opts ...Option) *Filter {
	f := &Filter{cfg: cfg, log: slog.Default()}
	for _, o := range opts {
		o(f)
	}
	bc := f.cfg.Breaker
	bc.Name = "rnnoise"
	bc.IsFailure = countsAgainstBreaker
	bc.Logger = f.log
	f.breaker = resilience.NewBreaker(bc)
	f.pool = newPool(cfg.Workers, cfg.QueueSize)
	return f
}

func countsAgainstBreaker(err error) bool {
	return errors.Is(err, ErrProcess) || errors.Is(err, ErrTimeout)
}

// Chain returns the ffmpeg filter graph applied for contentType.
func (f *Filter) Chain(contentType string) string {
	var parts []string
	if f.padded(contentType) {
		ms := f.cfg.Padding.Milliseconds()
		parts = append(parts,
			"adelay="+strconv.FormatInt(ms, 10)+":all=1",
			"apad=pad_dur="+strconv.FormatFloat(f.cfg.Padding.Seconds(), 'f', -1, 64),
		)
	}
	if f.cfg.Tempo > 0 && f.cfg.Tempo != 1 {
		parts = append(parts, "atempo="+strconv.FormatFloat(f.cfg.Tempo, 'f', -1, 64))
	}
	parts = append(parts, "arnndn=m="+f.cfg.ModelPath)
	return strings.Join(parts, ",")
}

func (f *Filter) padded(contentType string) bool {
	if f.cfg.Padding <= 0 {
		return false
	}
	return slices.ContainsFunc(f.cfg.PaddedContentTypes, func(t string) bool {
		return strings.EqualFold(t, strings.TrimSpace(contentType))
	})
}

// Denoise runs wav through the filter chain for contentType and returns the
// resulting WAV bytes.
func (f *Filter) Denoise(ctx context.Context, wav []byte, contentType string) ([]byte, error) {
	if !audio.IsRIFFWave(wav) {
		return nil, ErrMalformedInput
	}
	chain := f.Chain(contentType)

	return f.pool.submit(ctx, func(ctx context.Context) ([]byte, error) {
		var out []byte
		err := f.breaker.Execute(ctx, func(ctx context.Context) error {
			runCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
			defer cancel()

			start := time.Now()
			res, err := runFFmpeg(runCtx, f.cfg.FFmpegPath, filterArgs(chain), wav)
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				err = fmt.Errorf("%w after %s", ErrTimeout, f.cfg.Timeout)
			}
			if err == nil && !audio.IsRIFFWave(res) {
				err = fmt.Errorf("%w: output is not WAV (%d bytes)", ErrProcess, len(res))
			}
			if err != nil {
				f.log.Debug("rnnoise run failed", "chain", chain, "err", err)
				return err
			}
			f.log.Debug("rnnoise run finished", "chain", chain, "bytes_in", len(wav), "bytes_out", len(res), "elapsed", time.Since(start))
			out = res
			return nil
		})
		return out, err
	})
}

// BreakerState reports the circuit breaker state.
func (f *Filter) BreakerState() resilience.State {
	return f.breaker.State()
}

// Check reports whether ffmpeg and the model file are available.
func (f *Filter) Check(context.Context) error {
	if _, err := exec.LookPath(f.cfg.FFmpegPath); err != nil {
		return fmt.Errorf("rnnoise: ffmpeg not found: %w", err)
	}
	if _, err := os.Stat(f.cfg.ModelPath); err != nil {
		return fmt.Errorf("rnnoise: model: %w", err)
	}
	if f.breaker.State() == resilience.StateOpen {
		return resilience.ErrCircuitOpen
	}
	return nil
}

// Close stops the worker pool after in-flight runs finish.
func (f *Filter) Close() error {
	f.pool.close()
	return nil
}
