// Package scoring orchestrates the three request contracts: text matrices,
// phoneme listing and audio processing.
//
// A [Service] owns no per-request state. Hot-reloadable tunables are held
// behind atomic pointers and replaced wholesale by [Service.ApplyTunables].
package scoring

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/MrWong99/speechscore/internal/observe"
	"github.com/MrWong99/speechscore/internal/pause"
	"github.com/MrWong99/speechscore/internal/phoneme"
	"github.com/MrWong99/speechscore/internal/rnnoise"
	"github.com/MrWong99/speechscore/internal/signal"
	"github.com/MrWong99/speechscore/internal/transcript"
	"github.com/MrWong99/speechscore/internal/transcript/alignment"
	"github.com/MrWong99/speechscore/internal/transcript/confidence"
	"github.com/MrWong99/speechscore/pkg/audio"
)

// Denoise modes.
const (
	ModeAdaptive = "adaptive"
	ModeRNNoise  = "rnnoise"
)

// defaultBitDepth is the output sample width for buffers of unknown origin.
// Decoded uploads are re-encoded at their own width.
const defaultBitDepth = 16

// Pronouncer converts words and whole texts into IPA-like transcriptions.
type Pronouncer interface {
	transcript.Pronouncer
	Pronounce(text string) string
}

// ExternalFilter denoises an encoded WAV stream out of process.
type ExternalFilter interface {
	Denoise(ctx context.Context, wav []byte, contentType string) ([]byte, error)
}

// Tunables are the settings that can change while the service runs.
type Tunables struct {
	Thresholds  confidence.Thresholds
	Pause       pause.Params
	Denoiser    signal.DenoiserConfig
	SpeedFactor float64
}

// DefaultTunables returns the stock tunables.
func DefaultTunables() Tunables {
	return Tunables{
		Thresholds:  confidence.DefaultThresholds(),
		Pause:       pause.DefaultParams(),
		Denoiser:    signal.DefaultDenoiserConfig(),
		SpeedFactor: 1.0,
	}
}

// Config fixes the shape of a [Service] for its lifetime.
type Config struct {
	// Languages is the allow-list for text matrices requests.
	Languages []string
	// PhonemeLanguage is the one language for which phoneme lists are
	// produced.
	PhonemeLanguage string
	// DenoiseMode is [ModeAdaptive] or [ModeRNNoise].
	DenoiseMode string
	// MaxConcurrentDenoise bounds in-process adaptive denoise runs. Zero
	// means unbounded.
	MaxConcurrentDenoise int
	Tunables             Tunables
}

// Deps are the collaborators of a [Service].
type Deps struct {
	Matcher    transcript.Matcher
	Pronouncer Pronouncer
	Tokenizer  confidence.Tokenizer
	// Filter is required in [ModeRNNoise].
	Filter ExternalFilter
	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

type tunableState struct {
	pause    pause.Params
	speed    float64
	denoiser *signal.AdaptiveDenoiser
}

// Service implements the scoring contracts. It is safe for concurrent use.
type Service struct {
	languages   []string
	phonemeLang string
	mode        string

	pronouncer Pronouncer
	tokenizer  confidence.Tokenizer
	engine     *confidence.Engine
	filter     ExternalFilter
	metrics    *observe.Metrics
	sem        *semaphore.Weighted

	tun atomic.Pointer[tunableState]
}

// New validates cfg against deps and returns a ready service.
func New(cfg Config, deps Deps) (*Service, error) {
	switch cfg.DenoiseMode {
	case ModeAdaptive:
	case ModeRNNoise:
		if deps.Filter == nil {
			return nil, errors.New("scoring: rnnoise mode requires an external filter")
		}
	default:
		return nil, fmt.Errorf("scoring: unknown denoise mode %q", cfg.DenoiseMode)
	}
	if deps.Matcher == nil || deps.Pronouncer == nil || deps.Tokenizer == nil {
		return nil, errors.New("scoring: matcher, pronouncer and tokenizer are required")
	}

	m := deps.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	s := &Service{
		languages:   normalizeAll(cfg.Languages),
		phonemeLang: normalize(cfg.PhonemeLanguage),
		mode:        cfg.DenoiseMode,
		pronouncer:  deps.Pronouncer,
		tokenizer:   deps.Tokenizer,
		engine:      confidence.New(deps.Matcher, deps.Pronouncer, deps.Tokenizer),
		filter:      deps.Filter,
		metrics:     m,
	}
	if cfg.MaxConcurrentDenoise > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentDenoise))
	}
	s.ApplyTunables(cfg.Tunables)
	return s, nil
}

// ApplyTunables replaces the hot-reloadable settings. Requests already
// running keep the settings they started with.
func (s *Service) ApplyTunables(t Tunables) {
	s.engine.SetThresholds(t.Thresholds)
	s.tun.Store(&tunableState{
		pause:    t.Pause,
		speed:    t.SpeedFactor,
		denoiser: signal.NewAdaptiveDenoiser(t.Denoiser),
	})
}

// Tunables returns the settings currently in effect.
func (s *Service) Tunables() Tunables {
	st := s.tun.Load()
	return Tunables{
		Thresholds:  s.engine.Thresholds(),
		Pause:       st.pause,
		Denoiser:    st.denoiser.Config(),
		SpeedFactor: st.speed,
	}
}

// DenoiseMode reports the configured denoise mode.
func (s *Service) DenoiseMode() string { return s.mode }

// TextRequest is the input of [Service.TextMatrices].
type TextRequest struct {
	Reference string
	// Hypothesis may be empty when the learner said nothing recognisable.
	Hypothesis string
	Language   string
}

// TextResult is the output of [Service.TextMatrices].
type TextResult struct {
	WER float64
	CER float64
	alignment.Errors
	// Familiar and Missing are empty unless the request language is the
	// phoneme language.
	Familiar      []phoneme.Token
	Missing       []phoneme.Token
	ConstructText string
}

// TextMatrices scores hypothesis against reference: character and word
// error rates, the literal edits, and for the phoneme language the
// familiar and missing phoneme sets.
func (s *Service) TextMatrices(ctx context.Context, req TextRequest) (res TextResult, err error) {
	ctx, end := s.begin(ctx, observe.StageTextMatrices)
	defer func() { end(err) }()

	ref := strings.TrimSpace(req.Reference)
	hyp := strings.TrimSpace(req.Hypothesis)
	lang := normalize(req.Language)
	if ref == "" {
		return TextResult{}, Wrap(ErrInvalidInput, observe.StageTextMatrices, "validate", "reference text is required", nil)
	}
	if !slices.Contains(s.languages, lang) {
		return TextResult{}, Wrap(ErrInvalidInput, observe.StageTextMatrices, "validate",
			fmt.Sprintf("unsupported language %q, allowed: %s", req.Language, strings.Join(s.languages, ", ")), nil)
	}

	chars := alignment.Chars(ref, hyp)
	cer, err := chars.ErrorRate()
	if err != nil {
		return TextResult{}, Wrap(ErrUpstream, observe.StageTextMatrices, "character error rate", "", err)
	}
	wer, err := alignment.WER(ref, hyp)
	if err != nil {
		return TextResult{}, Wrap(ErrUpstream, observe.StageTextMatrices, "word error rate", "", err)
	}

	res = TextResult{
		WER:           wer,
		CER:           cer,
		Errors:        alignment.Project(chars.Chunks, ref, hyp),
		Familiar:      []phoneme.Token{},
		Missing:       []phoneme.Token{},
		ConstructText: hyp,
	}
	if lang == s.phonemeLang {
		lp := s.engine.ProcessLP(ref, hyp)
		res.Familiar = lp.Familiar
		res.Missing = lp.Missing
		res.ConstructText = lp.Reconstructed
	}
	observe.Logger(ctx).DebugContext(ctx, "text matrices scored",
		"language", lang, "cer", cer, "wer", wer,
		"familiar", len(res.Familiar), "missing", len(res.Missing))
	return res, nil
}

// Phonemes returns the phoneme tokens of text's pronunciation.
func (s *Service) Phonemes(ctx context.Context, text string) (toks []phoneme.Token, err error) {
	_, end := s.begin(ctx, observe.StagePhonemes)
	defer func() { end(err) }()

	if strings.TrimSpace(text) == "" {
		return nil, Wrap(ErrInvalidInput, observe.StagePhonemes, "validate", "text is required", nil)
	}
	return s.tokenizer.Tokenize(s.pronouncer.Pronounce(text)), nil
}

// AudioRequest is the input of [Service.ProcessAudio].
type AudioRequest struct {
	// Audio is a base64 WAV stream, optionally as a data URI.
	Audio            string
	EnablePauseCount bool
	EnableDenoiser   bool
	// ContentType tags the utterance, e.g. "word" or "sentence".
	ContentType string
}

// AudioResult is the output of [Service.ProcessAudio]. Fields of a disabled
// step keep their zero value.
type AudioResult struct {
	DenoisedBase64 string
	PauseCount     int
	InitialSNR     float64
	FinalSNR       float64
	DenoiseMode    string
	RolledBack     bool
}

// ProcessAudio counts pauses and denoises the audio, running both steps
// concurrently when both are enabled.
func (s *Service) ProcessAudio(ctx context.Context, req AudioRequest) (AudioResult, error) {
	if strings.TrimSpace(req.ContentType) == "" {
		return AudioResult{}, Wrap(ErrInvalidInput, "audio", "validate", "content type is required", nil)
	}
	if strings.TrimSpace(req.Audio) == "" {
		return AudioResult{}, Wrap(ErrInvalidInput, "audio", "validate", "audio is required", nil)
	}
	raw, err := audio.DecodeBase64(req.Audio)
	if err != nil {
		return AudioResult{}, Wrap(ErrInvalidInput, "audio", "decode base64", "", err)
	}

	var res AudioResult
	if !req.EnablePauseCount && !req.EnableDenoiser {
		return res, nil
	}

	var buf *audio.Buffer
	if req.EnablePauseCount || (req.EnableDenoiser && s.mode == ModeAdaptive) {
		buf, err = audio.DecodeWAV(raw)
		if err != nil {
			return AudioResult{}, Wrap(ErrInvalidInput, "audio", "decode wav", "", err)
		}
	}

	tun := s.tun.Load()
	g, gctx := errgroup.WithContext(ctx)
	if req.EnablePauseCount {
		g.Go(func() error {
			n, err := s.countPauses(gctx, buf, tun.pause)
			res.PauseCount = n
			return err
		})
	}
	if req.EnableDenoiser {
		g.Go(func() error {
			var err error
			if s.mode == ModeRNNoise {
				res.DenoisedBase64, err = s.denoiseExternal(gctx, raw, req.ContentType)
				res.DenoiseMode = ModeRNNoise
				return err
			}
			out, err := s.denoiseAdaptive(gctx, buf, tun)
			if err != nil {
				return err
			}
			res.DenoisedBase64 = out.encoded
			res.InitialSNR = out.initial
			res.FinalSNR = out.final
			res.RolledBack = out.rolledBack
			res.DenoiseMode = ModeAdaptive
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AudioResult{}, err
	}
	return res, nil
}

func (s *Service) countPauses(ctx context.Context, buf *audio.Buffer, p pause.Params) (n int, err error) {
	ctx, end := s.begin(ctx, observe.StagePause)
	defer func() { end(err) }()

	if err := ctx.Err(); err != nil {
		return 0, Wrap(markerFor(err), observe.StagePause, "detect", "", err)
	}
	n = pause.Count(buf, p)
	observe.Logger(ctx).DebugContext(ctx, "pauses counted", "count", n, "duration", buf.Duration())
	return n, nil
}

type adaptiveOutput struct {
	encoded        string
	initial, final float64
	rolledBack     bool
}

func (s *Service) denoiseAdaptive(ctx context.Context, buf *audio.Buffer, tun *tunableState) (out adaptiveOutput, err error) {
	ctx, end := s.begin(ctx, observe.StageDenoise)
	defer func() { end(err) }()

	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return adaptiveOutput{}, Wrap(markerFor(err), observe.StageDenoise, "acquire slot", "", err)
		}
		defer s.sem.Release(1)
	}

	dr, err := tun.denoiser.Denoise(ctx, buf, tun.speed)
	if err != nil {
		return adaptiveOutput{}, Wrap(markerFor(err), observe.StageDenoise, "adaptive denoise", "", err)
	}
	s.metrics.RecordDenoise(ctx, dr.InitialSNR, dr.FinalSNR, dr.RolledBack)

	depth := dr.Buffer.BitDepth
	if depth == 0 {
		depth = defaultBitDepth
	}
	wav, err := audio.EncodeWAV(dr.Buffer, depth)
	if err != nil {
		return adaptiveOutput{}, Wrap(ErrUpstream, observe.StageDenoise, "encode wav", "", err)
	}
	observe.Logger(ctx).DebugContext(ctx, "adaptive denoise finished",
		"initial_snr", dr.InitialSNR, "final_snr", dr.FinalSNR,
		"intensity", dr.Intensity, "rolled_back", dr.RolledBack, "intervals", len(dr.Intervals))
	return adaptiveOutput{
		encoded:    audio.EncodeBase64(wav),
		initial:    dr.InitialSNR,
		final:      dr.FinalSNR,
		rolledBack: dr.RolledBack,
	}, nil
}

func (s *Service) denoiseExternal(ctx context.Context, raw []byte, contentType string) (encoded string, err error) {
	ctx, end := s.begin(ctx, observe.StageRNNoise)
	defer func() { end(err) }()

	out, err := s.filter.Denoise(ctx, raw, contentType)
	if err != nil {
		return "", Wrap(filterMarker(err), observe.StageRNNoise, "denoise", "", err)
	}
	return audio.EncodeBase64(out), nil
}

// begin opens a span and a metrics record for stage. The returned function
// closes both with the stage outcome.
func (s *Service) begin(ctx context.Context, stage string) (context.Context, func(error)) {
	ctx, span := observe.StartStageSpan(ctx, stage)
	done := s.metrics.StartStage(ctx, stage)
	return ctx, func(err error) {
		done(Kind(err))
		observe.EndSpan(span, err)
	}
}

func markerFor(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrUpstream
}

func filterMarker(err error) error {
	switch {
	case errors.Is(err, rnnoise.ErrMalformedInput):
		return ErrInvalidInput
	case errors.Is(err, rnnoise.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	default:
		return ErrUpstream
	}
}

func normalize(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

func normalizeAll(langs []string) []string {
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		if l = normalize(l); l != "" && !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}
