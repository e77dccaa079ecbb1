// Package api serves the scoring contracts over HTTP.
//
// Routes:
//
//	POST /getTextMatrices   error rates, literal edits and phoneme sets
//	POST /getPhonemes       phoneme tokens of a text
//	POST /audio_processing  pause count and denoised audio
//
// Errors are JSON objects with a "detail" field. Bodies that are not valid
// JSON or lack a required field get 422, rejected input gets 400 and stage
// failures get 500.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrWong99/speechscore/internal/observe"
	"github.com/MrWong99/speechscore/internal/phoneme"
	"github.com/MrWong99/speechscore/internal/scoring"
	"github.com/MrWong99/speechscore/internal/transcript/alignment"
)

// DefaultMaxBodyBytes caps request bodies unless overridden.
const DefaultMaxBodyBytes = 32 << 20

// Scorer is the scoring surface the handlers call.
type Scorer interface {
	TextMatrices(ctx context.Context, req scoring.TextRequest) (scoring.TextResult, error)
	Phonemes(ctx context.Context, text string) ([]phoneme.Token, error)
	ProcessAudio(ctx context.Context, req scoring.AudioRequest) (scoring.AudioResult, error)
}

// Handler routes requests to a [Scorer].
type Handler struct {
	svc     Scorer
	maxBody int64
}

// Option configures a [Handler].
type Option func(*Handler)

// WithMaxBodyBytes overrides [DefaultMaxBodyBytes]. Non-positive values are
// ignored.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// New returns a handler for svc.
func New(svc Scorer, opts ...Option) *Handler {
	h := &Handler{svc: svc, maxBody: DefaultMaxBodyBytes}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register adds the scoring routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /getTextMatrices", h.TextMatrices)
	mux.HandleFunc("POST /getPhonemes", h.Phonemes)
	mux.HandleFunc("POST /audio_processing", h.AudioProcessing)
}

type textMatricesRequest struct {
	Reference  *string `json:"reference"`
	Hypothesis *string `json:"hypothesis"`
	Language   *string `json:"language"`
}

type textMatricesResponse struct {
	WER                float64                  `json:"wer"`
	CER                float64                  `json:"cer"`
	Insertion          []string                 `json:"insertion"`
	InsertionCount     int                      `json:"insertion_count"`
	Deletion           []string                 `json:"deletion"`
	DeletionCount      int                      `json:"deletion_count"`
	Substitution       []alignment.Substitution `json:"substitution"`
	SubstitutionCount  int                      `json:"substitution_count"`
	ConfidenceCharList []string                 `json:"confidence_char_list"`
	MissingCharList    []string                 `json:"missing_char_list"`
	ConstructText      string                   `json:"construct_text"`
}

// TextMatrices handles POST /getTextMatrices.
func (h *Handler) TextMatrices(w http.ResponseWriter, r *http.Request) {
	var req textMatricesRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := scoring.TextRequest{Reference: *req.Reference, Language: *req.Language}
	if req.Hypothesis != nil {
		in.Hypothesis = *req.Hypothesis
	}

	res, err := h.svc.TextMatrices(r.Context(), in)
	if err != nil {
		h.fail(w, r, observe.StageTextMatrices, err)
		return
	}
	writeJSON(w, http.StatusOK, textMatricesResponse{
		WER:                res.WER,
		CER:                res.CER,
		Insertion:          nonNil(res.Insertions),
		InsertionCount:     len(res.Insertions),
		Deletion:           nonNil(res.Deletions),
		DeletionCount:      len(res.Deletions),
		Substitution:       nonNil(res.Substitutions),
		SubstitutionCount:  len(res.Substitutions),
		ConfidenceCharList: tokenStrings(res.Familiar),
		MissingCharList:    tokenStrings(res.Missing),
		ConstructText:      res.ConstructText,
	})
}

type phonemesRequest struct {
	Text *string `json:"text"`
}

type phonemesResponse struct {
	Phonemes []string `json:"phonemes"`
}

// Phonemes handles POST /getPhonemes.
func (h *Handler) Phonemes(w http.ResponseWriter, r *http.Request) {
	var req phonemesRequest
	if !h.decode(w, r, &req) {
		return
	}
	toks, err := h.svc.Phonemes(r.Context(), *req.Text)
	if err != nil {
		h.fail(w, r, observe.StagePhonemes, err)
		return
	}
	writeJSON(w, http.StatusOK, phonemesResponse{Phonemes: tokenStrings(toks)})
}

type audioRequest struct {
	Base64String     *string `json:"base64_string"`
	EnablePauseCount *bool   `json:"enablePauseCount"`
	EnableDenoiser   *bool   `json:"enableDenoiser"`
	ContentType      *string `json:"contentType"`
}

type audioResponse struct {
	DenoisedAudioBase64 string   `json:"denoised_audio_base64"`
	PauseCount          int      `json:"pause_count"`
	InitialSNR          *float64 `json:"initial_snr,omitempty"`
	FinalSNR            *float64 `json:"final_snr,omitempty"`
	DenoiseMode         string   `json:"denoise_mode,omitempty"`
}

// AudioProcessing handles POST /audio_processing.
func (h *Handler) AudioProcessing(w http.ResponseWriter, r *http.Request) {
	var req audioRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.ProcessAudio(r.Context(), scoring.AudioRequest{
		Audio:            *req.Base64String,
		EnablePauseCount: *req.EnablePauseCount,
		EnableDenoiser:   *req.EnableDenoiser,
		ContentType:      *req.ContentType,
	})
	if err != nil {
		h.fail(w, r, "audio_processing", err)
		return
	}
	out := audioResponse{
		DenoisedAudioBase64: res.DenoisedBase64,
		PauseCount:          res.PauseCount,
		DenoiseMode:         res.DenoiseMode,
	}
	if res.DenoiseMode == scoring.ModeAdaptive {
		out.InitialSNR, out.FinalSNR = &res.InitialSNR, &res.FinalSNR
	}
	writeJSON(w, http.StatusOK, out)
}

// body is a request payload that can report its absent required fields.
type body interface {
	missing() []string
}

func (r *textMatricesRequest) missing() []string {
	return absent(required{"reference", r.Reference != nil}, required{"language", r.Language != nil})
}

func (r *phonemesRequest) missing() []string {
	return absent(required{"text", r.Text != nil})
}

func (r *audioRequest) missing() []string {
	return absent(
		required{"base64_string", r.Base64String != nil},
		required{"enablePauseCount", r.EnablePauseCount != nil},
		required{"enableDenoiser", r.EnableDenoiser != nil},
		required{"contentType", r.ContentType != nil},
	)
}

type required struct {
	name    string
	present bool
}

func absent(fields ...required) []string {
	var out []string
	for _, f := range fields {
		if !f.present {
			out = append(out, f.name)
		}
	}
	return out
}

type validationItem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type validationError struct {
	Detail []validationItem `json:"detail"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// decode reads the JSON body into dst and reports whether the handler may
// continue. On failure it has already written the response.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst body) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Detail: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			})
			return false
		}
		writeJSON(w, http.StatusUnprocessableEntity, validationError{Detail: []validationItem{{
			Loc: []string{"body"}, Msg: err.Error(), Type: "value_error.jsondecode",
		}}})
		return false
	}

	if missing := dst.missing(); len(missing) > 0 {
		items := make([]validationItem, 0, len(missing))
		for _, name := range missing {
			items = append(items, validationItem{
				Loc: []string{"body", name}, Msg: "field required", Type: "value_error.missing",
			})
		}
		writeJSON(w, http.StatusUnprocessableEntity, validationError{Detail: items})
		return false
	}
	return true
}

// fail logs err once with its stage and writes the mapped status.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, stage string, err error) {
	ctx := r.Context()
	status := http.StatusInternalServerError
	if errors.Is(err, scoring.ErrInvalidInput) {
		status = http.StatusBadRequest
		observe.Logger(ctx).WarnContext(ctx, "request rejected", "stage", stage, "err", err)
	} else {
		observe.Logger(ctx).ErrorContext(ctx, "request failed", "stage", stage, "kind", scoring.Kind(err), "err", err)
	}
	writeJSON(w, status, errorResponse{Detail: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func tokenStrings(toks []phoneme.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = string(t)
	}
	return out
}
