// Package confidence maps a word-level comparison of reference and
// hypothesis text onto phoneme-level mastery sets.
//
// Every reference word is fuzzily matched against the whole hypothesis. An
// accepted match contributes the phonemes of the matched hypothesis word to
// the familiar set; a rejected word contributes its own phonemes to the
// missing set. Phonemes the learner produced anywhere are finally removed
// from the missing set, leaving only the true gap.
package confidence

import (
	"strings"
	"sync/atomic"

	"github.com/MrWong99/speechscore/internal/phoneme"
	"github.com/MrWong99/speechscore/internal/transcript"
)

// Default acceptance thresholds on the 0–100 similarity scale.
const (
	DefaultMultiWordThreshold  = 80
	DefaultSingleWordThreshold = 60
)

// Thresholds selects the minimum similarity for accepting a match. A
// single-word reference uses the relaxed SingleWord bar because similarity
// scores of short strings are compressed.
type Thresholds struct {
	MultiWord  int
	SingleWord int
}

// DefaultThresholds returns the default acceptance thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{MultiWord: DefaultMultiWordThreshold, SingleWord: DefaultSingleWordThreshold}
}

// For returns the threshold that applies to a reference of wordCount words.
func (t Thresholds) For(wordCount int) int {
	if wordCount == 1 {
		return t.SingleWord
	}
	return t.MultiWord
}

// Tokenizer splits a transcription into phoneme tokens.
type Tokenizer interface {
	Tokenize(transcription string) []phoneme.Token
}

// WordResult is the outcome for one reference word.
type WordResult struct {
	Reference string
	// Match is the closest hypothesis word, empty when there was none.
	Match    string
	Score    int
	Accepted bool
}

// Result is the output of [Engine.ProcessLP]. Familiar and Missing are sets
// in first-seen order and never share a token.
type Result struct {
	Words         []WordResult
	Familiar      []phoneme.Token
	Missing       []phoneme.Token
	Reconstructed string
}

// Engine classifies phonemes. It is safe for concurrent use; thresholds can
// be swapped at runtime with [Engine.SetThresholds].
type Engine struct {
	matcher    transcript.Matcher
	pronouncer transcript.Pronouncer
	tokenizer  Tokenizer
	thresholds atomic.Pointer[Thresholds]
}

// Option configures an [Engine].
type Option func(*Engine)

// WithThresholds overrides the default acceptance thresholds.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) {
		e.thresholds.Store(&t)
	}
}

// New returns an engine wired to its collaborators.
func New(m transcript.Matcher, p transcript.Pronouncer, tok Tokenizer, opts ...Option) *Engine {
	e := &Engine{matcher: m, pronouncer: p, tokenizer: tok}
	def := DefaultThresholds()
	e.thresholds.Store(&def)
	for _, o := range opts {
		o(e)
	}
	return e
}

// Thresholds returns the thresholds currently in effect.
func (e *Engine) Thresholds() Thresholds {
	return *e.thresholds.Load()
}

// SetThresholds replaces the acceptance thresholds for subsequent calls.
func (e *Engine) SetThresholds(t Thresholds) {
	e.thresholds.Store(&t)
}

// ProcessLP compares reference against hypothesis. An empty hypothesis is
// treated as no attempt: every reference word is missing.
func (e *Engine) ProcessLP(reference, hypothesis string) Result {
	refWords := strings.Fields(strings.ToLower(reference))
	hyp := strings.ToLower(hypothesis)
	threshold := e.Thresholds().For(len(refWords))

	var (
		familiar, missing tokenSet
		matched           []string
		words             = make([]WordResult, 0, len(refWords))
	)
	for _, word := range refWords {
		best, score, _ := e.matcher.FindClosestMatch(word, hyp)
		wr := WordResult{Reference: word, Match: best, Score: score}
		if best != "" && score >= threshold {
			wr.Accepted = true
			familiar.add(e.tokenizer.Tokenize(e.pronouncer.PronounceWord(best))...)
			matched = append(matched, best)
		} else {
			missing.add(e.tokenizer.Tokenize(e.pronouncer.PronounceWord(word))...)
		}
		words = append(words, wr)
	}

	return Result{
		Words:         words,
		Familiar:      familiar.items(),
		Missing:       missing.without(&familiar),
		Reconstructed: strings.Join(matched, " "),
	}
}

// tokenSet is an insertion-ordered set of tokens.
type tokenSet struct {
	seen  map[phoneme.Token]struct{}
	order []phoneme.Token
}

func (s *tokenSet) add(toks ...phoneme.Token) {
	if s.seen == nil {
		s.seen = make(map[phoneme.Token]struct{})
	}
	for _, t := range toks {
		if _, ok := s.seen[t]; ok {
			continue
		}
		s.seen[t] = struct{}{}
		s.order = append(s.order, t)
	}
}

func (s *tokenSet) has(t phoneme.Token) bool {
	_, ok := s.seen[t]
	return ok
}

func (s *tokenSet) items() []phoneme.Token {
	out := make([]phoneme.Token, len(s.order))
	copy(out, s.order)
	return out
}

// without returns the members of s that are not in other.
func (s *tokenSet) without(other *tokenSet) []phoneme.Token {
	out := make([]phoneme.Token, 0, len(s.order))
	for _, t := range s.order {
		if !other.has(t) {
			out = append(out, t)
		}
	}
	return out
}
