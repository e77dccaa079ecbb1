// Package phoneme splits IPA-like transcriptions into phoneme tokens.
//
// Matching is a table-driven longest-match scan: 3-rune combined phonemes,
// then 2-rune combined phonemes, then the single-rune base inventory. A rune
// that matches nothing is emitted verbatim as its own token and counted in
// the tokenizer's [AnomalyTable], so no input symbol is ever dropped.
// Stress marks, apostrophes and whitespace are zero-width.
package phoneme

import (
	"log/slog"
	"unicode"
)

// Option configures a [Tokenizer].
type Option func(*Tokenizer)

// WithCache enables memoisation with at most maxEntries distinct inputs.
// Cached inputs do not re-record their anomalies.
func WithCache(maxEntries int) Option {
	return func(t *Tokenizer) {
		t.cache = NewCache(maxEntries)
	}
}

// WithAnomalyTable makes the tokenizer record fallbacks into table instead
// of a private one.
func WithAnomalyTable(table *AnomalyTable) Option {
	return func(t *Tokenizer) {
		if table != nil {
			t.anomalies = table
		}
	}
}

// WithAnomalyHook registers fn to be called for every fallback symbol, after
// it has been recorded. Used to feed metrics.
func WithAnomalyHook(fn func(symbol string)) Option {
	return func(t *Tokenizer) {
		t.onAnomaly = fn
	}
}

// Tokenizer converts transcriptions to phoneme tokens. It is safe for
// concurrent use.
type Tokenizer struct {
	table     *table
	anomalies *AnomalyTable
	cache     *Cache
	onAnomaly func(symbol string)
}

// NewTokenizer returns a tokenizer with the built-in inventory.
func NewTokenizer(opts ...Option) *Tokenizer {
	t := &Tokenizer{
		table:     compile(),
		anomalies: NewAnomalyTable(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Anomalies returns the table that receives fallback symbols.
func (t *Tokenizer) Anomalies() *AnomalyTable {
	return t.anomalies
}

// Tokenize splits transcription into tokens. Identical input always yields
// identical output.
func (t *Tokenizer) Tokenize(transcription string) []Token {
	if cached, ok := t.cache.Get(transcription); ok {
		return cached
	}

	runes := []rune(transcription)
	out := make([]Token, 0, len(runes))
	for i := 0; i < len(runes); {
		r := runes[i]
		if zeroWidth[r] || unicode.IsSpace(r) {
			i++
			continue
		}
		if tok, n := t.table.match(runes, i); n > 0 {
			out = append(out, tok)
			i += n
			continue
		}

		sym := string(r)
		out = append(out, Token(sym))
		count := t.anomalies.Record(sym)
		slog.Debug("phoneme: unrecognised symbol", "symbol", sym, "count", count)
		if t.onAnomaly != nil {
			t.onAnomaly(sym)
		}
		i++
	}

	t.cache.Put(transcription, out)
	return out
}
