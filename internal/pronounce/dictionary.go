// Package pronounce converts English words to IPA-like transcriptions using a
// CMU-format pronouncing dictionary.
//
// A small seed dictionary is embedded in the binary. A full dictionary can be
// merged on top with [Dictionary.LoadFile]. Words missing from the dictionary
// fall back to their lower-cased letters, which keeps every word represented
// in the phoneme stream and lets unusual letters surface as tokenizer
// anomalies.
package pronounce

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"unicode"
)

//go:embed seed.dict
var seed string

// Dictionary maps lower-cased words to transcriptions. It is safe for
// concurrent use.
type Dictionary struct {
	mu      sync.RWMutex
	entries map[string]string
}

// New returns a dictionary preloaded with the embedded seed entries.
func New() *Dictionary {
	d := &Dictionary{entries: make(map[string]string, 256)}
	if _, err := d.Load(strings.NewReader(seed)); err != nil {
		// The seed is compiled in; a parse failure is a build defect.
		panic("pronounce: embedded seed dictionary: " + err.Error())
	}
	return d
}

// LoadFile merges the CMU-format dictionary at path and returns the number of
// entries added or replaced.
func (d *Dictionary) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("pronounce: open %q: %w", path, err)
	}
	defer f.Close()

	n, err := d.Load(f)
	if err != nil {
		return n, fmt.Errorf("pronounce: parse %q: %w", path, err)
	}
	return n, nil
}

// Load merges CMU-format lines from r. Comment lines start with ";;;".
// Alternate pronunciations (WORD(2)) are ignored; the first wins.
func (d *Dictionary) Load(r io.Reader) (int, error) {
	parsed := make(map[string]string)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, ";;;") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return 0, fmt.Errorf("line %d: want word and at least one phone, got %q", line, text)
		}
		word := fields[0]
		if strings.HasSuffix(word, ")") && strings.Contains(word, "(") {
			continue
		}
		ipa, err := toIPA(fields[1:])
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", line, err)
		}
		parsed[strings.ToLower(word)] = ipa
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for w, ipa := range parsed {
		d.entries[w] = ipa
	}
	return len(parsed), nil
}

// Len returns the number of known words.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Lookup returns the transcription of word and whether it was found in the
// dictionary. Case and surrounding punctuation are ignored.
func (d *Dictionary) Lookup(word string) (string, bool) {
	key := normalize(word)
	if key == "" {
		return "", false
	}
	d.mu.RLock()
	ipa, ok := d.entries[key]
	d.mu.RUnlock()
	return ipa, ok
}

// PronounceWord returns the transcription of a single word, falling back to
// its normalised spelling.
func (d *Dictionary) PronounceWord(word string) string {
	if ipa, ok := d.Lookup(word); ok {
		return ipa
	}
	key := normalize(word)
	slog.Debug("pronounce: word not in dictionary, using spelling", "word", key)
	return strings.ReplaceAll(key, "'", "")
}

// Pronounce transcribes every whitespace-separated word of text and joins
// the results with a single space.
func (d *Dictionary) Pronounce(text string) string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if p := d.PronounceWord(w); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// normalize lower-cases word and keeps letters and inner apostrophes.
func normalize(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if unicode.IsLetter(r) || r == '\'' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "'")
}

// toIPA converts ARPABET phones such as "HH AH0 L OW1" to "həlˈoʊ". Stress
// marks precede the stressed vowel.
func toIPA(phones []string) (string, error) {
	var b strings.Builder
	for _, ph := range phones {
		sym, stress := ph, byte(0)
		if last := ph[len(ph)-1]; last >= '0' && last <= '2' {
			sym, stress = ph[:len(ph)-1], last
		}
		ipa, ok := arpabet[sym]
		if !ok {
			return "", fmt.Errorf("unknown ARPABET symbol %q", ph)
		}
		switch stress {
		case '0':
			if sym == "AH" {
				ipa = unstressedSchwa
			}
		case '1':
			b.WriteString(primaryStress)
		case '2':
			b.WriteString(secondaryStress)
		}
		b.WriteString(ipa)
	}
	return b.String(), nil
}
