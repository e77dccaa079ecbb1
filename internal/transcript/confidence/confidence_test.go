package confidence_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/speechscore/internal/phoneme"
	"github.com/MrWong99/speechscore/internal/pronounce"
	"github.com/MrWong99/speechscore/internal/transcript/confidence"
	"github.com/MrWong99/speechscore/internal/transcript/fuzzy"
)

func newEngine(opts ...confidence.Option) (*confidence.Engine, *phoneme.Tokenizer, *pronounce.Dictionary) {
	tok := phoneme.NewTokenizer()
	dict := pronounce.New()
	return confidence.New(fuzzy.New(), dict, tok, opts...), tok, dict
}

func toks(s ...string) []phoneme.Token {
	out := make([]phoneme.Token, len(s))
	for i, v := range s {
		out[i] = phoneme.Token(v)
	}
	return out
}

func TestProcessLP_NoHypothesis(t *testing.T) {
	t.Parallel()

	e, tok, dict := newEngine()
	res := e.ProcessLP("hello", "")

	if len(res.Familiar) != 0 {
		t.Errorf("Familiar = %v, want empty", res.Familiar)
	}
	want := tok.Tokenize(dict.PronounceWord("hello"))
	if !slices.Equal(res.Missing, want) {
		t.Errorf("Missing = %v, want %v", res.Missing, want)
	}
	if res.Reconstructed != "" {
		t.Errorf("Reconstructed = %q, want empty", res.Reconstructed)
	}
}

func TestProcessLP_SingleWordRelaxedThreshold(t *testing.T) {
	t.Parallel()

	e, _, _ := newEngine()
	res := e.ProcessLP("cat", "bat")

	if len(res.Words) != 1 {
		t.Fatalf("Words = %v", res.Words)
	}
	w := res.Words[0]
	if w.Score != 67 {
		t.Fatalf("score(cat, bat) = %d, want 67", w.Score)
	}
	if !w.Accepted {
		t.Fatal("cat/bat rejected, want accepted under single-word threshold 60")
	}
	// Phonemes come from the matched hypothesis word, not the reference.
	if !slices.Equal(res.Familiar, toks("b", "æ", "t")) {
		t.Errorf("Familiar = %v, want [b æ t]", res.Familiar)
	}
	if len(res.Missing) != 0 {
		t.Errorf("Missing = %v, want empty", res.Missing)
	}
	if res.Reconstructed != "bat" {
		t.Errorf("Reconstructed = %q, want bat", res.Reconstructed)
	}
}

func TestProcessLP_MultiWordStrictThreshold(t *testing.T) {
	t.Parallel()

	e, _, _ := newEngine()
	res := e.ProcessLP("the cat", "the bat")

	if got := res.Words[1]; got.Match != "bat" || got.Score != 67 || got.Accepted {
		t.Fatalf("second word = %+v, want bat/67 rejected under multi-word threshold 80", got)
	}
	if !slices.Equal(res.Familiar, toks("ð", "ə")) {
		t.Errorf("Familiar = %v, want [ð ə]", res.Familiar)
	}
	if !slices.Equal(res.Missing, toks("k", "æ", "t")) {
		t.Errorf("Missing = %v, want [k æ t]", res.Missing)
	}
	if res.Reconstructed != "the" {
		t.Errorf("Reconstructed = %q, want the", res.Reconstructed)
	}
}

func TestProcessLP_ThresholdOverride(t *testing.T) {
	t.Parallel()

	e, _, _ := newEngine(confidence.WithThresholds(confidence.Thresholds{MultiWord: 80, SingleWord: 80}))
	if res := e.ProcessLP("cat", "bat"); res.Words[0].Accepted {
		t.Error("cat/bat accepted with single-word threshold 80")
	}

	e.SetThresholds(confidence.Thresholds{MultiWord: 60, SingleWord: 60})
	if res := e.ProcessLP("the cat", "the bat"); !res.Words[1].Accepted {
		t.Error("cat/bat rejected with multi-word threshold 60")
	}
}

func TestProcessLP_MissingExcludesFamiliar(t *testing.T) {
	t.Parallel()

	e, _, _ := newEngine()
	res := e.ProcessLP("sit cat", "cat")

	// "sit" is rejected but its /t/ was produced in "cat".
	if !slices.Equal(res.Missing, toks("s", "ɪ")) {
		t.Errorf("Missing = %v, want [s ɪ]", res.Missing)
	}
	if !slices.Equal(res.Familiar, toks("k", "æ", "t")) {
		t.Errorf("Familiar = %v, want [k æ t]", res.Familiar)
	}
}

func TestProcessLP_FrogJumps(t *testing.T) {
	t.Parallel()

	e, _, _ := newEngine()
	res := e.ProcessLP("Frog jumps", "dog jumps")

	if !slices.Equal(res.Familiar, toks("ʤ", "ʌ", "m", "p", "s")) {
		t.Errorf("Familiar = %v", res.Familiar)
	}
	if !slices.Equal(res.Missing, toks("f", "r", "ɑ", "g")) {
		t.Errorf("Missing = %v", res.Missing)
	}
	if res.Reconstructed != "jumps" {
		t.Errorf("Reconstructed = %q, want jumps", res.Reconstructed)
	}
}

func TestProcessLP_SetsDisjoint(t *testing.T) {
	t.Parallel()

	e, _, _ := newEngine()
	pairs := [][2]string{
		{"the quick brown fox", "the quack brown box"},
		{"mother and father", "mother father"},
		{"sing a song", "ring a ring"},
		{"yellow house", ""},
		{"water", "what her"},
		{"doctor school book", "book school doctor"},
	}
	for _, p := range pairs {
		res := e.ProcessLP(p[0], p[1])
		for _, m := range res.Missing {
			if slices.Contains(res.Familiar, m) {
				t.Errorf("ProcessLP(%q, %q): %q in both sets", p[0], p[1], m)
			}
		}
	}
}

func TestThresholds_For(t *testing.T) {
	t.Parallel()
	th := confidence.DefaultThresholds()
	if got := th.For(1); got != 60 {
		t.Errorf("For(1) = %d, want 60", got)
	}
	if got := th.For(3); got != 80 {
		t.Errorf("For(3) = %d, want 80", got)
	}
	if got := th.For(0); got != 80 {
		t.Errorf("For(0) = %d, want 80", got)
	}
}
