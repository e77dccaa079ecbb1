package alignment

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/antzucaro/matchr"
)

func TestCERAndWER(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ref, hyp string
		cer, wer float64
	}{
		{"identical", "frog jumps", "frog jumps", 0, 0},
		{"one word wrong", "frog jumps", "dog jumps", 0.2, 0.5},
		{"insertion", "cat", "cats", 1.0 / 3, 1},
		{"empty hypothesis", "abc", "", 1, 1},
		{"surrounding space ignored", "  cat ", "cat", 0, 0},
		{"multi-byte runes", "ʃɪp", "ʃɪt", 1.0 / 3, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cer, err := CER(tc.ref, tc.hyp)
			if err != nil {
				t.Fatalf("CER: %v", err)
			}
			if math.Abs(cer-tc.cer) > 1e-9 {
				t.Errorf("CER = %v, want %v", cer, tc.cer)
			}
			wer, err := WER(tc.ref, tc.hyp)
			if err != nil {
				t.Fatalf("WER: %v", err)
			}
			if math.Abs(wer-tc.wer) > 1e-9 {
				t.Errorf("WER = %v, want %v", wer, tc.wer)
			}
		})
	}
}

func TestEmptyReference(t *testing.T) {
	t.Parallel()
	if _, err := CER("   ", "abc"); !errors.Is(err, ErrEmptyReference) {
		t.Errorf("CER err = %v, want ErrEmptyReference", err)
	}
	if _, err := WER("", ""); !errors.Is(err, ErrEmptyReference) {
		t.Errorf("WER err = %v, want ErrEmptyReference", err)
	}
}

func TestWordChunks(t *testing.T) {
	t.Parallel()

	got := Words("the cat sat", "the bat sat").Chunks
	want := []Chunk{
		{Kind: Equal, RefStart: 0, RefEnd: 1, HypStart: 0, HypEnd: 1},
		{Kind: Substitute, RefStart: 1, RefEnd: 2, HypStart: 1, HypEnd: 2},
		{Kind: Equal, RefStart: 2, RefEnd: 3, HypStart: 2, HypEnd: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("chunks = %+v, want %+v", got, want)
	}
}

func TestProject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		ref, hyp string
		want     Errors
	}{
		{
			name: "frog jumps",
			ref:  "frog jumps",
			hyp:  "dog jumps",
			want: Errors{
				Insertions:    []string{},
				Deletions:     []string{"r"},
				Substitutions: []Substitution{{Removed: "d", Replaced: "f"}},
			},
		},
		{
			name: "insertions",
			ref:  "cat",
			hyp:  "cats!",
			want: Errors{
				Insertions:    []string{"s", "!"},
				Deletions:     []string{},
				Substitutions: []Substitution{},
			},
		},
		{
			name: "no attempt",
			ref:  "hi",
			hyp:  "",
			want: Errors{
				Insertions:    []string{},
				Deletions:     []string{"h", "i"},
				Substitutions: []Substitution{},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Project(Chars(tc.ref, tc.hyp).Chunks, tc.ref, tc.hyp)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Project = %+v, want %+v", got, tc.want)
			}
		})
	}
}

// rebuild reassembles both sides from the projected edits and the equal
// chunks.
func rebuild(chunks []Chunk, e Errors, reference string) (string, string) {
	ref := []rune(reference)
	var r, h strings.Builder
	var ins, del, sub int
	for _, c := range chunks {
		switch c.Kind {
		case Equal:
			r.WriteString(string(ref[c.RefStart:c.RefEnd]))
			h.WriteString(string(ref[c.RefStart:c.RefEnd]))
		case Insert:
			for range c.HypEnd - c.HypStart {
				h.WriteString(e.Insertions[ins])
				ins++
			}
		case Delete:
			for range c.RefEnd - c.RefStart {
				r.WriteString(e.Deletions[del])
				del++
			}
		case Substitute:
			r.WriteString(e.Substitutions[sub].Replaced)
			h.WriteString(e.Substitutions[sub].Removed)
			sub++
		}
	}
	return r.String(), h.String()
}

func TestProjectRoundTrip(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"frog jumps", "dog jumps"},
		{"the quick brown fox", "a quick browne fx"},
		{"kitten", "sitting"},
		{"sunday", "saturday"},
		{"abc", ""},
		{"x", "completely different"},
		{"ʃɪp ahoy", "ʧɪp oy"},
	}
	for _, p := range pairs {
		chunks := Chars(p[0], p[1]).Chunks
		e := Project(chunks, p[0], p[1])
		gotRef, gotHyp := rebuild(chunks, e, p[0])
		if gotRef != p[0] || gotHyp != p[1] {
			t.Errorf("round trip of %q/%q = %q/%q", p[0], p[1], gotRef, gotHyp)
		}
	}
}

func TestCountsMatchEditDistance(t *testing.T) {
	t.Parallel()

	// Classic distances.
	cases := map[[2]string]int{
		{"kitten", "sitting"}:  3,
		{"sunday", "saturday"}: 3,
		{"", "abc"}:            3,
		{"flaw", "lawn"}:       2,
	}
	for p, want := range cases {
		a := Chars(p[0], p[1])
		if got := a.Counts.Errors(); got != want {
			t.Errorf("errors(%q, %q) = %d, want %d", p[0], p[1], got, want)
		}
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()
	for k, want := range map[Kind]string{Equal: "equal", Substitute: "substitute", Delete: "delete", Insert: "insert", Kind(9): "unknown"} {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestChars_MinimalEditCount(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"kitten", "sitting"},
		{"frog jumps", "dog jumps"},
		{"mother and father", "mother father"},
		{"abc", ""},
		{"", "abc"},
		{"flaw", "lawn"},
		{"intention", "execution"},
	}
	for _, p := range pairs {
		got := Chars(p[0], p[1]).Counts.Errors()
		if want := matchr.Levenshtein(p[0], p[1]); got != want {
			t.Errorf("Chars(%q, %q) errors = %d, want Levenshtein %d", p[0], p[1], got, want)
		}
	}
}
