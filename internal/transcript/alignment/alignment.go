// Package alignment computes minimum edit alignments between a reference
// and a hypothesis, at character or word granularity, and derives error
// rates and literal edit lists from them.
package alignment

import (
	"errors"
	"strings"
)

// ErrEmptyReference is returned when an error rate is requested for a
// reference with no units to compare against.
var ErrEmptyReference = errors.New("alignment: reference is empty")

// Kind classifies an aligned span.
type Kind int

const (
	Equal Kind = iota
	Substitute
	Delete
	Insert
)

func (k Kind) String() string {
	switch k {
	case Equal:
		return "equal"
	case Substitute:
		return "substitute"
	case Delete:
		return "delete"
	case Insert:
		return "insert"
	default:
		return "unknown"
	}
}

// Chunk is a maximal run of one edit kind. Indices are half-open and count
// units (runes or words) on each side.
type Chunk struct {
	Kind     Kind
	RefStart int
	RefEnd   int
	HypStart int
	HypEnd   int
}

// Counts tallies unit-level edits.
type Counts struct {
	Hits          int
	Substitutions int
	Deletions     int
	Insertions    int
}

// Errors returns S+D+I.
func (c Counts) Errors() int { return c.Substitutions + c.Deletions + c.Insertions }

// Alignment is the result of aligning two unit sequences.
type Alignment struct {
	Chunks []Chunk
	Counts Counts
	// RefLen is the number of reference units.
	RefLen int
}

// ErrorRate is (S+D+I)/N over the reference length.
func (a Alignment) ErrorRate() (float64, error) {
	if a.RefLen == 0 {
		return 0, ErrEmptyReference
	}
	return float64(a.Counts.Errors()) / float64(a.RefLen), nil
}

// Chars aligns reference and hypothesis rune by rune after trimming
// surrounding whitespace.
func Chars(reference, hypothesis string) Alignment {
	return align([]rune(strings.TrimSpace(reference)), []rune(strings.TrimSpace(hypothesis)))
}

// Words aligns the whitespace-separated words of reference and hypothesis.
func Words(reference, hypothesis string) Alignment {
	return align(strings.Fields(reference), strings.Fields(hypothesis))
}

// CER is the character error rate of hypothesis against reference.
func CER(reference, hypothesis string) (float64, error) {
	return Chars(reference, hypothesis).ErrorRate()
}

// WER is the word error rate of hypothesis against reference.
func WER(reference, hypothesis string) (float64, error) {
	return Words(reference, hypothesis).ErrorRate()
}

func align[T comparable](ref, hyp []T) Alignment {
	n, m := len(ref), len(hyp)

	// dist[i][j] is the edit distance between ref[:i] and hyp[:j].
	dist := make([][]int, n+1)
	for i := range dist {
		dist[i] = make([]int, m+1)
		dist[i][0] = i
	}
	for j := 0; j <= m; j++ {
		dist[0][j] = j
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			cost := 1
			if ref[i-1] == hyp[j-1] {
				cost = 0
			}
			dist[i][j] = min(dist[i-1][j-1]+cost, dist[i-1][j]+1, dist[i][j-1]+1)
		}
	}

	// Walk back from the corner. A matching diagonal always wins; among
	// equal-cost edits deletions come first, then insertions, then
	// substitutions.
	steps := make([]Kind, 0, max(n, m))
	i, j := n, m
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && ref[i-1] == hyp[j-1]:
			steps = append(steps, Equal)
			i, j = i-1, j-1
		case i > 0 && dist[i][j] == dist[i-1][j]+1:
			steps = append(steps, Delete)
			i--
		case j > 0 && dist[i][j] == dist[i][j-1]+1:
			steps = append(steps, Insert)
			j--
		default:
			steps = append(steps, Substitute)
			i, j = i-1, j-1
		}
	}

	a := Alignment{RefLen: n}
	var ri, hi int
	for k := len(steps) - 1; k >= 0; k-- {
		kind := steps[k]
		dr, dh := 1, 1
		switch kind {
		case Equal:
			a.Counts.Hits++
		case Substitute:
			a.Counts.Substitutions++
		case Delete:
			a.Counts.Deletions++
			dh = 0
		case Insert:
			a.Counts.Insertions++
			dr = 0
		}
		if last := len(a.Chunks) - 1; last >= 0 && a.Chunks[last].Kind == kind {
			a.Chunks[last].RefEnd += dr
			a.Chunks[last].HypEnd += dh
		} else {
			a.Chunks = append(a.Chunks, Chunk{
				Kind:     kind,
				RefStart: ri, RefEnd: ri + dr,
				HypStart: hi, HypEnd: hi + dh,
			})
		}
		ri += dr
		hi += dh
	}
	return a
}
