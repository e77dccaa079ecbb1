// Package fuzzy implements the [transcript.Matcher] interface with a
// normalised edit-distance similarity ratio.
//
// The ratio of two strings a and b is
//
//	round(100 * (len(a) + len(b) - d) / (len(a) + len(b)))
//
// where d is the insert/delete edit distance, i.e. len(a) + len(b) minus
// twice their longest common subsequence. Lengths are counted in runes and
// rounding is half-to-even. "cat" and "bat" share "at", giving 67.
package fuzzy

import (
	"math"
	"strings"

	"github.com/antzucaro/matchr"
)

// Ratio returns the 0–100 similarity of a and b. Two empty strings, or one
// empty string, score 0.
func Ratio(a, b string) int {
	la, lb := len([]rune(a)), len([]rune(b))
	total := la + lb
	if la == 0 || lb == 0 {
		return 0
	}
	lcs := matchr.LongestCommonSubsequence(a, b)
	return int(math.RoundToEven(100 * float64(2*lcs) / float64(total)))
}

// Matcher is a stateless fuzzy word matcher. It implements
// [transcript.Matcher] and is safe for concurrent use.
type Matcher struct{}

// New returns a [Matcher].
func New() *Matcher {
	return &Matcher{}
}

// FindClosestMatch scans the lower-cased words of candidateText left to
// right and keeps the first word with the strictly highest ratio against the
// lower-cased target.
func (m *Matcher) FindClosestMatch(target, candidateText string) (best string, score int, ok bool) {
	targ := strings.ToLower(target)
	for _, word := range strings.Fields(strings.ToLower(candidateText)) {
		if s := Ratio(targ, word); s > score {
			best, score = word, s
		}
	}
	return best, score, score > 0
}
