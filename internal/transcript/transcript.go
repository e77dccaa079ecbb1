// Package transcript defines the text-path contracts used to score a
// learner's attempt against a reference text.
//
// The text path runs in three steps:
//
//  1. Fuzzy word matching ([Matcher]): each reference word is paired with
//     the closest hypothesis word by a 0–100 similarity score.
//
//  2. Pronunciation ([Pronouncer]): matched hypothesis words and unmatched
//     reference words are converted to IPA-like transcriptions.
//
//  3. Phoneme classification: transcriptions are tokenized and split into
//     familiar (produced) and missing (not recovered) phoneme sets.
//
// Implementations of both interfaces must be safe for concurrent use.
package transcript

// Matcher finds the hypothesis word closest to a target word.
type Matcher interface {
	// FindClosestMatch lower-cases and whitespace-splits candidateText and
	// returns the highest-scoring candidate with its score in [0, 100].
	// On ties the leftmost candidate wins. ok is false and score is 0 when
	// no candidate scores above zero.
	FindClosestMatch(target, candidateText string) (best string, score int, ok bool)
}

// Pronouncer converts a single word into an IPA-like transcription.
type Pronouncer interface {
	PronounceWord(word string) string
}
