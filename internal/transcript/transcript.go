// Package transcript corrects misspelled proper names in commentary
// transcripts.
//
// Speech recognisers hear a name correctly but spell it wrong: "Zuma" for
// "Zouma", "Conor Wickham" for "Connor Wickham", "Sacco" for "Sakho". The
// [Corrector] compares every detected name-like span against the event's
// name directory using three signals:
//
//  1. String similarity: order-insensitive token-sort ratio (0–100).
//  2. Sound similarity: Double Metaphone codes with a Soundex fallback
//     (100 exact, 75 partial, 0 otherwise).
//  3. Context: 100 when the candidate's canonical name was mentioned in the
//     same or a neighbouring segment.
//
// The weighted sum is accepted when it clears a threshold that depends on
// the length of the name, since short names score lower on string
// similarity. Accepted corrections keep the punctuation and possessive that
// surrounded the original span.
//
// A Corrector is read-only after construction and safe for concurrent use.
package transcript

import (
	"fmt"
	"strings"
)

// MethodLearned tags corrections recalled from the learned cache instead of
// being scored.
const MethodLearned = "learned"

// Correction records one accepted name substitution.
type Correction struct {
	// Original is the span text with punctuation and possessive stripped.
	Original string `json:"original"`

	// Corrected is the replacement name without punctuation.
	Corrected string `json:"corrected"`

	// Score is the combined score (0–100) that accepted the correction.
	Score float64 `json:"combined_score"`

	// FuzzyScore is the string-similarity signal (0–100).
	FuzzyScore float64 `json:"fuzzy_score"`

	// PhoneticMatch reports whether the phonetic signal reached the match
	// threshold.
	PhoneticMatch bool `json:"phonetic_match"`

	// ContextMatch reports whether the candidate was mentioned nearby.
	ContextMatch bool `json:"context_match"`

	// SegmentID is the segment the correction was applied to.
	SegmentID string `json:"segment_id"`

	// Half is the match half of that segment. Zero when unknown.
	Half int `json:"half,omitempty"`

	// Method describes which signals fired, e.g. "fuzzy(96)+phonetic", or
	// names a bypass such as [MethodLearned].
	Method string `json:"method"`
}

// DescribeMethod builds the method tag for a scored correction.
func DescribeMethod(fuzzy float64, phonetic, context bool) string {
	parts := []string{fmt.Sprintf("fuzzy(%.0f)", fuzzy)}
	if phonetic {
		parts = append(parts, "phonetic")
	}
	if context {
		parts = append(parts, "context")
	}
	return strings.Join(parts, "+")
}
