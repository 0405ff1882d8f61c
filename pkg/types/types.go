// Package types defines the shared types used across all touchline packages.
//
// These types form the lingua franca between the loader, the cleaning stages,
// the corrector and the report writer. Each package defines its own domain
// types; cross-cutting data structures live here to avoid circular imports.
package types

import "unicode/utf8"

// Segment is one transcribed commentary utterance.
//
// Segments are created by the dataset loader, removed (never blanked) by the
// hallucination filter and the duplicate merger, and have their Text rewritten
// in place by the corrector. A Segment lives for one pipeline run over one
// event.
type Segment struct {
	// ID is the segment key from the source file. Unique within an event half.
	ID string

	// Start and End are timestamps in seconds. Start <= End.
	Start float64
	End   float64

	// Text is the raw (or, after correction, the corrected) transcript text.
	Text string

	// Half is 1 or 2.
	Half int
}

// Span is a name-like region detected in a segment's text.
type Span struct {
	// Text is the span as it appears in the segment.
	Text string

	// Label is the entity class (PERSON, ORG, GPE, FAC).
	Label string

	// Start and End are rune offsets into the segment text at detection time.
	// End is exclusive.
	Start int
	End   int

	// Source names the detector that produced the span
	// (e.g. "heuristic_short_segment", "llm").
	Source string
}

// Overlaps reports whether s and o share at least one rune position.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && s.End > o.Start
}

// Rejection records a segment removed by the hallucination filter.
type Rejection struct {
	SegmentID string  `json:"segment_id"`
	Half      int     `json:"half"`
	Start     float64 `json:"start_time"`
	Text      string  `json:"text"`
	Reason    string  `json:"reason"`
}

// Duplicate records a segment folded into an earlier one by the merger.
type Duplicate struct {
	SegmentID   string  `json:"segment_id"`
	Half        int     `json:"half"`
	Start       float64 `json:"start_time"`
	Text        string  `json:"text"`
	DuplicateOf string  `json:"duplicate_of"`
	Similarity  float64 `json:"similarity"`
}

// LogTextLimit is the number of runes of segment text kept in removal logs.
const LogTextLimit = 80

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
