// Package filter removes garbage segments produced by the speech recogniser:
// empty output, text in non-Latin scripts, symbol soup, one-word noise and,
// when a [LanguageIdentifier] is configured, whole sentences in another
// language.
//
// Rules run in a fixed order and the first failing rule decides the
// [Reason]; later rules are not evaluated.
package filter

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/MrWong99/touchline/pkg/types"
)

// Reason is the machine-readable tag attached to a rejected segment.
type Reason string

const (
	ReasonEmpty      Reason = "empty_segment"
	ReasonNonLatin   Reason = "non_latin_characters"
	ReasonLowAlpha   Reason = "low_alpha_ratio"
	ReasonFewWords   Reason = "too_few_words"
	ReasonNonEnglish Reason = "non_english_detected"
)

const (
	defaultAlphaRatioMin    = 0.70
	defaultMinWords         = 2
	defaultLanguageMinWords = 8
	defaultLanguageMinConf  = 0.5
)

// defaultAllowedLanguages also admits languages that identifiers commonly
// confuse with English sports commentary.
var defaultAllowedLanguages = []string{"en", "sco", "cy"}

// LanguageIdentifier guesses the language of a piece of text.
//
// lang is an ISO 639 code ("en", "de", …) or "" when the identifier cannot
// decide. confidence is in [0, 1]. A non-nil error is treated by the
// [Filter] as "unknown" and never rejects a segment.
type LanguageIdentifier interface {
	Identify(text string) (lang string, confidence float64, err error)
}

// Option is a functional option for configuring a [Filter].
type Option func(*Filter)

// WithAlphaRatioMin sets the minimum share of ASCII letters among the
// non-whitespace characters of a segment. Default: 0.70.
func WithAlphaRatioMin(ratio float64) Option {
	return func(f *Filter) {
		f.alphaRatioMin = ratio
	}
}

// WithMinWords sets the minimum number of whitespace-separated words.
// Default: 2.
func WithMinWords(n int) Option {
	return func(f *Filter) {
		f.minWords = n
	}
}

// WithLanguageIdentifier enables the language rule. minWords is the shortest
// segment (in words) the identifier is consulted for; minConfidence is the
// confidence at which a non-allowed language causes rejection. allowed lists
// the accepted language codes; nil keeps the default (en, sco, cy).
func WithLanguageIdentifier(id LanguageIdentifier, minWords int, minConfidence float64, allowed []string) Option {
	return func(f *Filter) {
		f.langID = id
		if minWords > 0 {
			f.langMinWords = minWords
		}
		if minConfidence > 0 {
			f.langMinConf = minConfidence
		}
		if len(allowed) > 0 {
			f.allowed = allowed
		}
	}
}

// Filter classifies transcript segments as valid or garbage.
// A Filter is read-only after construction and safe for concurrent use.
type Filter struct {
	alphaRatioMin float64
	minWords      int
	langID        LanguageIdentifier
	langMinWords  int
	langMinConf   float64
	allowed       []string
}

// New returns a [Filter] configured with the supplied options. Without
// [WithLanguageIdentifier] the language rule always passes.
func New(opts ...Option) *Filter {
	f := &Filter{
		alphaRatioMin: defaultAlphaRatioMin,
		minWords:      defaultMinWords,
		langMinWords:  defaultLanguageMinWords,
		langMinConf:   defaultLanguageMinConf,
		allowed:       defaultAllowedLanguages,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Classify reports whether seg should be kept. When it should not, reason
// names the first rule that failed.
func (f *Filter) Classify(seg types.Segment) (valid bool, reason Reason) {
	reason, _ = f.check(seg.Text)
	return reason == "", reason
}

// Apply filters segs, preserving order. removed carries one entry per
// rejected segment with its text truncated for logging.
func (f *Filter) Apply(segs []types.Segment) (kept []types.Segment, removed []types.Rejection) {
	kept = make([]types.Segment, 0, len(segs))
	for _, seg := range segs {
		reason, detail := f.check(seg.Text)
		if reason == "" {
			kept = append(kept, seg)
			continue
		}
		removed = append(removed, types.Rejection{
			SegmentID: seg.ID,
			Half:      seg.Half,
			Start:     seg.Start,
			Text:      types.Truncate(seg.Text, types.LogTextLimit),
			Reason:    detail,
		})
	}
	return kept, removed
}

// check runs the rules in order. detail is the reason with a measured value
// appended where one exists, e.g. "low_alpha_ratio (0.42)".
func (f *Filter) check(raw string) (reason Reason, detail string) {
	text := strings.TrimSpace(raw)

	if text == "" {
		return ReasonEmpty, string(ReasonEmpty)
	}

	if HasNonLatin(text) {
		return ReasonNonLatin, string(ReasonNonLatin)
	}

	if ratio := AlphaRatio(text); ratio < f.alphaRatioMin {
		return ReasonLowAlpha, fmt.Sprintf("%s (%.2f)", ReasonLowAlpha, ratio)
	}

	words := len(strings.Fields(text))
	if words < f.minWords {
		return ReasonFewWords, fmt.Sprintf("%s (%d)", ReasonFewWords, words)
	}

	if !f.likelyEnglish(text, words) {
		return ReasonNonEnglish, string(ReasonNonEnglish)
	}

	return "", ""
}

// likelyEnglish returns false only when the identifier is confident the text
// is in a language outside the allowed set.
func (f *Filter) likelyEnglish(text string, words int) bool {
	if f.langID == nil || words < f.langMinWords {
		return true
	}
	lang, conf, err := f.langID.Identify(text)
	if err != nil || lang == "" || conf < f.langMinConf {
		return true
	}
	return slices.Contains(f.allowed, lang)
}

// nonLatinRanges are script blocks that never occur in English commentary.
var nonLatinRanges = []struct{ lo, hi rune }{
	{0x0400, 0x04FF}, // Cyrillic
	{0x0600, 0x06FF}, // Arabic
	{0x3000, 0x9FFF}, // CJK symbols, kana, ideographs
	{0xAC00, 0xD7AF}, // Hangul syllables
	{0x3040, 0x309F}, // Hiragana
	{0x30A0, 0x30FF}, // Katakana
}

// HasNonLatin reports whether text contains a rune from a non-Latin script
// block. Accented Latin letters are not flagged.
func HasNonLatin(text string) bool {
	for _, r := range text {
		for _, rg := range nonLatinRanges {
			if r >= rg.lo && r <= rg.hi {
				return true
			}
		}
	}
	return false
}

// AlphaRatio returns the share of ASCII letters among the non-whitespace
// runes of text. Text without content runes has ratio 0.
func AlphaRatio(text string) float64 {
	var alpha, content int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		content++
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			alpha++
		}
	}
	if content == 0 {
		return 0
	}
	return float64(alpha) / float64(content)
}
