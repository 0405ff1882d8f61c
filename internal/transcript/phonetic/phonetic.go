// Package phonetic provides the string-similarity and sound-similarity
// primitives used by the duplicate merger and the name corrector.
//
// Two families of functions live here:
//
//  1. Similarity ratios on a 0–100 scale. [Ratio] is the normalised InDel
//     similarity (2·LCS / (len(a)+len(b))), and [TokenSortRatio] applies it
//     after lower-casing and sorting the whitespace-separated tokens, so
//     "Wickham Connor" and "connor wickham" score 100.
//
//  2. Phonetic codes. [Codes] returns the Double Metaphone primary code and a
//     Soundex code for a name, after folding accented Latin letters to ASCII
//     ("Touré" → "Toure"). [Score] compares two names: 100 when the primary
//     codes are identical, 75 when one primary code is a prefix of the other
//     or the Soundex codes agree, and 0 otherwise.
//
// Encoding failures never propagate: a panic inside the encoder or an empty
// code degrades the phonetic signal to 0.
package phonetic

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// ExactScore is returned by [Score] when the primary codes match.
	ExactScore = 100.0

	// PartialScore is returned by [Score] for prefix or Soundex agreement.
	PartialScore = 75.0

	// MatchThreshold is the minimum [Score] counted as a phonetic match.
	MatchThreshold = 50.0
)

// Ratio returns the normalised InDel similarity of a and b in [0, 100].
// Two empty strings are identical (100); one empty string scores 0.
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la+lb == 0 {
		return 100
	}
	if la == 0 || lb == 0 {
		return 0
	}
	if a == b {
		return 100
	}
	lcs := matchr.LongestCommonSubsequence(a, b)
	return 100 * float64(2*lcs) / float64(la+lb)
}

// TokenSortRatio lower-cases both inputs, sorts their whitespace-separated
// tokens and returns [Ratio] of the re-joined strings. Token order therefore
// does not affect the result.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	tokens := strings.Fields(strings.ToLower(s))
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// foldChain decomposes, drops combining marks and recomposes.
var foldChain = []transform.Transformer{
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
}

// Fold strips diacritics from Latin letters ("Agüero" → "Aguero").
// When folding fails the input is returned unchanged.
func Fold(s string) string {
	out, _, err := transform.String(transform.Chain(foldChain...), s)
	if err != nil {
		return s
	}
	return out
}

// Codes returns the Double Metaphone primary code and the Soundex code for s.
// Either code may be empty when s has no encodable letters or the encoder
// fails on the input.
func Codes(s string) (primary, secondary string) {
	folded := Fold(strings.TrimSpace(s))
	return safeEncode(func() string {
		p, _ := matchr.DoubleMetaphone(folded)
		return p
	}), safeEncode(func() string {
		return matchr.Soundex(folded)
	})
}

// safeEncode runs enc and converts a panic into an empty code.
func safeEncode(enc func() string) (code string) {
	defer func() {
		if r := recover(); r != nil {
			code = ""
		}
	}()
	return enc()
}

// Score compares a and b phonetically. See the package documentation for
// the scale. Empty codes never match.
func Score(a, b string) float64 {
	pa, sa := Codes(a)
	pb, sb := Codes(b)

	if pa != "" && pb != "" {
		if pa == pb {
			return ExactScore
		}
		if strings.HasPrefix(pa, pb) || strings.HasPrefix(pb, pa) {
			return PartialScore
		}
	}
	if sa != "" && sb != "" && sa == sb {
		return PartialScore
	}
	return 0
}

// IsMatch reports whether score counts as a phonetic match.
func IsMatch(score float64) bool {
	return score >= MatchThreshold
}
