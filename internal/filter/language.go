package filter

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// DefaultLanguages are the candidate languages of [NewLinguaIdentifier] when
// none are given: English, Welsh and the European languages most often
// heard in commentary hallucinations.
var DefaultLanguages = []string{"en", "cy", "es", "fr", "de", "it", "pt", "nl"}

// linguaLanguages maps the supported ISO 639-1 codes to lingua languages.
var linguaLanguages = map[string]lingua.Language{
	"en": lingua.English,
	"cy": lingua.Welsh,
	"ga": lingua.Irish,
	"es": lingua.Spanish,
	"fr": lingua.French,
	"de": lingua.German,
	"it": lingua.Italian,
	"pt": lingua.Portuguese,
	"nl": lingua.Dutch,
	"sv": lingua.Swedish,
	"da": lingua.Danish,
	"pl": lingua.Polish,
}

// LinguaIdentifier is a [LanguageIdentifier] backed by a lingua detector
// restricted to a fixed set of candidate languages. It is safe for
// concurrent use.
type LinguaIdentifier struct {
	detector lingua.LanguageDetector
	codes    map[lingua.Language]string
}

var _ LanguageIdentifier = (*LinguaIdentifier)(nil)

// NewLinguaIdentifier builds an identifier choosing among the given ISO
// 639-1 codes. No codes means [DefaultLanguages]. At least two distinct
// supported codes are required.
func NewLinguaIdentifier(codes ...string) (*LinguaIdentifier, error) {
	if len(codes) == 0 {
		codes = DefaultLanguages
	}
	byLang := make(map[lingua.Language]string, len(codes))
	for _, code := range codes {
		code = strings.ToLower(strings.TrimSpace(code))
		lang, ok := linguaLanguages[code]
		if !ok {
			return nil, fmt.Errorf("filter: unsupported language %q; supported: %s",
				code, strings.Join(SupportedLanguages(), ", "))
		}
		byLang[lang] = code
	}
	if len(byLang) < 2 {
		return nil, fmt.Errorf("filter: language identification needs at least two languages, got %d", len(byLang))
	}

	langs := slices.Collect(maps.Keys(byLang))
	return &LinguaIdentifier{
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(langs...).Build(),
		codes:    byLang,
	}, nil
}

// SupportedLanguages returns the accepted language codes in sorted order.
func SupportedLanguages() []string {
	return slices.Sorted(maps.Keys(linguaLanguages))
}

// Identify implements [LanguageIdentifier]. The confidence is lingua's
// relative confidence for the most likely language. It never returns an
// error.
func (l *LinguaIdentifier) Identify(text string) (string, float64, error) {
	values := l.detector.ComputeLanguageConfidenceValues(text)
	if len(values) == 0 || values[0].Value() == 0 {
		return "", 0, nil
	}
	return l.codes[values[0].Language()], values[0].Value(), nil
}
