package transcript

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/touchline/internal/gazetteer"
	"github.com/MrWong99/touchline/internal/transcript/phonetic"
	"github.com/MrWong99/touchline/pkg/types"
)

const (
	defaultCandidates = 5
	minNameRunes      = 3
	contextScore      = 100.0
)

// Weights are the coefficients of the combined score. They should sum to 1.
type Weights struct {
	Fuzzy    float64
	Phonetic float64
	Context  float64
}

var (
	// DefaultWeights favour sound similarity, which catches most
	// recogniser misspellings.
	DefaultWeights = Weights{Fuzzy: 0.45, Phonetic: 0.40, Context: 0.15}

	// BalancedWeights lean more on spelling and context.
	BalancedWeights = Weights{Fuzzy: 0.50, Phonetic: 0.30, Context: 0.20}
)

// Thresholds are the minimum combined scores by normalised name length:
// Short applies up to 4 runes, Medium to 5–8 runes, Long above 8.
type Thresholds struct {
	Short  float64
	Medium float64
	Long   float64
}

// DefaultThresholds are calibrated on English-league commentary.
var DefaultThresholds = Thresholds{Short: 48, Medium: 55, Long: 55}

// For returns the threshold for a name of n runes.
func (t Thresholds) For(n int) float64 {
	switch {
	case n <= 4:
		return t.Short
	case n <= 8:
		return t.Medium
	default:
		return t.Long
	}
}

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithWeights sets the signal weights. Default: [DefaultWeights].
func WithWeights(w Weights) Option {
	return func(c *Corrector) {
		c.weights = w
	}
}

// WithThresholds sets the length-dependent acceptance thresholds.
// Default: [DefaultThresholds].
func WithThresholds(t Thresholds) Option {
	return func(c *Corrector) {
		c.thresholds = t
	}
}

// WithCandidates sets how many directory keys survive the string-similarity
// pre-filter. Values below 1 are ignored. Default: 5.
func WithCandidates(n int) Option {
	return func(c *Corrector) {
		if n > 0 {
			c.candidates = n
		}
	}
}

// WithExclusions replaces the exclusion list. Matching is case-insensitive.
// Default: [DefaultExclusions].
func WithExclusions(words []string) Option {
	return func(c *Corrector) {
		c.exclude = toSet(words)
	}
}

// WithExtraExclusions adds words to the exclusion list.
func WithExtraExclusions(words []string) Option {
	return func(c *Corrector) {
		for w := range toSet(words) {
			c.exclude[w] = struct{}{}
		}
	}
}

// WithLearned enables the learned fast path in [Corrector.Rewrite]: spans
// with a confirmed learned correction are rewritten without scoring.
func WithLearned(l Learned) Option {
	return func(c *Corrector) {
		c.learned = l
	}
}

// Learned looks up confirmed corrections by name. *learned.Store satisfies
// it.
type Learned interface {
	Lookup(name string) (canonical string, ok bool)
}

// Corrector decides whether a detected name is a misspelling of a directory
// entry and, if so, what to replace it with.
type Corrector struct {
	weights    Weights
	thresholds Thresholds
	candidates int
	exclude    map[string]struct{}
	learned    Learned
}

// New returns a [Corrector] configured with the supplied options.
func New(opts ...Option) *Corrector {
	c := &Corrector{
		weights:    DefaultWeights,
		thresholds: DefaultThresholds,
		candidates: defaultCandidates,
		exclude:    toSet(DefaultExclusions),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Excluded reports whether name (already stripped of punctuation) is on the
// exclusion list.
func (c *Corrector) Excluded(name string) bool {
	_, ok := c.exclude[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// candidate is one scored directory key.
type candidate struct {
	key      string
	entry    gazetteer.Entry
	ratio    float64
	phonetic float64
	context  bool
	combined float64
}

// Correct scores entity against dir and returns the correction to apply, or
// false when the span should be left alone. contextNames holds canonical
// names mentioned near the span; it may be nil.
//
// No correction is produced for excluded words, names of two runes or
// fewer, names already present in the directory (exactly or
// case-insensitively) and names whose best candidate stays below the
// length-dependent threshold.
//
// Candidates are ranked by string similarity, then by key. The first
// candidate with the strictly highest combined score wins.
func (c *Corrector) Correct(entity string, dir *gazetteer.Directory, contextNames map[string]struct{}) (Correction, bool) {
	sp := splitSpan(entity)
	name := sp.core
	if name == "" || dir == nil || dir.Len() == 0 {
		return Correction{}, false
	}
	if c.Excluded(name) {
		return Correction{}, false
	}
	length := utf8.RuneCountInString(name)
	if length < minNameRunes {
		return Correction{}, false
	}
	if _, ok := dir.Lookup(name); ok {
		return Correction{}, false
	}
	if _, ok := dir.LookupFold(name); ok {
		return Correction{}, false
	}

	var best *candidate
	for _, cand := range c.rank(name, dir) {
		cand.phonetic = phonetic.Score(name, cand.key)
		_, cand.context = contextNames[cand.entry.Canonical]
		cand.combined = c.weights.Fuzzy*cand.ratio + c.weights.Phonetic*cand.phonetic
		if cand.context {
			cand.combined += c.weights.Context * contextScore
		}
		if best == nil || cand.combined > best.combined {
			best = &cand
		}
	}
	if best == nil || best.combined < c.thresholds.For(length) {
		return Correction{}, false
	}

	phoneticMatch := phonetic.IsMatch(best.phonetic)
	return Correction{
		Original:      name,
		Corrected:     replacementFor(name, *best),
		Score:         best.combined,
		FuzzyScore:    best.ratio,
		PhoneticMatch: phoneticMatch,
		ContextMatch:  best.context,
		Method:        DescribeMethod(best.ratio, phoneticMatch, best.context),
	}, true
}

// rank returns the top candidates by token-sort ratio, ties broken by key.
func (c *Corrector) rank(name string, dir *gazetteer.Directory) []candidate {
	keys := dir.Keys()
	all := make([]candidate, 0, len(keys))
	for _, k := range keys {
		e, _ := dir.Lookup(k)
		all = append(all, candidate{key: k, entry: e, ratio: phonetic.TokenSortRatio(name, k)})
	}
	slices.SortFunc(all, func(a, b candidate) int {
		if r := cmp.Compare(b.ratio, a.ratio); r != 0 {
			return r
		}
		return strings.Compare(a.key, b.key)
	})
	return all[:min(c.candidates, len(all))]
}

// replacementFor matches the form of the input: a multi-token name is
// replaced by the full canonical, a single-token name by the candidate key
// when that is a single token and by the canonical's last token otherwise.
func replacementFor(name string, best candidate) string {
	if len(strings.Fields(name)) > 1 {
		return best.entry.Canonical
	}
	if len(strings.Fields(best.key)) == 1 {
		return best.key
	}
	return lastToken(best.entry.Canonical)
}

// lastToken returns the final whitespace-separated token of s, or s itself
// when it has none.
func lastToken(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return s
	}
	return f[len(f)-1]
}

// Recall returns the learned correction for entity, if the learned cache
// has confirmed one. A single-token name is replaced by the last token of
// the learned canonical. Excluded and very short names are never recalled.
func (c *Corrector) Recall(entity string) (Correction, bool) {
	if c.learned == nil {
		return Correction{}, false
	}
	name := splitSpan(entity).core
	if name == "" || c.Excluded(name) || utf8.RuneCountInString(name) < minNameRunes {
		return Correction{}, false
	}
	canonical, ok := c.learned.Lookup(name)
	if !ok {
		return Correction{}, false
	}
	replacement := canonical
	if len(strings.Fields(name)) == 1 {
		replacement = lastToken(canonical)
	}
	if replacement == name {
		return Correction{}, false
	}
	return Correction{
		Original:      name,
		Corrected:     replacement,
		Score:         100,
		FuzzyScore:    100,
		PhoneticMatch: true,
		Method:        MethodLearned,
	}, true
}

// Rewrite applies every accepted correction for spans to text and returns
// the new text with the corrections in application order. Each span is first
// tried against the learned cache (see [Corrector.Recall]) and then scored
// with [Corrector.Correct]. Spans are applied rightmost first so earlier
// offsets stay valid. Spans whose rune offsets
// fall outside text or overlap an already rewritten span are skipped.
func (c *Corrector) Rewrite(text string, spans []types.Span, dir *gazetteer.Directory, segmentID string, contextNames map[string]struct{}) (string, []Correction) {
	if len(spans) == 0 {
		return text, nil
	}

	ordered := slices.Clone(spans)
	slices.SortStableFunc(ordered, func(a, b types.Span) int {
		return cmp.Compare(b.Start, a.Start)
	})

	runes := []rune(text)
	limit := len(runes)
	var corrections []Correction
	for _, s := range ordered {
		if s.Start < 0 || s.End > limit || s.Start >= s.End {
			continue
		}
		corr, ok := c.Recall(s.Text)
		if !ok {
			corr, ok = c.Correct(s.Text, dir, contextNames)
		}
		if !ok {
			continue
		}
		corr.SegmentID = segmentID
		runes = replaceSpan(runes, s, splitSpan(s.Text).wrap(corr.Corrected))
		limit = s.Start
		corrections = append(corrections, corr)
	}
	return string(runes), corrections
}

// replaceSpan returns runes with the span's range replaced by replacement.
func replaceSpan(runes []rune, s types.Span, replacement string) []rune {
	out := make([]rune, 0, len(runes)+len(replacement))
	out = append(out, runes[:s.Start]...)
	out = append(out, []rune(replacement)...)
	return append(out, runes[s.End:]...)
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}
