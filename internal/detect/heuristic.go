package detect

import (
	"context"
	"strings"
	"unicode"

	"github.com/MrWong99/touchline/pkg/types"
)

// Span sources reported by [Heuristic].
const (
	SourceShortSegment = "heuristic_short_segment"
	SourceActionVerb   = "heuristic_near_action_verb"
)

const (
	shortSegmentWords = 3
	minNameRunes      = 3
	actionVerbWindow  = 2
)

// tokenTrim is stripped from both ends of a token before it is inspected.
const tokenTrim = ".,!?;:'\""

// commonCapitalized are words that show up capitalized in commentary without
// being names, mostly at sentence start.
var commonCapitalized = setOf(
	"The", "This", "That", "These", "Those", "There", "Here",
	"What", "When", "Where", "Which", "Who", "How", "Why",
	"And", "But", "For", "Not", "Its", "His", "Her",
	"Very", "Just", "Now", "Well", "Good", "Great", "Big",
	"First", "Last", "Next", "New", "Old", "Long", "High",
	"Ball", "Goal", "Game", "Match", "Half", "Side", "Team",
	"Free", "Kick", "Shot", "Pass", "Cross", "Corner", "Throw",
	"Red", "Yellow", "Card", "Foul", "Offside", "Penalty",
	"City", "United", "Palace", "Villa", "Town", "Rovers",
	"They", "Played", "Looking", "Trying", "Coming", "Going",
	"Straight", "Eventually", "Obviously", "Certainly",
	"Nobody", "Someone", "Everyone", "Positive", "Decent",
)

// actionVerbs mark tokens whose capitalized neighbours are likely players.
var actionVerbs = setOf(
	"shoots", "shot", "scores", "scored", "goal", "passes", "passed",
	"crosses", "crossed", "tackles", "tackled", "fouls", "fouled",
	"dribbles", "headers", "headed", "saves", "saved", "clears",
	"cleared", "blocks", "blocked", "intercepts", "intercepted",
	"assists", "assisted", "substituted", "replaced", "booked",
	"kicks", "kicked", "wins", "won", "loses", "lost",
)

func setOf(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Heuristic flags capitalized words that speech recognisers tend to produce
// for misheard names: every capitalized word of a very short segment, and
// capitalized words within two tokens of a soccer action verb. Common
// sentence-start words are never flagged.
//
// The zero value is ready to use.
type Heuristic struct{}

var _ Detector = Heuristic{}

// Detect implements [Detector]. It never returns an error.
func (Heuristic) Detect(_ context.Context, seg types.Segment) ([]types.Span, error) {
	return heuristicSpans(seg.Text), nil
}

// token is a whitespace-delimited word with surrounding punctuation removed.
// start and end are rune offsets of core within the segment text.
type token struct {
	core       string
	start, end int
}

func tokenize(text string) []token {
	var (
		toks  []token
		runes = []rune(text)
		i     = 0
	)
	for i < len(runes) {
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		start := i
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			i++
		}
		if start == i {
			break
		}
		s, e := start, i
		for s < e && strings.ContainsRune(tokenTrim, runes[s]) {
			s++
		}
		for e > s && strings.ContainsRune(tokenTrim, runes[e-1]) {
			e--
		}
		toks = append(toks, token{core: string(runes[s:e]), start: s, end: e})
	}
	return toks
}

// nameLike reports whether w looks like a capitalized proper noun that is not
// a common commentary word.
func nameLike(w string) bool {
	if len([]rune(w)) < minNameRunes {
		return false
	}
	if _, common := commonCapitalized[w]; common {
		return false
	}
	for i, r := range w {
		switch {
		case i == 0:
			if !unicode.IsUpper(r) {
				return false
			}
		case unicode.IsLetter(r), r == '\'', r == '-', r == '’':
		default:
			return false
		}
	}
	return true
}

func heuristicSpans(text string) []types.Span {
	toks := tokenize(text)
	if len(toks) == 0 {
		return nil
	}

	var spans []types.Span
	seen := make(map[int]bool)
	add := func(t token, source string) {
		if seen[t.start] {
			return
		}
		seen[t.start] = true
		spans = append(spans, types.Span{
			Text:   t.core,
			Label:  LabelPerson,
			Start:  t.start,
			End:    t.end,
			Source: source,
		})
	}

	if len(toks) <= shortSegmentWords {
		for _, t := range toks {
			if nameLike(t.core) {
				add(t, SourceShortSegment)
			}
		}
	}

	for i, t := range toks {
		if !nameLike(t.core) {
			continue
		}
		lo, hi := max(0, i-actionVerbWindow), min(len(toks)-1, i+actionVerbWindow)
		for j := lo; j <= hi; j++ {
			if _, ok := actionVerbs[strings.ToLower(toks[j].core)]; ok {
				add(t, SourceActionVerb)
				break
			}
		}
	}
	return spans
}
