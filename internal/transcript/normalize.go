package transcript

import "strings"

// edgePunct is the punctuation stripped from both ends of a span.
const edgePunct = ".,!?;:"

// span is a detected name split into the part that is matched and the
// decorations restored around the replacement.
type span struct {
	leading    string
	core       string
	trailing   string
	possessive string
}

// splitSpan strips one trailing possessive ('s or ’s), then trailing and
// leading runs of edge punctuation.
func splitSpan(text string) span {
	var s span
	t := strings.TrimSpace(text)

	for _, p := range []string{"'s", "’s"} {
		if strings.HasSuffix(t, p) {
			s.possessive = p
			t = strings.TrimSuffix(t, p)
			break
		}
	}

	core := strings.TrimRight(t, edgePunct)
	s.trailing = t[len(core):]
	t = core

	core = strings.TrimLeft(t, edgePunct)
	s.leading = t[:len(t)-len(core)]
	s.core = core
	return s
}

// wrap reattaches the stripped decorations around replacement.
func (s span) wrap(replacement string) string {
	return s.leading + replacement + s.trailing + s.possessive
}
