package transcript

import (
	"github.com/MrWong99/touchline/internal/gazetteer"
	"github.com/MrWong99/touchline/pkg/types"
)

// DefaultContextWindow is the number of neighbouring segments on each side
// whose names count as context.
const DefaultContextWindow = 1

// ContextNames returns, for every segment, the canonical names already
// spelled correctly nearby: spans in that segment or within window segments
// on either side whose text is a directory key (ignoring case, punctuation
// and possessive). spans[i] holds the spans of segment i.
func ContextNames(spans [][]types.Span, dir *gazetteer.Directory, window int) []map[string]struct{} {
	out := make([]map[string]struct{}, len(spans))
	if dir == nil {
		return out
	}
	if window < 0 {
		window = 0
	}

	known := make([][]string, len(spans))
	for i, ss := range spans {
		for _, s := range ss {
			core := splitSpan(s.Text).core
			if core == "" {
				continue
			}
			if e, ok := dir.LookupFold(core); ok {
				known[i] = append(known[i], e.Canonical)
			}
		}
	}

	for i := range spans {
		lo, hi := max(0, i-window), min(len(spans)-1, i+window)
		for j := lo; j <= hi; j++ {
			for _, name := range known[j] {
				if out[i] == nil {
					out[i] = make(map[string]struct{})
				}
				out[i][name] = struct{}{}
			}
		}
	}
	return out
}
