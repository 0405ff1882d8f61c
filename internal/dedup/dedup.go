// Package dedup collapses runs of near-identical consecutive transcript
// segments. Speech recognisers repeat the same phrase across adjacent
// windows when the commentator pauses; the merger keeps the first segment of
// such a run and stretches its end time over the repeats.
package dedup

import (
	"strings"

	"github.com/MrWong99/touchline/internal/transcript/phonetic"
	"github.com/MrWong99/touchline/pkg/types"
)

// DefaultThreshold is the similarity (0–100) at or above which two
// consecutive segments are treated as duplicates.
const DefaultThreshold = 95.0

// Merge folds consecutive duplicates in segs, which must already be sorted by
// (half, start). Each segment is compared with the current survivor, not with
// its immediate predecessor, so a chain of pairwise-similar segments collapses
// into its first member. Segments of different halves never merge.
//
// segs is not modified. The survivor keeps its own text; its End becomes the
// maximum End of the run.
func Merge(segs []types.Segment, threshold float64) (out []types.Segment, removed []types.Duplicate) {
	if len(segs) == 0 {
		return []types.Segment{}, nil
	}

	out = make([]types.Segment, 0, len(segs))
	cur := segs[0]
	for _, next := range segs[1:] {
		if next.Half != cur.Half {
			out = append(out, cur)
			cur = next
			continue
		}

		sim := phonetic.Ratio(strings.TrimSpace(cur.Text), strings.TrimSpace(next.Text))
		if sim < threshold {
			out = append(out, cur)
			cur = next
			continue
		}

		cur.End = max(cur.End, next.End)
		removed = append(removed, types.Duplicate{
			SegmentID:   next.ID,
			Half:        next.Half,
			Start:       next.Start,
			Text:        types.Truncate(next.Text, types.LogTextLimit),
			DuplicateOf: cur.ID,
			Similarity:  sim,
		})
	}
	return append(out, cur), removed
}
