// Package detect finds name-like spans in commentary segments.
//
// A [Detector] reports [types.Span] values with rune offsets into the segment
// text. The [Heuristic] detector needs no external service; [Chain] layers a
// primary detector (for example an LLM-backed one) over a fallback.
package detect

import (
	"context"
	"fmt"

	"github.com/MrWong99/touchline/pkg/types"
)

// Entity labels a detector may attach to a span.
const (
	LabelPerson = "PERSON"
	LabelOrg    = "ORG"
	LabelGPE    = "GPE"
	LabelFac    = "FAC"
)

// Detector finds candidate entity spans in a segment.
//
// Implementations must be safe for concurrent use. A detector that cannot
// decide returns no spans and a nil error; errors are reserved for failures
// the caller may want to surface (cancelled context, unreachable service).
type Detector interface {
	Detect(ctx context.Context, seg types.Segment) ([]types.Span, error)
}

// Func adapts an ordinary function to the [Detector] interface.
type Func func(ctx context.Context, seg types.Segment) ([]types.Span, error)

// Detect implements [Detector].
func (f Func) Detect(ctx context.Context, seg types.Segment) ([]types.Span, error) {
	return f(ctx, seg)
}

// Chain combines a primary detector with a secondary one. Spans of the
// primary always survive; secondary spans are added only where they do not
// overlap a primary span.
//
// When the primary fails the error is returned unless Tolerant is set, in
// which case the secondary spans are used alone.
type Chain struct {
	Primary   Detector
	Secondary Detector
	Tolerant  bool
}

var _ Detector = (*Chain)(nil)

// Detect implements [Detector].
func (c *Chain) Detect(ctx context.Context, seg types.Segment) ([]types.Span, error) {
	var primary []types.Span
	if c.Primary != nil {
		spans, err := c.Primary.Detect(ctx, seg)
		if err != nil && !c.Tolerant {
			return nil, fmt.Errorf("detect: primary: %w", err)
		}
		primary = spans
	}
	if c.Secondary == nil {
		return primary, nil
	}

	secondary, err := c.Secondary.Detect(ctx, seg)
	if err != nil {
		return nil, fmt.Errorf("detect: secondary: %w", err)
	}
	return Merge(primary, secondary), nil
}

// Merge returns primary followed by every span of secondary that overlaps
// none of the primary spans.
func Merge(primary, secondary []types.Span) []types.Span {
	out := make([]types.Span, 0, len(primary)+len(secondary))
	out = append(out, primary...)
	for _, s := range secondary {
		overlaps := false
		for _, p := range primary {
			if s.Overlaps(p) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			out = append(out, s)
		}
	}
	return out
}
