package resilience

import (
	"context"

	"github.com/MrWong99/touchline/internal/detect"
	"github.com/MrWong99/touchline/pkg/types"
)

// Detector is a [detect.Detector] that fails over across several detectors,
// each guarded by its own [Breaker].
type Detector struct {
	group *Group[detect.Detector]
}

var _ detect.Detector = (*Detector)(nil)

// NewDetector guards primary with a breaker configured by cfg.
func NewDetector(name string, primary detect.Detector, cfg BreakerConfig) *Detector {
	return &Detector{group: NewGroup(name, primary, cfg)}
}

// AddFallback registers a detector tried after the ones already added.
func (d *Detector) AddFallback(name string, fallback detect.Detector) {
	d.group.Add(name, fallback)
}

// Names returns the guarded detector names in the order they are tried.
func (d *Detector) Names() []string { return d.group.Names() }

// Breaker returns the breaker guarding the named detector, or nil.
func (d *Detector) Breaker(name string) *Breaker { return d.group.Breaker(name) }

// Detect implements [detect.Detector] by returning the spans of the first
// detector that succeeds.
func (d *Detector) Detect(ctx context.Context, seg types.Segment) ([]types.Span, error) {
	return Do(ctx, d.group, func(ctx context.Context, det detect.Detector) ([]types.Span, error) {
		return det.Detect(ctx, seg)
	})
}
