// Package engine drives the cleaning of one event.
//
// [Engine.Run] takes a loaded [event.Match] through every stage in order:
//
//  1. reload the learned correction cache and build the name directory,
//  2. drop hallucinated segments ([filter.Filter]),
//  3. merge consecutive duplicates ([dedup.Merge]),
//  4. detect name-like spans ([detect.Detector]),
//  5. rewrite each segment, recalling learned corrections first and scoring
//     the rest ([transcript.Corrector]),
//  6. feed every applied correction back into the learned cache.
//
// Events are processed one at a time; the engine is the single writer of the
// learned cache. Per-span and per-segment failures never abort an event.
// Failing to read or write the learned cache does.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/touchline/internal/dedup"
	"github.com/MrWong99/touchline/internal/detect"
	"github.com/MrWong99/touchline/internal/event"
	"github.com/MrWong99/touchline/internal/filter"
	"github.com/MrWong99/touchline/internal/gazetteer"
	"github.com/MrWong99/touchline/internal/learned"
	"github.com/MrWong99/touchline/internal/observe"
	"github.com/MrWong99/touchline/internal/transcript"
	"github.com/MrWong99/touchline/pkg/types"
)

// Stage names used for spans and the stage duration metric.
const (
	StageDirectory = "directory"
	StageFilter    = "filter"
	StageDedup     = "dedup"
	StageDetect    = "detect"
	StageCorrect   = "correct"
	StageLearn     = "learn"
)

// Result summarises one cleaned event.
type Result struct {
	Match *event.Match

	// Segments are the cleaned segments in (half, start) order.
	Segments []types.Segment

	// OriginalCount is the number of segments before cleaning, per half.
	OriginalCount map[int]int

	Rejections  []types.Rejection
	Duplicates  []types.Duplicate
	Corrections []transcript.Correction

	SpansDetected  int
	DetectorErrors int
	DirectorySize  int

	Duration time.Duration
}

// Original returns the total number of segments before cleaning.
func (r *Result) Original() int {
	n := 0
	for _, c := range r.OriginalCount {
		n += c
	}
	return n
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithFilter sets the hallucination filter. Default: [filter.New] with
// default rules.
func WithFilter(f *filter.Filter) Option {
	return func(e *Engine) {
		e.filter = f
	}
}

// WithDedupThreshold sets the duplicate similarity threshold (0–100).
// Default: [dedup.DefaultThreshold].
func WithDedupThreshold(t float64) Option {
	return func(e *Engine) {
		e.dedupThreshold = t
	}
}

// WithDetector sets the span detector. Default: [detect.Heuristic].
func WithDetector(d detect.Detector) Option {
	return func(e *Engine) {
		e.detector = d
	}
}

// WithCorrector sets the name corrector. Default: [transcript.New].
func WithCorrector(c *transcript.Corrector) Option {
	return func(e *Engine) {
		e.corrector = c
	}
}

// WithLearned attaches the learned correction cache. includeInDirectory
// additionally merges its entries into each event's name directory. Without
// a cache nothing is recalled or learned.
func WithLearned(s *learned.Store, includeInDirectory bool) Option {
	return func(e *Engine) {
		e.store = s
		e.includeLearned = includeInDirectory
	}
}

// WithContextWindow sets how many neighbouring segments on each side
// contribute context names. Default: [transcript.DefaultContextWindow].
func WithContextWindow(n int) Option {
	return func(e *Engine) {
		e.contextWindow = n
	}
}

// WithDryRun disables saving the learned cache.
func WithDryRun(dry bool) Option {
	return func(e *Engine) {
		e.dryRun = dry
	}
}

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Engine cleans events. It must not be used for two events concurrently.
type Engine struct {
	filter         *filter.Filter
	dedupThreshold float64
	detector       detect.Detector
	corrector      *transcript.Corrector
	store          *learned.Store
	includeLearned bool
	contextWindow  int
	dryRun         bool
	metrics        *observe.Metrics
}

// New returns an [Engine] configured with the supplied options.
func New(opts ...Option) *Engine {
	e := &Engine{
		dedupThreshold: dedup.DefaultThreshold,
		contextWindow:  transcript.DefaultContextWindow,
	}
	for _, o := range opts {
		o(e)
	}
	if e.filter == nil {
		e.filter = filter.New()
	}
	if e.detector == nil {
		e.detector = detect.Heuristic{}
	}
	if e.corrector == nil {
		var copts []transcript.Option
		if e.store != nil {
			copts = append(copts, transcript.WithLearned(e.store))
		}
		e.corrector = transcript.New(copts...)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e
}

// Run cleans m and returns the result. m is not modified.
func (e *Engine) Run(ctx context.Context, m *event.Match) (_ *Result, err error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "engine.Run", trace.WithAttributes(
		attribute.String("touchline.match", m.RelPath()),
		attribute.Int("touchline.segments", len(m.Segments)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	log := observe.Logger(ctx).With("match", m.RelPath())

	res := &Result{Match: m, OriginalCount: map[int]int{}}
	for _, s := range m.Segments {
		res.OriginalCount[s.Half]++
	}
	e.metrics.SegmentsLoaded.Add(ctx, int64(len(m.Segments)))

	dir, err := e.directory(ctx, m)
	if err != nil {
		return nil, err
	}
	res.DirectorySize = dir.Len()
	log.Info("name directory built",
		"entries", dir.Len(),
		"learned", dir.CountOrigin(gazetteer.OriginLearned),
		"labels", m.Labels != nil,
	)

	kept := e.stage(ctx, StageFilter, func(context.Context) []types.Segment {
		segs, removed := e.filter.Apply(m.Segments)
		res.Rejections = removed
		return segs
	})
	for _, r := range res.Rejections {
		// Drop the measured value, e.g. "low_alpha_ratio (0.42)".
		reason, _, _ := strings.Cut(r.Reason, " ")
		e.metrics.RecordRejection(ctx, reason)
	}

	kept = e.stage(ctx, StageDedup, func(context.Context) []types.Segment {
		segs, removed := dedup.Merge(kept, e.dedupThreshold)
		res.Duplicates = removed
		return segs
	})
	e.metrics.SegmentsMerged.Add(ctx, int64(len(res.Duplicates)))

	spans, err := e.detect(ctx, kept, res)
	if err != nil {
		return nil, err
	}

	res.Segments = e.stage(ctx, StageCorrect, func(ctx context.Context) []types.Segment {
		return e.correct(ctx, kept, spans, dir, res)
	})

	if err := e.learn(ctx, res.Corrections); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	e.metrics.EventDuration.Record(ctx, res.Duration.Seconds())
	span.SetAttributes(
		attribute.Int("touchline.rejected", len(res.Rejections)),
		attribute.Int("touchline.merged", len(res.Duplicates)),
		attribute.Int("touchline.corrections", len(res.Corrections)),
	)
	log.Info("event cleaned",
		"original", res.Original(),
		"rejected", len(res.Rejections),
		"merged", len(res.Duplicates),
		"kept", len(res.Segments),
		"spans", res.SpansDetected,
		"corrections", len(res.Corrections),
		"duration", res.Duration,
	)
	return res, nil
}

// stage runs fn inside a child span and records its duration.
func (e *Engine) stage(ctx context.Context, name string, fn func(context.Context) []types.Segment) []types.Segment {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "engine."+name)
	defer span.End()
	out := fn(ctx)
	e.metrics.RecordStage(ctx, name, start)
	span.SetAttributes(attribute.Int("touchline.segments", len(out)))
	return out
}

// directory reloads the learned cache and builds the event's name directory.
func (e *Engine) directory(ctx context.Context, m *event.Match) (*gazetteer.Directory, error) {
	start := time.Now()
	defer e.metrics.RecordStage(ctx, StageDirectory, start)

	var opts gazetteer.BuildOptions
	if e.store != nil {
		if err := e.store.Reload(ctx); err != nil {
			return nil, fmt.Errorf("engine: %s: %w", m.RelPath(), err)
		}
		if e.includeLearned {
			opts.Learned = e.store
		}
	}
	return gazetteer.Build(m.Labels, opts), nil
}

// detect returns the spans of every segment, index-aligned with segs. A
// detector error skips that segment; a cancelled context aborts.
func (e *Engine) detect(ctx context.Context, segs []types.Segment, res *Result) ([][]types.Span, error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "engine."+StageDetect)
	defer span.End()
	defer e.metrics.RecordStage(ctx, StageDetect, start)

	out := make([][]types.Span, len(segs))
	for i, seg := range segs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ss, err := e.detector.Detect(ctx, seg)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			res.DetectorErrors++
			e.metrics.DetectorErrors.Add(ctx, 1)
			observe.Logger(ctx).Warn("span detection failed", "segment", seg.ID, "half", seg.Half, "err", err)
			continue
		}
		out[i] = ss
		res.SpansDetected += len(ss)
		bySource := map[string]int{}
		for _, s := range ss {
			bySource[s.Source]++
		}
		for src, n := range bySource {
			e.metrics.RecordSpans(ctx, src, n)
		}
	}
	span.SetAttributes(attribute.Int("touchline.spans", res.SpansDetected))
	return out, nil
}

// correct rewrites copies of segs and appends the applied corrections to res.
func (e *Engine) correct(ctx context.Context, segs []types.Segment, spans [][]types.Span, dir *gazetteer.Directory, res *Result) []types.Segment {
	contextNames := transcript.ContextNames(spans, dir, e.contextWindow)
	out := make([]types.Segment, len(segs))
	for i, seg := range segs {
		text, corrs := e.corrector.Rewrite(seg.Text, spans[i], dir, seg.ID, contextNames[i])
		seg.Text = text
		out[i] = seg
		for j := range corrs {
			corrs[j].Half = seg.Half
		}
		for _, c := range corrs {
			method := "scored"
			if c.Method == transcript.MethodLearned {
				method = transcript.MethodLearned
			}
			e.metrics.RecordCorrection(ctx, method)
			observe.Logger(ctx).Debug("correction applied",
				"segment", c.SegmentID,
				"original", c.Original,
				"corrected", c.Corrected,
				"score", c.Score,
				"method", c.Method,
			)
		}
		res.Corrections = append(res.Corrections, corrs...)
	}
	return out
}

// learn folds corrections into the learned cache and persists it.
func (e *Engine) learn(ctx context.Context, corrections []transcript.Correction) error {
	if e.store == nil || e.dryRun || len(corrections) == 0 {
		return nil
	}
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "engine."+StageLearn)
	defer span.End()
	defer e.metrics.RecordStage(ctx, StageLearn, start)

	if err := e.store.Update(ctx, corrections); err != nil {
		span.RecordError(err)
		return fmt.Errorf("engine: update learned cache: %w", err)
	}
	e.metrics.LearnedEntries.Record(ctx, int64(e.store.Len()))
	return nil
}
