package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry of a [Group] failed or had an
// open breaker.
var ErrAllFailed = errors.New("resilience: all entries failed")

type entry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Group holds a primary value and ordered fallbacks, each behind its own
// [Breaker]. Entries are tried in registration order.
//
// Entries must all be added before the group is shared between goroutines.
type Group[T any] struct {
	entries []entry[T]
	cfg     BreakerConfig
}

// NewGroup creates a [Group] with primary as its first entry. cfg is the
// template for every entry's breaker; its Name is replaced by the entry name.
func NewGroup[T any](name string, primary T, cfg BreakerConfig) *Group[T] {
	g := &Group[T]{cfg: cfg}
	g.Add(name, primary)
	return g
}

// Add appends a fallback entry.
func (g *Group[T]) Add(name string, v T) {
	cfg := g.cfg
	cfg.Name = name
	g.entries = append(g.entries, entry[T]{name: name, value: v, breaker: NewBreaker(cfg)})
}

// Names returns the entry names in the order they are tried.
func (g *Group[T]) Names() []string {
	names := make([]string, len(g.entries))
	for i, e := range g.entries {
		names[i] = e.name
	}
	return names
}

// Breaker returns the breaker of the named entry, or nil.
func (g *Group[T]) Breaker(name string) *Breaker {
	for i := range g.entries {
		if g.entries[i].name == name {
			return g.entries[i].breaker
		}
	}
	return nil
}

// Do calls fn with each entry of g in turn until one succeeds. Entries with
// an open breaker are skipped. When ctx is done the remaining entries are not
// tried. If every entry fails the error wraps [ErrAllFailed] and the last
// entry error.
func Do[T, R any](ctx context.Context, g *Group[T], fn func(context.Context, T) (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	for i := range g.entries {
		e := &g.entries[i]
		var out R
		err := e.breaker.Execute(ctx, func(ctx context.Context) error {
			var err error
			out, err = fn(ctx, e.value)
			return err
		})
		if err == nil {
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping entry with open circuit", "entry", e.name)
			continue
		}
		slog.Warn("entry failed, trying next", "entry", e.name, "err", err)
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
