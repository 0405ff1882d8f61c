package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/touchline/internal/detect"
	"github.com/MrWong99/touchline/internal/learned"
)

// ErrNotRegistered is returned by Create* methods when no factory has been
// registered under the requested name.
var ErrNotRegistered = errors.New("config: not registered")

// BackendFactory opens a learned cache backend.
type BackendFactory func(ctx context.Context, cfg LearnedConfig) (learned.Backend, error)

// DetectorFactory builds a span detector.
type DetectorFactory func(ctx context.Context, cfg DetectorConfig) (detect.Detector, error)

// Registry maps learned backend and detector names to their constructors.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	backends  map[string]BackendFactory
	detectors map[string]DetectorFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		backends:  make(map[string]BackendFactory),
		detectors: make(map[string]DetectorFactory),
	}
}

// RegisterBackend registers a learned cache backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterBackend(name string, factory BackendFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = factory
}

// RegisterDetector registers a detector factory under name.
func (r *Registry) RegisterDetector(name string, factory DetectorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors[name] = factory
}

// CreateBackend opens the backend registered under cfg.Backend.
// Returns [ErrNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateBackend(ctx context.Context, cfg LearnedConfig) (learned.Backend, error) {
	r.mu.RLock()
	factory, ok := r.backends[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: learned/%q", ErrNotRegistered, cfg.Backend)
	}
	return factory(ctx, cfg)
}

// CreateDetector builds the detector registered under cfg.Name.
// Returns [ErrNotRegistered] if no factory has been registered for that name.
func (r *Registry) CreateDetector(ctx context.Context, cfg DetectorConfig) (detect.Detector, error) {
	r.mu.RLock()
	factory, ok := r.detectors[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: detector/%q", ErrNotRegistered, cfg.Name)
	}
	return factory(ctx, cfg)
}

// Backends returns the registered backend names in sorted order.
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.backends)
}

// Detectors returns the registered detector names in sorted order.
func (r *Registry) Detectors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.detectors)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
