// Package learned implements the self-learning correction cache: a durable
// mapping from lower-cased misspellings to the canonical names they were
// corrected to, with a confidence that grows every time the same correction
// is made again.
//
// A [Store] holds an in-memory snapshot over a pluggable [Backend]. The
// snapshot is read by [Store.Lookup] and refreshed by [Store.Reload];
// [Store.Update] performs a full load-modify-save cycle against the backend.
//
// The store assumes a single writer. Concurrent readers of one Store are
// safe, but two processes (or two Stores over the same backend) calling
// Update concurrently can lose sightings.
package learned

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/MrWong99/touchline/internal/transcript"
)

const (
	// InitialConfidence is the confidence of an entry after its first sighting.
	InitialConfidence = 0.5

	// MaxConfidence caps confidence strictly below 1.
	MaxConfidence = 0.99

	// MinSightings is the sighting count required before [Store.Lookup]
	// returns an entry.
	MinSightings = 2

	// MinConfidence is the confidence required before [Store.Lookup] returns
	// an entry.
	MinConfidence = 0.6
)

// Entry is one learned correction. The JSON field names match the on-disk
// format of the cache file.
type Entry struct {
	// Canonical is the corrected form the misspelling maps to.
	Canonical string `json:"correct"`

	// Confidence is in [0.5, 0.99] and never decreases.
	Confidence float64 `json:"confidence"`

	// SeenCount is the number of sightings, at least 1.
	SeenCount int `json:"seen_count"`

	// ScoreAverage is the running mean of the combined scores of all sightings.
	ScoreAverage float64 `json:"fuzzy_score_avg"`
}

// Confirmed reports whether e has been seen often enough to bypass scoring.
func (e Entry) Confirmed() bool {
	return e.SeenCount >= MinSightings && e.Confidence >= MinConfidence
}

// Backend persists the full set of entries. Save always overwrites
// everything previously stored; there are no partial writes.
//
// Load returns an empty, non-nil map when nothing has been stored yet.
// Unreadable or corrupt state is returned as an error.
type Backend interface {
	Load(ctx context.Context) (map[string]Entry, error)
	Save(ctx context.Context, entries map[string]Entry) error
}

// Store is the learned correction cache. Create one with [NewStore] or
// [Open].
type Store struct {
	backend Backend

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewStore returns a Store over backend with an empty snapshot. Call
// [Store.Reload] before the first Lookup.
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		entries: map[string]Entry{},
	}
}

// Open returns a Store over backend with its snapshot already loaded.
func Open(ctx context.Context, backend Backend) (*Store, error) {
	s := NewStore(backend)
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the snapshot with the backend's current contents.
func (s *Store) Reload(ctx context.Context) error {
	entries, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("learned: reload: %w", err)
	}
	if entries == nil {
		entries = map[string]Entry{}
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// Update records one sighting per correction and persists the whole store.
// The backend is re-read first so sightings saved since the last Reload are
// not overwritten. On success the snapshot reflects the saved state.
func (s *Store) Update(ctx context.Context, corrections []transcript.Correction) error {
	entries, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("learned: update: %w", err)
	}
	if entries == nil {
		entries = map[string]Entry{}
	}

	for _, c := range corrections {
		key := Key(c.Original)
		if key == "" {
			continue
		}
		entries[key] = observe(entries[key], c)
	}

	if err := s.backend.Save(ctx, entries); err != nil {
		return fmt.Errorf("learned: update: %w", err)
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// observe folds one sighting into e. A zero e is a new entry.
func observe(e Entry, c transcript.Correction) Entry {
	if e.SeenCount == 0 {
		return Entry{
			Canonical:    c.Corrected,
			Confidence:   InitialConfidence,
			SeenCount:    1,
			ScoreAverage: c.Score,
		}
	}
	e.SeenCount++
	n := float64(e.SeenCount)
	e.ScoreAverage = (e.ScoreAverage*(n-1) + c.Score) / n
	e.Confidence = Confidence(e.SeenCount)
	return e
}

// Confidence returns the confidence after n sightings: 1 − 1/(n+1), capped
// at [MaxConfidence].
func Confidence(n int) float64 {
	if n < 1 {
		return 0
	}
	return min(MaxConfidence, 1-1/float64(n+1))
}

// Lookup returns the canonical correction for text if the entry has been
// confirmed (see [Entry.Confirmed]). It never mutates the store.
func (s *Store) Lookup(text string) (string, bool) {
	e, ok := s.Entry(text)
	if !ok || !e.Confirmed() {
		return "", false
	}
	return e.Canonical, true
}

// Entry returns the raw entry for text regardless of confidence.
func (s *Store) Entry(text string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[Key(text)]
	return e, ok
}

// Entries returns a copy of the snapshot.
func (s *Store) Entries() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.entries)
}

// Canonicals returns key → canonical for every entry in the snapshot,
// confirmed or not.
func (s *Store) Canonicals() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.entries))
	for k, e := range s.entries {
		out[k] = e.Canonical
	}
	return out
}

// Len returns the number of entries in the snapshot.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Key returns the cache key for text.
func Key(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
