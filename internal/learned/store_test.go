package learned_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/touchline/internal/learned"
	"github.com/MrWong99/touchline/internal/transcript"
)

func correction(orig, corrected string, score float64) transcript.Correction {
	return transcript.Correction{Original: orig, Corrected: corrected, Score: score}
}

func newFileStore(t *testing.T) (*learned.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache", "learned.json")
	s, err := learned.Open(context.Background(), learned.NewFileBackend(path))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, path
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	s, _ := newFileStore(t)
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestStore_NewEntry(t *testing.T) {
	t.Parallel()

	s, path := newFileStore(t)
	ctx := context.Background()
	if err := s.Update(ctx, []transcript.Correction{correction("Zuma", "Zouma", 80)}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	e, ok := s.Entry("zuma")
	if !ok {
		t.Fatal("entry not found under lower-cased key")
	}
	want := learned.Entry{Canonical: "Zouma", Confidence: 0.5, SeenCount: 1, ScoreAverage: 80}
	if e != want {
		t.Errorf("entry = %+v, want %+v", e, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("cache file not written: %v", err)
	}
}

func TestStore_MonotonicConfidence(t *testing.T) {
	t.Parallel()

	s, _ := newFileStore(t)
	ctx := context.Background()

	prev := 0.0
	for n := 1; n <= 120; n++ {
		if err := s.Update(ctx, []transcript.Correction{correction("Zuma", "Zouma", 80)}); err != nil {
			t.Fatalf("Update #%d: %v", n, err)
		}
		e, _ := s.Entry("Zuma")
		if e.SeenCount != n {
			t.Fatalf("SeenCount = %d, want %d", e.SeenCount, n)
		}
		if e.Confidence < prev {
			t.Fatalf("confidence decreased at n=%d: %v < %v", n, e.Confidence, prev)
		}
		if e.Confidence >= 1 {
			t.Fatalf("confidence reached %v at n=%d", e.Confidence, n)
		}
		if n < 99 && e.Confidence <= prev {
			t.Fatalf("confidence did not grow at n=%d", n)
		}
		if n == 3 && math.Abs(e.Confidence-0.75) > 1e-9 {
			t.Errorf("confidence after 3 sightings = %v, want 0.75", e.Confidence)
		}
		prev = e.Confidence
	}
}

func TestStore_RunningAverage(t *testing.T) {
	t.Parallel()

	s, _ := newFileStore(t)
	err := s.Update(context.Background(), []transcript.Correction{
		correction("Zuma", "Zouma", 80),
		correction("zuma", "Zouma", 90),
		correction("ZUMA", "Zouma", 100),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	e, _ := s.Entry("zuma")
	if e.SeenCount != 3 || math.Abs(e.ScoreAverage-90) > 1e-9 {
		t.Errorf("entry = %+v, want 3 sightings averaging 90", e)
	}
}

func TestStore_LookupGating(t *testing.T) {
	t.Parallel()

	s, _ := newFileStore(t)
	ctx := context.Background()

	if err := s.Update(ctx, []transcript.Correction{correction("Zuma", "Zouma", 80)}); err != nil {
		t.Fatal(err)
	}
	if got, ok := s.Lookup("Zuma"); ok {
		t.Errorf("Lookup after 1 sighting = %q, want none", got)
	}

	if err := s.Update(ctx, []transcript.Correction{correction("Zuma", "Zouma", 80)}); err != nil {
		t.Fatal(err)
	}
	got, ok := s.Lookup("zuma")
	if !ok || got != "Zouma" {
		t.Errorf("Lookup after 2 sightings = (%q, %v), want Zouma", got, ok)
	}
}

func TestStore_LookupDoesNotMutate(t *testing.T) {
	t.Parallel()

	s, _ := newFileStore(t)
	ctx := context.Background()
	if err := s.Update(ctx, []transcript.Correction{correction("Zuma", "Zouma", 80)}); err != nil {
		t.Fatal(err)
	}
	before := s.Entries()
	for range 5 {
		s.Lookup("Zuma")
		s.Lookup("unknown")
	}
	after := s.Entries()
	if len(before) != len(after) || before["zuma"] != after["zuma"] {
		t.Errorf("snapshot changed: %+v -> %+v", before, after)
	}
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "learned.json")
	ctx := context.Background()

	first, err := learned.Open(ctx, learned.NewFileBackend(path))
	if err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := first.Update(ctx, []transcript.Correction{correction("Sacco", "Sakho", 70)}); err != nil {
			t.Fatal(err)
		}
	}

	second, err := learned.Open(ctx, learned.NewFileBackend(path))
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := second.Lookup("sacco"); !ok || got != "Sakho" {
		t.Errorf("Lookup after reopen = (%q, %v), want Sakho", got, ok)
	}
}

func TestStore_UpdateRereadsBackend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "learned.json")
	ctx := context.Background()

	a, _ := learned.Open(ctx, learned.NewFileBackend(path))
	b, _ := learned.Open(ctx, learned.NewFileBackend(path))

	if err := a.Update(ctx, []transcript.Correction{correction("Zuma", "Zouma", 80)}); err != nil {
		t.Fatal(err)
	}
	if err := b.Update(ctx, []transcript.Correction{correction("Sacco", "Sakho", 70)}); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 2 {
		t.Errorf("Len = %d, want 2 (update must not drop entries saved by another store)", b.Len())
	}
}

func TestStore_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "learned.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := learned.Open(context.Background(), learned.NewFileBackend(path)); err == nil {
		t.Error("expected error for corrupt cache file")
	}
}

func TestStore_Canonicals(t *testing.T) {
	t.Parallel()

	s, _ := newFileStore(t)
	err := s.Update(context.Background(), []transcript.Correction{
		correction("Zuma", "Zouma", 80),
		correction("Kohlerhoff", "Kolarov", 70),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := s.Canonicals()
	if got["zuma"] != "Zouma" || got["kohlerhoff"] != "Kolarov" || len(got) != 2 {
		t.Errorf("Canonicals = %v", got)
	}
}

func TestConfidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want float64
	}{
		{0, 0},
		{1, 0.5},
		{2, 2.0 / 3.0},
		{3, 0.75},
		{99, 0.99},
		{1000, 0.99},
	}
	for _, tt := range tests {
		if got := learned.Confidence(tt.n); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Confidence(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}
