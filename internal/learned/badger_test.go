package learned_test

import (
	"context"
	"testing"

	"github.com/MrWong99/touchline/internal/learned"
	"github.com/MrWong99/touchline/internal/transcript"
)

func TestBadgerBackend_RoundTrip(t *testing.T) {
	t.Parallel()

	b, err := learned.OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	ctx := context.Background()
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("fresh database has %d entries", len(got))
	}

	first := map[string]learned.Entry{
		"zuma":  {Canonical: "Zouma", Confidence: 0.5, SeenCount: 1, ScoreAverage: 80},
		"sacco": {Canonical: "Sakho", Confidence: 0.75, SeenCount: 3, ScoreAverage: 71.5},
	}
	if err := b.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A second save fully replaces the first.
	second := map[string]learned.Entry{
		"zuma": {Canonical: "Zouma", Confidence: 2.0 / 3.0, SeenCount: 2, ScoreAverage: 85},
	}
	if err := b.Save(ctx, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err = b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 1 || got["zuma"] != second["zuma"] {
		t.Errorf("Load = %+v, want %+v", got, second)
	}
}

func TestBadgerBackend_WithStore(t *testing.T) {
	t.Parallel()

	b, err := learned.OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	ctx := context.Background()
	s, err := learned.Open(ctx, b)
	if err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := s.Update(ctx, []transcript.Correction{{Original: "Kohlerhoff", Corrected: "Kolarov", Score: 66}}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if got, ok := s.Lookup("kohlerhoff"); !ok || got != "Kolarov" {
		t.Errorf("Lookup = (%q, %v), want Kolarov", got, ok)
	}
}
