package event_test

import (
	"encoding/json"
	"path/filepath"
	"slices"
	"testing"

	"github.com/MrWong99/touchline/internal/event"
)

func TestStringList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want event.StringList
	}{
		{`"Anfield"`, event.StringList{"Anfield"}},
		{`["Mike Dean", "Anthony Taylor"]`, event.StringList{"Mike Dean", "Anthony Taylor"}},
		{`null`, nil},
	}
	for _, tt := range tests {
		var got event.StringList
		if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLabels_Referees(t *testing.T) {
	t.Parallel()

	l := event.Labels{Referee: event.StringList{"M. Dean"}}
	if got := l.Referees(); !slices.Equal(got, []string{"M. Dean"}) {
		t.Errorf("fallback Referees = %v", got)
	}
	l.RefereeMatched = event.StringList{"Mike Dean"}
	if got := l.Referees(); !slices.Equal(got, []string{"Mike Dean"}) {
		t.Errorf("matched Referees = %v", got)
	}
}

func TestLoadLabels(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := event.LoadLabels(filepath.Join(dir, event.LabelsFile))
	if err != nil || l != nil {
		t.Fatalf("missing labels = (%v, %v), want (nil, nil)", l, err)
	}

	path := filepath.Join(dir, event.LabelsFile)
	writeFile(t, path, labelsJSON)
	l, err = event.LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	if got := l.Lineup.Home.Players[0].LongName; got != "Kurt Zouma" {
		t.Errorf("player long name = %q", got)
	}
	if got := l.Lineup.Home.Coach[0].LongName; got != "José Mourinho" {
		t.Errorf("coach long name = %q", got)
	}
	if !slices.Equal(l.Venue, event.StringList{"Stamford Bridge"}) {
		t.Errorf("venue = %v", l.Venue)
	}
	if !slices.Equal(l.Home.Names, []string{"Chelsea FC", "The Blues"}) {
		t.Errorf("home names = %v", l.Home.Names)
	}
}
