package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// LabelsFile is the per-match metadata file name.
const LabelsFile = "Labels-caption.json"

// Labels is the subset of a match's caption metadata used to build the name
// directory. Fields missing from the file stay at their zero value.
type Labels struct {
	Lineup struct {
		Home Lineup `json:"home"`
		Away Lineup `json:"away"`
	} `json:"lineup"`

	// RefereeMatched holds referee names resolved against a reference list.
	// When empty, Referee is used instead.
	RefereeMatched StringList `json:"referee_matched"`
	Referee        StringList `json:"referee"`

	GameHomeTeam string `json:"gameHomeTeam"`
	GameAwayTeam string `json:"gameAwayTeam"`

	Home Team `json:"home"`
	Away Team `json:"away"`

	Venue StringList `json:"venue"`
}

// Lineup is one side's squad.
type Lineup struct {
	Players []Person `json:"players"`
	Coach   []Person `json:"coach"`
}

// Person is a player or coach.
type Person struct {
	LongName  string `json:"long_name"`
	ShortName string `json:"short_name"`
	Name      string `json:"name"`
}

// Team carries a club's primary name and the alternate labels commentators
// use for it.
type Team struct {
	Name  string   `json:"name"`
	Names []string `json:"names"`
}

// Referees returns RefereeMatched, falling back to Referee.
func (l *Labels) Referees() []string {
	if len(l.RefereeMatched) > 0 {
		return l.RefereeMatched
	}
	return l.Referee
}

// StringList decodes either a JSON string or an array of strings. A bare
// string becomes a one-element list; null becomes nil.
type StringList []string

// UnmarshalJSON implements [json.Unmarshaler].
func (s *StringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = nil
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*s = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// LoadLabels reads the labels file at path. A missing file returns
// (nil, nil).
func LoadLabels(path string) (*Labels, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("event: read labels %q: %w", path, err)
	}
	var l Labels
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("event: parse labels %q: %w", path, err)
	}
	return &l, nil
}
