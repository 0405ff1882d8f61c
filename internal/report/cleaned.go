// Package report writes cleaned transcripts and renders the run summary.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/MrWong99/touchline/internal/engine"
	"github.com/MrWong99/touchline/internal/event"
	"github.com/MrWong99/touchline/pkg/types"
)

// CleanedPath returns the cleaned transcript path for one half of m below
// outputDir, mirroring the dataset layout.
func CleanedPath(outputDir string, m *event.Match, half int) string {
	return filepath.Join(outputDir, m.League, m.Season, m.Name, event.CommentaryDir,
		fmt.Sprintf("%d_asr_cleaned.json", half))
}

type cleanedFile struct {
	Segments orderedSegments `json:"segments"`
	Metadata cleaningMeta    `json:"cleaning_metadata"`
}

type cleaningMeta struct {
	OriginalCount int              `json:"original_segment_count"`
	CleanedCount  int              `json:"cleaned_segment_count"`
	Corrections   []cleanedCorrect `json:"corrections"`
}

type cleanedCorrect struct {
	SegmentID string  `json:"segment_id"`
	Original  string  `json:"original"`
	Corrected string  `json:"corrected"`
	Score     float64 `json:"score"`
	Method    string  `json:"method"`
}

// orderedSegments marshals as a JSON object keyed by segment ID, keeping
// the segments' start order instead of sorting keys.
type orderedSegments []types.Segment

func (o orderedSegments) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	buf.WriteByte('{')
	for i, s := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(s.ID); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := enc.Encode([]any{s.Start, s.End, s.Text}); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// WriteCleaned writes one cleaned transcript per half that kept at least
// one segment and returns the written paths.
func WriteCleaned(outputDir string, res *engine.Result) ([]string, error) {
	byHalf := map[int][]types.Segment{}
	for _, s := range res.Segments {
		byHalf[s.Half] = append(byHalf[s.Half], s)
	}
	halves := make([]int, 0, len(byHalf))
	for h := range byHalf {
		halves = append(halves, h)
	}
	slices.Sort(halves)

	var paths []string
	for _, half := range halves {
		f := cleanedFile{
			Segments: byHalf[half],
			Metadata: cleaningMeta{
				OriginalCount: res.OriginalCount[half],
				CleanedCount:  len(byHalf[half]),
				Corrections:   []cleanedCorrect{},
			},
		}
		for _, c := range res.Corrections {
			if c.Half != half {
				continue
			}
			f.Metadata.Corrections = append(f.Metadata.Corrections, cleanedCorrect{
				SegmentID: c.SegmentID,
				Original:  c.Original,
				Corrected: c.Corrected,
				Score:     math.Round(c.Score*10) / 10,
				Method:    c.Method,
			})
		}

		path := CleanedPath(outputDir, res.Match, half)
		if err := writeJSON(path, f); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("report: create %q: %w", filepath.Dir(path), err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("report: encode %q: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("report: write %q: %w", path, err)
	}
	return nil
}
