// Package event discovers and parses commentary transcripts on disk.
//
// The dataset is laid out as
//
//	root/<league>/<season>/<match>/commentary_data/1_asr.json
//	root/<league>/<season>/<match>/commentary_data/2_asr.json
//	root/<league>/<season>/<match>/Labels-caption.json
//
// Each *_asr.json holds {"segments": {"<id>": [start, end, "text"], …}}.
// Matches with neither half present are skipped; a missing labels file is
// not an error.
package event

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/touchline/pkg/types"
)

// CommentaryDir is the per-match directory holding the transcripts.
const CommentaryDir = "commentary_data"

const defaultConcurrency = 4

// Match is one event: its location, both halves' segments sorted by
// (half, start) and its labels (nil when absent).
type Match struct {
	Dir    string
	Name   string
	League string
	Season string

	Segments []types.Segment
	Labels   *Labels
}

// RelPath returns league/season/name, the match's location relative to the
// dataset root.
func (m *Match) RelPath() string {
	return filepath.Join(m.League, m.Season, m.Name)
}

// HalfPath returns the transcript path for half inside matchDir.
func HalfPath(matchDir string, half int) string {
	return filepath.Join(matchDir, CommentaryDir, fmt.Sprintf("%d_asr.json", half))
}

// Option configures [Discover].
type Option func(*discoverer)

type discoverer struct {
	concurrency int
	nameFilter  string
}

// WithConcurrency bounds how many matches are parsed at once. Values below
// 1 are ignored. Default: 4.
func WithConcurrency(n int) Option {
	return func(d *discoverer) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithNameFilter keeps only matches whose directory name contains substr,
// compared case-insensitively.
func WithNameFilter(substr string) Option {
	return func(d *discoverer) {
		d.nameFilter = strings.ToLower(substr)
	}
}

// Discover walks root and loads every match that has at least one
// transcript half. Matches are returned in lexical directory order. A
// missing root logs a warning and yields no matches. The first parse error
// cancels the remaining loads and is returned.
func Discover(ctx context.Context, root string, opts ...Option) ([]*Match, error) {
	d := &discoverer{concurrency: defaultConcurrency}
	for _, o := range opts {
		o(d)
	}

	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		slog.Warn("dataset root not found", "root", root)
		return nil, nil
	}

	var found []*Match
	leagues, err := subdirs(root)
	if err != nil {
		return nil, err
	}
	for _, league := range leagues {
		seasons, err := subdirs(filepath.Join(root, league))
		if err != nil {
			return nil, err
		}
		for _, season := range seasons {
			matches, err := subdirs(filepath.Join(root, league, season))
			if err != nil {
				return nil, err
			}
			for _, name := range matches {
				if d.nameFilter != "" && !strings.Contains(strings.ToLower(name), d.nameFilter) {
					continue
				}
				dir := filepath.Join(root, league, season, name)
				if !exists(HalfPath(dir, 1)) && !exists(HalfPath(dir, 2)) {
					continue
				}
				found = append(found, &Match{Dir: dir, Name: name, League: league, Season: season})
			}
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(d.concurrency)
	for _, m := range found {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			return m.load()
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

// LoadMatch loads a single match directory laid out as described in the
// package documentation. league and season are taken from the parent
// directories.
func LoadMatch(dir string) (*Match, error) {
	season := filepath.Dir(dir)
	m := &Match{
		Dir:    dir,
		Name:   filepath.Base(dir),
		Season: filepath.Base(season),
		League: filepath.Base(filepath.Dir(season)),
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Match) load() error {
	var segs []types.Segment
	for half := 1; half <= 2; half++ {
		path := HalfPath(m.Dir, half)
		if !exists(path) {
			continue
		}
		hs, err := LoadHalf(path, half)
		if err != nil {
			return err
		}
		segs = append(segs, hs...)
	}
	SortSegments(segs)
	m.Segments = segs

	labels, err := LoadLabels(filepath.Join(m.Dir, LabelsFile))
	if err != nil {
		return err
	}
	m.Labels = labels
	return nil
}

type halfFile struct {
	Segments map[string][]json.RawMessage `json:"segments"`
}

// LoadHalf parses one *_asr.json file. Entries with fewer than three values
// are skipped. The result is sorted by start time.
func LoadHalf(path string, half int) ([]types.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("event: read %q: %w", path, err)
	}
	var hf halfFile
	if err := json.Unmarshal(data, &hf); err != nil {
		return nil, fmt.Errorf("event: parse %q: %w", path, err)
	}

	segs := make([]types.Segment, 0, len(hf.Segments))
	for id, vals := range hf.Segments {
		if len(vals) < 3 {
			continue
		}
		seg := types.Segment{ID: id, Half: half}
		if err := json.Unmarshal(vals[0], &seg.Start); err != nil {
			return nil, fmt.Errorf("event: parse %q: segment %s start: %w", path, id, err)
		}
		if err := json.Unmarshal(vals[1], &seg.End); err != nil {
			return nil, fmt.Errorf("event: parse %q: segment %s end: %w", path, id, err)
		}
		if err := json.Unmarshal(vals[2], &seg.Text); err != nil {
			seg.Text = string(vals[2])
		}
		segs = append(segs, seg)
	}
	SortSegments(segs)
	return segs, nil
}

// SortSegments orders segs by (half, start). Ties are broken by segment id,
// numerically when both ids are integers.
func SortSegments(segs []types.Segment) {
	slices.SortFunc(segs, func(a, b types.Segment) int {
		if c := cmp.Compare(a.Half, b.Half); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
}

func compareIDs(a, b string) int {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	if aErr == nil && bErr == nil {
		return cmp.Compare(ai, bi)
	}
	return strings.Compare(a, b)
}

// subdirs returns the sorted names of the directories directly under dir.
func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("event: list %q: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
