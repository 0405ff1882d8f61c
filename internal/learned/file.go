package learned

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var _ Backend = (*FileBackend)(nil)

// FileBackend stores entries as a single indented JSON object keyed by
// misspelling. Saves write a temporary file next to the target and rename it
// into place, so a crash mid-save leaves the previous file intact.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend persisting to path. The file and its
// parent directories are created on the first save.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the file location.
func (b *FileBackend) Path() string { return b.path }

// Load implements [Backend]. A missing file is an empty store.
func (b *FileBackend) Load(_ context.Context) (map[string]Entry, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("learned: read %q: %w", b.path, err)
	}

	entries := map[string]Entry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("learned: parse %q: %w", b.path, err)
	}
	return entries, nil
}

// Save implements [Backend].
func (b *FileBackend) Save(_ context.Context, entries map[string]Entry) error {
	if entries == nil {
		entries = map[string]Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("learned: encode: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("learned: create dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".learned-*.json")
	if err != nil {
		return fmt.Errorf("learned: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("learned: write %q: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("learned: close %q: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("learned: replace %q: %w", b.path, err)
	}
	return nil
}
