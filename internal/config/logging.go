package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// NewLogger builds the process logger: text lines to stderr and, when
// cfg.File is set, JSON lines appended to that file as well. The returned
// cleanup closes the file.
func NewLogger(cfg LogConfig, stderr io.Writer) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level.Level()}
	text := slog.NewTextHandler(stderr, opts)
	if cfg.File == "" {
		return slog.New(text), func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("config: open log file %q: %w", cfg.File, err)
	}
	logger := slog.New(slogmulti.Fanout(text, slog.NewJSONHandler(f, opts)))
	return logger, f.Close, nil
}
