package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Debug      bool
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// Setup installs the default slog logger. Output goes to stderr and, when a
// file is configured, to a rotated log file as well. The returned closer
// releases the file.
func Setup(opts Options) (io.Closer, error) {
	logger, closer, err := New(os.Stderr, opts)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return closer, nil
}

func New(console io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	var out io.Writer = console
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    max(opts.MaxSize, 1),
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
		}
		out = io.MultiWriter(console, file)
		closer = file
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
