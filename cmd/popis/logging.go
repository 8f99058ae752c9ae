package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/erazemk/popis/internal/config"
)

// splitHandler sends records below slog.LevelError to out and the rest to
// errOut, dropping anything under min.
type splitHandler struct {
	min    slog.Level
	out    slog.Handler
	errOut slog.Handler
}

// newSplitHandler builds a handler writing format ("text" or "json") records
// at or above level to the two streams.
func newSplitHandler(out, errOut io.Writer, format string, level slog.Level) *splitHandler {
	opts := &slog.HandlerOptions{Level: level}
	build := func(w io.Writer) slog.Handler {
		if format == "json" {
			return slog.NewJSONHandler(w, opts)
		}
		return slog.NewTextHandler(w, opts)
	}
	return &splitHandler{min: level, out: build(out), errOut: build(errOut)}
}

func (h *splitHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min
}

func (h *splitHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return h.errOut.Handle(ctx, r)
	}
	return h.out.Handle(ctx, r)
}

func (h *splitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &splitHandler{min: h.min, out: h.out.WithAttrs(attrs), errOut: h.errOut.WithAttrs(attrs)}
}

func (h *splitHandler) WithGroup(name string) slog.Handler {
	return &splitHandler{min: h.min, out: h.out.WithGroup(name), errOut: h.errOut.WithGroup(name)}
}

// setupLogger installs the default logger from cfg. With a log path every
// record is also appended to that file; the returned func closes it.
func setupLogger(cfg *config.Config) (func(), error) {
	var out, errOut io.Writer = os.Stdout, os.Stderr
	closeFile := func() {}

	if cfg.LogPath != "" {
		f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		closeFile = func() { f.Close() }
		out = io.MultiWriter(out, f)
		errOut = io.MultiWriter(errOut, f)
	}

	slog.SetDefault(slog.New(newSplitHandler(out, errOut, cfg.LogFormat, cfg.Level())))
	return closeFile, nil
}
