package main

import (
	"io"
	"log/slog"
)

// NewLogger returns the root logger. Debug tracing is off unless debug is
// set.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).With("app", "bashdatdash")
}

// discardLogger drops everything; used where no logger was supplied
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
