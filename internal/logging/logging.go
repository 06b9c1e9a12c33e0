// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package logging builds the zerolog logger used by the bitbus commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger at the given level. With a file path it appends JSON
// lines to that file; otherwise it writes human-readable lines to console.
// A nil console discards everything, which the TUI commands use so log
// lines do not tear the screen. The returned closer releases the file.
func New(level, file string, console io.Writer) (zerolog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
		}
		return zerolog.New(f).Level(lvl).With().Timestamp().Logger(), f, nil
	}

	if console == nil {
		return zerolog.Nop(), nopCloser{}, nil
	}

	w := zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05.000"}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nopCloser{}, nil
}

// ParseLevel parses trace, debug, info, warn or error. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "":
		return zerolog.InfoLevel, nil
	case "trace", "debug", "info", "warn", "error":
		return zerolog.ParseLevel(strings.ToLower(level))
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
