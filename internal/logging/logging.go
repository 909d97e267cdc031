// SPDX-License-Identifier: EPL-2.0

// Package logging configures zerolog for the process.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup returns a logger writing to stderr. format "console" gives human
// readable output, anything else JSON. Unknown levels fall back to info.
func Setup(level, format string) zerolog.Logger {
	return SetupWithWriter(level, format, os.Stderr)
}

// SetupWithWriter is Setup with an explicit destination.
func SetupWithWriter(level, format string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}

	logger := zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	log.Logger = logger
	return logger
}
