/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jtoledo1974/atcapp/internal/logbuffer"
)

// Setup configures zerolog for the process.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, os.Stderr)
}

// SetupWithBuffer is Setup plus a copy of every entry in buf, which always
// receives JSON regardless of the console format.
func SetupWithBuffer(environment string, buf *logbuffer.Buffer) zerolog.Logger {
	return setup(environment, os.Stderr, logbuffer.NewWriter(buf, nil))
}

// SetupWithWriter configures zerolog to write to out. Development gets a
// human-readable console at debug level; every other environment emits JSON
// at info level for log shippers.
func SetupWithWriter(environment string, out io.Writer) zerolog.Logger {
	return setup(environment, out, nil)
}

func setup(environment string, out io.Writer, capture io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	writer := out
	if strings.EqualFold(environment, "development") {
		level = zerolog.DebugLevel
		writer = zerolog.ConsoleWriter{Out: out}
	}
	if capture != nil {
		writer = zerolog.MultiLevelWriter(writer, capture)
	}

	logger := zerolog.New(writer).With().Timestamp().Str("service", "atcapp").Logger().Level(level)
	log.Logger = logger
	return logger
}
