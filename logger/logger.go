// Package logger holds the process-wide structured logger.
//
// It follows the layout of gnark's own logger package: a single zerolog
// instance that libraries read through Logger() and binaries replace through
// Set or Setup.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// Set replaces the process logger
func Set(l zerolog.Logger) {
	logger = l
}

// Logger returns the process logger
func Logger() *zerolog.Logger {
	return &logger
}

// Disable silences all logging, including gnark's
func Disable() {
	logger = zerolog.Nop()
	gnarklogger.Disable()
}

// Setup creates a structured logger based on configuration and installs it
// for this module and for gnark.
func Setup(level, format string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	var lvl zerolog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "info":
		lvl = zerolog.InfoLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	default:
		lvl = zerolog.InfoLevel
	}

	var l zerolog.Logger
	if strings.ToLower(format) == "json" {
		l = zerolog.New(out)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	l = l.With().Timestamp().Logger().Level(lvl)

	Set(l)
	gnarklogger.Set(l)
	return l
}
