// Package logging builds the structured loggers used across semdoc.
//
// Logs always go to stderr: stdout carries the MCP stdio transport.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options configures a logger
type Options struct {
	Level  string
	Format string
	Writer io.Writer // defaults to os.Stderr
}

// New returns a logger writing to opts.Writer at opts.Level.
// Unknown levels fall back to info.
func New(opts Options) *log.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := log.InfoLevel
	if opts.Level != "" {
		level = log.ParseLevel(strings.ToLower(opts.Level))
	}

	logger := &log.Logger{
		Level:      level,
		TimeFormat: "15:04:05",
	}

	switch strings.ToLower(opts.Format) {
	case FormatJSON:
		logger.TimeFormat = ""
		logger.Writer = &log.IOWriter{Writer: w}
	default:
		logger.Writer = &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    false,
			EndWithMessage: true,
		}
	}

	return logger
}

// Nop returns a logger that discards everything
func Nop() *log.Logger {
	return &log.Logger{
		Level:  log.ErrorLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}

// OrNop returns l, or a discarding logger when l is nil
func OrNop(l *log.Logger) *log.Logger {
	if l == nil {
		return Nop()
	}
	return l
}
