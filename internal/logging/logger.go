// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every record written by the global logger.
const ServiceName = "safepulse"

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error, fatal or disabled.
	Level string

	// Format is json (default) or console.
	Format string

	// Caller adds file:line to each record.
	Caller bool

	// Timestamp adds the RFC3339 "time" field.
	Timestamp bool

	// Version, when set, is attached as the "version" field.
	Version string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns JSON output at info level with timestamps.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var global atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // packages log before main calls Init
func init() {
	Init(DefaultConfig())
}

// Init replaces the global logger. Later calls reconfigure it.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zc := zerolog.New(out).With().Str("service", ServiceName)
	if cfg.Version != "" {
		zc = zc.Str("version", cfg.Version)
	}
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}

	l := zc.Logger()
	global.Store(&l)
}

// parseLevel accepts zerolog level names plus "warning". Unknown or empty
// values fall back to info.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	return *global.Load()
}

// WithComponent returns a child of the global logger tagged with component.
//
//	logger := logging.WithComponent("risk")
func WithComponent(component string) zerolog.Logger {
	return global.Load().With().Str("component", component).Logger()
}

// Info starts an info record on the global logger.
func Info() *zerolog.Event { return global.Load().Info() }

// Warn starts a warn record on the global logger.
func Warn() *zerolog.Event { return global.Load().Warn() }

// Error starts an error record on the global logger.
func Error() *zerolog.Event { return global.Load().Error() }

// Fatal starts a fatal record; the process exits after Msg.
func Fatal() *zerolog.Event { return global.Load().Fatal() }

// NewTestLogger returns an unleveled logger writing JSON to w.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
