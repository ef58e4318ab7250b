// Package logging configures zerolog for the TUI and the server.
// Terminal apps must not write log lines onto the canvas, so the
// default sink is a rotated file; the server logs to stderr as well.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the log destination and verbosity.
type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool // also mirror to stderr, human formatted
}

// DefaultFile returns the per-user log path for a component.
func DefaultFile(component string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return component + ".log"
	}
	return filepath.Join(home, ".local", "state", "mural", component+".log")
}

// New builds the root logger. Unknown levels fall back to info rather
// than failing startup.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	var sinks []io.Writer
	if opts.File != "" {
		if opts.MaxSizeMB <= 0 {
			opts.MaxSizeMB = 10
		}
		if opts.MaxBackups <= 0 {
			opts.MaxBackups = 3
		}
		sinks = append(sinks, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		})
	}
	if opts.Console {
		sinks = append(sinks, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	if len(sinks) == 0 {
		sinks = append(sinks, io.Discard)
	}

	return zerolog.New(zerolog.MultiLevelWriter(sinks...)).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Component derives a child logger tagged with a component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
