// Package logger provides a singleton structured logger backed by zerolog.
//
// Initialise once at startup with Init, then retrieve anywhere with Get.
// INFO and WARN are written to stdout, ERROR and above to stderr. When a log
// file is configured every level is also appended to it, rotated by size.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Defaults to "info" when empty or unrecognised.
	Level string
	// Pretty enables human-friendly console output on stdout/stderr.
	// The log file always receives JSON.
	Pretty bool
	// File is an optional log file path, rotated by lumberjack.
	File string
	// Stdout and Stderr default to os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

var (
	instance zerolog.Logger
	once     sync.Once
	file     *lumberjack.Logger
)

// levelRouter is a zerolog.LevelWriter that routes INFO/WARN to stdout and
// ERROR+ to stderr.
type levelRouter struct {
	stdout io.Writer
	stderr io.Writer
}

func (lr *levelRouter) Write(p []byte) (int, error) {
	return lr.stdout.Write(p)
}

func (lr *levelRouter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.ErrorLevel && level != zerolog.NoLevel {
		return lr.stderr.Write(p)
	}
	return lr.stdout.Write(p)
}

// Init initialises the singleton logger. Only the first call has any effect.
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		stdout, stderr := opts.Stdout, opts.Stderr
		if stdout == nil {
			stdout = os.Stdout
		}
		if stderr == nil {
			stderr = os.Stderr
		}
		if opts.Pretty {
			stdout = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
			stderr = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
		}

		var out io.Writer = &levelRouter{stdout: stdout, stderr: stderr}
		if opts.File != "" {
			file = &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    64,
				MaxBackups: 7,
				MaxAge:     28,
			}
			out = zerolog.MultiLevelWriter(out, file)
		}

		lvl := parseLevel(opts.Level)
		zerolog.SetGlobalLevel(lvl)

		instance = zerolog.New(out).
			Level(lvl).
			With().
			Timestamp().
			Logger()
	})
	return instance
}

// Close closes the log file, if one was opened.
func Close() error {
	if file == nil {
		return nil
	}
	return file.Close()
}

// Reset tears down the singleton so that the next Init call rebuilds it.
// Intended for use in tests only.
func Reset() {
	Close()
	once = sync.Once{}
	instance = zerolog.Logger{}
	file = nil
}

// parseLevel converts a string to a zerolog.Level.
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
