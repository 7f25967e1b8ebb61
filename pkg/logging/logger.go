// Package logging wraps zerolog with the key/value call style used across
// fanout. A nil *Logger discards everything, so libraries accept one
// without forcing callers to configure logging.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vnykmshr/fanout/pkg/common/errors"
)

// Logger wraps zerolog.Logger
type Logger struct {
	logger zerolog.Logger
}

// New creates a logger writing to w. format is "json" (default) or "text".
func New(level, format string, w io.Writer) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var logger zerolog.Logger
	switch strings.ToLower(format) {
	case "text", "console":
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		})
	case "json", "":
		logger = zerolog.New(w)
	default:
		return nil, errors.NewValidationError("logging", "format", format, "unknown format").
			WithHint("use json or text")
	}

	logger = logger.Level(lvl).With().Timestamp().Logger()
	return &Logger{logger: logger}, nil
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, errors.NewValidationError("logging", "level", level, "unknown level").
			WithHint("use debug, info, warn or error")
	}
	return lvl, nil
}

// Output resolves an output name: "stdout", "stderr" or a file path that is
// opened for appending. The returned closer is a no-op for the standard
// streams.
func Output(name string) (io.Writer, func() error, error) {
	switch name {
	case "", "stderr":
		return os.Stderr, func() error { return nil }, nil
	case "stdout":
		return os.Stdout, func() error { return nil }, nil
	}

	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return file, file.Close, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// With returns a child logger carrying the given key/value fields.
func (l *Logger) With(fields ...interface{}) *Logger {
	if l == nil {
		return nil
	}
	ctx := l.logger.With()
	for i := 0; i < len(fields)-1; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &Logger{logger: ctx.Logger()}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...interface{}) {
	if l == nil {
		return
	}
	emit(l.logger.Debug(), msg, fields)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...interface{}) {
	if l == nil {
		return
	}
	emit(l.logger.Info(), msg, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...interface{}) {
	if l == nil {
		return
	}
	emit(l.logger.Warn(), msg, fields)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...interface{}) {
	if l == nil {
		return
	}
	emit(l.logger.Error(), msg, fields)
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level zerolog.Level) bool {
	return l != nil && l.logger.GetLevel() <= level
}

// ZerologLogger returns the underlying zerolog.Logger
func (l *Logger) ZerologLogger() zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return l.logger
}

// emit adds key/value pairs to event and sends it. Errors are logged with
// zerolog's error field handling; a trailing key without value is dropped.
func emit(event *zerolog.Event, msg string, fields []interface{}) {
	if event == nil {
		return
	}
	for i := 0; i < len(fields)-1; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			event.AnErr(key, v)
		case time.Duration:
			event.Dur(key, v)
		default:
			event.Interface(key, v)
		}
	}
	event.Msg(msg)
}
