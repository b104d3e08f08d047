// Package logger provides the process-wide structured logger.
package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init initializes the default logger writing JSON to stdout. It is
// safe to call multiple times; only the first call takes effect.
func Init(level string) {
	once.Do(func() {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		lvl, err := zerolog.ParseLevel(level)
		if err != nil {
			lvl = zerolog.InfoLevel
		}
		defaultLogger = zerolog.New(os.Stdout).
			Level(lvl).
			With().
			Timestamp().
			Logger()
		defaultLogger.Info().Msg("logger initialized")
	})
}

// Get returns the initialized default logger, initializing it at info
// level if Init has not yet been called.
func Get() *zerolog.Logger {
	once.Do(func() {
		defaultLogger = zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	})
	return &defaultLogger
}

// Info logs an informational message with key/value fields.
func Info(msg string, kv ...any) {
	withFields(Get().Info(), kv).Msg(msg)
}

// Warn logs a warning message with key/value fields.
func Warn(msg string, kv ...any) {
	withFields(Get().Warn(), kv).Msg(msg)
}

// Error logs an error with key/value fields.
func Error(msg string, err error, kv ...any) {
	ev := Get().Error()
	if err != nil {
		ev = ev.Err(err)
	}
	withFields(ev, kv).Msg(msg)
}

// Debug logs a debug message with key/value fields.
func Debug(msg string, kv ...any) {
	withFields(Get().Debug(), kv).Msg(msg)
}

// withFields attaches alternating key/value pairs to an in-flight
// zerolog event, matching the slog-style call convention used
// throughout this codebase.
func withFields(ev *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	return ev
}
