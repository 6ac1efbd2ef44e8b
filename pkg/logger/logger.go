// Package logger wraps zerolog behind a small fixed surface. Every
// component takes a *Logger and scopes it with WithField("module", ...),
// so output format and level are decided in exactly one place.
package logger

import (
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nickpio/top-earning-parser/pkg/config"
)

// Logger is a structured logger. The zero value is not usable; build
// one with New.
type Logger struct {
	z zerolog.Logger
}

// New builds the process logger from config. LOG_FORMAT console/pretty
// selects human-readable output, anything else emits JSON. The level is
// carried by the instance, not the zerolog global, so independently
// constructed loggers do not fight over it.
func New(cfg *config.Config) *Logger {
	z := zerolog.New(writerFor(cfg.LogFormat)).
		Level(parseLevel(cfg.LogLevel)).
		With().
		Timestamp().
		Str("env", cfg.Env).
		Logger()

	return &Logger{z: z}
}

func writerFor(format string) io.Writer {
	switch format {
	case "console", "pretty":
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	default:
		return os.Stdout
	}
}

// parseLevel accepts the zerolog level names plus "warning", and falls
// back to info for anything unrecognized.
func parseLevel(s string) zerolog.Level {
	name := strings.ToLower(s)
	if name == "warning" {
		name = "warn"
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func (l *Logger) Debug(msg string) { l.z.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.z.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.z.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.z.Error().Msg(msg) }

// Fatal logs the message and exits the process.
func (l *Logger) Fatal(msg string) { l.z.Fatal().Msg(msg) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.z.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.z.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.z.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.z.Error().Msgf(format, args...) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.z.Fatal().Msgf(format, args...) }

// WithField returns a derived logger carrying one extra field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{z: l.z.With().Interface(key, value).Logger()}
}

// WithFields returns a derived logger carrying the given fields. Keys
// are attached in sorted order so repeated runs emit identical lines.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx := l.z.With()
	for _, k := range keys {
		ctx = ctx.Interface(k, fields[k])
	}
	return &Logger{z: ctx.Logger()}
}

// WithError returns a derived logger carrying the error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{z: l.z.With().Err(err).Logger()}
}

// Zerolog exposes the underlying logger for packages that need the raw
// event API.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.z
}
