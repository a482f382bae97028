// Package logger configures the application's structured logging.
//
// It uses zerolog for all application logs and provides the adapters needed
// to route pgx driver logs (SQL tracing) through the same logger.
package logger

import (
	"os"
	"strings"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// New builds the application logger.
//
// In the "local" environment logs are written in a human-friendly console
// format; everywhere else they are JSON on stderr so log collectors can parse
// them. level is parsed leniently and defaults to info.
func New(env, level string) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var log zerolog.Logger
	if env == "local" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}

	log = log.Level(parseLevel(level)).With().Timestamp().Logger()
	return &log
}

func parseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// NewPgxLogger returns a logger dedicated to pgx driver output. SQL tracing
// is noisy, so it is tagged with a component field to make filtering easy.
func NewPgxLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Str("component", "pgx").
		Logger()
}

// GetPgxTraceLogLevel maps the application log level to the pgx tracelog
// level. Debug and below turn on per-query tracing; info keeps only errors
// and warnings from the driver.
func GetPgxTraceLogLevel(level zerolog.Level) tracelog.LogLevel {
	switch {
	case level <= zerolog.DebugLevel:
		return tracelog.LogLevelDebug
	case level == zerolog.InfoLevel:
		return tracelog.LogLevelWarn
	default:
		return tracelog.LogLevelError
	}
}
