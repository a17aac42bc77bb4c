// Package logger builds the process logger and the pgx query tracer.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/Konsultn-Engineering/quest/config"
	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// New returns a logger writing to stderr.
func New(cfg config.LogConfig) zerolog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter returns a logger writing to w, human-readable when
// cfg.Pretty is set and JSON otherwise. Unknown levels fall back to info.
func NewWithWriter(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// NewPgxTracer logs every driver round trip through log. It returns nil
// unless log is at trace level.
func NewPgxTracer(log zerolog.Logger) pgx.QueryTracer {
	if log.GetLevel() > zerolog.TraceLevel {
		return nil
	}
	return &tracelog.TraceLog{
		Logger:   pgxzero.NewLogger(log.With().Str("component", "pgx").Logger()),
		LogLevel: PgxTraceLevel(log.GetLevel()),
	}
}

// PgxTraceLevel maps a zerolog level to the pgx tracelog equivalent.
func PgxTraceLevel(level zerolog.Level) tracelog.LogLevel {
	switch level {
	case zerolog.TraceLevel:
		return tracelog.LogLevelTrace
	case zerolog.DebugLevel:
		return tracelog.LogLevelDebug
	case zerolog.InfoLevel:
		return tracelog.LogLevelInfo
	case zerolog.WarnLevel:
		return tracelog.LogLevelWarn
	case zerolog.ErrorLevel:
		return tracelog.LogLevelError
	default:
		return tracelog.LogLevelNone
	}
}
