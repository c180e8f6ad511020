package engine

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig mirrors the shape of utils.py's setup_logging: an optional
// colorized stderr stream and an optional append-or-truncate file sink.
type LogConfig struct {
	Stderr bool
	Color  bool
	File   string // empty disables the file sink
	Append bool
	Level  zerolog.Level
}

// DefaultLogConfig matches setup_logging(color=True) as called from
// __main__.py.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Stderr: true,
		Color:  true,
		Level:  zerolog.DebugLevel,
	}
}

// SetupLogging builds the root logger for the engine, analogous to
// utils.setup_logging: a timestamped, leveled stream handler plus an
// optional file handler, both writing the same formatted line.
func SetupLogging(cfg LogConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = "15:04:05"

	var writers []io.Writer

	if cfg.Stderr {
		if cfg.Color {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: time.TimeOnly,
				NoColor:    false,
			})
		} else {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: time.TimeOnly,
				NoColor:    true,
			})
		}
	}

	if cfg.File != "" {
		flags := os.O_CREATE | os.O_WRONLY
		if cfg.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		if f, err := os.OpenFile(cfg.File, flags, 0644); err == nil {
			writers = append(writers, zerolog.ConsoleWriter{Out: f, TimeFormat: time.TimeOnly, NoColor: true})
		}
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(out).Level(cfg.Level).With().Timestamp().Logger()
}

// componentLogger names a sub-logger the way the Python original names
// per-module loggers ("engine.proxy", "engine.child").
func componentLogger(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
