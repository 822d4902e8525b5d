package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Development runs log at debug; anything
// else logs at info unless level names a valid zerolog level.
func New(env, level string) zerolog.Logger {
	return NewWithWriter(os.Stderr, env, level)
}

func NewWithWriter(w io.Writer, env, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	l := zerolog.New(w).With().Timestamp().Logger()
	if env == "dev" || env == "development" {
		l = l.Level(zerolog.DebugLevel)
	} else {
		l = l.Level(zerolog.InfoLevel)
	}
	if level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			l = l.Level(parsed)
		}
	}
	return l
}

// Discard returns a logger that writes nothing, for tests and TUI sessions.
func Discard() zerolog.Logger {
	return zerolog.Nop()
}
