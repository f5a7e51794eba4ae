package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. Console output with timestamps; level comes
// from LOG_LEVEL (defaults to info).
func New() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05 MST",
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldInteger = true

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && parsed != zerolog.NoLevel {
		level = parsed
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}
