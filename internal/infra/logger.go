package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger constructs the service logger: human-readable console output in
// development, JSON lines everywhere else, nothing in tests.
func NewLogger(appEnv string) zerolog.Logger {
	return NewLoggerTo(os.Stdout, appEnv)
}

// NewLoggerTo is NewLogger with an explicit sink. The CLI logs to stderr so
// stdout stays machine-readable.
func NewLoggerTo(w io.Writer, appEnv string) zerolog.Logger {
	if appEnv == "test" {
		return DiscardLogger()
	}
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	}

	return logger
}

// DiscardLogger is the fallback for components constructed without a logger.
func DiscardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// Logger aliases zerolog.Logger so callers outside infra do not import the
// module directly.
type Logger = zerolog.Logger
