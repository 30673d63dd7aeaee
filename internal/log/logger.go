package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func New(environment string) zerolog.Logger {
	return NewWithWriter(environment, os.Stdout)
}

// NewWithWriter builds the service logger on top of out. Production output
// drops colors and debug events.
func NewWithWriter(environment string, out io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    environment == "production",
	}

	level := zerolog.DebugLevel
	if environment == "production" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "studentdesk").
		Str("env", environment).
		Logger()
}
