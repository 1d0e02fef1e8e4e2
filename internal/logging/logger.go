package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger: JSON on stdout, or a console writer in
// development. level overrides the environment default when it parses.
func New(appEnv, level string) zerolog.Logger {
	return NewWithWriter(os.Stdout, appEnv, level)
}

func NewWithWriter(out io.Writer, appEnv, level string) zerolog.Logger {
	development := strings.EqualFold(appEnv, "development")

	logLevel := zerolog.InfoLevel
	if development {
		logLevel = zerolog.DebugLevel
	}
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		logLevel = parsed
	}

	if development {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", "blog-generation-back").
		Logger()
}
