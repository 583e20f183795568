package shared

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lox/blackjack/internal/config"
)

// SetupLogger builds a console or JSON logger from the log settings. debug
// forces the debug level regardless of configuration.
func SetupLogger(settings *config.LogSettings, debug bool) (zerolog.Logger, error) {
	return newLogger(os.Stderr, settings, debug)
}

func newLogger(w io.Writer, settings *config.LogSettings, debug bool) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if settings != nil && settings.Level != "" {
		parsed, err := zerolog.ParseLevel(settings.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", settings.Level, err)
		}
		level = parsed
	}
	if debug {
		level = zerolog.DebugLevel
	}

	if settings != nil && settings.JSON {
		zerolog.TimeFieldFormat = time.RFC3339Nano
	} else {
		w = zerolog.ConsoleWriter{Out: w}
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}
