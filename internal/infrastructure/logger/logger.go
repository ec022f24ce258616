// Package logger configures the global zerolog logger for the scanner
// process: console output at startup, level adjustable once config is loaded.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the console writer at info level. Called before config is
// available, so the level here is only the bootstrap default.
func Setup() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// SetLevel applies the configured level name (trace, debug, info, warn,
// error). Empty keeps the current level; an unknown name is logged and
// ignored rather than silencing the process.
func SetLevel(level string) {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "" {
		return
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, keeping current")
		return
	}
	zerolog.SetGlobalLevel(lvl)
}
