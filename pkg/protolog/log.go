// Package protolog is the structured logger shared by every protodb
// subsystem, grounded on cuemby-warren's pkg/log wrapper over zerolog
// (the teacher carries no structured logger of its own).
package protolog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. Init reconfigures it; until Init is
// called it writes human-readable console output to stderr at info level,
// matching cobra CLI convention of not polluting stdout with log lines.
var Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel).With().Timestamp().Logger()

// Config selects the output level and format for Init.
type Config struct {
	Level      string // "debug", "info", "warn", "error"; default "info"
	JSONOutput bool
	Output     io.Writer
}

// Init reconfigures the global Logger.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: output}).With().Timestamp().Logger()
}
