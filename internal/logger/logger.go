// Package logger configures the global zerolog logger.
//
// The interactive commands print prompts and results on stdout, so log lines
// normally go to a file. Set LOG_OUTPUT=stderr to follow them in the
// terminal or LOG_OUTPUT=off to drop them.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultFile is the log file used when nothing else is configured.
const DefaultFile = "faktura.log"

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // trace, debug, info, warn, error
	Format     string // json, console
	TimeFormat string // RFC3339 or a Go time layout
	Output     string // stdout, stderr, off, or file path
}

// DefaultConfig is used before the environment has been read.
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     DefaultFile,
	}
}

// Setup initializes the global logger with the provided configuration
func Setup(config LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	output, colour, err := openOutput(config.Output)
	if err != nil {
		return err
	}

	if !strings.EqualFold(config.Format, "json") {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: config.TimeFormat,
			NoColor:    !colour,
		}
	}

	log.Logger = zerolog.New(output).With().
		Timestamp().
		Logger()

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}
	return nil
}

// openOutput resolves the configured destination. colour reports whether the
// destination is a terminal stream.
func openOutput(name string) (w io.Writer, colour bool, err error) {
	switch strings.ToLower(name) {
	case "stdout":
		return os.Stdout, true, nil
	case "stderr":
		return os.Stderr, true, nil
	case "off", "none":
		return io.Discard, false, nil
	case "":
		name = DefaultFile
	}

	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, false, err
		}
	}
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, false, err
	}
	return file, false, nil
}

// WithComponent returns a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// WithInvoice returns a component logger bound to an invoice number
func WithInvoice(component string, number int) zerolog.Logger {
	return log.Logger.With().
		Str("component", component).
		Int("invoice_number", number).
		Logger()
}
