package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogFormat represents the log output format.
type LogFormat string

const (
	// FormatText is human readable console output.
	FormatText LogFormat = "text"
	// FormatJSON is one JSON object per line.
	FormatJSON LogFormat = "json"
)

// Config represents logging configuration.
type Config struct {
	Level   string
	Format  LogFormat
	Service string
	Version string
	// File, when set, receives a copy of every log line. It is opened in
	// append mode and its directory is created if needed.
	File string
	// Output overrides stderr; used by tests.
	Output io.Writer
}

// NewLoggerFromConfig creates a logger based on configuration. The returned
// closer is non-nil only when a log file was opened.
func NewLoggerFromConfig(cfg *Config) (ContextLogger, io.Closer) {
	var out io.Writer = os.Stderr
	if cfg.Output != nil {
		out = cfg.Output
	}

	var closer io.Closer
	if cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file, continuing without it: %v\n", err)
		} else {
			closer = f
			out = io.MultiWriter(out, f)
		}
	}

	format := LogFormat(strings.ToLower(string(cfg.Format)))
	if format == FormatText {
		out = zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}
	}

	logger := NewLogger(out, cfg.Level)
	fields := map[string]interface{}{}
	if cfg.Service != "" {
		fields["service"] = cfg.Service
	}
	if cfg.Version != "" {
		fields["version"] = cfg.Version
	}
	if len(fields) == 0 {
		return logger, closer
	}
	return logger.WithFields(fields), closer
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
