package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"rxsentinel/arbiter/pkg/config"
)

// Logger owns the process logging pipeline. Records pass through PHI
// redaction and trace correlation before they reach the JSON or text
// sink, so the guarantees hold for every component holding the
// *slog.Logger surface, not just callers of this package.
type Logger struct {
	slog *slog.Logger
}

// Config contains configuration for the Logger.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn, or
	// error. Empty means info.
	Level string

	// Format selects the sink encoding: json (default) or text.
	Format string

	// AddSource stamps records with the calling file and line.
	AddSource bool

	// RedactPHI scrubs patient-identifying values before encoding.
	RedactPHI bool

	// RedactPatterns adds deployment-specific scrub patterns on top
	// of the built-in set.
	RedactPatterns []config.RedactPatternConfig

	// Writer receives encoded records. Defaults to os.Stdout.
	Writer io.Writer
}

// FromTelemetryConfig builds a logging Config from the telemetry section
// of the service configuration.
func FromTelemetryConfig(cfg config.LoggingConfig) Config {
	return Config{
		Level:          cfg.Level,
		Format:         cfg.Format,
		AddSource:      cfg.AddSource,
		RedactPHI:      cfg.RedactPHI,
		RedactPatterns: cfg.RedactPatterns,
	}
}

// New builds the logging pipeline. The sink handler is wrapped by a
// redacting handler when RedactPHI is set, and always by the trace
// correlation handler, in that order: redaction sees original values,
// correlation stamps the already-clean record.
func New(cfg Config) (*Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	handler, err := sinkHandler(cfg.Format, writer, &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	})
	if err != nil {
		return nil, err
	}

	if cfg.RedactPHI {
		handler = &redactHandler{next: handler, redactor: NewRedactor(cfg.RedactPatterns)}
	}
	handler = &correlateHandler{next: handler}

	return &Logger{slog: slog.New(handler)}, nil
}

// Slog returns the logger handed to components. Redaction and trace
// correlation apply to everything logged through it.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// sinkHandler maps the configured format to its slog handler.
func sinkHandler(format string, w io.Writer, opts *slog.HandlerOptions) (slog.Handler, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}
