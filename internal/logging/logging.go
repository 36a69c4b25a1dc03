// Package logging provides structured logging helpers for the pipeline.
//
// Loggers are dependency-injected, never global. Each component scopes its
// own logger once at construction time with slog.With, and a nil logger
// always degrades to a discard logger. Output format and level are decided
// only in main().
//
// Logging stays out of the per-line hot loop; components log at lifecycle
// boundaries and on degradations.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// discardHandler drops every record.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Discard returns a logger that drops all output.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// Default returns logger if non-nil, otherwise a discard logger.
// Standard pattern for optional logger parameters:
//
//	func New(cfg Config) *Publisher {
//	    logger := logging.Default(cfg.Logger).With("component", "publisher")
//	    ...
//	}
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}

// New builds the base logger used by main. Format is "json" or "text";
// anything else falls back to text.
func New(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
