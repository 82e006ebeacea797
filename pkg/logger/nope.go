package logger

import (
	"io"
	"log/slog"
)

// NewNope returns a logger that discards everything. Used as the default
// when no logger is injected.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewWriter returns a text logger writing to w at debug level.
// Handy for capturing progress lines in tests.
func NewWriter(w io.Writer, extractors ...ContextExtractor) *slog.Logger {
	return slog.New(NewLogHandlerDecorator(
		newStreamHandler(w, Config{Format: FormatText, Level: "debug"}),
		extractors...,
	))
}
