package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a logger writing to stdout in the configured format.
// Text output is the default since the digest runs are usually read by a human
// in a CI or cron log.
func New(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	return slog.New(NewLogHandlerDecorator(newStreamHandler(os.Stdout, cfg), extractors...))
}

// newStreamHandler returns a text or JSON handler for w.
func newStreamHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.level()}
	if strings.EqualFold(cfg.Format, FormatJSON) {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
