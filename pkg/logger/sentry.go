package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string `env:"SENTRY_DSN"`
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	// MinLevel selects which records are stored as Sentry logs (warn+ by default).
	MinLevel slog.Level `env:"SENTRY_MIN_LEVEL" envDefault:"WARN"`
}

// NewWithSentry creates a logger that writes to stdout and, when a DSN is
// configured, to Sentry. Errors become Sentry issues. Without a DSN, or when
// the SDK fails to initialize, it behaves exactly like New.
func NewWithSentry(cfg Config, extractors ...ContextExtractor) *slog.Logger {
	stdoutHandler := newStreamHandler(os.Stdout, cfg)

	if cfg.Sentry.DSN == "" {
		return slog.New(NewLogHandlerDecorator(stdoutHandler, extractors...))
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(stdoutHandler).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return slog.New(NewLogHandlerDecorator(stdoutHandler, extractors...))
	}

	logLevel := []slog.Level{slog.LevelWarn, slog.LevelError}
	if cfg.Sentry.MinLevel >= slog.LevelError {
		logLevel = []slog.Level{slog.LevelError}
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevel,
	}.NewSentryHandler(context.Background())

	return slog.New(NewLogHandlerDecorator(newMultiHandler(stdoutHandler, sentryHandler), extractors...))
}

// Flush waits up to timeout for buffered Sentry events to be delivered.
// One-shot processes must call it before exiting. No-op without Sentry.
func Flush(timeout time.Duration) {
	if sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.Flush(timeout)
}
