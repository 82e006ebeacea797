// Package logger builds the slog loggers used by the digest command.
//
// Output goes to stdout, as human readable text by default or JSON when
// LOG_FORMAT=json. A LogHandlerDecorator injects attributes pulled from the
// context of every record, such as the run ID:
//
//	log := logger.New(cfg, logger.RunIDExtractor())
//	ctx := logger.WithRunID(context.Background(), "7f1c...")
//	log.InfoContext(ctx, "fetching events")
//	// time=... level=INFO msg="fetching events" run_id=7f1c...
//
// # Sentry
//
// NewWithSentry additionally forwards warnings and errors to Sentry when
// SENTRY_DSN is set. Without a DSN it falls back to stdout only, so the same
// code path works locally. Call Flush before the process exits.
package logger
