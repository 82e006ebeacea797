package logger

import (
	"context"
	"log/slog"
)

type runIDKey struct{}

// WithRunID stores the identifier of the current digest run in ctx.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run identifier stored by WithRunID.
func RunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}

// RunIDExtractor adds a run_id attribute to every record logged with a
// context carrying one.
func RunIDExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := RunID(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.String("run_id", id), true
	}
}
