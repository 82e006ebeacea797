package digest

import "context"

// Source supplies the events for a digest window.
type Source interface {
	Fetch(ctx context.Context, w Window) ([]Event, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, w Window) ([]Event, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, w Window) ([]Event, error) {
	return f(ctx, w)
}

// Placeholder content. The Webb newsletter is distributed on LinkedIn and
// cannot be fetched, so the digest points the reader at it instead.
const (
	PlaceholderTitle       = "Webb Tech Events"
	PlaceholderDescription = "AI generated list of events for founders, investors & people in tech"
	PlaceholderEventCount  = "40+ Tech Events"
	PlaceholderSource      = "Webb Newsletter"
	PlaceholderNote        = "Check your LinkedIn or newsletter subscription for the full list"
)

// Placeholder is the default Source. It always returns a single record
// covering the window.
type Placeholder struct{}

// Fetch implements Source.
func (Placeholder) Fetch(_ context.Context, w Window) ([]Event, error) {
	return []Event{{
		Title:       PlaceholderTitle,
		DateRange:   w.String(),
		Description: PlaceholderDescription,
		EventCount:  PlaceholderEventCount,
		Source:      PlaceholderSource,
		Note:        PlaceholderNote,
	}}, nil
}
