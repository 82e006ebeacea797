package digest

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"
)

type combined []Source

// Combine returns a Source that fetches from all sources concurrently and
// concatenates the results in argument order. The first failure cancels the
// remaining fetches and is returned.
func Combine(sources ...Source) Source {
	return combined(slices.DeleteFunc(slices.Clone(sources), func(s Source) bool { return s == nil }))
}

func (c combined) Fetch(ctx context.Context, w Window) ([]Event, error) {
	results := make([][]Event, len(c))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range c {
		g.Go(func() error {
			events, err := src.Fetch(ctx, w)
			if err != nil {
				return err
			}
			results[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return slices.Concat(results...), nil
}
