package objectfs

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEachBounded calls fn for every item with at most limit calls in flight.
// The first error cancels the context passed to the remaining calls and is returned.
func forEachBounded[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) error) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, item := range items {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gCtx, item)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
