package common

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Component is a long-running part of a binary. Run blocks until ctx is done
// or the component fails.
type Component interface {
	Run(context.Context) error
}

// RunComponents runs every component until ctx is done. The first failure
// cancels the others and is returned.
func RunComponents(ctx context.Context, components ...Component) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, component := range components {
		g.Go(func() error {
			defer HandlePanic()
			return component.Run(ctx)
		})
	}
	return g.Wait()
}
