package classpath

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Preload loads names concurrently, at most limit at a time (limit <= 0
// means no bound), so later lookups are served from the loader caches. The
// first failure cancels the remaining loads.
func Preload(ctx context.Context, cl ClassLoader, names []string, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := cl.LoadClass(name); err != nil {
				return fmt.Errorf("preloading %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
