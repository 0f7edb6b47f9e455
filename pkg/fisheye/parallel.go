package fisheye

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// forEachRowBand splits [0, rows) into contiguous bands and runs fn on each
// band concurrently, at most workers at a time. Bands never overlap, so fn may
// write its own rows of a shared buffer without locking.
func forEachRowBand(ctx context.Context, rows, workers int, fn func(y0, y1 int)) error {
	if rows <= 0 {
		return ctx.Err()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > rows {
		workers = rows
	}
	bandSize := (rows + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y0 := 0; y0 < rows; y0 += bandSize {
		y0 := y0
		y1 := y0 + bandSize
		if y1 > rows {
			y1 = rows
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(y0, y1)
			return nil
		})
	}
	return g.Wait()
}
