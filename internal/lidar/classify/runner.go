package classify

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
)

// CellFunc classifies one cell.
type CellFunc func(ctx context.Context, key cellhash.Key) ([]pointstore.Record, error)

// RunCells applies fn to every key on at most workers goroutines and
// concatenates the results in sorted key order. The first error cancels
// the remaining cells and no records are returned.
func RunCells(ctx context.Context, keys []cellhash.Key, workers int, fn CellFunc) ([]pointstore.Record, error) {
	if workers < 1 {
		workers = 1
	}
	sorted := slices.Clone(keys)
	slices.Sort(sorted)

	results := make([][]pointstore.Record, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, key := range sorted {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, err := fn(gctx, key)
			if err != nil {
				return fmt.Errorf("cell %s: %w", key, err)
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := 0
	for _, r := range results {
		n += len(r)
	}
	out := make([]pointstore.Record, 0, n)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
