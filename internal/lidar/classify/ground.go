package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
	"github.com/banshee-data/lidar-classify/internal/monitoring"
)

// GroundClassifier grows a ground set from the lowest single return of
// each 10m cell.
type GroundClassifier struct {
	src    Source
	params Params
	scale  cellhash.Scale
}

// NewGroundClassifier reads the store scale and validates params.
func NewGroundClassifier(ctx context.Context, src Source, params Params) (*GroundClassifier, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	scale, err := sourceScale(ctx, src)
	if err != nil {
		return nil, err
	}
	return &GroundClassifier{src: src, params: params, scale: scale}, nil
}

// Cells returns the seed elevation of every 10m cell holding a single
// return.
func (g *GroundClassifier) Cells(ctx context.Context) (map[cellhash.Key]int32, error) {
	minZ, err := g.src.MinZPerCell(ctx, cellhash.Res10, true)
	if err != nil {
		return nil, fmt.Errorf("ground seed elevations: %w", err)
	}
	return minZ, nil
}

// Seed returns the first single return at z0 in storage order.
func (g *GroundClassifier) Seed(ctx context.Context, key cellhash.Key, z0 int32) (pointstore.Record, bool, error) {
	recs, err := g.src.RecordsAtZ(ctx, cellhash.Res10, key, z0)
	if err != nil {
		return pointstore.Record{}, false, fmt.Errorf("seed lookup: %w", err)
	}
	for _, r := range recs {
		if r.IsSingleReturn() {
			return r, true, nil
		}
	}
	return pointstore.Record{}, false, nil
}

// ClassifyCell returns the ground-labelled seed followed by every other
// single return of the cell that passes GroundFilter.
func (g *GroundClassifier) ClassifyCell(ctx context.Context, key cellhash.Key, z0 int32) ([]pointstore.Record, error) {
	seed, ok, err := g.Seed(ctx, key, z0)
	if err != nil {
		return nil, err
	}
	if !ok {
		monitoring.Debugf("[ground] cell %s: no single return at z=%d", key, z0)
		return nil, nil
	}

	candidates, err := g.src.RecordsInCell(ctx, cellhash.Res10, key, true)
	if err != nil {
		return nil, fmt.Errorf("ground candidates: %w", err)
	}
	out := make([]pointstore.Record, 1, len(candidates))
	out[0] = seed.AsGround()
	for _, p := range candidates {
		if p == seed {
			continue
		}
		if GroundFilter(seed.Point, p.Point, g.scale, g.params) {
			out = append(out, p.AsGround())
		}
	}
	monitoring.Debugf("[ground] cell %s: seed z=%d, %d of %d candidates accepted", key, z0, len(out)-1, len(candidates)-1)
	return out, nil
}

// Run classifies every 10m cell.
func (g *GroundClassifier) Run(ctx context.Context, workers int) ([]pointstore.Record, Stats, error) {
	start := time.Now()
	cells, err := g.Cells(ctx)
	if err != nil {
		return nil, Stats{}, err
	}
	keys := make([]cellhash.Key, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	monitoring.Logf("[ground] classifying %d cells on %d workers", len(keys), workers)

	out, err := RunCells(ctx, keys, workers, func(ctx context.Context, key cellhash.Key) ([]pointstore.Record, error) {
		return g.ClassifyCell(ctx, key, cells[key])
	})
	if err != nil {
		return nil, Stats{}, fmt.Errorf("ground classification: %w", err)
	}

	stats := Stats{Cells: len(keys), Emitted: len(out)}
	monitoring.CountCells(Ground, stats.Cells)
	monitoring.CountEmitted(Ground, stats.Emitted)
	monitoring.ObservePhase(Ground, time.Since(start))
	monitoring.Logf("[ground] %d ground points from %d cells", stats.Emitted, stats.Cells)
	return out, stats, nil
}
