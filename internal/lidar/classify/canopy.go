package classify

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
	"github.com/banshee-data/lidar-classify/internal/monitoring"
)

// CanopyClassifier picks the highest return of each 1m cell below a
// ceiling set relative to the enclosing 10m cell's lowest single return.
type CanopyClassifier struct {
	src    Source
	params Params
	scale  cellhash.Scale
}

// NewCanopyClassifier reads the store scale and validates params.
func NewCanopyClassifier(ctx context.Context, src Source, params Params) (*CanopyClassifier, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	scale, err := sourceScale(ctx, src)
	if err != nil {
		return nil, err
	}
	return &CanopyClassifier{src: src, params: params, scale: scale}, nil
}

// Cells returns the 1m to 10m parent map and the 10m single-return
// minimum elevations.
func (c *CanopyClassifier) Cells(ctx context.Context) (map[cellhash.Key]cellhash.Key, map[cellhash.Key]int32, error) {
	parents, err := c.src.ParentCellMap(ctx, cellhash.Res1, cellhash.Res10)
	if err != nil {
		return nil, nil, fmt.Errorf("canopy parent cells: %w", err)
	}
	minZ, err := c.src.MinZPerCell(ctx, cellhash.Res10, true)
	if err != nil {
		return nil, nil, fmt.Errorf("canopy ground elevations: %w", err)
	}
	return parents, minZ, nil
}

// Cutoff returns the raw exclusive Z ceiling over ground elevation z0.
func (c *CanopyClassifier) Cutoff(z0 int32) float64 {
	return float64(z0) + c.params.HeightMaxM/c.scale.Z
}

// ClassifyCell returns the highest record of the 1m cell below the
// ceiling over z0, labelled canopy top, or nothing if the cell has no
// such record. Every return is eligible; ties go to storage order.
func (c *CanopyClassifier) ClassifyCell(ctx context.Context, key cellhash.Key, z0 int32) ([]pointstore.Record, error) {
	candidates, err := c.src.RecordsBelow(ctx, cellhash.Res1, key, c.Cutoff(z0))
	if err != nil {
		return nil, fmt.Errorf("canopy candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	top := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Z > candidates[top].Z {
			top = i
		}
	}
	return []pointstore.Record{candidates[top].AsCanopyTop()}, nil
}

// Run classifies every 1m cell.
func (c *CanopyClassifier) Run(ctx context.Context, workers int) ([]pointstore.Record, Stats, error) {
	start := time.Now()
	parents, minZ, err := c.Cells(ctx)
	if err != nil {
		return nil, Stats{}, err
	}
	keys := make([]cellhash.Key, 0, len(parents))
	for k := range parents {
		keys = append(keys, k)
	}
	monitoring.Logf("[canopy] classifying %d cells on %d workers (ceiling %.2fm)", len(keys), workers, c.params.HeightMaxM)

	var skipped atomic.Int64
	out, err := RunCells(ctx, keys, workers, func(ctx context.Context, key cellhash.Key) ([]pointstore.Record, error) {
		z0, ok := minZ[parents[key]]
		if !ok {
			// Parent cell holds only interior returns.
			skipped.Add(1)
			monitoring.Debugf("[canopy] cell %s: parent %s has no single return", key, parents[key])
			return nil, nil
		}
		return c.ClassifyCell(ctx, key, z0)
	})
	if err != nil {
		return nil, Stats{}, fmt.Errorf("canopy classification: %w", err)
	}

	stats := Stats{Cells: len(keys), Skipped: int(skipped.Load()), Emitted: len(out)}
	monitoring.CountCells(Canopy, stats.Cells)
	monitoring.CountEmitted(Canopy, stats.Emitted)
	monitoring.ObservePhase(Canopy, time.Since(start))
	monitoring.Logf("[canopy] %d canopy-top points from %d cells (%d skipped)", stats.Emitted, stats.Cells, stats.Skipped)
	return out, stats, nil
}
