package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/lidar-classify/internal/config"
	"github.com/banshee-data/lidar-classify/internal/fsutil"
	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/las"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
	"github.com/banshee-data/lidar-classify/internal/monitoring"
)

// ErrNoInputs is returned when the input directories hold no LAS files.
var ErrNoInputs = errors.New("no .las files in the input directories")

// IngestStats summarises a load.
type IngestStats struct {
	RunID    string
	Files    int
	Points   int64
	Duration time.Duration
}

// Ingest replaces the store contents with every LAS file found in the
// configured input directories and seals the store.
func Ingest(ctx context.Context, cfg *config.Config, store *pointstore.Store, fsys fsutil.FileSystem) (IngestStats, error) {
	start := time.Now()
	paths, err := las.Discover(fsys, cfg.InputDirs)
	if err != nil {
		return IngestStats{}, err
	}
	if len(paths) == 0 {
		return IngestStats{}, fmt.Errorf("%w: %v", ErrNoInputs, cfg.InputDirs)
	}

	if err := store.Reset(ctx); err != nil {
		return IngestStats{}, fmt.Errorf("reset point store: %w", err)
	}

	stats := IngestStats{RunID: uuid.NewString()}
	monitoring.Logf("[ingest] run %s: loading %d files", stats.RunID, len(paths))
	var offset *las.Vec3
	for _, path := range paths {
		src, err := ingestFile(ctx, store, fsys, path, stats.RunID)
		if err != nil {
			return IngestStats{}, err
		}
		if offset == nil {
			offset = &src.Offset
		} else if *offset != src.Offset {
			monitoring.Logf("[ingest] warning: %s offset %+v differs from %+v; outputs use the reference file's offset", path, src.Offset, *offset)
		}
		stats.Files++
		stats.Points += src.PointCount
		monitoring.CountIngestedFile(src.PointCount)
		monitoring.Logf("[ingest] %s: %d points", path, src.PointCount)
	}

	sealStart := time.Now()
	if err := store.Seal(ctx); err != nil {
		return IngestStats{}, fmt.Errorf("seal point store: %w", err)
	}
	monitoring.ObservePhase("index", time.Since(sealStart))

	stats.Duration = time.Since(start)
	monitoring.ObservePhase("ingest", stats.Duration)
	monitoring.Logf("[ingest] run %s: %d points from %d files in %s", stats.RunID, stats.Points, stats.Files, stats.Duration.Round(time.Millisecond))
	if err := monitoring.WriteTextfile(cfg.GetMetricsTextfile()); err != nil {
		return stats, err
	}
	return stats, nil
}

func ingestFile(ctx context.Context, store *pointstore.Store, fsys fsutil.FileSystem, path, runID string) (pointstore.SourceFile, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return pointstore.SourceFile{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r, err := las.NewReader(f)
	if err != nil {
		return pointstore.SourceFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	h := r.Header()
	scale := cellhash.Scale{X: h.Scale.X, Y: h.Scale.Y, Z: h.Scale.Z}
	if err := store.BeginFile(ctx, path, runID, scale, h.Offset); err != nil {
		return pointstore.SourceFile{}, err
	}
	monitoring.Debugf("[ingest] %s: LAS %s format %d, %d points declared", path, h.Version(), h.PointFormat, h.PointCount)

	for n := 0; ; n++ {
		if n%65536 == 0 {
			if err := ctx.Err(); err != nil {
				return pointstore.SourceFile{}, err
			}
		}
		p, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return pointstore.SourceFile{}, fmt.Errorf("read %s: %w", path, err)
		}
		if err := store.Append(ctx, pointstore.PointFromLAS(p)); err != nil {
			return pointstore.SourceFile{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return store.EndFile(ctx)
}
