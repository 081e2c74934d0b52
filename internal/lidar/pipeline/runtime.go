package pipeline

import (
	"context"
	"fmt"

	"github.com/banshee-data/lidar-classify/internal/config"
	"github.com/banshee-data/lidar-classify/internal/lidar/classify"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
	"github.com/banshee-data/lidar-classify/internal/lidar/storage/postgres"
	"github.com/banshee-data/lidar-classify/internal/lidar/storage/sqlite"
)

// OpenBackend connects the point store backend named by cfg. Schema
// migrations run as part of opening.
func OpenBackend(ctx context.Context, cfg *config.Config) (pointstore.Backend, error) {
	switch driver := cfg.GetStoreDriver(); driver {
	case config.DriverSQLite:
		path := cfg.GetStorePath()
		b, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("sqlite store %s: %w", path, err)
		}
		return b, nil
	case config.DriverPostgres:
		b, err := postgres.Open(ctx, cfg.GetStoreDSN())
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		return b, nil
	case config.DriverMemory:
		return pointstore.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// OpenStore opens the configured backend and wraps it in a Store. A store
// whose indexes already exist attaches sealed, ready for queries.
func OpenStore(ctx context.Context, cfg *config.Config) (*pointstore.Store, error) {
	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s, err := pointstore.Open(ctx, backend, pointstore.WithBatchSize(cfg.GetBatchSize()))
	if err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}

// ClassifyParams maps the configured thresholds onto classifier params.
func ClassifyParams(cfg *config.Config) classify.Params {
	p := classify.DefaultParams()
	p.HeightThresholdM = cfg.GetGroundHeightThresholdM()
	p.AngleThresholdDeg = cfg.GetGroundAngleThresholdDeg()
	p.HeightMaxM = cfg.GetHeightMaxM()
	return p
}
