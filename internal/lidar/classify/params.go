package classify

import (
	"context"
	"fmt"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
)

// Classifier names used in logs, metrics and output file names.
const (
	Ground = "ground"
	Canopy = "canopy"
)

// Params holds the classifier thresholds.
type Params struct {
	// HeightThresholdM is the strict upper bound on a ground candidate's
	// rise above the seed, in metres.
	HeightThresholdM float64
	// AngleThresholdDeg is the strict upper bound on the elevation angle
	// from the seed to a ground candidate.
	AngleThresholdDeg float64
	// Epsilon is the seed distance below which the angle is undefined and
	// the candidate is rejected.
	Epsilon float64
	// HeightMaxM is the canopy ceiling above the 10m cell's lowest return.
	HeightMaxM float64
}

// DefaultParams returns the stock thresholds.
func DefaultParams() Params {
	return Params{
		HeightThresholdM:  1.5,
		AngleThresholdDeg: 5.5,
		Epsilon:           1e-9,
		HeightMaxM:        20,
	}
}

// Validate rejects thresholds that would make a filter meaningless.
func (p Params) Validate() error {
	if p.HeightThresholdM <= 0 {
		return fmt.Errorf("classify: height threshold must be positive, got %f", p.HeightThresholdM)
	}
	if p.AngleThresholdDeg <= 0 || p.AngleThresholdDeg > 90 {
		return fmt.Errorf("classify: angle threshold must be in (0, 90], got %f", p.AngleThresholdDeg)
	}
	if p.Epsilon < 0 {
		return fmt.Errorf("classify: epsilon must be non-negative, got %g", p.Epsilon)
	}
	if p.HeightMaxM <= 0 {
		return fmt.Errorf("classify: canopy height ceiling must be positive, got %f", p.HeightMaxM)
	}
	return nil
}

// Source is the sealed store surface the classifiers read.
type Source interface {
	pointstore.Query
	Scale() (cellhash.Scale, error)
}

// Stats summarises one classifier run.
type Stats struct {
	Cells   int
	Skipped int
	Emitted int
}

func sourceScale(ctx context.Context, src Source) (cellhash.Scale, error) {
	if err := ctx.Err(); err != nil {
		return cellhash.Scale{}, err
	}
	scale, err := src.Scale()
	if err != nil {
		return cellhash.Scale{}, fmt.Errorf("read store scale: %w", err)
	}
	if scale.X <= 0 || scale.Y <= 0 || scale.Z <= 0 {
		return cellhash.Scale{}, fmt.Errorf("classify: invalid store scale %+v", scale)
	}
	return scale, nil
}
