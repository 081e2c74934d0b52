package classify

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
)

// PassesHeight reports dz < threshold.
func PassesHeight(dz, threshold float64) bool {
	return dz < threshold
}

// AngleDegrees returns the elevation angle of d above the horizontal
// plane. ok is false when |d| < eps, where the angle is undefined.
func AngleDegrees(d r3.Vec, eps float64) (deg float64, ok bool) {
	hyp := r3.Norm(d)
	if hyp < eps {
		return 0, false
	}
	return math.Asin(d.Z/hyp) * 180 / math.Pi, true
}

// PassesAngle reports whether the elevation angle of d is strictly below
// threshold. A degenerate d fails.
func PassesAngle(d r3.Vec, threshold, eps float64) bool {
	deg, ok := AngleDegrees(d, eps)
	return ok && deg < threshold
}

// Delta returns the metric offset from seed to p. Raw differences are
// taken in int64 before scaling.
func Delta(seed, p pointstore.Point, scale cellhash.Scale) r3.Vec {
	return r3.Vec{
		X: float64(int64(p.X)-int64(seed.X)) * scale.X,
		Y: float64(int64(p.Y)-int64(seed.Y)) * scale.Y,
		Z: float64(int64(p.Z)-int64(seed.Z)) * scale.Z,
	}
}

// GroundFilter reports whether p joins seed's ground set.
func GroundFilter(seed, p pointstore.Point, scale cellhash.Scale, params Params) bool {
	d := Delta(seed, p, scale)
	return PassesHeight(d.Z, params.HeightThresholdM) &&
		PassesAngle(d, params.AngleThresholdDeg, params.Epsilon)
}
