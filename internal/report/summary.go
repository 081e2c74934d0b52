// Package report renders per-run charts and statistics for classified
// point sets: PNG plots via gonum/plot and an HTML page via go-echarts.
package report

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/las"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
)

// Summary holds elevation statistics of one output, in metres.
type Summary struct {
	Classifier string
	Count      int
	MinZ       float64
	MaxZ       float64
	MeanZ      float64
	StdDevZ    float64
	P50Z       float64
	P95Z       float64
}

func (s Summary) String() string {
	if s.Count == 0 {
		return fmt.Sprintf("%s: no points", s.Classifier)
	}
	return fmt.Sprintf("%s: %d points, z min %.2f / mean %.2f / max %.2f m, p50 %.2f, p95 %.2f",
		s.Classifier, s.Count, s.MinZ, s.MeanZ, s.MaxZ, s.P50Z, s.P95Z)
}

// Frame converts raw coordinates to metres.
type Frame struct {
	Scale  cellhash.Scale
	Offset las.Vec3
}

func (f Frame) x(r pointstore.Record) float64 { return float64(r.X)*f.Scale.X + f.Offset.X }
func (f Frame) y(r pointstore.Record) float64 { return float64(r.Y)*f.Scale.Y + f.Offset.Y }
func (f Frame) z(r pointstore.Record) float64 { return float64(r.Z)*f.Scale.Z + f.Offset.Z }

// Elevations returns the metric Z of recs, sorted ascending.
func Elevations(recs []pointstore.Record, frame Frame) []float64 {
	zs := make([]float64, len(recs))
	for i, r := range recs {
		zs[i] = frame.z(r)
	}
	slices.Sort(zs)
	return zs
}

// Summarise computes elevation statistics of recs.
func Summarise(classifier string, recs []pointstore.Record, frame Frame) Summary {
	s := Summary{Classifier: classifier, Count: len(recs)}
	if len(recs) == 0 {
		return s
	}
	zs := Elevations(recs, frame)
	s.MinZ = floats.Min(zs)
	s.MaxZ = floats.Max(zs)
	s.MeanZ, s.StdDevZ = stat.MeanStdDev(zs, nil)
	if math.IsNaN(s.StdDevZ) {
		s.StdDevZ = 0
	}
	s.P50Z = stat.Quantile(0.5, stat.Empirical, zs, nil)
	s.P95Z = stat.Quantile(0.95, stat.Empirical, zs, nil)
	return s
}

// Bin is one histogram bucket over [Lo, Hi).
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Histogram buckets sorted values into n equal-width bins spanning their
// range.
func Histogram(sorted []float64, n int) []Bin {
	if len(sorted) == 0 || n < 1 {
		return nil
	}
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(sorted)}}
	}
	dividers := make([]float64, n+1)
	floats.Span(dividers, lo, hi)
	// stat.Histogram needs every value strictly below the last divider.
	dividers[n] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{Lo: dividers[i], Hi: dividers[i+1], Count: int(counts[i])}
	}
	return bins
}
