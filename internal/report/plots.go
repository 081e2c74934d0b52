package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
)

// maxPlotPoints caps the points drawn in a scatter; larger sets are
// strided.
const maxPlotPoints = 50000

var bandColors = []color.Color{
	color.RGBA{R: 0x44, G: 0x01, B: 0x54, A: 0xff},
	color.RGBA{R: 0x3e, G: 0x49, B: 0x89, A: 0xff},
	color.RGBA{R: 0x26, G: 0x82, B: 0x8e, A: 0xff},
	color.RGBA{R: 0x35, G: 0xb7, B: 0x79, A: 0xff},
	color.RGBA{R: 0xfd, G: 0xe7, B: 0x25, A: 0xff},
}

// WriteElevationPNG plots the plan view of recs coloured by height band.
func WriteElevationPNG(path, title string, recs []pointstore.Record, frame Frame) error {
	if len(recs) == 0 {
		return nil
	}
	stride := 1
	if len(recs) > maxPlotPoints {
		stride = len(recs)/maxPlotPoints + 1
	}

	zs := Elevations(recs, frame)
	lo, hi := zs[0], zs[len(zs)-1]
	nb := len(bandColors)
	band := func(z float64) int {
		if hi == lo {
			return 0
		}
		b := int(float64(nb) * (z - lo) / (hi - lo))
		return min(b, nb-1)
	}

	bands := make([]plotter.XYs, nb)
	for i := 0; i < len(recs); i += stride {
		r := recs[i]
		b := band(frame.z(r))
		bands[b] = append(bands[b], plotter.XY{X: frame.x(r), Y: frame.y(r)})
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Easting (m)"
	p.Y.Label.Text = "Northing (m)"

	width := (hi - lo) / float64(nb)
	for i, pts := range bands {
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = bandColors[i]
		s.GlyphStyle.Radius = vg.Points(1)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("%.1f-%.1f m", lo+float64(i)*width, lo+float64(i+1)*width), s)
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// WriteHistogramPNG plots the elevation distribution.
func WriteHistogramPNG(path, title string, sorted []float64, bins int) error {
	if len(sorted) == 0 {
		return nil
	}
	h, err := plotter.NewHist(plotter.Values(sorted), bins)
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Elevation (m)"
	p.Y.Label.Text = "Points"
	p.Add(h)

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
