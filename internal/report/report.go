package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
	"github.com/banshee-data/lidar-classify/internal/monitoring"
	"github.com/banshee-data/lidar-classify/internal/security"
)

const histogramBins = 30

// Generate writes <classifier>_elevation.png, <classifier>_hist.png and
// <classifier>_summary.html into dir and returns the statistics. Empty
// sets produce only the HTML page.
func Generate(dir, classifier string, recs []pointstore.Record, frame Frame) (Summary, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create report directory %s: %w", dir, err)
	}
	s := Summarise(classifier, recs, frame)
	zs := Elevations(recs, frame)
	base := filepath.Join(dir, security.SanitizeFilename(classifier))

	if err := WriteElevationPNG(base+"_elevation.png", classifier+" points", recs, frame); err != nil {
		return s, err
	}
	if err := WriteHistogramPNG(base+"_hist.png", classifier+" elevation", zs, histogramBins); err != nil {
		return s, err
	}

	html, err := RenderSummaryHTML(s, Histogram(zs, histogramBins))
	if err != nil {
		return s, err
	}
	htmlPath := base + "_summary.html"
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return s, fmt.Errorf("write %s: %w", htmlPath, err)
	}

	monitoring.Logf("[report] %s", s)
	return s, nil
}
