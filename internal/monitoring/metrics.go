package monitoring

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	classifierLabel = "classifier"
	phaseLabel      = "phase"
)

// Registry collects the run metrics. It is separate from the default
// registry so batch runs export only their own series.
var Registry = prometheus.NewRegistry()

var (
	pointsIngested = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "lidar_points_ingested_total",
		Help: "The number of point records loaded into the store.",
	})

	filesIngested = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "lidar_files_ingested_total",
		Help: "The number of input files loaded into the store.",
	})

	cellsClassified = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "lidar_cells_classified_total",
		Help: "The number of grid cells processed by a classifier.",
	}, []string{classifierLabel})

	pointsEmitted = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "lidar_points_emitted_total",
		Help: "The number of classified records emitted by a classifier.",
	}, []string{classifierLabel})

	phaseDuration = promauto.With(Registry).NewGaugeVec(prometheus.GaugeOpts{
		Name: "lidar_phase_duration_seconds",
		Help: "Wall-clock duration of the last run of each phase.",
	}, []string{phaseLabel})
)

// CountIngestedFile records one loaded input file and its points.
func CountIngestedFile(points int64) {
	filesIngested.Inc()
	pointsIngested.Add(float64(points))
}

// CountCells records cells processed by classifier.
func CountCells(classifier string, n int) {
	cellsClassified.
		With(prometheus.Labels{classifierLabel: classifier}).
		Add(float64(n))
}

// CountEmitted records records emitted by classifier.
func CountEmitted(classifier string, n int) {
	pointsEmitted.
		With(prometheus.Labels{classifierLabel: classifier}).
		Add(float64(n))
}

// ObservePhase sets the duration of phase and logs it.
func ObservePhase(phase string, d time.Duration) {
	phaseDuration.
		With(prometheus.Labels{phaseLabel: phase}).
		Set(d.Seconds())
	Logf("[%s] finished in %s", phase, d.Round(time.Millisecond))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
