package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/lidar-classify/internal/config"
	"github.com/banshee-data/lidar-classify/internal/lidar/output"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
	"github.com/banshee-data/lidar-classify/internal/monitoring"
	"github.com/banshee-data/lidar-classify/internal/report"
)

// Outcome reports one classifier's run and published output.
type Outcome struct {
	Classifier string
	Cells      int
	Skipped    int
	Output     output.Result
	Summary    *report.Summary
}

// Classify runs the requested classifiers over a sealed store and
// publishes their outputs through asm. Every requested classifier must
// finish before anything is published; a failed or cancelled run
// publishes nothing.
func Classify(ctx context.Context, cfg *config.Config, store *pointstore.Store, kinds []string, asm *output.Assembler) ([]Outcome, error) {
	kinds, err := normaliseKinds(kinds)
	if err != nil {
		return nil, err
	}
	if !store.Sealed() {
		return nil, fmt.Errorf("classify: %w (run ingest first)", pointstore.ErrNotIndexed)
	}
	// Fail before any classification work if there is no output template.
	_, refPath, err := asm.Reference()
	if err != nil {
		return nil, err
	}
	monitoring.Debugf("[classify] output header template %s", refPath)

	params := ClassifyParams(cfg)
	workers := cfg.GetWorkers()
	outcomes := make([]Outcome, 0, len(kinds))
	results := make([][]pointstore.Record, 0, len(kinds))
	for _, kind := range kinds {
		stage, err := newStage(ctx, kind, store, params)
		if err != nil {
			return nil, err
		}
		recs, stats, err := stage.Run(ctx, workers)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, Outcome{Classifier: kind, Cells: stats.Cells, Skipped: stats.Skipped})
		results = append(results, recs)
	}

	publishStart := time.Now()
	for i := range outcomes {
		res, err := asm.Write(ctx, outcomes[i].Classifier, results[i])
		if err != nil {
			return nil, err
		}
		outcomes[i].Output = res
	}
	monitoring.ObservePhase("publish", time.Since(publishStart))

	if dir := cfg.GetReportDir(); dir != "" {
		frame, err := reportFrame(ctx, store)
		if err != nil {
			return nil, err
		}
		for i := range outcomes {
			s, err := report.Generate(dir, outcomes[i].Classifier, results[i], frame)
			if err != nil {
				return nil, fmt.Errorf("report %s: %w", outcomes[i].Classifier, err)
			}
			outcomes[i].Summary = &s
		}
		monitoring.Logf("[classify] reports written to %s", filepath.Clean(dir))
	}

	if err := monitoring.WriteTextfile(cfg.GetMetricsTextfile()); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// reportFrame places report coordinates in the first source file's
// frame, which is also the frame of the output header.
func reportFrame(ctx context.Context, store *pointstore.Store) (report.Frame, error) {
	scale, err := store.Scale()
	if err != nil {
		return report.Frame{}, err
	}
	sources, err := store.Sources(ctx)
	if err != nil {
		return report.Frame{}, fmt.Errorf("list sources: %w", err)
	}
	frame := report.Frame{Scale: scale}
	if len(sources) > 0 {
		frame.Offset = sources[0].Offset
	}
	return frame, nil
}
