package pipeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/banshee-data/lidar-classify/internal/lidar/classify"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
)

// Classifier is a classification stage over a sealed store.
type Classifier interface {
	Run(ctx context.Context, workers int) ([]pointstore.Record, classify.Stats, error)
}

// stageFactories builds each known classifier. The order is the order
// stages run in when several are requested.
var stageFactories = []struct {
	name string
	new  func(ctx context.Context, src classify.Source, p classify.Params) (Classifier, error)
}{
	{classify.Ground, func(ctx context.Context, src classify.Source, p classify.Params) (Classifier, error) {
		return classify.NewGroundClassifier(ctx, src, p)
	}},
	{classify.Canopy, func(ctx context.Context, src classify.Source, p classify.Params) (Classifier, error) {
		return classify.NewCanopyClassifier(ctx, src, p)
	}},
}

// Kinds returns the known classifier names in run order.
func Kinds() []string {
	names := make([]string, len(stageFactories))
	for i, f := range stageFactories {
		names[i] = f.name
	}
	return names
}

// normaliseKinds validates kinds and returns them deduplicated in run
// order.
func normaliseKinds(kinds []string) ([]string, error) {
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no classifier requested (known: %v)", Kinds())
	}
	known := Kinds()
	for _, k := range kinds {
		if !slices.Contains(known, k) {
			return nil, fmt.Errorf("unknown classifier %q (known: %v)", k, known)
		}
	}
	var out []string
	for _, k := range known {
		if slices.Contains(kinds, k) {
			out = append(out, k)
		}
	}
	return out, nil
}

func newStage(ctx context.Context, name string, src classify.Source, p classify.Params) (Classifier, error) {
	for _, f := range stageFactories {
		if f.name == name {
			return f.new(ctx, src, p)
		}
	}
	return nil, fmt.Errorf("unknown classifier %q", name)
}
