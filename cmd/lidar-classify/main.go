// Command lidar-classify runs the ground and top-of-canopy classifiers
// over a sealed point store and writes ground.las and canopy.las.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/lidar-classify/internal/blob"
	"github.com/banshee-data/lidar-classify/internal/config"
	"github.com/banshee-data/lidar-classify/internal/fsutil"
	"github.com/banshee-data/lidar-classify/internal/lidar/classify"
	"github.com/banshee-data/lidar-classify/internal/lidar/output"
	"github.com/banshee-data/lidar-classify/internal/lidar/pipeline"
	"github.com/banshee-data/lidar-classify/internal/monitoring"
	"github.com/banshee-data/lidar-classify/internal/version"
)

var (
	configPath  = flag.String("config", "", "Run configuration file (.json, .yaml)")
	inputDirs   = flag.String("input", "", "Input directories, separated by the OS path list separator (overrides input_dirs)")
	outputLoc   = flag.String("output", "", "Output directory or s3://bucket/prefix (overrides output)")
	ground      = flag.Bool("ground", false, "Run the ground classifier")
	canopy      = flag.Bool("toc", false, "Run the top-of-canopy classifier")
	ingestFirst = flag.Bool("ingest", false, "Load the input files before classifying")
	verbose     = flag.Bool("v", false, "Verbose logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("lidar-classify"))
		return
	}
	monitoring.SetVerbose(*verbose)

	cfg, err := config.Resolve(*configPath, config.Overrides{
		InputDirs: splitDirs(*inputDirs),
		Output:    *outputLoc,
	})
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open point store: %v", err)
	}
	defer store.Close()

	fsys := fsutil.OSFileSystem{}
	if *ingestFirst || cfg.GetStoreDriver() == config.DriverMemory {
		if _, err := pipeline.Ingest(ctx, cfg, store, fsys); err != nil {
			log.Fatalf("ingest: %v", err)
		}
	}

	s3 := cfg.GetS3()
	sink, err := blob.Open(ctx, cfg.GetOutput(), blob.S3Options{
		Region:    s3.Region,
		Endpoint:  s3.Endpoint,
		PathStyle: s3.PathStyle,
	}, fsys)
	if err != nil {
		log.Fatalf("open output %s: %v", cfg.GetOutput(), err)
	}

	outcomes, err := pipeline.Classify(ctx, cfg, store, kinds(*ground, *canopy), output.NewAssembler(fsys, cfg.InputDirs, sink))
	if err != nil {
		log.Fatalf("classify: %v", err)
	}
	for _, o := range outcomes {
		log.Printf("%s: %d points from %d cells -> %s", o.Classifier, o.Output.Points, o.Cells, o.Output.Location)
	}
}

// kinds maps the classifier flags to names; with neither flag set both
// classifiers run.
func kinds(ground, canopy bool) []string {
	if !ground && !canopy {
		return pipeline.Kinds()
	}
	var out []string
	if ground {
		out = append(out, classify.Ground)
	}
	if canopy {
		out = append(out, classify.Canopy)
	}
	return out
}

func splitDirs(s string) []string {
	if s == "" {
		return nil
	}
	return filepath.SplitList(s)
}
