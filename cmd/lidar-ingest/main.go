// Command lidar-ingest loads every LAS file in the input directories into
// the point store and builds its cell indexes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/lidar-classify/internal/config"
	"github.com/banshee-data/lidar-classify/internal/fsutil"
	"github.com/banshee-data/lidar-classify/internal/lidar/pipeline"
	"github.com/banshee-data/lidar-classify/internal/monitoring"
	"github.com/banshee-data/lidar-classify/internal/version"
)

var (
	configPath  = flag.String("config", "", "Run configuration file (.json, .yaml)")
	inputDirs   = flag.String("input", "", "Input directories, separated by the OS path list separator (overrides input_dirs)")
	verbose     = flag.Bool("v", false, "Verbose logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("lidar-ingest"))
		return
	}
	monitoring.SetVerbose(*verbose)

	cfg, err := config.Resolve(*configPath, config.Overrides{InputDirs: splitDirs(*inputDirs)})
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.GetStoreDriver() == config.DriverMemory {
		log.Fatalf("store driver %q does not persist; use lidar-classify -ingest instead", config.DriverMemory)
	}
	store, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open point store: %v", err)
	}
	defer store.Close()

	stats, err := pipeline.Ingest(ctx, cfg, store, fsutil.OSFileSystem{})
	if err != nil {
		log.Fatalf("ingest: %v", err)
	}
	log.Printf("ingested %d points from %d files (run %s)", stats.Points, stats.Files, stats.RunID)
}

func splitDirs(s string) []string {
	if s == "" {
		return nil
	}
	return filepath.SplitList(s)
}
