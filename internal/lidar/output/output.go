// Package output re-encodes classified record sets as LAS files shaped
// like the first input file.
package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/lidar-classify/internal/blob"
	"github.com/banshee-data/lidar-classify/internal/fsutil"
	"github.com/banshee-data/lidar-classify/internal/lidar/las"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
	"github.com/banshee-data/lidar-classify/internal/monitoring"
	"github.com/banshee-data/lidar-classify/internal/timeutil"
	"github.com/banshee-data/lidar-classify/internal/version"
)

// ErrNoReference means no input file is available to copy the output
// header from. It is independent of any store failure.
var ErrNoReference = errors.New("output: no reference LAS file in the first input directory")

// FileName returns the output object name for a classifier.
func FileName(classifier string) string { return classifier + ".las" }

// Result describes one published output.
type Result struct {
	Location string
	Points   int
	Bytes    int
}

// Assembler builds output files from the reference header and publishes
// them to a blob store.
type Assembler struct {
	fsys      fsutil.FileSystem
	inputDirs []string
	sink      blob.Store
	clock     timeutil.Clock
	newID     func() uuid.UUID
}

// NewAssembler returns an Assembler reading reference headers from the
// first of inputDirs.
func NewAssembler(fsys fsutil.FileSystem, inputDirs []string, sink blob.Store) *Assembler {
	return &Assembler{
		fsys:      fsys,
		inputDirs: inputDirs,
		sink:      sink,
		clock:     timeutil.RealClock{},
		newID:     uuid.New,
	}
}

// WithClock sets the clock that stamps the output creation date.
func (a *Assembler) WithClock(c timeutil.Clock) *Assembler {
	a.clock = c
	return a
}

// Reference loads the header of the first LAS file in the first input
// directory.
func (a *Assembler) Reference() (*las.Header, string, error) {
	if len(a.inputDirs) == 0 {
		return nil, "", ErrNoReference
	}
	paths, err := las.Discover(a.fsys, a.inputDirs[:1])
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNoReference, err)
	}
	if len(paths) == 0 {
		return nil, "", fmt.Errorf("%w: %s has no .las files", ErrNoReference, a.inputDirs[0])
	}
	path := paths[0]

	f, err := a.fsys.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: open %s: %v", ErrNoReference, path, err)
	}
	defer f.Close()
	h, err := las.ReadHeader(f)
	if err != nil {
		return nil, "", fmt.Errorf("%w: read %s: %v", ErrNoReference, path, err)
	}
	return h, path, nil
}

// Encode renders recs as a complete LAS file in memory.
func (a *Assembler) Encode(ref *las.Header, recs []pointstore.Record) ([]byte, error) {
	pts := make([]las.Point, len(recs))
	for i := range recs {
		pts[i] = recs[i].LAS()
	}
	var buf bytes.Buffer
	err := las.Encode(&buf, ref, pts, las.EncodeOptions{
		ProjectID:          [16]byte(a.newID()),
		GeneratingSoftware: "lidar-classify " + version.Version,
		Created:            a.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	return buf.Bytes(), nil
}

// Write encodes recs and publishes them as FileName(classifier). Nothing
// is published unless the whole file encodes.
func (a *Assembler) Write(ctx context.Context, classifier string, recs []pointstore.Record) (Result, error) {
	ref, refPath, err := a.Reference()
	if err != nil {
		return Result{}, err
	}
	data, err := a.Encode(ref, recs)
	if err != nil {
		return Result{}, err
	}
	name := FileName(classifier)
	if err := a.sink.Put(ctx, name, data); err != nil {
		return Result{}, fmt.Errorf("publish %s: %w", name, err)
	}
	res := Result{Location: a.sink.Location(name), Points: len(recs), Bytes: len(data)}
	monitoring.Logf("[%s] wrote %d points to %s (header from %s)", classifier, res.Points, res.Location, refPath)
	return res, nil
}
