// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/lidar-classify/internal/lidar/las"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// MillimetreScale is the scale used by most fixtures.
var MillimetreScale = las.Vec3{X: 0.001, Y: 0.001, Z: 0.001}

// LASFixture describes a synthetic input file.
type LASFixture struct {
	Format uint8
	Scale  las.Vec3
	Offset las.Vec3
	Points []las.Point
}

// Bytes encodes the fixture as a LAS file.
func (f LASFixture) Bytes(t testing.TB) []byte {
	t.Helper()
	scale := f.Scale
	if scale == (las.Vec3{}) {
		scale = MillimetreScale
	}
	h, err := las.NewHeader(f.Format, scale, f.Offset)
	AssertNoError(t, err)

	var buf bytes.Buffer
	AssertNoError(t, las.Encode(&buf, h, f.Points, las.EncodeOptions{
		GeneratingSoftware: "fixture",
		Created:            time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}))
	return buf.Bytes()
}

// FileWriter is satisfied by fsutil.MemoryFileSystem.
type FileWriter interface {
	WriteFile(name string, data []byte)
}

// WriteLAS stores the fixture at path in an in-memory filesystem.
func WriteLAS(t testing.TB, fsys FileWriter, path string, f LASFixture) {
	t.Helper()
	fsys.WriteFile(path, f.Bytes(t))
}

// WriteLASFile writes the fixture to dir/name on disk and returns the path.
func WriteLASFile(t testing.TB, dir, name string, f LASFixture) string {
	t.Helper()
	path := filepath.Join(dir, name)
	AssertNoError(t, os.WriteFile(path, f.Bytes(t), 0o644))
	return path
}

// Single returns a last-of-one return at the given raw position.
func Single(x, y, z int32) las.Point {
	return las.Point{X: x, Y: y, Z: z, FlagByte: las.FlagByteFor(1, 1)}
}

// Return returns return rn of nr at the given raw position.
func Return(x, y, z int32, rn, nr uint8) las.Point {
	return las.Point{X: x, Y: y, Z: z, FlagByte: las.FlagByteFor(rn, nr)}
}
