// Package pointstoretest holds the behaviour shared by every
// pointstore.Backend, run against each implementation from its own tests.
package pointstoretest

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/las"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
)

// Scale is the scale of every fixture file.
var Scale = cellhash.Scale{X: 0.01, Y: 0.01, Z: 0.01}

// Offset is the offset of every fixture file.
var Offset = las.Vec3{X: 100, Y: 200, Z: 0}

func pt(x, y, z int32, rn, nr uint8, gps float64) pointstore.Point {
	return pointstore.Point{
		X: x, Y: y, Z: z,
		Intensity:     uint16(z),
		FlagByte:      las.FlagByteFor(rn, nr),
		ScanAngleRank: -3,
		UserData:      7,
		PointSourceID: 11,
		GPSTime:       gps,
		ReturnNumber:  rn,
		NumReturns:    nr,
	}
}

// FixtureFiles returns the points of the two fixture files, "a.las" and
// "b.las", in ingestion order.
//
// At 1m: cell (1,1) holds a.las; (15,1) and (-1,1) hold b.las.
func FixtureFiles() (a, b []pointstore.Point) {
	a = []pointstore.Point{
		pt(150, 150, 500, 1, 1, 1.5),
		pt(160, 160, 300, 1, 2, 2.25),
		pt(170, 120, 400, 2, 2, 2.25),
		pt(120, 180, 400, 1, 1, 3),
	}
	b = []pointstore.Point{
		pt(1550, 150, 200, 1, 1, 4),
		pt(-50, 150, 900, 1, 1, 5),
	}
	return a, b
}

func key(ix, iy int64) cellhash.Key { return cellhash.KeyForIndex(ix, iy) }

// Load ingests the fixture files into a fresh Store over backend, sealing
// it when seal is true.
func Load(t *testing.T, backend pointstore.Backend, seal bool) *pointstore.Store {
	t.Helper()
	ctx := context.Background()
	s := pointstore.New(backend, pointstore.WithBatchSize(2))
	require.NoError(t, s.Reset(ctx))

	a, b := FixtureFiles()
	for _, f := range []struct {
		name string
		pts  []pointstore.Point
	}{{"a.las", a}, {"b.las", b}} {
		require.NoError(t, s.BeginFile(ctx, f.name, "run-1", Scale, Offset))
		for _, p := range f.pts {
			require.NoError(t, s.Append(ctx, p))
		}
		src, err := s.EndFile(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(len(f.pts)), src.PointCount)
	}
	if seal {
		require.NoError(t, s.Seal(ctx))
	}
	return s
}

func records(filename string, pts ...pointstore.Point) []pointstore.Record {
	out := make([]pointstore.Record, len(pts))
	for i, p := range pts {
		out[i] = pointstore.Record{Filename: filename, Keys: cellhash.Keys(p.X, p.Y, Scale), Point: p}
	}
	return out
}

// RunBackendSuite exercises a Backend through Store. open must return an
// empty-or-resettable backend each time it is called.
func RunBackendSuite(t *testing.T, open func(t *testing.T) pointstore.Backend) {
	ctx := context.Background()
	a, b := FixtureFiles()

	t.Run("queries before seal are refused", func(t *testing.T) {
		s := Load(t, open(t), false)
		_, err := s.MinZPerCell(ctx, cellhash.Res10, true)
		assert.ErrorIs(t, err, pointstore.ErrNotIndexed)
		_, err = s.RecordsInCell(ctx, cellhash.Res1, key(1, 1), false)
		assert.ErrorIs(t, err, pointstore.ErrNotIndexed)
		_, err = s.RecordsAtZ(ctx, cellhash.Res1, key(1, 1), 400)
		assert.ErrorIs(t, err, pointstore.ErrNotIndexed)
		_, err = s.RecordsBelow(ctx, cellhash.Res1, key(1, 1), 1000)
		assert.ErrorIs(t, err, pointstore.ErrNotIndexed)
		_, err = s.ParentCellMap(ctx, cellhash.Res1, cellhash.Res10)
		assert.ErrorIs(t, err, pointstore.ErrNotIndexed)
	})

	t.Run("writes after seal are refused", func(t *testing.T) {
		s := Load(t, open(t), true)
		assert.ErrorIs(t, s.BeginFile(ctx, "c.las", "run-2", Scale, Offset), pointstore.ErrSealed)
		assert.ErrorIs(t, s.Append(ctx, a[0]), pointstore.ErrSealed)
	})

	t.Run("min z per cell", func(t *testing.T) {
		s := Load(t, open(t), true)

		got, err := s.MinZPerCell(ctx, cellhash.Res1, true)
		require.NoError(t, err)
		assert.Equal(t, map[cellhash.Key]int32{key(1, 1): 400, key(15, 1): 200, key(-1, 1): 900}, got)

		got, err = s.MinZPerCell(ctx, cellhash.Res1, false)
		require.NoError(t, err)
		assert.Equal(t, int32(300), got[key(1, 1)])

		got, err = s.MinZPerCell(ctx, cellhash.Res10, true)
		require.NoError(t, err)
		assert.Equal(t, map[cellhash.Key]int32{key(0, 0): 400, key(1, 0): 200, key(-1, 0): 900}, got)
	})

	t.Run("records at z keep storage order", func(t *testing.T) {
		s := Load(t, open(t), true)
		got, err := s.RecordsAtZ(ctx, cellhash.Res1, key(1, 1), 400)
		require.NoError(t, err)
		if diff := cmp.Diff(records("a.las", a[2], a[3]), got); diff != "" {
			t.Errorf("RecordsAtZ mismatch (-want +got):\n%s", diff)
		}

		got, err = s.RecordsAtZ(ctx, cellhash.Res1, key(1, 1), 401)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("records in cell", func(t *testing.T) {
		s := Load(t, open(t), true)
		got, err := s.RecordsInCell(ctx, cellhash.Res1, key(1, 1), true)
		require.NoError(t, err)
		if diff := cmp.Diff(records("a.las", a[0], a[2], a[3]), got); diff != "" {
			t.Errorf("single returns mismatch (-want +got):\n%s", diff)
		}

		got, err = s.RecordsInCell(ctx, cellhash.Res1, key(1, 1), false)
		require.NoError(t, err)
		if diff := cmp.Diff(records("a.las", a...), got); diff != "" {
			t.Errorf("all returns mismatch (-want +got):\n%s", diff)
		}

		got, err = s.RecordsInCell(ctx, cellhash.Res10, key(0, 0), false)
		require.NoError(t, err)
		assert.Len(t, got, 4)

		got, err = s.RecordsInCell(ctx, cellhash.Res5, key(99, 99), false)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("records below is strict and includes every return", func(t *testing.T) {
		s := Load(t, open(t), true)

		got, err := s.RecordsBelow(ctx, cellhash.Res1, key(1, 1), 400)
		require.NoError(t, err)
		if diff := cmp.Diff(records("a.las", a[1]), got); diff != "" {
			t.Errorf("below 400 mismatch (-want +got):\n%s", diff)
		}

		got, err = s.RecordsBelow(ctx, cellhash.Res1, key(1, 1), 400.5)
		require.NoError(t, err)
		if diff := cmp.Diff(records("a.las", a[1], a[2], a[3]), got); diff != "" {
			t.Errorf("below 400.5 mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("parent cell map", func(t *testing.T) {
		s := Load(t, open(t), true)
		got, err := s.ParentCellMap(ctx, cellhash.Res1, cellhash.Res10)
		require.NoError(t, err)
		assert.Equal(t, map[cellhash.Key]cellhash.Key{
			key(1, 1):  key(0, 0),
			key(15, 1): key(1, 0),
			key(-1, 1): key(-1, 0),
		}, got)

		_, err = s.ParentCellMap(ctx, cellhash.Res10, cellhash.Res1)
		assert.Error(t, err)
	})

	t.Run("sources", func(t *testing.T) {
		s := Load(t, open(t), true)
		got, err := s.Sources(ctx)
		require.NoError(t, err)
		want := []pointstore.SourceFile{
			{Filename: "a.las", RunID: "run-1", PointCount: int64(len(a)), Scale: Scale, Offset: Offset},
			{Filename: "b.las", RunID: "run-1", PointCount: int64(len(b)), Scale: Scale, Offset: Offset},
		}
		if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(pointstore.SourceFile{}, "IngestedAt")); diff != "" {
			t.Errorf("Sources mismatch (-want +got):\n%s", diff)
		}
		for _, src := range got {
			assert.False(t, src.IngestedAt.IsZero())
		}
	})

	t.Run("scale mismatch rejected", func(t *testing.T) {
		s := pointstore.New(open(t))
		require.NoError(t, s.Reset(ctx))
		require.NoError(t, s.BeginFile(ctx, "a.las", "run-1", Scale, Offset))
		_, err := s.EndFile(ctx)
		require.NoError(t, err)
		err = s.BeginFile(ctx, "b.las", "run-1", cellhash.Scale{X: 0.001, Y: 0.01, Z: 0.01}, Offset)
		assert.ErrorIs(t, err, pointstore.ErrScaleMismatch)
	})

	t.Run("reopen attaches sealed", func(t *testing.T) {
		backend := open(t)
		Load(t, backend, true)
		s, err := pointstore.Open(ctx, backend)
		require.NoError(t, err)
		assert.True(t, s.Sealed())
		sc, err := s.Scale()
		require.NoError(t, err)
		assert.Equal(t, Scale, sc)
	})

	t.Run("reset returns to loading", func(t *testing.T) {
		backend := open(t)
		s := Load(t, backend, true)
		require.NoError(t, s.Reset(ctx))
		assert.False(t, s.Sealed())
		_, err := s.MinZPerCell(ctx, cellhash.Res1, true)
		assert.ErrorIs(t, err, pointstore.ErrNotIndexed)
		_, err = s.Scale()
		assert.ErrorIs(t, err, pointstore.ErrEmpty)

		require.NoError(t, s.Seal(ctx))
		got, err := s.MinZPerCell(ctx, cellhash.Res1, true)
		require.NoError(t, err)
		assert.Empty(t, got)
		srcs, err := s.Sources(ctx)
		require.NoError(t, err)
		assert.Empty(t, srcs)
	})
}
