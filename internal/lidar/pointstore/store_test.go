package pointstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/las"
	"github.com/banshee-data/lidar-classify/internal/timeutil"
)

var unitScale = cellhash.Scale{X: 1, Y: 1, Z: 1}

func TestStore_AppendWithoutFile(t *testing.T) {
	s := New(NewMemoryBackend())
	assert.ErrorIs(t, s.Append(context.Background(), Point{}), ErrNoOpenFile)
	_, err := s.EndFile(context.Background())
	assert.ErrorIs(t, err, ErrNoOpenFile)
}

func TestStore_BeginFileWhileOpen(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())
	require.NoError(t, s.BeginFile(ctx, "a.las", "r", unitScale, las.Vec3{}))
	assert.Error(t, s.BeginFile(ctx, "b.las", "r", unitScale, las.Vec3{}))
	assert.Error(t, s.Seal(ctx), "seal must refuse while a file is open")
}

func TestStore_BatchesFlushAtSize(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend()
	s := New(m, WithBatchSize(3))
	require.NoError(t, s.BeginFile(ctx, "a.las", "r", unitScale, las.Vec3{}))
	for i := 0; i < 7; i++ {
		require.NoError(t, s.Append(ctx, Point{X: int32(i)}))
	}
	assert.Equal(t, 6, m.Len())
	assert.Equal(t, int64(6), s.Appended())

	_, err := s.EndFile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, m.Len())
}

func TestStore_KeysComputedFromFileScale(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())
	scale := cellhash.Scale{X: 0.5, Y: 0.5, Z: 0.01}
	require.NoError(t, s.BeginFile(ctx, "a.las", "r", scale, las.Vec3{}))
	require.NoError(t, s.Append(ctx, Point{X: -1, Y: 3, ReturnNumber: 1, NumReturns: 1}))
	_, err := s.EndFile(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Seal(ctx))

	recs, err := s.RecordsInCell(ctx, cellhash.Res1, cellhash.KeyForIndex(-1, 1), false)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, cellhash.Keys(-1, 3, scale), recs[0].Keys)
}

func TestStore_SealIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())
	require.NoError(t, s.Seal(ctx))
	require.NoError(t, s.Seal(ctx))
	assert.True(t, s.Sealed())
}

func TestStore_InvalidResolution(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryBackend())
	require.NoError(t, s.Seal(ctx))
	_, err := s.MinZPerCell(ctx, cellhash.Resolution(3), false)
	assert.Error(t, err)
}

func TestRecord_ClassifiedCopiesLeaveOriginal(t *testing.T) {
	r := Record{Filename: "a.las", Point: Point{Classification: 9}}
	assert.Equal(t, ClassGround, r.AsGround().Classification)
	assert.Equal(t, ClassCanopyTop, r.AsCanopyTop().Classification)
	assert.Equal(t, uint8(9), r.Classification)
}

func TestPoint_LASRoundTrip(t *testing.T) {
	lp := las.Point{X: 1, Y: 2, Z: 3, FlagByte: las.FlagByteFor(2, 3), GPSTime: 1.25}
	p := PointFromLAS(lp)
	assert.Equal(t, uint8(2), p.ReturnNumber)
	assert.Equal(t, uint8(3), p.NumReturns)
	assert.False(t, p.IsSingleReturn())
	assert.Equal(t, lp, p.LAS())
}

func TestStore_EndFileStampsIngestTime(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 11, 5, 9, 30, 0, 0, time.FixedZone("NZDT", 13*3600))
	s := New(NewMemoryBackend(), WithClock(timeutil.NewMockClock(at)))
	require.NoError(t, s.BeginFile(ctx, "a.las", "r", unitScale, las.Vec3{}))
	src, err := s.EndFile(ctx)
	require.NoError(t, err)
	assert.True(t, src.IngestedAt.Equal(at))
	assert.Equal(t, time.UTC, src.IngestedAt.Location())
}
