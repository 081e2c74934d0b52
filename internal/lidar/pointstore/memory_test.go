package pointstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore/pointstoretest"
)

func TestMemoryBackend(t *testing.T) {
	pointstoretest.RunBackendSuite(t, func(t *testing.T) pointstore.Backend {
		return pointstore.NewMemoryBackend()
	})
}

func TestMemoryBackend_QueriesRequireIndex(t *testing.T) {
	ctx := context.Background()
	m := pointstore.NewMemoryBackend()
	_, err := m.MinZPerCell(ctx, cellhash.Res10, false)
	assert.ErrorIs(t, err, pointstore.ErrNotIndexed)
	_, err = m.RecordsBelow(ctx, cellhash.Res1, "x", 0)
	assert.ErrorIs(t, err, pointstore.ErrNotIndexed)
}

func TestMemoryBackend_InsertInvalidatesIndex(t *testing.T) {
	ctx := context.Background()
	m := pointstore.NewMemoryBackend()
	require.NoError(t, m.BuildIndexes(ctx))
	ok, err := m.Indexed(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, m.InsertBatch(ctx, []pointstore.Record{{Filename: "a.las"}}))
	ok, err = m.Indexed(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryBackend_DuplicatePointsKept(t *testing.T) {
	ctx := context.Background()
	s := pointstore.New(pointstore.NewMemoryBackend())
	require.NoError(t, s.BeginFile(ctx, "a.las", "r", pointstoretest.Scale, pointstoretest.Offset))
	p := pointstore.Point{X: 10, Y: 10, Z: 5, ReturnNumber: 1, NumReturns: 1}
	require.NoError(t, s.Append(ctx, p))
	require.NoError(t, s.Append(ctx, p))
	_, err := s.EndFile(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Seal(ctx))

	got, err := s.RecordsAtZ(ctx, cellhash.Res1, cellhash.CellKey(10, 10, pointstoretest.Scale, cellhash.Res1), 5)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
