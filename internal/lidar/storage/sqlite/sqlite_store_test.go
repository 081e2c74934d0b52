package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore/pointstoretest"
)

func openTestStore(t *testing.T) pointstore.Backend {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "points.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteBackend(t *testing.T) {
	pointstoretest.RunBackendSuite(t, openTestStore)
}

func TestOpen_CreatesSchemaWithoutIndexes(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "points.db"))
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.DB().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('points', 'source_files')",
	).Scan(&n))
	assert.Equal(t, 2, n)

	indexed, err := s.Indexed(ctx)
	require.NoError(t, err)
	assert.False(t, indexed)

	require.NoError(t, s.BuildIndexes(ctx))
	indexed, err = s.Indexed(ctx)
	require.NoError(t, err)
	assert.True(t, indexed)

	// Building twice is harmless.
	require.NoError(t, s.BuildIndexes(ctx))
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "points.db")

	s, err := Open(path)
	require.NoError(t, err)
	pointstoretest.Load(t, s, true)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	store, err := pointstore.Open(ctx, s)
	require.NoError(t, err)
	assert.True(t, store.Sealed())
	srcs, err := store.Sources(ctx)
	require.NoError(t, err)
	assert.Len(t, srcs, 2)
}

func TestDSN_CarriesPragmas(t *testing.T) {
	dsn := DSN("/tmp/x.db")
	assert.Contains(t, dsn, "file:/tmp/x.db?")
	assert.Contains(t, dsn, "journal_mode%28WAL%29")
	assert.Contains(t, dsn, "busy_timeout%285000%29")
}
