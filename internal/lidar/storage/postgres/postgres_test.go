package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore/pointstoretest"
)

const dsnEnv = "LIDAR_TEST_POSTGRES_DSN"

func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	return dsn
}

func TestPostgresBackend(t *testing.T) {
	dsn := testDSN(t)
	pointstoretest.RunBackendSuite(t, func(t *testing.T) pointstore.Backend {
		s, err := Open(context.Background(), dsn)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.ErrorIs(t, err, errNoDSN)
}

func TestDialect_UsesDollarPlaceholders(t *testing.T) {
	assert.True(t, Dialect.DollarPlaceholders)
	assert.Contains(t, Dialect.IndexCatalog, "pg_indexes")
}
