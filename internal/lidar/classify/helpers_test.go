package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/las"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
)

var mmScale = cellhash.Scale{X: 0.001, Y: 0.001, Z: 0.001}

func single(x, y, z int32) pointstore.Point {
	return pointstore.Point{X: x, Y: y, Z: z, ReturnNumber: 1, NumReturns: 1, FlagByte: las.FlagByteFor(1, 1)}
}

func firstOfTwo(x, y, z int32) pointstore.Point {
	return pointstore.Point{X: x, Y: y, Z: z, ReturnNumber: 1, NumReturns: 2, FlagByte: las.FlagByteFor(1, 2)}
}

func sealedStore(t *testing.T, scale cellhash.Scale, pts ...pointstore.Point) *pointstore.Store {
	t.Helper()
	ctx := context.Background()
	s := pointstore.New(pointstore.NewMemoryBackend())
	require.NoError(t, s.BeginFile(ctx, "tile.las", "run", scale, las.Vec3{}))
	for _, p := range pts {
		require.NoError(t, s.Append(ctx, p))
	}
	_, err := s.EndFile(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Seal(ctx))
	return s
}

func zs(recs []pointstore.Record) []int32 {
	out := make([]int32, len(recs))
	for i, r := range recs {
		out[i] = r.Z
	}
	return out
}
