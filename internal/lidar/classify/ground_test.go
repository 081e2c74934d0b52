package classify

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/las"
	"github.com/banshee-data/lidar-classify/internal/lidar/pointstore"
)

// groundScenario is one 10m cell at millimetre scale: a seed at 1.0m and
// single returns at 1.2m, 1.8m and 5.0m, spread far enough horizontally to
// stay inside the angle tolerance.
func groundScenario() []pointstore.Point {
	return []pointstore.Point{
		firstOfTwo(2000, 2000, 900), // interior return below the seed
		single(500, 500, 1000),
		single(5500, 500, 1200),
		single(9500, 9500, 1800),
		single(3000, 3000, 5000),
	}
}

func TestGroundClassifier_EndToEnd(t *testing.T) {
	ctx := context.Background()
	s := sealedStore(t, mmScale, groundScenario()...)

	g, err := NewGroundClassifier(ctx, s, DefaultParams())
	require.NoError(t, err)

	out, stats, err := g.Run(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int32{1000, 1200, 1800}, zs(out))
	assert.Equal(t, Stats{Cells: 1, Emitted: 3}, stats)
	for _, r := range out {
		assert.Equal(t, pointstore.ClassGround, r.Classification)
	}
}

func TestGroundClassifier_SeedIsLowestSingleReturn(t *testing.T) {
	ctx := context.Background()
	s := sealedStore(t, mmScale, groundScenario()...)
	g, err := NewGroundClassifier(ctx, s, DefaultParams())
	require.NoError(t, err)

	cells, err := g.Cells(ctx)
	require.NoError(t, err)
	key := cellhash.KeyForIndex(0, 0)
	require.Contains(t, cells, key)
	assert.Equal(t, int32(1000), cells[key])

	seed, ok, err := g.Seed(ctx, key, cells[key])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int32(500), seed.X)
	assert.Equal(t, uint8(0), seed.Classification, "stored seed keeps its source label")
}

func TestGroundClassifier_SameLocationRejected(t *testing.T) {
	ctx := context.Background()
	twin := single(500, 500, 1000)
	twin.GPSTime = 42
	s := sealedStore(t, mmScale, single(500, 500, 1000), twin)

	g, err := NewGroundClassifier(ctx, s, DefaultParams())
	require.NoError(t, err)
	out, _, err := g.Run(ctx, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0.0, out[0].GPSTime, "only the seed survives")
}

func TestGroundClassifier_IdenticalTwinSkipped(t *testing.T) {
	ctx := context.Background()
	s := sealedStore(t, mmScale, single(500, 500, 1000), single(500, 500, 1000))

	g, err := NewGroundClassifier(ctx, s, DefaultParams())
	require.NoError(t, err)
	out, _, err := g.Run(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestGroundClassifier_ConfiguredThresholds(t *testing.T) {
	ctx := context.Background()
	s := sealedStore(t, mmScale, groundScenario()...)

	params := DefaultParams()
	params.HeightThresholdM = 0.5
	g, err := NewGroundClassifier(ctx, s, params)
	require.NoError(t, err)
	out, _, err := g.Run(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int32{1000, 1200}, zs(out))
}

func TestGroundClassifier_CellWithOnlyInteriorReturns(t *testing.T) {
	ctx := context.Background()
	s := sealedStore(t, mmScale, firstOfTwo(500, 500, 1000), single(15500, 500, 2000))

	g, err := NewGroundClassifier(ctx, s, DefaultParams())
	require.NoError(t, err)
	out, stats, err := g.Run(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []int32{2000}, zs(out))
	assert.Equal(t, 1, stats.Cells)
}

func TestGroundClassifier_Idempotent(t *testing.T) {
	ctx := context.Background()
	pts := groundScenario()
	pts = append(pts, single(12000, 500, 700), single(18000, 4000, 800), single(-3000, -3000, 50))
	s := sealedStore(t, mmScale, pts...)

	g, err := NewGroundClassifier(ctx, s, DefaultParams())
	require.NoError(t, err)
	first, _, err := g.Run(ctx, 3)
	require.NoError(t, err)
	second, _, err := g.Run(ctx, 1)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("ground output changed between runs (-first +second):\n%s", diff)
	}
}

func TestGroundClassifier_RefusesUnsealedStore(t *testing.T) {
	ctx := context.Background()
	s := pointstore.New(pointstore.NewMemoryBackend())
	_, err := NewGroundClassifier(ctx, s, DefaultParams())
	assert.ErrorIs(t, err, pointstore.ErrEmpty)

	require.NoError(t, s.BeginFile(ctx, "a.las", "r", mmScale, las.Vec3{}))
	require.NoError(t, s.Append(ctx, single(1, 1, 1)))
	_, err = s.EndFile(ctx)
	require.NoError(t, err)

	g, err := NewGroundClassifier(ctx, s, DefaultParams())
	require.NoError(t, err)
	_, _, err = g.Run(ctx, 1)
	assert.ErrorIs(t, err, pointstore.ErrNotIndexed)
}
