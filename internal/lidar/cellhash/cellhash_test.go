package cellhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mm = Scale{X: 0.001, Y: 0.001, Z: 0.001}

func TestKeyForIndex_KnownDigest(t *testing.T) {
	// sha224("0,0") and sha224("-1,2")
	assert.Equal(t, Key("bb0777a18b8f2e13d9920b974bb1aec8a99b12d993218d4ce9bbc2ec"), KeyForIndex(0, 0))
	assert.Equal(t, Key("4bab9c45363f2471cd7540315f3e03b33b05760067d5e58d29773a4e"), KeyForIndex(-1, 2))
	assert.Len(t, string(KeyForIndex(123456, -98765)), 56)
}

func TestCellKey_Deterministic(t *testing.T) {
	a := CellKey(1234567, 7654321, mm, Res10)
	b := CellKey(1234567, 7654321, mm, Res10)
	assert.Equal(t, a, b)
}

func TestCellKey_SameIndexSameKey(t *testing.T) {
	// 0.1m and 9.9m both floor to index 0 on the 10m grid.
	assert.Equal(t, CellKey(100, 100, mm, Res10), CellKey(9900, 9900, mm, Res10))
	assert.NotEqual(t, CellKey(100, 100, mm, Res1), CellKey(9900, 9900, mm, Res1))
}

func TestCellIndex_FloorsTowardNegativeInfinity(t *testing.T) {
	half := Scale{X: 0.5, Y: 0.5, Z: 0.5}

	tests := []struct {
		name   string
		x, y   int32
		size   float64
		ix, iy int64
	}{
		{"origin", 0, 0, 1, 0, 0},
		{"positive half metre", 1, 1, 1, 0, 0},
		{"negative half metre", -1, -1, 1, -1, -1},
		{"exactly minus one metre", -2, -2, 1, -1, -1},
		{"just past minus one metre", -3, 3, 1, -2, 1},
		{"ten metre grid negative", -1, 40, 10, -1, 2},
		{"ten metre boundary", 20, -20, 10, 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, iy := CellIndex(tt.x, tt.y, half, tt.size)
			assert.Equal(t, tt.ix, ix)
			assert.Equal(t, tt.iy, iy)
		})
	}
}

func TestCellKey_NegativeDoesNotShareCellWithPositive(t *testing.T) {
	half := Scale{X: 0.5, Y: 0.5, Z: 0.5}
	// Truncation toward zero would put -0.5m and +0.5m in the same cell.
	assert.NotEqual(t, CellKey(-1, 1, half, Res1), CellKey(1, 1, half, Res1))
	assert.Equal(t, KeyForIndex(-1, 0), CellKey(-1, 1, half, Res1))
}

func TestKeys_IndependentPerResolution(t *testing.T) {
	keys := Keys(12345, 67890, mm)
	assert.Equal(t, CellKey(12345, 67890, mm, Res10), keys.K10)
	assert.Equal(t, CellKey(12345, 67890, mm, Res5), keys.K5)
	assert.Equal(t, CellKey(12345, 67890, mm, Res1), keys.K1)

	// 12.345m,67.89m -> 10m index (1,6), 5m index (2,13), 1m index (12,67)
	assert.Equal(t, KeyForIndex(1, 6), keys.K10)
	assert.Equal(t, KeyForIndex(2, 13), keys.K5)
	assert.Equal(t, KeyForIndex(12, 67), keys.K1)

	for _, r := range Resolutions {
		require.True(t, r.Valid())
		assert.NotEmpty(t, keys.At(r))
	}
	assert.Empty(t, keys.At(Resolution(3)))
}

func TestCellKey_UsesPerAxisScale(t *testing.T) {
	s := Scale{X: 0.01, Y: 0.001, Z: 0.001}
	// x = 15m, y = 1.5m
	assert.Equal(t, KeyForIndex(1, 0), CellKey(1500, 1500, s, Res10))
}

func TestResolution_String(t *testing.T) {
	assert.Equal(t, "10m", Res10.String())
	assert.Equal(t, 1.0, Res1.Meters())
	assert.False(t, Resolution(0).Valid())
}
