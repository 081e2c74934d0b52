// Package cellhash maps horizontal point positions to opaque grid cell keys.
//
// Raw integer coordinates are scaled to metres, floor-divided by the cell
// size, and the resulting "ix,iy" pair is digested with SHA-224. Keys only
// support equality: they are not decoded back to indices, and a key at one
// resolution says nothing about the key at another. Binning is blind across
// cell boundaries, so a neighbour in the adjacent cell is invisible to any
// cell-local filter.
package cellhash

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
)

// Resolution is a grid cell edge length in metres.
type Resolution int

const (
	Res10 Resolution = 10
	Res5  Resolution = 5
	Res1  Resolution = 1
)

// Resolutions lists the grids every point is binned into, coarse to fine.
var Resolutions = []Resolution{Res10, Res5, Res1}

// Meters returns the cell edge length as a float.
func (r Resolution) Meters() float64 { return float64(r) }

func (r Resolution) String() string { return strconv.Itoa(int(r)) + "m" }

// Valid reports whether r is one of the indexed resolutions.
func (r Resolution) Valid() bool {
	switch r {
	case Res10, Res5, Res1:
		return true
	}
	return false
}

// Scale holds per-axis factors converting raw integer coordinates to metres.
type Scale struct {
	X, Y, Z float64
}

// Key identifies a grid cell. It is a fixed-length hex digest.
type Key string

// CellKeys bundles the keys of one point at every indexed resolution.
type CellKeys struct {
	K10 Key
	K5  Key
	K1  Key
}

// At returns the key for resolution r, or "" for an unknown resolution.
func (k CellKeys) At(r Resolution) Key {
	switch r {
	case Res10:
		return k.K10
	case Res5:
		return k.K5
	case Res1:
		return k.K1
	}
	return ""
}

// CellIndex floor-divides the metric position by cellSize. Flooring is
// toward negative infinity, so -0.5m lands in cell -1 of a 1m grid rather
// than sharing cell 0 with +0.5m.
func CellIndex(x, y int32, scale Scale, cellSize float64) (ix, iy int64) {
	mx := float64(x) * scale.X
	my := float64(y) * scale.Y
	return int64(math.Floor(mx / cellSize)), int64(math.Floor(my / cellSize))
}

// KeyForIndex digests a cell index pair into a Key.
func KeyForIndex(ix, iy int64) Key {
	buf := make([]byte, 0, 42)
	buf = strconv.AppendInt(buf, ix, 10)
	buf = append(buf, ',')
	buf = strconv.AppendInt(buf, iy, 10)
	sum := sha256.Sum224(buf)
	return Key(hex.EncodeToString(sum[:]))
}

// CellKey returns the key of the cell containing (x, y) at resolution res.
func CellKey(x, y int32, scale Scale, res Resolution) Key {
	ix, iy := CellIndex(x, y, scale, res.Meters())
	return KeyForIndex(ix, iy)
}

// Keys computes the key at every resolution. Each is derived from the
// position directly; none is inherited from a coarser key.
func Keys(x, y int32, scale Scale) CellKeys {
	return CellKeys{
		K10: CellKey(x, y, scale, Res10),
		K5:  CellKey(x, y, scale, Res5),
		K1:  CellKey(x, y, scale, Res1),
	}
}
