package pointstore

import (
	"time"

	"github.com/banshee-data/lidar-classify/internal/lidar/cellhash"
	"github.com/banshee-data/lidar-classify/internal/lidar/las"
)

// Classification codes assigned by the classifiers.
const (
	ClassCanopyTop uint8 = 1
	ClassGround    uint8 = 2
)

// Point carries the per-return attributes of one laser return. X, Y and Z
// are raw integers in the source file's scale.
type Point struct {
	X, Y, Z        int32
	Intensity      uint16
	FlagByte       uint8
	Classification uint8
	ScanAngleRank  int8
	UserData       uint8
	PointSourceID  uint16
	GPSTime        float64
	ReturnNumber   uint8
	NumReturns     uint8
}

// IsSingleReturn reports whether this is the last (or only) return of its
// pulse.
func (p Point) IsSingleReturn() bool { return p.ReturnNumber == p.NumReturns }

// PointFromLAS converts a decoded file record.
func PointFromLAS(p las.Point) Point {
	return Point{
		X:              p.X,
		Y:              p.Y,
		Z:              p.Z,
		Intensity:      p.Intensity,
		FlagByte:       p.FlagByte,
		Classification: p.Classification,
		ScanAngleRank:  p.ScanAngleRank,
		UserData:       p.UserData,
		PointSourceID:  p.PointSourceID,
		GPSTime:        p.GPSTime,
		ReturnNumber:   p.ReturnNumber(),
		NumReturns:     p.NumReturns(),
	}
}

// LAS converts back to a file record. The flag byte is written as stored.
func (p Point) LAS() las.Point {
	return las.Point{
		X:              p.X,
		Y:              p.Y,
		Z:              p.Z,
		Intensity:      p.Intensity,
		FlagByte:       p.FlagByte,
		Classification: p.Classification,
		ScanAngleRank:  p.ScanAngleRank,
		UserData:       p.UserData,
		PointSourceID:  p.PointSourceID,
		GPSTime:        p.GPSTime,
	}
}

// Record is a stored point with its source file and cell keys. Records are
// plain values: two records are the same point iff every field is equal.
type Record struct {
	Filename string
	Keys     cellhash.CellKeys
	Point
}

// WithClassification returns a copy of r carrying class c. The stored
// record is never modified.
func (r Record) WithClassification(c uint8) Record {
	r.Classification = c
	return r
}

// AsGround returns a ground-labelled copy.
func (r Record) AsGround() Record { return r.WithClassification(ClassGround) }

// AsCanopyTop returns a canopy-top-labelled copy.
func (r Record) AsCanopyTop() Record { return r.WithClassification(ClassCanopyTop) }

// SourceFile describes one ingested input file.
type SourceFile struct {
	Filename   string
	RunID      string
	PointCount int64
	Scale      cellhash.Scale
	Offset     las.Vec3
	IngestedAt time.Time
}
