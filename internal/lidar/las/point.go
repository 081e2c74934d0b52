package las

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Point is one decoded point record. Coordinates stay in raw integer units;
// metric value = raw * scale + offset.
type Point struct {
	X, Y, Z        int32
	Intensity      uint16
	FlagByte       uint8 // return number, number of returns, scan direction, edge of flight line
	Classification uint8
	ScanAngleRank  int8
	UserData       uint8
	PointSourceID  uint16
	GPSTime        float64
}

// ReturnNumber is bits 0-2 of the flag byte.
func (p Point) ReturnNumber() uint8 { return p.FlagByte & 0x07 }

// NumReturns is bits 3-5 of the flag byte.
func (p Point) NumReturns() uint8 { return (p.FlagByte >> 3) & 0x07 }

// FlagByteFor packs return number and number of returns into a flag byte
// with scan direction and edge-of-flight-line cleared.
func FlagByteFor(returnNumber, numReturns uint8) uint8 {
	return (returnNumber & 0x07) | (numReturns&0x07)<<3
}

func decodePoint(b []byte, gps bool) Point {
	le := binary.LittleEndian
	p := Point{
		X:              int32(le.Uint32(b[0:4])),
		Y:              int32(le.Uint32(b[4:8])),
		Z:              int32(le.Uint32(b[8:12])),
		Intensity:      le.Uint16(b[12:14]),
		FlagByte:       b[14],
		Classification: b[15],
		ScanAngleRank:  int8(b[16]),
		UserData:       b[17],
		PointSourceID:  le.Uint16(b[18:20]),
	}
	if gps {
		p.GPSTime = math.Float64frombits(le.Uint64(b[20:28]))
	}
	return p
}

// encodePoint fills b, which must be zeroed and at least the core record
// length for the format.
func encodePoint(b []byte, p Point, gps bool) {
	le := binary.LittleEndian
	le.PutUint32(b[0:4], uint32(p.X))
	le.PutUint32(b[4:8], uint32(p.Y))
	le.PutUint32(b[8:12], uint32(p.Z))
	le.PutUint16(b[12:14], p.Intensity)
	b[14] = p.FlagByte
	b[15] = p.Classification
	b[16] = byte(p.ScanAngleRank)
	b[17] = p.UserData
	le.PutUint16(b[18:20], p.PointSourceID)
	if gps {
		le.PutUint64(b[20:28], math.Float64bits(p.GPSTime))
	}
}

// Reader streams point records after the header.
type Reader struct {
	r      *bufio.Reader
	header *Header
	buf    []byte
	read   uint64
}

// NewReader consumes the header from r and returns a Reader positioned at
// the first point.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	h, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}
	return &Reader{r: br, header: h, buf: make([]byte, h.PointRecordLength)}, nil
}

// Header returns the parsed header.
func (r *Reader) Header() *Header { return r.header }

// Next returns the next point, or io.EOF once PointCount records were read.
func (r *Reader) Next() (Point, error) {
	if r.read >= r.header.PointCount {
		return Point{}, io.EOF
	}
	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		return Point{}, fmt.Errorf("%w: point %d of %d: %v", ErrTruncated, r.read, r.header.PointCount, err)
	}
	r.read++
	return decodePoint(r.buf, r.header.HasGPSTime()), nil
}

// ReadAll drains the remaining points.
func (r *Reader) ReadAll() ([]Point, error) {
	pts := make([]Point, 0, r.header.PointCount-r.read)
	for {
		p, err := r.Next()
		if err == io.EOF {
			return pts, nil
		}
		if err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
}
