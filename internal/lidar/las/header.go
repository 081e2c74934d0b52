package las

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

const (
	signature = "LASF"

	// legacyHeaderSize is the LAS 1.0-1.2 public header length; later
	// versions append fields after it.
	legacyHeaderSize = 227
	// v13HeaderSize adds the waveform data packet record offset.
	v13HeaderSize = 235
	// v14HeaderSize adds EVLR and 64-bit point counts.
	v14HeaderSize = 375
)

var (
	ErrNotLAS            = errors.New("las: missing LASF signature")
	ErrUnsupportedFormat = errors.New("las: unsupported point data format")
	ErrTruncated         = errors.New("las: truncated file")
)

// coreRecordLength is the minimum record length per legacy point format.
var coreRecordLength = map[uint8]uint16{
	0: 20,
	1: 28,
	2: 26,
	3: 34,
	4: 57,
	5: 63,
}

// Vec3 is an X/Y/Z triple of header values (scale, offset, bounds).
type Vec3 struct {
	X, Y, Z float64
}

// Header is the parsed public header block.
type Header struct {
	FileSourceID       uint16
	GlobalEncoding     uint16
	ProjectID          [16]byte
	VersionMajor       uint8
	VersionMinor       uint8
	SystemIdentifier   string
	GeneratingSoftware string
	CreationDOY        uint16
	CreationYear       uint16
	HeaderSize         uint16
	PointDataOffset    uint32
	NumberOfVLRs       uint32
	PointFormat        uint8
	PointRecordLength  uint16
	PointCount         uint64
	PointsByReturn     [5]uint64
	Scale              Vec3
	Offset             Vec3
	Max                Vec3
	Min                Vec3

	// raw holds every byte before the first point record: the header
	// itself, VLRs and any user-defined padding.
	raw []byte
}

// HasGPSTime reports whether the point format carries a GPS timestamp.
func (h *Header) HasGPSTime() bool {
	switch h.PointFormat {
	case 1, 3, 4, 5:
		return true
	}
	return false
}

// Version returns "major.minor".
func (h *Header) Version() string {
	return fmt.Sprintf("%d.%d", h.VersionMajor, h.VersionMinor)
}

// Raw returns a copy of the header and VLR bytes.
func (h *Header) Raw() []byte {
	out := make([]byte, len(h.raw))
	copy(out, h.raw)
	return out
}

// ReadHeader reads the header and VLR block, leaving r positioned at the
// first point record.
func ReadHeader(r io.Reader) (*Header, error) {
	fixed := make([]byte, legacyHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrNotLAS
		}
		return nil, err
	}
	if string(fixed[0:4]) != signature {
		return nil, ErrNotLAS
	}

	le := binary.LittleEndian
	h := &Header{
		FileSourceID:       le.Uint16(fixed[4:6]),
		GlobalEncoding:     le.Uint16(fixed[6:8]),
		VersionMajor:       fixed[24],
		VersionMinor:       fixed[25],
		SystemIdentifier:   cString(fixed[26:58]),
		GeneratingSoftware: cString(fixed[58:90]),
		CreationDOY:        le.Uint16(fixed[90:92]),
		CreationYear:       le.Uint16(fixed[92:94]),
		HeaderSize:         le.Uint16(fixed[94:96]),
		PointDataOffset:    le.Uint32(fixed[96:100]),
		NumberOfVLRs:       le.Uint32(fixed[100:104]),
		PointFormat:        fixed[104],
		PointRecordLength:  le.Uint16(fixed[105:107]),
		PointCount:         uint64(le.Uint32(fixed[107:111])),
		Scale:              readVec3(fixed[131:155]),
		Offset:             readVec3(fixed[155:179]),
	}
	copy(h.ProjectID[:], fixed[8:24])
	for i := range h.PointsByReturn {
		h.PointsByReturn[i] = uint64(le.Uint32(fixed[111+4*i:]))
	}
	h.Max = Vec3{X: f64(fixed[179:]), Y: f64(fixed[195:]), Z: f64(fixed[211:])}
	h.Min = Vec3{X: f64(fixed[187:]), Y: f64(fixed[203:]), Z: f64(fixed[219:])}

	if h.HeaderSize < legacyHeaderSize || uint32(h.HeaderSize) > h.PointDataOffset {
		return nil, fmt.Errorf("las: invalid header size %d (point data at %d)", h.HeaderSize, h.PointDataOffset)
	}
	minLen, ok := coreRecordLength[h.PointFormat]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, h.PointFormat)
	}
	if h.PointRecordLength < minLen {
		return nil, fmt.Errorf("las: record length %d too short for format %d", h.PointRecordLength, h.PointFormat)
	}

	h.raw = make([]byte, h.PointDataOffset)
	copy(h.raw, fixed)
	if _, err := io.ReadFull(r, h.raw[legacyHeaderSize:]); err != nil {
		return nil, fmt.Errorf("%w: header/VLR block: %v", ErrTruncated, err)
	}

	if h.VersionMinor >= 4 && h.HeaderSize >= v14HeaderSize {
		ext := le.Uint64(h.raw[247:255])
		if h.PointCount == 0 {
			h.PointCount = ext
		}
		for i := range h.PointsByReturn {
			if h.PointsByReturn[i] == 0 {
				h.PointsByReturn[i] = le.Uint64(h.raw[255+8*i:])
			}
		}
	}
	return h, nil
}

func readVec3(b []byte) Vec3 {
	return Vec3{X: f64(b[0:]), Y: f64(b[8:]), Z: f64(b[16:])}
}

func f64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func putF64(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

func cString(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimRight(string(b), " ")
}

func putCString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}
