package las

import (
	"encoding/binary"
	"fmt"
)

// NewHeader builds a minimal LAS 1.2 header with no VLRs for the given
// point format. It exists for synthesising files; real outputs clone the
// header of an input file.
func NewHeader(format uint8, scale, offset Vec3) (*Header, error) {
	recLen, ok := coreRecordLength[format]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, format)
	}
	raw := make([]byte, legacyHeaderSize)
	le := binary.LittleEndian
	copy(raw[0:4], signature)
	raw[24], raw[25] = 1, 2
	putCString(raw[26:58], "OTHER")
	le.PutUint16(raw[94:96], legacyHeaderSize)
	le.PutUint32(raw[96:100], legacyHeaderSize)
	raw[104] = format
	le.PutUint16(raw[105:107], recLen)
	putF64(raw[131:], scale.X)
	putF64(raw[139:], scale.Y)
	putF64(raw[147:], scale.Z)
	putF64(raw[155:], offset.X)
	putF64(raw[163:], offset.Y)
	putF64(raw[171:], offset.Z)

	return &Header{
		VersionMajor:      1,
		VersionMinor:      2,
		SystemIdentifier:  "OTHER",
		HeaderSize:        legacyHeaderSize,
		PointDataOffset:   legacyHeaderSize,
		PointFormat:       format,
		PointRecordLength: recLen,
		Scale:             scale,
		Offset:            offset,
		raw:               raw,
	}, nil
}
