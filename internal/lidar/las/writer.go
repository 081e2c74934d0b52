package las

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

// EncodeOptions controls the header fields rewritten on output.
type EncodeOptions struct {
	ProjectID          [16]byte
	GeneratingSoftware string
	Created            time.Time
}

// Encode writes a LAS file containing pts to w, reusing ref's header,
// VLRs, point format, scale and offset. Counts, bounds, project ID,
// generating software and creation date are recomputed.
func Encode(w io.Writer, ref *Header, pts []Point, opts EncodeOptions) error {
	if ref == nil || len(ref.raw) < legacyHeaderSize {
		return fmt.Errorf("las: reference header not loaded")
	}
	count := uint64(len(pts))
	v14 := ref.VersionMinor >= 4 && ref.HeaderSize >= v14HeaderSize
	if count > math.MaxUint32 && !v14 {
		return fmt.Errorf("las: %d points exceed LAS %s capacity", count, ref.Version())
	}

	raw := ref.Raw()
	le := binary.LittleEndian

	copy(raw[8:24], opts.ProjectID[:])
	if opts.GeneratingSoftware != "" {
		putCString(raw[58:90], opts.GeneratingSoftware)
	}
	if !opts.Created.IsZero() {
		le.PutUint16(raw[90:92], uint16(opts.Created.YearDay()))
		le.PutUint16(raw[92:94], uint16(opts.Created.Year()))
	}

	var byReturn [15]uint64
	bounds := newBounds()
	for _, p := range pts {
		if rn := p.ReturnNumber(); rn >= 1 && int(rn) <= len(byReturn) {
			byReturn[rn-1]++
		}
		bounds.add(ref, p)
	}

	legacyCount := uint32(0)
	if count <= math.MaxUint32 {
		legacyCount = uint32(count)
	}
	le.PutUint32(raw[107:111], legacyCount)
	for i := 0; i < 5; i++ {
		le.PutUint32(raw[111+4*i:], uint32(byReturn[i]))
	}
	putF64(raw[179:], bounds.max.X)
	putF64(raw[187:], bounds.min.X)
	putF64(raw[195:], bounds.max.Y)
	putF64(raw[203:], bounds.min.Y)
	putF64(raw[211:], bounds.max.Z)
	putF64(raw[219:], bounds.min.Z)

	if ref.HeaderSize >= v13HeaderSize {
		// no waveform packets are written
		le.PutUint64(raw[227:235], 0)
	}
	if v14 {
		le.PutUint64(raw[235:243], 0)
		le.PutUint32(raw[243:247], 0)
		le.PutUint64(raw[247:255], count)
		for i := 0; i < 15; i++ {
			le.PutUint64(raw[255+8*i:], byReturn[i])
		}
	}

	bw := bufio.NewWriterSize(w, 1<<16)
	if _, err := bw.Write(raw); err != nil {
		return err
	}
	rec := make([]byte, ref.PointRecordLength)
	gps := ref.HasGPSTime()
	for _, p := range pts {
		clear(rec)
		encodePoint(rec, p, gps)
		if _, err := bw.Write(rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

type bounds struct {
	min, max Vec3
	empty    bool
}

func newBounds() *bounds { return &bounds{empty: true} }

func (b *bounds) add(h *Header, p Point) {
	x := float64(p.X)*h.Scale.X + h.Offset.X
	y := float64(p.Y)*h.Scale.Y + h.Offset.Y
	z := float64(p.Z)*h.Scale.Z + h.Offset.Z
	if b.empty {
		b.min = Vec3{x, y, z}
		b.max = b.min
		b.empty = false
		return
	}
	b.min = Vec3{math.Min(b.min.X, x), math.Min(b.min.Y, y), math.Min(b.min.Z, z)}
	b.max = Vec3{math.Max(b.max.X, x), math.Max(b.max.Y, y), math.Max(b.max.Z, z)}
}
