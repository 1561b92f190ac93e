// Package las reads and writes LAS point cloud files, versions 1.0
// through 1.4 and point record formats 0 through 10, with optional
// chunked compression of the point records for the legacy formats.
//
// The package converts between the fixed wire records and the attribute
// layouts of the buffer package. Positions are stored on the wire as
// scaled 32-bit grid coordinates; reading dequantizes them through the
// header's scale and offset, writing quantizes them back.
package las

import (
	"fmt"
	"math"

	"github.com/arloliu/pointcloud/endian"
	"github.com/arloliu/pointcloud/errs"
)

const fileMagic = "LASF"

// Header byte sizes per minor version.
const (
	headerSize12 = 227 // versions 1.0 through 1.2
	headerSize13 = 235
	headerSize14 = 375
)

// compressedFormatBit marks the point format id of compressed files.
const compressedFormatBit = 0x80

const maxPointsByReturn = 15

// Header is the file header in its 1.4 shape. Versions before 1.4 park
// the point counts in the 32-bit legacy fields; Parse lifts them into
// the wide fields, and Bytes writes back whichever set the version
// carries.
type Header struct {
	FileSourceID   uint16
	GlobalEncoding uint16
	ProjectID      [16]byte

	VersionMajor uint8
	VersionMinor uint8

	SystemIdentifier   string
	GeneratingSoftware string

	CreationDayOfYear uint16
	CreationYear      uint16

	HeaderSize        uint16
	OffsetToPointData uint32
	NumberOfVLRs      uint32

	// PointFormat keeps the compression bit as stored; use Format and
	// Compressed to interpret it.
	PointFormat       uint8
	PointRecordLength uint16

	NumberOfPoints uint64
	PointsByReturn [maxPointsByReturn]uint64

	ScaleX, ScaleY, ScaleZ    float64
	OffsetX, OffsetY, OffsetZ float64

	MaxX, MinX float64
	MaxY, MinY float64
	MaxZ, MinZ float64

	StartOfWaveformData uint64 // version 1.3+
	StartOfFirstEVLR    uint64 // version 1.4
	NumberOfEVLRs       uint32 // version 1.4
}

// Format returns the point record format with the compression bit
// stripped.
func (h *Header) Format() uint8 {
	return h.PointFormat &^ compressedFormatBit
}

// Compressed reports whether the point records are stored compressed.
func (h *Header) Compressed() bool {
	return h.PointFormat&compressedFormatBit != 0
}

// headerSizeForVersion returns the on-disk header size of a version, or
// 0 for versions this package does not read.
func headerSizeForVersion(major, minor uint8) uint16 {
	if major != 1 {
		return 0
	}
	switch minor {
	case 0, 1, 2:
		return headerSize12
	case 3:
		return headerSize13
	case 4:
		return headerSize14
	default:
		return 0
	}
}

func trimFixedString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func putFixedString(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// Parse decodes a header from the start of a file. data must hold at
// least the full header for the version it declares.
func (h *Header) Parse(data []byte) error {
	if len(data) < headerSize12 {
		return fmt.Errorf("%w: %d bytes is shorter than the smallest header", errs.ErrInvalidHeader, len(data))
	}
	if string(data[0:4]) != fileMagic {
		return fmt.Errorf("%w: bad file signature %q", errs.ErrInvalidHeader, data[0:4])
	}

	engine := endian.GetLittleEndianEngine()

	h.VersionMajor = data[24]
	h.VersionMinor = data[25]
	size := headerSizeForVersion(h.VersionMajor, h.VersionMinor)
	if size == 0 {
		return fmt.Errorf("%w: version %d.%d", errs.ErrUnsupportedVersion, h.VersionMajor, h.VersionMinor)
	}
	if len(data) < int(size) {
		return fmt.Errorf("%w: version %d.%d header needs %d bytes, have %d",
			errs.ErrInvalidHeader, h.VersionMajor, h.VersionMinor, size, len(data))
	}

	h.FileSourceID = engine.Uint16(data[4:6])
	h.GlobalEncoding = engine.Uint16(data[6:8])
	copy(h.ProjectID[:], data[8:24])
	h.SystemIdentifier = trimFixedString(data[26:58])
	h.GeneratingSoftware = trimFixedString(data[58:90])
	h.CreationDayOfYear = engine.Uint16(data[90:92])
	h.CreationYear = engine.Uint16(data[92:94])
	h.HeaderSize = engine.Uint16(data[94:96])
	h.OffsetToPointData = engine.Uint32(data[96:100])
	h.NumberOfVLRs = engine.Uint32(data[100:104])
	h.PointFormat = data[104]
	h.PointRecordLength = engine.Uint16(data[105:107])

	if h.HeaderSize < size {
		return fmt.Errorf("%w: declared header size %d below the version %d.%d minimum %d",
			errs.ErrInvalidHeader, h.HeaderSize, h.VersionMajor, h.VersionMinor, size)
	}
	if uint32(h.HeaderSize) > h.OffsetToPointData {
		return fmt.Errorf("%w: point data offset %d inside the header", errs.ErrInvalidHeader, h.OffsetToPointData)
	}
	if format := h.Format(); int(format) >= len(recordLengths) {
		return fmt.Errorf("%w: point record format %d", errs.ErrUnsupportedFormat, format)
	}

	h.NumberOfPoints = uint64(engine.Uint32(data[107:111]))
	for i := 0; i < 5; i++ {
		h.PointsByReturn[i] = uint64(engine.Uint32(data[111+4*i : 115+4*i]))
	}

	h.ScaleX = math.Float64frombits(engine.Uint64(data[131:139]))
	h.ScaleY = math.Float64frombits(engine.Uint64(data[139:147]))
	h.ScaleZ = math.Float64frombits(engine.Uint64(data[147:155]))
	h.OffsetX = math.Float64frombits(engine.Uint64(data[155:163]))
	h.OffsetY = math.Float64frombits(engine.Uint64(data[163:171]))
	h.OffsetZ = math.Float64frombits(engine.Uint64(data[171:179]))
	h.MaxX = math.Float64frombits(engine.Uint64(data[179:187]))
	h.MinX = math.Float64frombits(engine.Uint64(data[187:195]))
	h.MaxY = math.Float64frombits(engine.Uint64(data[195:203]))
	h.MinY = math.Float64frombits(engine.Uint64(data[203:211]))
	h.MaxZ = math.Float64frombits(engine.Uint64(data[211:219]))
	h.MinZ = math.Float64frombits(engine.Uint64(data[219:227]))

	if h.VersionMinor >= 3 {
		h.StartOfWaveformData = engine.Uint64(data[227:235])
	}
	if h.VersionMinor >= 4 {
		h.StartOfFirstEVLR = engine.Uint64(data[235:243])
		h.NumberOfEVLRs = engine.Uint32(data[243:247])
		h.NumberOfPoints = engine.Uint64(data[247:255])
		for i := 0; i < maxPointsByReturn; i++ {
			h.PointsByReturn[i] = engine.Uint64(data[255+8*i : 263+8*i])
		}
	}
	return nil
}

// Bytes serializes the header to its on-disk form for the version it
// declares.
func (h *Header) Bytes() []byte {
	size := headerSizeForVersion(h.VersionMajor, h.VersionMinor)
	engine := endian.GetLittleEndianEngine()
	data := make([]byte, size)

	copy(data[0:4], fileMagic)
	engine.PutUint16(data[4:6], h.FileSourceID)
	engine.PutUint16(data[6:8], h.GlobalEncoding)
	copy(data[8:24], h.ProjectID[:])
	data[24] = h.VersionMajor
	data[25] = h.VersionMinor
	putFixedString(data[26:58], h.SystemIdentifier)
	putFixedString(data[58:90], h.GeneratingSoftware)
	engine.PutUint16(data[90:92], h.CreationDayOfYear)
	engine.PutUint16(data[92:94], h.CreationYear)
	engine.PutUint16(data[94:96], size)
	engine.PutUint32(data[96:100], h.OffsetToPointData)
	engine.PutUint32(data[100:104], h.NumberOfVLRs)
	data[104] = h.PointFormat
	engine.PutUint16(data[105:107], h.PointRecordLength)

	// legacy counts: zeroed in 1.4 files when the wide counts overflow
	legacy := h.NumberOfPoints
	if legacy > math.MaxUint32 {
		legacy = 0
	}
	engine.PutUint32(data[107:111], uint32(legacy))
	for i := 0; i < 5; i++ {
		v := h.PointsByReturn[i]
		if legacy == 0 && h.NumberOfPoints > 0 {
			v = 0
		} else if v > math.MaxUint32 {
			v = 0
		}
		engine.PutUint32(data[111+4*i:115+4*i], uint32(v))
	}

	engine.PutUint64(data[131:139], math.Float64bits(h.ScaleX))
	engine.PutUint64(data[139:147], math.Float64bits(h.ScaleY))
	engine.PutUint64(data[147:155], math.Float64bits(h.ScaleZ))
	engine.PutUint64(data[155:163], math.Float64bits(h.OffsetX))
	engine.PutUint64(data[163:171], math.Float64bits(h.OffsetY))
	engine.PutUint64(data[171:179], math.Float64bits(h.OffsetZ))
	engine.PutUint64(data[179:187], math.Float64bits(h.MaxX))
	engine.PutUint64(data[187:195], math.Float64bits(h.MinX))
	engine.PutUint64(data[195:203], math.Float64bits(h.MaxY))
	engine.PutUint64(data[203:211], math.Float64bits(h.MinY))
	engine.PutUint64(data[211:219], math.Float64bits(h.MaxZ))
	engine.PutUint64(data[219:227], math.Float64bits(h.MinZ))

	if h.VersionMinor >= 3 {
		engine.PutUint64(data[227:235], h.StartOfWaveformData)
	}
	if h.VersionMinor >= 4 {
		engine.PutUint64(data[235:243], h.StartOfFirstEVLR)
		engine.PutUint32(data[243:247], h.NumberOfEVLRs)
		engine.PutUint64(data[247:255], h.NumberOfPoints)
		for i := 0; i < maxPointsByReturn; i++ {
			engine.PutUint64(data[255+8*i:263+8*i], h.PointsByReturn[i])
		}
	}
	return data
}
