package las

import (
	"fmt"
	"math"

	"github.com/arloliu/pointcloud/endian"
	"github.com/arloliu/pointcloud/errs"
)

// recordLengths holds the wire size of each point record format.
var recordLengths = [11]uint16{20, 28, 26, 34, 57, 63, 30, 36, 38, 59, 67}

// RecordLength returns the wire size of a point record format.
func RecordLength(format uint8) (uint16, error) {
	if int(format) >= len(recordLengths) {
		return 0, fmt.Errorf("%w: point record format %d", errs.ErrUnsupportedFormat, format)
	}
	return recordLengths[format], nil
}

// Format capability probes.
func formatHasGpsTime(format uint8) bool {
	return format != 0 && format != 2
}

func formatHasRGB(format uint8) bool {
	switch format {
	case 2, 3, 5, 7, 8, 10:
		return true
	}
	return false
}

func formatHasNIR(format uint8) bool {
	return format == 8 || format == 10
}

func formatHasWavePacket(format uint8) bool {
	switch format {
	case 4, 5, 9, 10:
		return true
	}
	return false
}

// formatExtended reports whether the format uses the 6-10 record shape,
// with 4-bit return counts, a 16-bit scan angle and a full classification
// byte.
func formatExtended(format uint8) bool {
	return format >= 6
}

// rawPoint is a decoded point record, the superset of every format's
// fields. Fields a format does not carry stay zero.
type rawPoint struct {
	X, Y, Z   int32
	Intensity uint16

	ReturnNumber    uint8
	NumberOfReturns uint8
	ScanDirection   uint8
	EdgeOfFlight    uint8
	Classification  uint8
	ClassFlags      uint8
	ScannerChannel  uint8

	ScanAngleRank int8  // formats 0-5
	ScanAngle     int16 // formats 6-10

	UserData      uint8
	PointSourceID uint16
	GpsTime       float64

	Red, Green, Blue uint16
	NIR              uint16

	WavePacketIndex        uint8
	WaveOffset             uint64
	WaveSize               uint32
	WaveReturnPoint        float32
	WaveXt, WaveYt, WaveZt float32
}

// decodeRecord unpacks one wire record of the given format into p.
func decodeRecord(format uint8, data []byte, p *rawPoint) {
	engine := endian.GetLittleEndianEngine()

	p.X = int32(engine.Uint32(data[0:4]))
	p.Y = int32(engine.Uint32(data[4:8]))
	p.Z = int32(engine.Uint32(data[8:12]))
	p.Intensity = engine.Uint16(data[12:14])

	var off int
	if !formatExtended(format) {
		flags := data[14]
		p.ReturnNumber = flags & 0x7
		p.NumberOfReturns = (flags >> 3) & 0x7
		p.ScanDirection = (flags >> 6) & 0x1
		p.EdgeOfFlight = flags >> 7
		p.Classification = data[15] & 0x1F
		p.ClassFlags = data[15] >> 5
		p.ScannerChannel = 0
		p.ScanAngleRank = int8(data[16])
		p.ScanAngle = 0
		p.UserData = data[17]
		p.PointSourceID = engine.Uint16(data[18:20])
		off = 20
	} else {
		returns := data[14]
		p.ReturnNumber = returns & 0xF
		p.NumberOfReturns = returns >> 4
		flags := data[15]
		p.ClassFlags = flags & 0xF
		p.ScannerChannel = (flags >> 4) & 0x3
		p.ScanDirection = (flags >> 6) & 0x1
		p.EdgeOfFlight = flags >> 7
		p.Classification = data[16]
		p.UserData = data[17]
		p.ScanAngle = int16(engine.Uint16(data[18:20]))
		p.ScanAngleRank = 0
		p.PointSourceID = engine.Uint16(data[20:22])
		p.GpsTime = math.Float64frombits(engine.Uint64(data[22:30]))
		off = 30
	}

	if !formatExtended(format) && formatHasGpsTime(format) {
		p.GpsTime = math.Float64frombits(engine.Uint64(data[off : off+8]))
		off += 8
	}
	if formatHasRGB(format) {
		p.Red = engine.Uint16(data[off : off+2])
		p.Green = engine.Uint16(data[off+2 : off+4])
		p.Blue = engine.Uint16(data[off+4 : off+6])
		off += 6
	}
	if formatHasNIR(format) {
		p.NIR = engine.Uint16(data[off : off+2])
		off += 2
	}
	if formatHasWavePacket(format) {
		p.WavePacketIndex = data[off]
		p.WaveOffset = engine.Uint64(data[off+1 : off+9])
		p.WaveSize = engine.Uint32(data[off+9 : off+13])
		p.WaveReturnPoint = math.Float32frombits(engine.Uint32(data[off+13 : off+17]))
		p.WaveXt = math.Float32frombits(engine.Uint32(data[off+17 : off+21]))
		p.WaveYt = math.Float32frombits(engine.Uint32(data[off+21 : off+25]))
		p.WaveZt = math.Float32frombits(engine.Uint32(data[off+25 : off+29]))
	}
}

// encodeRecord packs p into one wire record of the given format. dst
// must hold the format's record length.
func encodeRecord(format uint8, p *rawPoint, dst []byte) {
	engine := endian.GetLittleEndianEngine()

	engine.PutUint32(dst[0:4], uint32(p.X))
	engine.PutUint32(dst[4:8], uint32(p.Y))
	engine.PutUint32(dst[8:12], uint32(p.Z))
	engine.PutUint16(dst[12:14], p.Intensity)

	var off int
	if !formatExtended(format) {
		dst[14] = p.ReturnNumber&0x7 | (p.NumberOfReturns&0x7)<<3 | (p.ScanDirection&0x1)<<6 | (p.EdgeOfFlight&0x1)<<7
		dst[15] = p.Classification&0x1F | (p.ClassFlags&0x7)<<5
		dst[16] = uint8(p.ScanAngleRank)
		dst[17] = p.UserData
		engine.PutUint16(dst[18:20], p.PointSourceID)
		off = 20
	} else {
		dst[14] = p.ReturnNumber&0xF | (p.NumberOfReturns&0xF)<<4
		dst[15] = p.ClassFlags&0xF | (p.ScannerChannel&0x3)<<4 | (p.ScanDirection&0x1)<<6 | (p.EdgeOfFlight&0x1)<<7
		dst[16] = p.Classification
		dst[17] = p.UserData
		engine.PutUint16(dst[18:20], uint16(p.ScanAngle))
		engine.PutUint16(dst[20:22], p.PointSourceID)
		engine.PutUint64(dst[22:30], math.Float64bits(p.GpsTime))
		off = 30
	}

	if !formatExtended(format) && formatHasGpsTime(format) {
		engine.PutUint64(dst[off:off+8], math.Float64bits(p.GpsTime))
		off += 8
	}
	if formatHasRGB(format) {
		engine.PutUint16(dst[off:off+2], p.Red)
		engine.PutUint16(dst[off+2:off+4], p.Green)
		engine.PutUint16(dst[off+4:off+6], p.Blue)
		off += 6
	}
	if formatHasNIR(format) {
		engine.PutUint16(dst[off:off+2], p.NIR)
		off += 2
	}
	if formatHasWavePacket(format) {
		dst[off] = p.WavePacketIndex
		engine.PutUint64(dst[off+1:off+9], p.WaveOffset)
		engine.PutUint32(dst[off+9:off+13], p.WaveSize)
		engine.PutUint32(dst[off+13:off+17], math.Float32bits(p.WaveReturnPoint))
		engine.PutUint32(dst[off+17:off+21], math.Float32bits(p.WaveXt))
		engine.PutUint32(dst[off+21:off+25], math.Float32bits(p.WaveYt))
		engine.PutUint32(dst[off+25:off+29], math.Float32bits(p.WaveZt))
	}
}
