package laz

import (
	"encoding/binary"
	"math"
)

const (
	gpsTimeSame  = 0
	gpsTimeDelta = 1
	gpsTimeFull  = 2
)

// gpsTime11 compresses the 8-byte GPS time of formats 1 and 3-5. Most
// scans advance time by a near-constant amount per point, so the encoder
// classifies each value as unchanged, a small 32-bit integer delta on the
// raw bit pattern, or a full 64-bit value written out raw.
type gpsTime11 struct {
	last    uint64
	mCase   *symbolModel
	icDelta *integerCompressor
}

func newGpsTime11() *gpsTime11 {
	return &gpsTime11{
		mCase:   newSymbolModel(3),
		icDelta: newIntegerCompressor(32, 1),
	}
}

func (g *gpsTime11) size() int { return 8 }

func (g *gpsTime11) init(raw []byte) {
	g.last = binary.LittleEndian.Uint64(raw)
}

func (g *gpsTime11) encode(enc *arithmeticEncoder, raw []byte) {
	cur := binary.LittleEndian.Uint64(raw)
	if cur == g.last {
		enc.encodeSymbol(g.mCase, gpsTimeSame)
		return
	}

	delta := int64(cur) - int64(g.last)
	if delta >= math.MinInt32 && delta <= math.MaxInt32 {
		enc.encodeSymbol(g.mCase, gpsTimeDelta)
		g.icDelta.compress(enc, 0, int32(delta), 0)
	} else {
		enc.encodeSymbol(g.mCase, gpsTimeFull)
		enc.writeBits(32, uint32(cur))
		enc.writeBits(32, uint32(cur>>32))
	}
	g.last = cur
}

func (g *gpsTime11) decode(dec *arithmeticDecoder, dst []byte) {
	switch dec.decodeSymbol(g.mCase) {
	case gpsTimeSame:
	case gpsTimeDelta:
		delta := g.icDelta.decompress(dec, 0, 0)
		g.last = uint64(int64(g.last) + int64(delta))
	default:
		lo := uint64(dec.readBits(32))
		hi := uint64(dec.readBits(32))
		g.last = hi<<32 | lo
	}
	binary.LittleEndian.PutUint64(dst, g.last)
}
