package laz

import "encoding/binary"

// rgb12 compresses the 6-byte color of formats 2, 3 and 5. A change-bit
// symbol flags which of the six channel bytes differ from the previous
// point, then each changed byte is coded through its own difference model.
type rgb12 struct {
	last     [3]uint16
	mChanged *symbolModel
	mDiff    [6]*symbolModel
}

func newRGB12() *rgb12 {
	r := &rgb12{mChanged: newSymbolModel(64)}
	for i := range r.mDiff {
		r.mDiff[i] = newSymbolModel(256)
	}
	return r
}

func (r *rgb12) size() int { return 6 }

func (r *rgb12) init(raw []byte) {
	for i := range r.last {
		r.last[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}
}

func (r *rgb12) encode(enc *arithmeticEncoder, raw []byte) {
	var cur [3]uint16
	var changed uint32
	for i := range cur {
		cur[i] = binary.LittleEndian.Uint16(raw[2*i:])
		if uint8(cur[i]) != uint8(r.last[i]) {
			changed |= 1 << (2 * i)
		}
		if uint8(cur[i]>>8) != uint8(r.last[i]>>8) {
			changed |= 1 << (2*i + 1)
		}
	}
	enc.encodeSymbol(r.mChanged, changed)

	for i := range cur {
		if changed&(1<<(2*i)) != 0 {
			diff := uint8(cur[i]) - uint8(r.last[i])
			enc.encodeSymbol(r.mDiff[2*i], uint32(diff))
		}
		if changed&(1<<(2*i+1)) != 0 {
			diff := uint8(cur[i]>>8) - uint8(r.last[i]>>8)
			enc.encodeSymbol(r.mDiff[2*i+1], uint32(diff))
		}
	}
	r.last = cur
}

func (r *rgb12) decode(dec *arithmeticDecoder, dst []byte) {
	changed := dec.decodeSymbol(r.mChanged)
	for i := range r.last {
		lo := uint8(r.last[i])
		hi := uint8(r.last[i] >> 8)
		if changed&(1<<(2*i)) != 0 {
			lo += uint8(dec.decodeSymbol(r.mDiff[2*i]))
		}
		if changed&(1<<(2*i+1)) != 0 {
			hi += uint8(dec.decodeSymbol(r.mDiff[2*i+1]))
		}
		r.last[i] = uint16(hi)<<8 | uint16(lo)
		binary.LittleEndian.PutUint16(dst[2*i:], r.last[i])
	}
}
