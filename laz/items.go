package laz

import "encoding/binary"

// itemCompressor compresses one fixed-size slice of every point record.
// init seeds the predictor context from the chunk's first, raw-encoded
// record; encode and decode handle every subsequent record.
//
// Decoding is the exact inverse of encoding, and decoded values feed the
// same predictor updates the encoder performed, keeping both sides in sync.
type itemCompressor interface {
	size() int
	init(raw []byte)
	encode(enc *arithmeticEncoder, raw []byte)
	decode(dec *arithmeticDecoder, dst []byte)
}

// streamingMedian5 tracks the median of the last five values, the
// position-delta predictor for point10 records.
type streamingMedian5 struct {
	values [5]int32
	high   bool
}

func (s *streamingMedian5) add(v int32) {
	// keep the window sorted by insertion, alternating eviction side
	if !s.high {
		if s.values[0] < s.values[1] {
			s.values[0] = s.values[1]
			if v < s.values[2] {
				s.values[1] = v
			} else {
				s.values[1] = s.values[2]
				if v < s.values[3] {
					s.values[2] = v
				} else {
					s.values[2] = s.values[3]
					s.values[3] = v
				}
			}
		} else if v < s.values[1] {
			s.values[0] = v
		} else {
			s.values[0] = s.values[1]
			if v < s.values[2] {
				s.values[1] = v
			} else {
				s.values[1] = s.values[2]
				if v < s.values[3] {
					s.values[2] = v
				} else {
					s.values[2] = s.values[3]
					s.values[3] = v
				}
			}
		}
	} else {
		if s.values[3] < s.values[4] {
			s.values[4] = s.values[3]
			if v > s.values[2] {
				s.values[3] = v
			} else {
				s.values[3] = s.values[2]
				if v > s.values[1] {
					s.values[2] = v
				} else {
					s.values[2] = s.values[1]
					s.values[1] = v
				}
			}
		} else if v > s.values[3] {
			s.values[4] = v
		} else {
			s.values[4] = s.values[3]
			if v > s.values[2] {
				s.values[3] = v
			} else {
				s.values[3] = s.values[2]
				if v > s.values[1] {
					s.values[2] = v
				} else {
					s.values[2] = s.values[1]
					s.values[1] = v
				}
			}
		}
	}
	s.high = !s.high
}

func (s *streamingMedian5) median() int32 {
	return s.values[2]
}

// point10 compresses the 20-byte core record shared by formats 0-5:
// positions through median-of-five delta prediction, intensity and point
// source id through residual coding, and the flag, classification, angle
// and user-data bytes through change-flagged adaptive models.
type point10 struct {
	lastX, lastY, lastZ int32
	lastIntensity       uint16
	lastFlags           uint8
	lastClass           uint8
	lastAngle           uint8
	lastUser            uint8
	lastPSID            uint16

	medianX, medianY streamingMedian5

	icX, icY, icZ *integerCompressor
	icIntensity   *integerCompressor
	icPSID        *integerCompressor

	mChanged *symbolModel
	mFlags   *symbolModel
	mClass   *symbolModel
	mAngle   *symbolModel
	mUser    *symbolModel
}

func newPoint10() *point10 {
	return &point10{
		icX:         newIntegerCompressor(32, 2),
		icY:         newIntegerCompressor(32, 2),
		icZ:         newIntegerCompressor(32, 2),
		icIntensity: newIntegerCompressor(16, 2),
		icPSID:      newIntegerCompressor(16, 1),
		mChanged:    newSymbolModel(64),
		mFlags:      newSymbolModel(256),
		mClass:      newSymbolModel(256),
		mAngle:      newSymbolModel(256),
		mUser:       newSymbolModel(256),
	}
}

func (p *point10) size() int { return 20 }

func (p *point10) init(raw []byte) {
	p.lastX = int32(binary.LittleEndian.Uint32(raw[0:4]))
	p.lastY = int32(binary.LittleEndian.Uint32(raw[4:8]))
	p.lastZ = int32(binary.LittleEndian.Uint32(raw[8:12]))
	p.lastIntensity = binary.LittleEndian.Uint16(raw[12:14])
	p.lastFlags = raw[14]
	p.lastClass = raw[15]
	p.lastAngle = raw[16]
	p.lastUser = raw[17]
	p.lastPSID = binary.LittleEndian.Uint16(raw[18:20])

	p.medianX = streamingMedian5{}
	p.medianY = streamingMedian5{}
}

// singleReturn reports whether the flag byte describes a single-return
// point, the context split for position residuals.
func singleReturn(flags uint8) bool {
	return (flags>>3)&0x7 <= 1
}

func (p *point10) encode(enc *arithmeticEncoder, raw []byte) {
	x := int32(binary.LittleEndian.Uint32(raw[0:4]))
	y := int32(binary.LittleEndian.Uint32(raw[4:8]))
	z := int32(binary.LittleEndian.Uint32(raw[8:12]))
	intensity := binary.LittleEndian.Uint16(raw[12:14])
	flags := raw[14]
	class := raw[15]
	angle := raw[16]
	user := raw[17]
	psid := binary.LittleEndian.Uint16(raw[18:20])

	var changed uint32
	if flags != p.lastFlags {
		changed |= 1 << 5
	}
	if intensity != p.lastIntensity {
		changed |= 1 << 4
	}
	if class != p.lastClass {
		changed |= 1 << 3
	}
	if angle != p.lastAngle {
		changed |= 1 << 2
	}
	if user != p.lastUser {
		changed |= 1 << 1
	}
	if psid != p.lastPSID {
		changed |= 1
	}
	enc.encodeSymbol(p.mChanged, changed)

	if changed&(1<<5) != 0 {
		enc.encodeSymbol(p.mFlags, uint32(flags))
	}
	if changed&(1<<4) != 0 {
		ctx := uint32(0)
		if singleReturn(p.lastFlags) {
			ctx = 1
		}
		p.icIntensity.compress(enc, int32(p.lastIntensity), int32(intensity), ctx)
	}
	if changed&(1<<3) != 0 {
		enc.encodeSymbol(p.mClass, uint32(class))
	}
	if changed&(1<<2) != 0 {
		enc.encodeSymbol(p.mAngle, uint32(angle))
	}
	if changed&(1<<1) != 0 {
		enc.encodeSymbol(p.mUser, uint32(user))
	}
	if changed&1 != 0 {
		p.icPSID.compress(enc, int32(p.lastPSID), int32(psid), 0)
	}

	ctx := uint32(0)
	if singleReturn(flags) {
		ctx = 1
	}

	dx := x - p.lastX
	p.icX.compress(enc, p.medianX.median(), dx, ctx)
	p.medianX.add(dx)

	dy := y - p.lastY
	p.icY.compress(enc, p.medianY.median(), dy, ctx)
	p.medianY.add(dy)

	p.icZ.compress(enc, p.lastZ, z, ctx)

	p.lastX, p.lastY, p.lastZ = x, y, z
	p.lastIntensity = intensity
	p.lastFlags = flags
	p.lastClass = class
	p.lastAngle = angle
	p.lastUser = user
	p.lastPSID = psid
}

func (p *point10) decode(dec *arithmeticDecoder, dst []byte) {
	changed := dec.decodeSymbol(p.mChanged)

	// the intensity context depends on the previous flag byte, so the
	// flags update is deferred until after intensity
	newFlags := p.lastFlags
	if changed&(1<<5) != 0 {
		newFlags = uint8(dec.decodeSymbol(p.mFlags))
	}
	if changed&(1<<4) != 0 {
		ctx := uint32(0)
		if singleReturn(p.lastFlags) {
			ctx = 1
		}
		p.lastIntensity = uint16(p.icIntensity.decompress(dec, int32(p.lastIntensity), ctx))
	}
	p.lastFlags = newFlags
	if changed&(1<<3) != 0 {
		p.lastClass = uint8(dec.decodeSymbol(p.mClass))
	}
	if changed&(1<<2) != 0 {
		p.lastAngle = uint8(dec.decodeSymbol(p.mAngle))
	}
	if changed&(1<<1) != 0 {
		p.lastUser = uint8(dec.decodeSymbol(p.mUser))
	}
	if changed&1 != 0 {
		p.lastPSID = uint16(p.icPSID.decompress(dec, int32(p.lastPSID), 0))
	}

	ctx := uint32(0)
	if singleReturn(p.lastFlags) {
		ctx = 1
	}

	dx := p.icX.decompress(dec, p.medianX.median(), ctx)
	p.medianX.add(dx)
	p.lastX += dx

	dy := p.icY.decompress(dec, p.medianY.median(), ctx)
	p.medianY.add(dy)
	p.lastY += dy

	p.lastZ = p.icZ.decompress(dec, p.lastZ, ctx)

	binary.LittleEndian.PutUint32(dst[0:4], uint32(p.lastX))
	binary.LittleEndian.PutUint32(dst[4:8], uint32(p.lastY))
	binary.LittleEndian.PutUint32(dst[8:12], uint32(p.lastZ))
	binary.LittleEndian.PutUint16(dst[12:14], p.lastIntensity)
	dst[14] = p.lastFlags
	dst[15] = p.lastClass
	dst[16] = p.lastAngle
	dst[17] = p.lastUser
	binary.LittleEndian.PutUint16(dst[18:20], p.lastPSID)
}
