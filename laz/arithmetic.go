package laz

const (
	acMinLength = uint32(0x01000000)
	acMaxLength = uint32(0xFFFFFFFF)
)

// arithmeticEncoder is an adaptive range coder over a growing byte buffer.
// One encoder instance serves exactly one chunk; chunk boundaries reset all
// coder state by constructing a fresh encoder.
type arithmeticEncoder struct {
	out    []byte
	base   uint32
	length uint32
}

func newArithmeticEncoder() *arithmeticEncoder {
	return &arithmeticEncoder{
		out:    make([]byte, 0, 1024),
		length: acMaxLength,
	}
}

// propagateCarry resolves an interval-base overflow by rippling the carry
// backwards through the emitted bytes.
func (e *arithmeticEncoder) propagateCarry() {
	i := len(e.out) - 1
	for i >= 0 && e.out[i] == 0xFF {
		e.out[i] = 0
		i--
	}
	if i >= 0 {
		e.out[i]++
	}
}

// renorm emits the settled high-order bytes of the interval base.
func (e *arithmeticEncoder) renorm() {
	for e.length < acMinLength {
		e.out = append(e.out, byte(e.base>>24))
		e.base <<= 8
		e.length <<= 8
	}
}

// encodeBit encodes one bit under the given adaptive model.
func (e *arithmeticEncoder) encodeBit(m *bitModel, bit uint32) {
	x := m.bit0Prob * (e.length >> bmLengthShift)

	if bit == 0 {
		e.length = x
		m.bit0Count++
	} else {
		old := e.base
		e.base += x
		if e.base < old {
			e.propagateCarry()
		}
		e.length -= x
	}

	if e.length < acMinLength {
		e.renorm()
	}

	m.bitsUntil--
	if m.bitsUntil == 0 {
		m.update()
	}
}

// encodeSymbol encodes one symbol under the given adaptive model.
func (e *arithmeticEncoder) encodeSymbol(m *symbolModel, sym uint32) {
	l := e.length >> dmLengthShift
	x := m.distribution[sym] * l

	old := e.base
	e.base += x
	if e.base < old {
		e.propagateCarry()
	}

	if sym+1 < m.symbols {
		e.length = m.distribution[sym+1]*l - x
	} else {
		e.length -= x
	}

	if e.length < acMinLength {
		e.renorm()
	}

	m.tally(sym)
}

// writeBit encodes one raw bit with a fixed 1/2 split.
func (e *arithmeticEncoder) writeBit(bit uint32) {
	x := e.length >> 1

	if bit == 0 {
		e.length = x
	} else {
		old := e.base
		e.base += x
		if e.base < old {
			e.propagateCarry()
		}
		e.length -= x
	}

	if e.length < acMinLength {
		e.renorm()
	}
}

// writeBits encodes n raw bits of v, most significant first. n must be at
// most 32.
func (e *arithmeticEncoder) writeBits(n uint, v uint32) {
	for i := int(n) - 1; i >= 0; i-- {
		e.writeBit((v >> uint(i)) & 1)
	}
}

// done flushes the interval state and returns the finished chunk bytes.
func (e *arithmeticEncoder) done() []byte {
	old := e.base
	if e.length > 2*acMinLength {
		e.base += acMinLength
		e.length = acMinLength >> 1
	} else {
		e.base += acMinLength >> 1
		e.length = acMinLength >> 9
	}
	if e.base < old {
		e.propagateCarry()
	}
	e.renorm()

	// the decoder primes itself with four bytes
	for len(e.out) < 4 {
		e.out = append(e.out, 0)
	}

	return e.out
}

// decoderSlack is how many bytes past the end of the stream the decoder
// may read before the overrun flag raises. The decoder primes itself with
// four bytes, so near the end of a valid stream it runs ahead of the
// encoder's output by up to that margin.
const decoderSlack = 4

// arithmeticDecoder mirrors arithmeticEncoder over an in-memory chunk.
//
// Reading past the end of the chunk does not panic; it feeds zero bytes
// and, once the read-ahead margin is exhausted, raises the overrun flag,
// which the chunk reader reports as a corrupt stream.
type arithmeticDecoder struct {
	in      []byte
	pos     int
	value   uint32
	length  uint32
	overrun bool
}

func newArithmeticDecoder(in []byte) *arithmeticDecoder {
	d := &arithmeticDecoder{in: in, length: acMaxLength}
	for i := 0; i < 4; i++ {
		d.value = d.value<<8 | uint32(d.nextByte())
	}

	return d
}

func (d *arithmeticDecoder) nextByte() byte {
	if d.pos >= len(d.in) {
		if d.pos-len(d.in) >= decoderSlack {
			d.overrun = true
		}
		d.pos++

		return 0
	}

	b := d.in[d.pos]
	d.pos++

	return b
}

func (d *arithmeticDecoder) renorm() {
	for d.length < acMinLength {
		d.value = d.value<<8 | uint32(d.nextByte())
		d.length <<= 8
	}
}

// decodeBit decodes one bit under the given adaptive model.
func (d *arithmeticDecoder) decodeBit(m *bitModel) uint32 {
	x := m.bit0Prob * (d.length >> bmLengthShift)

	var bit uint32
	if d.value < x {
		d.length = x
		m.bit0Count++
	} else {
		bit = 1
		d.value -= x
		d.length -= x
	}

	if d.length < acMinLength {
		d.renorm()
	}

	m.bitsUntil--
	if m.bitsUntil == 0 {
		m.update()
	}

	return bit
}

// decodeSymbol decodes one symbol under the given adaptive model.
func (d *arithmeticDecoder) decodeSymbol(m *symbolModel) uint32 {
	l := d.length >> dmLengthShift

	// find the largest symbol whose interval start lies at or below value
	sym := uint32(0)
	x := uint32(0)
	for s := uint32(1); s < m.symbols; s++ {
		z := m.distribution[s] * l
		if z > d.value {
			break
		}
		x = z
		sym = s
	}

	d.value -= x
	if sym+1 < m.symbols {
		d.length = m.distribution[sym+1]*l - x
	} else {
		d.length -= x
	}

	if d.length < acMinLength {
		d.renorm()
	}

	m.tally(sym)

	return sym
}

// readBit decodes one raw bit with a fixed 1/2 split.
func (d *arithmeticDecoder) readBit() uint32 {
	x := d.length >> 1

	var bit uint32
	if d.value < x {
		d.length = x
	} else {
		bit = 1
		d.value -= x
		d.length -= x
	}

	if d.length < acMinLength {
		d.renorm()
	}

	return bit
}

// readBits decodes n raw bits, most significant first. n must be at most 32.
func (d *arithmeticDecoder) readBits(n uint) uint32 {
	var v uint32
	for i := uint(0); i < n; i++ {
		v = v<<1 | d.readBit()
	}

	return v
}
