package laz

// byteItem compresses an opaque run of bytes, one difference model per
// byte position. Formats 4 and 5 route their wave packet descriptors
// through it.
type byteItem struct {
	last   []byte
	models []*symbolModel
}

func newByteItem(n int) *byteItem {
	b := &byteItem{
		last:   make([]byte, n),
		models: make([]*symbolModel, n),
	}
	for i := range b.models {
		b.models[i] = newSymbolModel(256)
	}
	return b
}

func (b *byteItem) size() int { return len(b.last) }

func (b *byteItem) init(raw []byte) {
	copy(b.last, raw)
}

func (b *byteItem) encode(enc *arithmeticEncoder, raw []byte) {
	for i := range b.last {
		diff := raw[i] - b.last[i]
		enc.encodeSymbol(b.models[i], uint32(diff))
		b.last[i] = raw[i]
	}
}

func (b *byteItem) decode(dec *arithmeticDecoder, dst []byte) {
	for i := range b.last {
		b.last[i] += uint8(dec.decodeSymbol(b.models[i]))
		dst[i] = b.last[i]
	}
}
