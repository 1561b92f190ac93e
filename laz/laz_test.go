package laz

import (
	"bytes"
	"io"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/pointcloud/errs"
)

// seekBuffer is an in-memory io.WriteSeeker.
type seekBuffer struct {
	data []byte
	pos  int64
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		b.pos = offset
	case io.SeekCurrent:
		b.pos += offset
	case io.SeekEnd:
		b.pos = int64(len(b.data)) + offset
	}
	return b.pos, nil
}

func TestArithmeticBitRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bits := make([]uint32, 4096)
	for i := range bits {
		// skewed distribution so the model actually adapts
		if rng.Intn(10) == 0 {
			bits[i] = 1
		}
	}

	enc := newArithmeticEncoder()
	m := newBitModel()
	for _, bit := range bits {
		enc.encodeBit(m, bit)
	}
	stream := enc.done()

	dec := newArithmeticDecoder(stream)
	m = newBitModel()
	for i, want := range bits {
		require.Equal(t, want, dec.decodeBit(m), "bit %d", i)
	}
	require.False(t, dec.overrun)
}

func TestArithmeticSymbolRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	syms := make([]uint32, 4096)
	for i := range syms {
		// mostly small symbols with occasional outliers
		if rng.Intn(8) == 0 {
			syms[i] = uint32(rng.Intn(256))
		} else {
			syms[i] = uint32(rng.Intn(4))
		}
	}

	enc := newArithmeticEncoder()
	m := newSymbolModel(256)
	for _, sym := range syms {
		enc.encodeSymbol(m, sym)
	}
	stream := enc.done()

	dec := newArithmeticDecoder(stream)
	m = newSymbolModel(256)
	for i, want := range syms {
		require.Equal(t, want, dec.decodeSymbol(m), "symbol %d", i)
	}
	require.False(t, dec.overrun)
}

func TestArithmeticRawBitsRoundTrip(t *testing.T) {
	values := []struct {
		n uint
		v uint32
	}{
		{1, 1}, {3, 5}, {8, 0xAB}, {16, 0xBEEF}, {24, 0x123456}, {32, 0xDEADBEEF}, {32, 0},
	}

	enc := newArithmeticEncoder()
	for _, tc := range values {
		enc.writeBits(tc.n, tc.v)
	}
	stream := enc.done()

	dec := newArithmeticDecoder(stream)
	for i, tc := range values {
		require.Equal(t, tc.v, dec.readBits(tc.n), "value %d", i)
	}
	require.False(t, dec.overrun)
}

func TestIntegerCompressorRoundTrip(t *testing.T) {
	pairs := []struct {
		pred, real int32
	}{
		{0, 0},
		{0, 1},
		{0, -1},
		{100, 100},
		{100, 103},
		{100, 97},
		{-500, 500},
		{0, math.MaxInt32},
		{0, math.MinInt32},
		{math.MaxInt32, math.MinInt32},
		{math.MinInt32, math.MaxInt32},
	}

	enc := newArithmeticEncoder()
	ic := newIntegerCompressor(32, 1)
	for _, p := range pairs {
		ic.compress(enc, p.pred, p.real, 0)
	}
	stream := enc.done()

	dec := newArithmeticDecoder(stream)
	ic = newIntegerCompressor(32, 1)
	for i, p := range pairs {
		require.Equal(t, p.real, ic.decompress(dec, p.pred, 0), "pair %d", i)
	}
	require.False(t, dec.overrun)
}

// makeRecords generates count pseudo-realistic raw records for the item
// sequence: slowly drifting positions, sticky attribute bytes and a
// near-constant time step, the shape this engine is tuned for.
func makeRecords(t *testing.T, params *Params, count int, seed int64) [][]byte {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	size := params.RecordSize()

	x, y, z := int32(100000), int32(200000), int32(-5000)
	intensity := uint16(120)
	gps := uint64(0x41C8A5F000000000)
	r, g, b := uint16(1000), uint16(2000), uint16(3000)

	records := make([][]byte, count)
	for i := range records {
		rec := make([]byte, size)

		x += int32(rng.Intn(200) - 100)
		y += int32(rng.Intn(200) - 100)
		z += int32(rng.Intn(20) - 10)
		if rng.Intn(4) == 0 {
			intensity = uint16(rng.Intn(1 << 16))
		}

		off := 0
		for _, item := range params.Items {
			field := rec[off : off+int(item.Size)]
			switch item.Type {
			case itemPoint10:
				putU32 := func(o int, v uint32) {
					field[o] = byte(v)
					field[o+1] = byte(v >> 8)
					field[o+2] = byte(v >> 16)
					field[o+3] = byte(v >> 24)
				}
				putU32(0, uint32(x))
				putU32(4, uint32(y))
				putU32(8, uint32(z))
				field[12] = byte(intensity)
				field[13] = byte(intensity >> 8)
				field[14] = byte(0x09 | rng.Intn(2)<<3) // return 1 of 1 or 2
				field[15] = byte(rng.Intn(3) + 1)
				field[16] = byte(rng.Intn(30))
				field[17] = 7
				field[18] = byte(i % 3)
				field[19] = 0
			case itemGpsTime11:
				gps += uint64(rng.Intn(1000) + 1)
				for o := 0; o < 8; o++ {
					field[o] = byte(gps >> (8 * o))
				}
			case itemRGB12:
				r += uint16(rng.Intn(8))
				g += uint16(rng.Intn(8))
				b += uint16(rng.Intn(8))
				field[0], field[1] = byte(r), byte(r>>8)
				field[2], field[3] = byte(g), byte(g>>8)
				field[4], field[5] = byte(b), byte(b>>8)
			case itemByte:
				if rng.Intn(8) == 0 {
					rng.Read(field)
				}
			}
			off += int(item.Size)
		}
		records[i] = rec
	}
	return records
}

func writeStream(t *testing.T, params *Params, records [][]byte) []byte {
	t.Helper()
	var buf seekBuffer
	cw, err := NewWriter(&buf, params)
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, cw.WriteRecord(rec))
	}
	require.NoError(t, cw.Close())
	return buf.data
}

func TestChunkStreamRoundTrip(t *testing.T) {
	for _, format := range []uint8{0, 1, 2, 3, 4, 5} {
		params, err := NewParams(format, 64)
		require.NoError(t, err)

		records := makeRecords(t, params, 300, int64(format))
		stream := writeStream(t, params, records)

		cr, err := NewReader(bytes.NewReader(stream), params)
		require.NoError(t, err)
		require.Equal(t, uint64(len(records)), cr.NumRecords())

		dst := make([]byte, params.RecordSize())
		for i, want := range records {
			require.NoError(t, cr.ReadRecord(dst), "format %d record %d", format, i)
			require.Equal(t, want, dst, "format %d record %d", format, i)
		}
		require.ErrorIs(t, cr.ReadRecord(dst), io.EOF)
	}
}

func TestChunkStreamSeek(t *testing.T) {
	params, err := NewParams(1, 50)
	require.NoError(t, err)
	records := makeRecords(t, params, 220, 7)
	stream := writeStream(t, params, records)

	cr, err := NewReader(bytes.NewReader(stream), params)
	require.NoError(t, err)

	dst := make([]byte, params.RecordSize())
	for _, n := range []uint64{0, 49, 50, 51, 117, 219, 3} {
		require.NoError(t, cr.SeekToRecord(n), "seek to %d", n)
		require.NoError(t, cr.ReadRecord(dst))
		assert.Equal(t, records[n], dst, "record %d", n)

		// the cursor keeps advancing from the seek target
		if n+1 < uint64(len(records)) {
			require.NoError(t, cr.ReadRecord(dst))
			assert.Equal(t, records[n+1], dst, "record %d", n+1)
		}
	}

	require.ErrorIs(t, cr.SeekToRecord(uint64(len(records))), errs.ErrIndexOutOfBounds)
}

func TestChunkDecodeIsChunkIndependent(t *testing.T) {
	params, err := NewParams(0, 32)
	require.NoError(t, err)
	records := makeRecords(t, params, 100, 11)
	stream := writeStream(t, params, records)

	// jump straight into the third chunk without touching the first two
	cr, err := NewReader(bytes.NewReader(stream), params)
	require.NoError(t, err)
	require.NoError(t, cr.SeekToRecord(64))

	dst := make([]byte, params.RecordSize())
	for n := 64; n < 100; n++ {
		require.NoError(t, cr.ReadRecord(dst))
		require.Equal(t, records[n], dst, "record %d", n)
	}
}

func TestTruncatedStream(t *testing.T) {
	params, err := NewParams(0, 64)
	require.NoError(t, err)
	records := makeRecords(t, params, 100, 3)
	stream := writeStream(t, params, records)

	t.Run("missing chunk table", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(stream[:len(stream)-20]), params)
		require.ErrorIs(t, err, errs.ErrCorruptStream)
	})

	t.Run("missing table offset", func(t *testing.T) {
		_, err := NewReader(bytes.NewReader(stream[:4]), params)
		require.ErrorIs(t, err, errs.ErrCorruptStream)
	})

	t.Run("table offset before stream", func(t *testing.T) {
		bad := bytes.Clone(stream)
		for i := 0; i < 8; i++ {
			bad[i] = 0
		}
		_, err := NewReader(bytes.NewReader(bad), params)
		require.ErrorIs(t, err, errs.ErrCorruptStream)
	})
}

func TestWriterRejectsBadRecordSize(t *testing.T) {
	params, err := NewParams(0, 64)
	require.NoError(t, err)

	var buf seekBuffer
	cw, err := NewWriter(&buf, params)
	require.NoError(t, err)
	require.ErrorIs(t, cw.WriteRecord(make([]byte, 19)), errs.ErrLayoutMismatch)
}

func TestParamsRoundTrip(t *testing.T) {
	for _, format := range []uint8{0, 1, 2, 3, 4, 5} {
		params, err := NewParams(format, 0)
		require.NoError(t, err)
		assert.Equal(t, uint32(DefaultChunkSize), params.ChunkSize)

		parsed, err := ParseParams(params.Bytes())
		require.NoError(t, err)
		assert.Equal(t, params, parsed, "format %d", format)
	}
}

func TestParamsErrors(t *testing.T) {
	_, err := NewParams(6, 0)
	require.ErrorIs(t, err, errs.ErrUnsupportedFormat)

	_, err = ParseParams(make([]byte, 10))
	require.ErrorIs(t, err, errs.ErrInvalidHeader)

	params, err := NewParams(0, 0)
	require.NoError(t, err)

	payload := params.Bytes()
	payload[0] = 1 // unknown compressor
	_, err = ParseParams(payload)
	require.ErrorIs(t, err, errs.ErrUnsupportedFormat)
}

func TestRecordSizes(t *testing.T) {
	want := map[uint8]int{0: 20, 1: 28, 2: 26, 3: 34, 4: 57, 5: 63}
	for format, size := range want {
		params, err := NewParams(format, 0)
		require.NoError(t, err)
		assert.Equal(t, size, params.RecordSize(), "format %d", format)
	}
}
