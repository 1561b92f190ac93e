package las

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/pointcloud/buffer"
	"github.com/arloliu/pointcloud/errs"
	"github.com/arloliu/pointcloud/format"
	"github.com/arloliu/pointcloud/schema"
)

// seekBuffer is an in-memory io.WriteSeeker and io.ReadSeeker.
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

func (b *seekBuffer) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += int64(n)
	return n, nil
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

func TestHeaderRoundTrip(t *testing.T) {
	for _, minor := range []uint8{2, 3, 4} {
		h := &Header{
			FileSourceID:       7,
			GlobalEncoding:     1,
			VersionMajor:       1,
			VersionMinor:       minor,
			SystemIdentifier:   "unit test",
			GeneratingSoftware: "pointcloud",
			CreationDayOfYear:  200,
			CreationYear:       2026,
			PointFormat:        1,
			PointRecordLength:  28,
			NumberOfPoints:     1234,
			ScaleX:             0.001, ScaleY: 0.001, ScaleZ: 0.01,
			OffsetX: 100, OffsetY: -50, OffsetZ: 0,
			MaxX: 110.5, MinX: 99.5,
			MaxY: -40, MinY: -60,
			MaxZ: 12, MinZ: -3,
		}
		h.PointsByReturn[0] = 1000
		h.PointsByReturn[1] = 234
		h.OffsetToPointData = uint32(headerSizeForVersion(1, minor))

		data := h.Bytes()
		require.Len(t, data, int(headerSizeForVersion(1, minor)))

		var parsed Header
		require.NoError(t, parsed.Parse(data))
		assert.Equal(t, h.VersionMinor, parsed.VersionMinor)
		assert.Equal(t, h.SystemIdentifier, parsed.SystemIdentifier)
		assert.Equal(t, h.NumberOfPoints, parsed.NumberOfPoints)
		assert.Equal(t, h.PointsByReturn[:2], parsed.PointsByReturn[:2])
		assert.Equal(t, h.ScaleZ, parsed.ScaleZ)
		assert.Equal(t, h.OffsetY, parsed.OffsetY)
		assert.Equal(t, h.MaxX, parsed.MaxX)
		assert.Equal(t, h.MinZ, parsed.MinZ)
	}
}

func TestHeaderParseErrors(t *testing.T) {
	good := &Header{VersionMajor: 1, VersionMinor: 2, OffsetToPointData: headerSize12}
	data := good.Bytes()

	t.Run("short buffer", func(t *testing.T) {
		var h Header
		require.ErrorIs(t, h.Parse(data[:100]), errs.ErrInvalidHeader)
	})

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] = 'X'
		var h Header
		require.ErrorIs(t, h.Parse(bad), errs.ErrInvalidHeader)
	})

	t.Run("unsupported version", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[25] = 9
		var h Header
		require.ErrorIs(t, h.Parse(bad), errs.ErrUnsupportedVersion)
	})

	t.Run("unsupported point format", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[104] = 11
		var h Header
		require.ErrorIs(t, h.Parse(bad), errs.ErrUnsupportedFormat)
	})
}

func TestVLRRoundTrip(t *testing.T) {
	vlrs := []VLR{
		{UserID: "LASF_Projection", RecordID: 2112, Description: "wkt", Data: []byte("PROJCS[...]")},
		{UserID: "custom", RecordID: 42, Data: nil},
	}

	var raw []byte
	for i := range vlrs {
		raw = append(raw, vlrs[i].Bytes()...)
	}

	parsed, err := parseVLRs(raw, 2)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, "LASF_Projection", parsed[0].UserID)
	assert.Equal(t, uint16(2112), parsed[0].RecordID)
	assert.Equal(t, []byte("PROJCS[...]"), parsed[0].Data)
	assert.Empty(t, parsed[1].Data)

	_, err = parseVLRs(raw[:30], 1)
	require.ErrorIs(t, err, errs.ErrInvalidHeader)
}

func TestRecordLengths(t *testing.T) {
	want := []uint16{20, 28, 26, 34, 57, 63, 30, 36, 38, 59, 67}
	for format, length := range want {
		got, err := RecordLength(uint8(format))
		require.NoError(t, err)
		assert.Equal(t, length, got, "format %d", format)
	}
	_, err := RecordLength(11)
	require.ErrorIs(t, err, errs.ErrUnsupportedFormat)
}

func TestEncodeDecodeRecord(t *testing.T) {
	for format := uint8(0); format <= 10; format++ {
		p := rawPoint{
			X: -123456, Y: 789012, Z: 42,
			Intensity:       55555,
			ReturnNumber:    2,
			NumberOfReturns: 5,
			ScanDirection:   1,
			EdgeOfFlight:    1,
			Classification:  6,
			ClassFlags:      3,
			UserData:        99,
			PointSourceID:   4096,
		}
		if formatExtended(format) {
			p.ScannerChannel = 2
			p.ScanAngle = -15000
			p.Classification = 200
			p.ClassFlags = 9
			p.GpsTime = 123456.789
		} else {
			p.ScanAngleRank = -90
			if formatHasGpsTime(format) {
				p.GpsTime = 123456.789
			}
		}
		if formatHasRGB(format) {
			p.Red, p.Green, p.Blue = 1111, 2222, 3333
		}
		if formatHasNIR(format) {
			p.NIR = 4444
		}
		if formatHasWavePacket(format) {
			p.WavePacketIndex = 3
			p.WaveOffset = 1 << 40
			p.WaveSize = 2048
			p.WaveReturnPoint = 1.5
			p.WaveXt, p.WaveYt, p.WaveZt = 0.1, 0.2, 0.3
		}

		length, err := RecordLength(format)
		require.NoError(t, err)
		record := make([]byte, length)
		encodeRecord(format, &p, record)

		var got rawPoint
		decodeRecord(format, record, &got)
		assert.Equal(t, p, got, "format %d", format)
	}
}

// pointRec is the attribute view used by the file round-trip tests.
type pointRec struct {
	Pos       [3]float64
	Intensity uint16
	Ret       uint8
	NumRet    uint8
	Class     uint8
	Gps       float64
	RGB       [3]uint16
	NIR       uint16
}

func layoutForFormat(t *testing.T, pointFormat uint8) *schema.PointLayout {
	t.Helper()
	attrs := []schema.Attribute{
		schema.Position3D, schema.Intensity,
		schema.ReturnNumber, schema.NumberOfReturns, schema.Classification,
	}
	if formatHasGpsTime(pointFormat) {
		attrs = append(attrs, schema.GpsTime)
	}
	if formatHasRGB(pointFormat) {
		attrs = append(attrs, schema.ColorRGB)
	}
	if formatHasNIR(pointFormat) {
		attrs = append(attrs, schema.NIR)
	}
	layout, err := schema.NewLayout(attrs...)
	require.NoError(t, err)
	return layout
}

func bindingFor(t *testing.T, layout *schema.PointLayout) *buffer.Binding[pointRec] {
	t.Helper()
	b := buffer.NewBinding[pointRec](layout)
	require.NoError(t, b.BindVec3F64("Position3D",
		func(r *pointRec) [3]float64 { return r.Pos },
		func(r *pointRec, v [3]float64) { r.Pos = v }))
	require.NoError(t, b.BindU16("Intensity",
		func(r *pointRec) uint16 { return r.Intensity },
		func(r *pointRec, v uint16) { r.Intensity = v }))
	require.NoError(t, b.BindU8("ReturnNumber",
		func(r *pointRec) uint8 { return r.Ret },
		func(r *pointRec, v uint8) { r.Ret = v }))
	require.NoError(t, b.BindU8("NumberOfReturns",
		func(r *pointRec) uint8 { return r.NumRet },
		func(r *pointRec, v uint8) { r.NumRet = v }))
	require.NoError(t, b.BindU8("Classification",
		func(r *pointRec) uint8 { return r.Class },
		func(r *pointRec, v uint8) { r.Class = v }))
	if layout.HasAttribute("GpsTime") {
		require.NoError(t, b.BindF64("GpsTime",
			func(r *pointRec) float64 { return r.Gps },
			func(r *pointRec, v float64) { r.Gps = v }))
	}
	if layout.HasAttribute("ColorRGB") {
		require.NoError(t, b.BindVec3U16("ColorRGB",
			func(r *pointRec) [3]uint16 { return r.RGB },
			func(r *pointRec, v [3]uint16) { r.RGB = v }))
	}
	if layout.HasAttribute("NIR") {
		require.NoError(t, b.BindU16("NIR",
			func(r *pointRec) uint16 { return r.NIR },
			func(r *pointRec, v uint16) { r.NIR = v }))
	}
	return b
}

func testPoint(i int) pointRec {
	return pointRec{
		Pos:       [3]float64{100 + float64(i)*0.5, -200 + float64(i)*0.25, 50 + float64(i)*0.125},
		Intensity: uint16(i * 13),
		Ret:       uint8(i%5 + 1),
		NumRet:    5,
		Class:     uint8(i % 31),
		Gps:       300000 + float64(i),
		RGB:       [3]uint16{uint16(i), uint16(i * 2), uint16(i * 3)},
		NIR:       uint16(i * 5),
	}
}

func fillBuffer(t *testing.T, layout *schema.PointLayout, count int) buffer.PointBuffer {
	t.Helper()
	buf := buffer.New(format.LayoutColumnar, layout, count)
	view, err := buffer.NewView(buf, bindingFor(t, layout))
	require.NoError(t, err)
	for i := 0; i < count; i++ {
		rec := testPoint(i)
		require.NoError(t, view.Append(&rec))
	}
	return buf
}

func writeFile(t *testing.T, pointFormat uint8, compressed bool, count int) *seekBuffer {
	t.Helper()
	layout := layoutForFormat(t, pointFormat)
	buf := fillBuffer(t, layout, count)

	opts := []WriterOption{WithPointFormat(pointFormat)}
	if compressed {
		opts = append(opts, WithCompression(), WithChunkSize(32))
	}

	var file seekBuffer
	lw, err := NewWriter(&file, opts...)
	require.NoError(t, err)
	require.NoError(t, lw.Write(buf))
	require.NoError(t, lw.Close())
	return &file
}

func checkPoints(t *testing.T, lr *Reader, pointFormat uint8, count int) {
	t.Helper()
	layout := layoutForFormat(t, pointFormat)
	buf := buffer.New(format.LayoutInterleaved, layout, count)

	n, err := lr.ReadInto(buf, count+10)
	require.NoError(t, err)
	require.Equal(t, count, n)

	view, err := buffer.NewView(buf, bindingFor(t, layout))
	require.NoError(t, err)

	for i := 0; i < count; i++ {
		want := testPoint(i)
		got, err := view.At(i)
		require.NoError(t, err)

		assert.InDelta(t, want.Pos[0], got.Pos[0], 0.001, "point %d x", i)
		assert.InDelta(t, want.Pos[1], got.Pos[1], 0.001, "point %d y", i)
		assert.InDelta(t, want.Pos[2], got.Pos[2], 0.001, "point %d z", i)
		assert.Equal(t, want.Intensity, got.Intensity, "point %d", i)
		assert.Equal(t, want.Ret, got.Ret, "point %d", i)
		assert.Equal(t, want.NumRet, got.NumRet, "point %d", i)
		assert.Equal(t, want.Class, got.Class, "point %d", i)
		if formatHasGpsTime(pointFormat) {
			assert.Equal(t, want.Gps, got.Gps, "point %d", i)
		}
		if formatHasRGB(pointFormat) {
			assert.Equal(t, want.RGB, got.RGB, "point %d", i)
		}
		if formatHasNIR(pointFormat) {
			assert.Equal(t, want.NIR, got.NIR, "point %d", i)
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	const count = 120
	for pointFormat := uint8(0); pointFormat <= 10; pointFormat++ {
		file := writeFile(t, pointFormat, false, count)

		lr, err := NewReader(file)
		require.NoError(t, err, "format %d", pointFormat)
		assert.Equal(t, pointFormat, lr.Format())
		assert.False(t, lr.Compressed())
		assert.Equal(t, uint64(count), lr.NumPoints())

		checkPoints(t, lr, pointFormat, count)
	}
}

func TestCompressedFileRoundTrip(t *testing.T) {
	const count = 150
	for pointFormat := uint8(0); pointFormat <= 5; pointFormat++ {
		file := writeFile(t, pointFormat, true, count)

		lr, err := NewReader(file)
		require.NoError(t, err, "format %d", pointFormat)
		assert.Equal(t, pointFormat, lr.Format())
		assert.True(t, lr.Compressed())
		assert.Equal(t, uint64(count), lr.NumPoints())

		checkPoints(t, lr, pointFormat, count)
	}
}

func TestSeekToPoint(t *testing.T) {
	const count = 150
	for _, compressed := range []bool{false, true} {
		file := writeFile(t, 1, compressed, count)
		lr, err := NewReader(file)
		require.NoError(t, err)

		layout := layoutForFormat(t, 1)
		for _, n := range []uint64{0, 31, 32, 77, 149, 5} {
			require.NoError(t, lr.SeekToPoint(n), "compressed=%v seek %d", compressed, n)

			buf := buffer.New(format.LayoutInterleaved, layout, 1)
			read, err := lr.ReadInto(buf, 1)
			require.NoError(t, err)
			require.Equal(t, 1, read)

			view, err := buffer.NewView(buf, bindingFor(t, layout))
			require.NoError(t, err)
			got, err := view.At(0)
			require.NoError(t, err)
			assert.Equal(t, testPoint(int(n)).Intensity, got.Intensity, "compressed=%v point %d", compressed, n)
		}

		// seeking to the end is allowed and reads nothing
		require.NoError(t, lr.SeekToPoint(count))
		buf := buffer.New(format.LayoutInterleaved, layout, 1)
		read, err := lr.ReadInto(buf, 1)
		require.NoError(t, err)
		assert.Zero(t, read)

		require.ErrorIs(t, lr.SeekToPoint(count+1), errs.ErrIndexOutOfBounds)
	}
}

func TestPositionQuantization(t *testing.T) {
	layout, err := schema.NewLayout(schema.Position3D)
	require.NoError(t, err)

	buf := buffer.New(format.LayoutColumnar, layout, 1)
	b := buffer.NewBinding[pointRec](layout)
	require.NoError(t, b.BindVec3F64("Position3D",
		func(r *pointRec) [3]float64 { return r.Pos },
		func(r *pointRec, v [3]float64) { r.Pos = v }))
	view, err := buffer.NewView(buf, b)
	require.NoError(t, err)
	rec := pointRec{Pos: [3]float64{123.45, -67.89, 0.01}}
	require.NoError(t, view.Append(&rec))

	var file seekBuffer
	lw, err := NewWriter(&file, WithScale(0.01, 0.01, 0.01))
	require.NoError(t, err)
	require.NoError(t, lw.Write(buf))
	require.NoError(t, lw.Close())

	lr, err := NewReader(&file)
	require.NoError(t, err)

	out := buffer.New(format.LayoutColumnar, layout, 1)
	n, err := lr.ReadInto(out, 1)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	outView, err := buffer.NewView(out, b)
	require.NoError(t, err)
	got, err := outView.At(0)
	require.NoError(t, err)
	assert.InDelta(t, 123.45, got.Pos[0], 1e-9)
	assert.InDelta(t, -67.89, got.Pos[1], 1e-9)
	assert.InDelta(t, 0.01, got.Pos[2], 1e-9)
}

func TestLossyConversionOnWrite(t *testing.T) {
	layout, err := schema.NewLayout(schema.Position3D, schema.Intensity.WithDatatype(schema.U32))
	require.NoError(t, err)

	buf := buffer.New(format.LayoutColumnar, layout, 1)
	b := buffer.NewBinding[pointRec](layout)
	require.NoError(t, b.BindVec3F64("Position3D",
		func(r *pointRec) [3]float64 { return r.Pos },
		func(r *pointRec, v [3]float64) { r.Pos = v }))
	var wide uint32 = 70000
	require.NoError(t, b.BindU32("Intensity",
		func(r *pointRec) uint32 { return wide },
		func(r *pointRec, v uint32) { wide = v }))
	view, err := buffer.NewView(buf, b)
	require.NoError(t, err)
	rec := pointRec{}
	require.NoError(t, view.Append(&rec))

	var file seekBuffer
	lw, err := NewWriter(&file)
	require.NoError(t, err)
	require.ErrorIs(t, lw.Write(buf), errs.ErrLossyConversion)
}

func TestLegacyReturnNumberCap(t *testing.T) {
	layout, err := schema.NewLayout(schema.Position3D, schema.ReturnNumber, schema.NumberOfReturns)
	require.NoError(t, err)

	b := buffer.NewBinding[pointRec](layout)
	require.NoError(t, b.BindVec3F64("Position3D",
		func(r *pointRec) [3]float64 { return r.Pos },
		func(r *pointRec, v [3]float64) { r.Pos = v }))
	require.NoError(t, b.BindU8("ReturnNumber",
		func(r *pointRec) uint8 { return r.Ret },
		func(r *pointRec, v uint8) { r.Ret = v }))
	require.NoError(t, b.BindU8("NumberOfReturns",
		func(r *pointRec) uint8 { return r.NumRet },
		func(r *pointRec, v uint8) { r.NumRet = v }))

	buf := buffer.New(format.LayoutColumnar, layout, 1)
	view, err := buffer.NewView(buf, b)
	require.NoError(t, err)
	rec := pointRec{Pos: [3]float64{1, 2, 3}, Ret: 6, NumRet: 7}
	require.NoError(t, view.Append(&rec))

	// legacy records only represent returns 1-5 and legacy headers only
	// carry five by-return counters
	var legacy seekBuffer
	lw, err := NewWriter(&legacy)
	require.NoError(t, err)
	require.ErrorIs(t, lw.Write(buf), errs.ErrLossyConversion)

	var extended seekBuffer
	lw, err = NewWriter(&extended, WithPointFormat(6))
	require.NoError(t, err)
	require.NoError(t, lw.Write(buf))
	require.NoError(t, lw.Close())
}

func TestOutOfScaleRangeOnWrite(t *testing.T) {
	layout, err := schema.NewLayout(schema.Position3D)
	require.NoError(t, err)

	buf := buffer.New(format.LayoutColumnar, layout, 1)
	b := buffer.NewBinding[pointRec](layout)
	require.NoError(t, b.BindVec3F64("Position3D",
		func(r *pointRec) [3]float64 { return r.Pos },
		func(r *pointRec, v [3]float64) { r.Pos = v }))
	view, err := buffer.NewView(buf, b)
	require.NoError(t, err)
	rec := pointRec{Pos: [3]float64{1e15, 0, 0}}
	require.NoError(t, view.Append(&rec))

	var file seekBuffer
	lw, err := NewWriter(&file, WithScale(1e-6, 1e-6, 1e-6))
	require.NoError(t, err)
	require.ErrorIs(t, lw.Write(buf), errs.ErrOutOfScaleRange)
}

func TestHeaderFreezesOnFirstWrite(t *testing.T) {
	layout := layoutForFormat(t, 0)
	buf := fillBuffer(t, layout, 3)

	var file seekBuffer
	lw, err := NewWriter(&file)
	require.NoError(t, err)

	require.NoError(t, lw.AddVLR(VLR{UserID: "custom", RecordID: 1}))
	require.NoError(t, lw.Write(buf))
	require.ErrorIs(t, lw.AddVLR(VLR{UserID: "late", RecordID: 2}), errs.ErrHeaderFrozen)
	require.NoError(t, lw.Close())

	lr, err := NewReader(&file)
	require.NoError(t, err)
	require.Len(t, lr.VLRs(), 1)
	assert.Equal(t, "custom", lr.VLRs()[0].UserID)
}

func TestWriterRejectsCompressedExtendedFormat(t *testing.T) {
	var file seekBuffer
	_, err := NewWriter(&file, WithPointFormat(6), WithCompression())
	require.ErrorIs(t, err, errs.ErrUnsupportedFormat)
}

func TestWriterRejectsExtendedFormatOnOldVersion(t *testing.T) {
	var file seekBuffer
	_, err := NewWriter(&file, WithPointFormat(7), WithVersion(1, 2))
	require.ErrorIs(t, err, errs.ErrUnsupportedVersion)
}

func TestReadAttributeMissingFromFormat(t *testing.T) {
	file := writeFile(t, 0, false, 5)
	lr, err := NewReader(file)
	require.NoError(t, err)

	layout, err := schema.NewLayout(schema.Position3D, schema.GpsTime)
	require.NoError(t, err)
	buf := buffer.New(format.LayoutColumnar, layout, 5)
	_, err = lr.ReadInto(buf, 5)
	require.ErrorIs(t, err, errs.ErrUnknownAttribute)
}

func TestHeaderStatistics(t *testing.T) {
	const count = 40
	file := writeFile(t, 0, false, count)

	lr, err := NewReader(file)
	require.NoError(t, err)
	h := lr.Header()

	assert.Equal(t, uint64(count), h.NumberOfPoints)

	var byReturn uint64
	for _, n := range h.PointsByReturn {
		byReturn += n
	}
	assert.Equal(t, uint64(count), byReturn)

	assert.InDelta(t, 100.0, h.MinX, 0.001)
	assert.InDelta(t, 100+float64(count-1)*0.5, h.MaxX, 0.001)
	assert.InDelta(t, -200.0, h.MinY, 0.001)
	assert.InDelta(t, 50+float64(count-1)*0.125, h.MaxZ, 0.001)
}

func TestEmptyFile(t *testing.T) {
	var file seekBuffer
	lw, err := NewWriter(&file, WithPointFormat(1))
	require.NoError(t, err)
	require.NoError(t, lw.Close())

	lr, err := NewReader(&file)
	require.NoError(t, err)
	assert.Zero(t, lr.NumPoints())

	layout := layoutForFormat(t, 1)
	buf := buffer.New(format.LayoutInterleaved, layout, 1)
	n, err := lr.ReadInto(buf, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}
