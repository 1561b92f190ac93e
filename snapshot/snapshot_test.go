package snapshot

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/pointcloud/buffer"
	"github.com/arloliu/pointcloud/errs"
	"github.com/arloliu/pointcloud/format"
	"github.com/arloliu/pointcloud/schema"
)

func snapshotLayout(t *testing.T) *schema.PointLayout {
	t.Helper()
	layout, err := schema.NewLayout(schema.Position3D, schema.Intensity, schema.Classification, schema.GpsTime)
	require.NoError(t, err)

	return layout
}

func fillBuffer(t *testing.T, buf buffer.PointBuffer, n int) {
	t.Helper()
	stride := buf.Layout().PointStride()
	for i := 0; i < n; i++ {
		raw := make([]byte, stride)
		for axis := 0; axis < 3; axis++ {
			binary.LittleEndian.PutUint64(raw[axis*8:], uint64(i*100+axis))
		}
		binary.LittleEndian.PutUint16(raw[24:], uint16(i))
		raw[26] = byte(i % 32)
		binary.LittleEndian.PutUint64(raw[27:], uint64(i)*7919)
		require.NoError(t, buf.PushPoint(raw))
	}
}

func requireBuffersEqual(t *testing.T, want, got buffer.PointBuffer) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len())
	require.True(t, want.Layout().Equal(got.Layout()),
		cmp.Diff(want.Layout().String(), got.Layout().String()))
	require.Equal(t, want.Kind(), got.Kind())

	for i := 0; i < want.Len(); i++ {
		for _, m := range want.Layout().Members() {
			a, err := want.GetAttribute(m.Name(), i)
			require.NoError(t, err)
			b, err := got.GetAttribute(m.Name(), i)
			require.NoError(t, err)
			assert.Equal(t, a, b, "attribute %s point %d", m.Name(), i)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	kinds := []format.LayoutKind{format.LayoutInterleaved, format.LayoutColumnar}
	compressions := []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	}

	for _, kind := range kinds {
		for _, compression := range compressions {
			t.Run(kind.String()+"_"+compression.String(), func(t *testing.T) {
				buf := buffer.New(kind, snapshotLayout(t), 64)
				fillBuffer(t, buf, 64)

				encoder, err := NewEncoder(WithCompression(compression))
				require.NoError(t, err)

				data, err := encoder.Encode(buf)
				require.NoError(t, err)

				restored, err := Decode(data)
				require.NoError(t, err)
				requireBuffersEqual(t, buf, restored)
			})
		}
	}
}

func TestSnapshotBigEndian(t *testing.T) {
	buf := buffer.New(format.LayoutColumnar, snapshotLayout(t), 8)
	fillBuffer(t, buf, 8)

	encoder, err := NewEncoder(WithBigEndian(), WithCompression(format.CompressionS2))
	require.NoError(t, err)

	data, err := encoder.Encode(buf)
	require.NoError(t, err)

	restored, err := Decode(data)
	require.NoError(t, err)
	requireBuffersEqual(t, buf, restored)
}

func TestSnapshotEmptyBuffer(t *testing.T) {
	buf := buffer.New(format.LayoutInterleaved, snapshotLayout(t), 0)

	encoder, err := NewEncoder()
	require.NoError(t, err)

	data, err := encoder.Encode(buf)
	require.NoError(t, err)

	restored, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, 0, restored.Len())
	require.True(t, buf.Layout().Equal(restored.Layout()))
}

func TestSnapshotChecksumMismatch(t *testing.T) {
	buf := buffer.New(format.LayoutColumnar, snapshotLayout(t), 4)
	fillBuffer(t, buf, 4)

	encoder, err := NewEncoder(WithCompression(format.CompressionNone))
	require.NoError(t, err)

	data, err := encoder.Encode(buf)
	require.NoError(t, err)

	// flip a byte in the body
	data[len(data)-1] ^= 0xFF
	_, err = Decode(data)
	require.ErrorIs(t, err, errs.ErrChecksumMismatch)
}

func TestSnapshotInvalidData(t *testing.T) {
	_, err := Decode(nil)
	require.ErrorIs(t, err, errs.ErrInvalidSnapshot)

	_, err = Decode(make([]byte, 8))
	require.ErrorIs(t, err, errs.ErrInvalidSnapshot)

	// valid-length header but garbage magic
	garbage := make([]byte, HeaderSize)
	_, err = Decode(garbage)
	require.ErrorIs(t, err, errs.ErrInvalidSnapshot)
}

func TestSnapshotTruncatedBody(t *testing.T) {
	buf := buffer.New(format.LayoutColumnar, snapshotLayout(t), 16)
	fillBuffer(t, buf, 16)

	encoder, err := NewEncoder(WithCompression(format.CompressionNone))
	require.NoError(t, err)

	data, err := encoder.Encode(buf)
	require.NoError(t, err)

	// cutting the body fails the checksum before any payload parsing
	_, err = Decode(data[:len(data)-10])
	require.Error(t, err)
}

func TestNewEncoderInvalidOption(t *testing.T) {
	_, err := NewEncoder(WithCompression(format.CompressionType(0xFF)))
	require.Error(t, err)
}
