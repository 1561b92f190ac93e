package snapshot

import (
	"fmt"

	"github.com/arloliu/pointcloud/buffer"
	"github.com/arloliu/pointcloud/compress"
	"github.com/arloliu/pointcloud/endian"
	"github.com/arloliu/pointcloud/format"
	"github.com/arloliu/pointcloud/internal/hash"
	"github.com/arloliu/pointcloud/internal/options"
	"github.com/arloliu/pointcloud/internal/pool"
)

// Encoder serializes point buffers into snapshot bytes.
//
// An encoder is configured once and may be reused for any number of buffers.
// It is not safe for concurrent use.
type Encoder struct {
	compression format.CompressionType
	codec       compress.Codec
	engine      endian.EndianEngine
	bigEndian   bool
}

// EncoderOption configures an Encoder.
type EncoderOption = options.Option[*Encoder]

// WithCompression selects the payload compression algorithm.
// The default is format.CompressionZstd.
func WithCompression(compression format.CompressionType) EncoderOption {
	return options.New(func(e *Encoder) error {
		if !compression.Valid() {
			return fmt.Errorf("invalid snapshot compression: %s", compression)
		}
		e.compression = compression

		return nil
	})
}

// WithLittleEndian encodes the snapshot body little-endian (the default).
func WithLittleEndian() EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.engine = endian.GetLittleEndianEngine()
		e.bigEndian = false
	})
}

// WithBigEndian encodes the snapshot body big-endian.
func WithBigEndian() EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.engine = endian.GetBigEndianEngine()
		e.bigEndian = true
	})
}

// NewEncoder creates a snapshot encoder.
//
// Returns:
//   - *Encoder: The configured encoder.
//   - error: An error if an option is invalid.
func NewEncoder(opts ...EncoderOption) (*Encoder, error) {
	e := &Encoder{
		compression: format.CompressionZstd,
		engine:      endian.GetLittleEndianEngine(),
	}

	if err := options.Apply(e, opts...); err != nil {
		return nil, err
	}

	codec, err := compress.GetCodec(e.compression)
	if err != nil {
		return nil, err
	}
	e.codec = codec

	return e, nil
}

// Encode serializes the buffer into snapshot bytes.
//
// Only complete points (buf.Len()) are captured; staged or ragged attribute
// values are not part of a snapshot.
func (e *Encoder) Encode(buf buffer.PointBuffer) ([]byte, error) {
	layout := buf.Layout()
	count := buf.Len()

	body := pool.GetChunkBuffer()
	defer pool.PutChunkBuffer(body)

	// attribute directory
	for _, m := range layout.Members() {
		name := m.Name()
		body.B = e.engine.AppendUint16(body.B, uint16(len(name)))
		body.MustWrite([]byte(name))
		_ = body.WriteByte(byte(m.Datatype()))
	}
	payloadOffset := HeaderSize + body.Len()

	// per-attribute payloads, compressed independently; a single column is
	// much smaller than the body, so it stages through the small pool
	column := pool.GetBuffer()
	defer pool.PutBuffer(column)

	for _, m := range layout.Members() {
		column.Reset()
		if err := appendColumn(column, buf, m.Name(), count); err != nil {
			return nil, err
		}

		compressed, err := e.codec.Compress(column.Bytes())
		if err != nil {
			return nil, fmt.Errorf("compress attribute %q: %w", m.Name(), err)
		}

		body.B = e.engine.AppendUint32(body.B, uint32(len(compressed)))
		body.MustWrite(compressed)
	}

	header := Header{
		PointCount:      uint32(count),
		AttributeCount:  uint32(layout.Len()),
		DirectoryOffset: HeaderSize,
		PayloadOffset:   uint32(payloadOffset),
		Checksum:        hash.Sum(body.Bytes()),
		Flag:            NewFlag(buf.Kind(), e.compression, e.bigEndian),
	}

	out := make([]byte, 0, HeaderSize+body.Len())
	out = append(out, header.Bytes()...)
	out = append(out, body.Bytes()...)

	return out, nil
}

// appendColumn appends the first count values of one attribute to dst.
// Columnar buffers expose their region directly; interleaved buffers are
// gathered value by value.
func appendColumn(dst *pool.ByteBuffer, buf buffer.PointBuffer, name string, count int) error {
	if col, ok := buf.(*buffer.Columnar); ok {
		data, err := col.AttributeData(name)
		if err != nil {
			return err
		}
		attr, _ := col.Layout().Attribute(name)
		dst.MustWrite(data[:count*attr.Size()])

		return nil
	}

	for i := 0; i < count; i++ {
		value, err := buf.GetAttribute(name, i)
		if err != nil {
			return err
		}
		dst.MustWrite(value)
	}

	return nil
}
