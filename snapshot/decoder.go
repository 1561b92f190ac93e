package snapshot

import (
	"fmt"

	"github.com/arloliu/pointcloud/buffer"
	"github.com/arloliu/pointcloud/compress"
	"github.com/arloliu/pointcloud/errs"
	"github.com/arloliu/pointcloud/internal/hash"
	"github.com/arloliu/pointcloud/schema"
)

// Decode restores a point buffer from snapshot bytes.
//
// The reconstructed buffer uses the same physical layout kind the snapshot
// was encoded from.
//
// Returns:
//   - buffer.PointBuffer: The restored buffer.
//   - error: errs.ErrInvalidSnapshot for truncated or malformed data,
//     errs.ErrChecksumMismatch if the body digest does not match, or
//     errs.ErrUnknownCompression for unknown codec codes.
func Decode(data []byte) (buffer.PointBuffer, error) {
	var header Header
	if err := header.Parse(data); err != nil {
		return nil, err
	}

	body := data[HeaderSize:]
	if hash.Sum(body) != header.Checksum {
		return nil, errs.ErrChecksumMismatch
	}

	engine := header.Flag.GetEndianEngine()
	codec, err := compress.GetCodec(header.Flag.Compression())
	if err != nil {
		return nil, fmt.Errorf("%w: code 0x%02x", errs.ErrUnknownCompression, header.Flag.CompressionType)
	}

	// attribute directory
	attrs := make([]schema.Attribute, 0, header.AttributeCount)
	cursor := body
	for i := uint32(0); i < header.AttributeCount; i++ {
		if len(cursor) < 2 {
			return nil, fmt.Errorf("%w: truncated directory", errs.ErrInvalidSnapshot)
		}
		nameLen := int(engine.Uint16(cursor))
		cursor = cursor[2:]

		if len(cursor) < nameLen+1 {
			return nil, fmt.Errorf("%w: truncated directory entry", errs.ErrInvalidSnapshot)
		}
		name := string(cursor[:nameLen])
		datatype := schema.DataType(cursor[nameLen])
		cursor = cursor[nameLen+1:]

		if !datatype.Valid() {
			return nil, fmt.Errorf("%w: unknown datatype 0x%02x for attribute %q",
				errs.ErrInvalidSnapshot, uint8(datatype), name)
		}
		attrs = append(attrs, schema.NewAttribute(name, datatype))
	}

	layout, err := schema.NewLayout(attrs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidSnapshot, err)
	}

	count := int(header.PointCount)
	buf := buffer.New(header.Flag.Kind(), layout, count)

	// per-attribute payloads
	for _, m := range layout.Members() {
		if len(cursor) < 4 {
			return nil, fmt.Errorf("%w: truncated payload section", errs.ErrInvalidSnapshot)
		}
		payloadLen := int(engine.Uint32(cursor))
		cursor = cursor[4:]

		if len(cursor) < payloadLen {
			return nil, fmt.Errorf("%w: truncated payload for attribute %q", errs.ErrInvalidSnapshot, m.Name())
		}
		column, err := codec.Decompress(cursor[:payloadLen])
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %q: %v", errs.ErrInvalidSnapshot, m.Name(), err)
		}
		cursor = cursor[payloadLen:]

		if len(column) != count*m.Size() {
			return nil, fmt.Errorf("%w: attribute %q holds %d bytes, expected %d",
				errs.ErrInvalidSnapshot, m.Name(), len(column), count*m.Size())
		}
		if count == 0 {
			continue
		}
		if err := buf.PushAttributeRange(m.Name(), column); err != nil {
			return nil, err
		}
	}

	return buf, nil
}
