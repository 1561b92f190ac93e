// Package snapshot provides a compact binary persistence format for point
// buffers.
//
// A snapshot stores a buffer's layout and point data column-wise: one
// payload stream per attribute, each optionally compressed. Column-wise
// payloads compress far better than interleaved records, and restoring a
// columnar buffer from them is a straight copy. The buffer's physical layout
// kind is recorded so Decode reconstructs the same storage strategy that was
// encoded.
//
// # Layout
//
//	header     fixed 32 bytes (flag, counts, offsets, checksum)
//	directory  per attribute: name length, name bytes, datatype code
//	payloads   per attribute: payload length, payload bytes
//
// The integrity of everything after the header is guarded by a 64-bit
// xxhash digest stored in the header.
package snapshot

import (
	"github.com/arloliu/pointcloud/endian"
	"github.com/arloliu/pointcloud/errs"
	"github.com/arloliu/pointcloud/format"
)

const (
	// HeaderSize is the fixed byte size of the snapshot header.
	HeaderSize = 32

	// flagMagic occupies the high byte of the flag options field.
	flagMagic = 0x9D

	// formatVersion occupies bits 4-7 of the flag options field.
	formatVersion = 0x1

	// optBigEndian marks payloads encoded with the big-endian engine.
	optBigEndian = 0x0001
)

// Flag is the packed option field at the start of the snapshot header.
//
// Options layout (always parsed little-endian, independent of the payload
// byte order it describes):
//
//	bit  0      endianness (0 = little, 1 = big)
//	bits 4-7    format version
//	bits 8-15   magic 0x9D
type Flag struct {
	Options         uint16 // byte offset 0-1
	LayoutKind      uint8  // byte offset 2
	CompressionType uint8  // byte offset 3
}

// NewFlag creates a flag for the given layout kind, compression and byte
// order.
func NewFlag(kind format.LayoutKind, compression format.CompressionType, bigEndian bool) Flag {
	options := uint16(flagMagic)<<8 | uint16(formatVersion)<<4
	if bigEndian {
		options |= optBigEndian
	}

	return Flag{
		Options:         options,
		LayoutKind:      uint8(kind),
		CompressionType: uint8(compression),
	}
}

// GetEndianEngine returns the endian engine the snapshot body was encoded
// with.
func (f Flag) GetEndianEngine() endian.EndianEngine {
	if f.Options&optBigEndian != 0 {
		return endian.GetBigEndianEngine()
	}

	return endian.GetLittleEndianEngine()
}

// Kind returns the recorded physical layout kind.
func (f Flag) Kind() format.LayoutKind {
	return format.LayoutKind(f.LayoutKind)
}

// Compression returns the recorded compression type.
func (f Flag) Compression() format.CompressionType {
	return format.CompressionType(f.CompressionType)
}

// Validate checks the magic, version, layout kind and compression code.
func (f Flag) Validate() error {
	if f.Options>>8 != flagMagic {
		return errs.ErrInvalidSnapshot
	}
	if (f.Options>>4)&0xF != formatVersion {
		return errs.ErrInvalidSnapshot
	}
	if !f.Kind().Valid() {
		return errs.ErrInvalidSnapshot
	}
	if !f.Compression().Valid() {
		return errs.ErrUnknownCompression
	}

	return nil
}

// Header is the fixed-size section at the start of a snapshot.
type Header struct {
	// PointCount is the number of complete points stored in the snapshot.
	PointCount uint32 // byte offset 4-7
	// AttributeCount is the number of attribute payloads.
	AttributeCount uint32 // byte offset 8-11
	// DirectoryOffset is the byte offset of the attribute directory.
	DirectoryOffset uint32 // byte offset 12-15
	// PayloadOffset is the byte offset of the first attribute payload.
	PayloadOffset uint32 // byte offset 16-19
	// Checksum is the xxhash64 digest of everything after the header.
	Checksum uint64 // byte offset 20-27

	// Flag is a packed field for options and magic number.
	Flag Flag // byte offset 0-3
}

// Parse parses the header from a byte slice.
//
// Returns:
//   - error: errs.ErrInvalidSnapshot if data is too short or the flag does
//     not validate, errs.ErrUnknownCompression for unknown codec codes.
func (h *Header) Parse(data []byte) error {
	if len(data) < HeaderSize {
		return errs.ErrInvalidSnapshot
	}

	// Options are always little-endian; they carry the byte order of the rest.
	h.Flag.Options = uint16(data[0]) | uint16(data[1])<<8
	h.Flag.LayoutKind = data[2]
	h.Flag.CompressionType = data[3]

	if err := h.Flag.Validate(); err != nil {
		return err
	}

	engine := h.Flag.GetEndianEngine()
	h.PointCount = engine.Uint32(data[4:8])
	h.AttributeCount = engine.Uint32(data[8:12])
	h.DirectoryOffset = engine.Uint32(data[12:16])
	h.PayloadOffset = engine.Uint32(data[16:20])
	h.Checksum = engine.Uint64(data[20:28])

	return nil
}

// Bytes serializes the header into a byte slice.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)

	b[0] = byte(h.Flag.Options)
	b[1] = byte(h.Flag.Options >> 8)
	b[2] = h.Flag.LayoutKind
	b[3] = h.Flag.CompressionType

	engine := h.Flag.GetEndianEngine()
	engine.PutUint32(b[4:8], h.PointCount)
	engine.PutUint32(b[8:12], h.AttributeCount)
	engine.PutUint32(b[12:16], h.DirectoryOffset)
	engine.PutUint32(b[16:20], h.PayloadOffset)
	engine.PutUint64(b[20:28], h.Checksum)

	return b
}
