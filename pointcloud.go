// Package pointcloud provides in-memory point buffers with typed attribute
// views, a LAS file codec for point record formats 0 through 10 with
// optional chunked predictive compression, and a compact snapshot format
// for persisting buffers.
//
// # Core Features
//
//   - Attribute schemas with packed layouts and 64-bit xxHash64 fingerprints
//   - Interleaved and columnar point buffers behind one interface
//   - Zero-boilerplate typed access through generic attribute bindings
//   - LAS reading and writing, versions 1.0 through 1.4
//   - Chunked predictive compression of the legacy point formats with
//     chunk-granular seeking
//   - Checksummed, per-attribute compressed snapshots (Zstd, S2, LZ4)
//
// # Basic Usage
//
// Building a buffer and writing it as a compressed file:
//
//	layout, _ := schema.NewLayout(schema.Position3D, schema.Intensity)
//	buf := pointcloud.NewColumnarBuffer(layout, 1024)
//
//	// fill buf through a View or PushPoint, then:
//	w, _ := pointcloud.NewFileWriter(file,
//	    las.WithPointFormat(1),
//	    las.WithCompression(),
//	)
//	_ = w.Write(buf)
//	_ = w.Close()
//
// Reading a file back:
//
//	r, _ := pointcloud.OpenFile(file)
//	buf, _ := pointcloud.ReadAll(r, layout, format.LayoutColumnar)
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the buffer,
// las and snapshot packages, simplifying the most common use cases. For
// advanced usage and fine-grained control, use those packages directly.
package pointcloud

import (
	"io"

	"github.com/arloliu/pointcloud/buffer"
	"github.com/arloliu/pointcloud/format"
	"github.com/arloliu/pointcloud/las"
	"github.com/arloliu/pointcloud/schema"
	"github.com/arloliu/pointcloud/snapshot"
)

// NewInterleavedBuffer creates a point buffer storing complete point
// records contiguously. Best for record-at-a-time access and file IO.
func NewInterleavedBuffer(layout *schema.PointLayout, capacity int) buffer.PointBuffer {
	return buffer.NewInterleaved(layout, capacity)
}

// NewColumnarBuffer creates a point buffer storing each attribute in its
// own column. Best for per-attribute scans and snapshot compression.
func NewColumnarBuffer(layout *schema.PointLayout, capacity int) buffer.PointBuffer {
	return buffer.NewColumnar(layout, capacity)
}

// OpenFile opens a LAS file, parsing the header and the variable length
// records. Compressed point data is detected from the header and handled
// transparently.
func OpenFile(r io.ReadSeeker) (*las.Reader, error) {
	return las.NewReader(r)
}

// NewFileWriter creates a LAS file writer. See the las package for the
// available options.
func NewFileWriter(w io.WriteSeeker, opts ...las.WriterOption) (*las.Writer, error) {
	return las.NewWriter(w, opts...)
}

// ReadAll reads every remaining point of r into a new buffer of the
// given layout and physical kind.
func ReadAll(r *las.Reader, layout *schema.PointLayout, kind format.LayoutKind) (buffer.PointBuffer, error) {
	buf := buffer.New(kind, layout, int(r.NumPoints()))
	for {
		n, err := r.ReadInto(buf, 4096)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return buf, nil
		}
	}
}

// WriteAll writes buf as a complete LAS file and closes the writer.
func WriteAll(w io.WriteSeeker, buf buffer.PointBuffer, opts ...las.WriterOption) error {
	lw, err := las.NewWriter(w, opts...)
	if err != nil {
		return err
	}
	if err := lw.Write(buf); err != nil {
		return err
	}

	return lw.Close()
}

// Snapshot serializes a buffer into checksummed snapshot bytes.
func Snapshot(buf buffer.PointBuffer, opts ...snapshot.EncoderOption) ([]byte, error) {
	enc, err := snapshot.NewEncoder(opts...)
	if err != nil {
		return nil, err
	}

	return enc.Encode(buf)
}

// RestoreSnapshot reconstructs a buffer from snapshot bytes.
func RestoreSnapshot(data []byte) (buffer.PointBuffer, error) {
	return snapshot.Decode(data)
}
