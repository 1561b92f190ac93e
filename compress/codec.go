// Package compress provides compression and decompression codecs for point
// attribute payloads.
//
// Compression is applied at the payload level by the snapshot codec after
// attribute data has been laid out column-wise, where neighboring values of
// one attribute compress far better than interleaved records. Four
// algorithms are supported:
//
//   - None: no compression (fastest, largest)
//   - Zstd: excellent compression ratio, moderate speed
//   - S2:   balanced compression and speed
//   - LZ4:  fast decompression, moderate compression
//
// The Zstd codec uses the cgo-backed gozstd implementation when cgo is
// available and falls back to the pure-Go klauspost implementation
// otherwise; both produce interchangeable Zstandard frames.
package compress

import (
	"fmt"

	"github.com/arloliu/pointcloud/format"
)

// Compressor compresses one payload.
//
// Memory management:
//   - The returned slice is newly allocated and owned by the caller
//     (except for the no-op codec, which returns the input as-is).
//   - The input slice is not modified.
//   - Internal buffers may be reused for efficiency.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores one payload compressed with the matching algorithm.
//
// Implementations validate the data format and return an error if the data
// is corrupted or was produced by an incompatible algorithm.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves a built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}
