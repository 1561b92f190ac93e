package compress

// ZstdCompressor provides Zstandard compression for snapshot payloads.
//
// Zstd trades compression speed for ratio, which suits archived point-cloud
// snapshots: attribute columns (especially quantized positions and
// classifications) compress 5:1 or better, and decompression stays fast.
//
// The implementation is selected at build time: the cgo-backed gozstd
// library when cgo is available, the pure-Go klauspost implementation
// otherwise. Both emit standard Zstandard frames and are interchangeable.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
