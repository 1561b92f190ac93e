package format

type (
	CompressionType uint8
	LayoutKind      uint8
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.

	LayoutInterleaved LayoutKind = 0x1 // LayoutInterleaved stores points attribute-interleaved.
	LayoutColumnar    LayoutKind = 0x2 // LayoutColumnar stores one region per attribute.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

func (k LayoutKind) String() string {
	switch k {
	case LayoutInterleaved:
		return "Interleaved"
	case LayoutColumnar:
		return "Columnar"
	default:
		return "Unknown"
	}
}

// Valid reports whether the compression type is a known code.
func (c CompressionType) Valid() bool {
	return c >= CompressionNone && c <= CompressionLZ4
}

// Valid reports whether the layout kind is a known code.
func (k LayoutKind) Valid() bool {
	return k == LayoutInterleaved || k == LayoutColumnar
}
