package laz

import (
	"fmt"

	"github.com/arloliu/pointcloud/endian"
	"github.com/arloliu/pointcloud/errs"
)

// VLR identity of the compression parameter record.
const (
	VLRUserID   = "laszip encoded"
	VLRRecordID = 22204
)

const (
	compressorPointwiseChunked = 2
	coderArithmetic            = 0

	versionMajor = 2
	versionMinor = 2

	// DefaultChunkSize is the record count per chunk when the writer is
	// not configured otherwise.
	DefaultChunkSize = 50000
)

// Item type tags used in the parameter record.
const (
	itemByte      = 0
	itemPoint10   = 6
	itemGpsTime11 = 7
	itemRGB12     = 8
)

const itemVersion = 2

// Item describes one compressed slice of every point record.
type Item struct {
	Type    uint16
	Size    uint16
	Version uint16
}

// Params is the decoded payload of the compression parameter record. It
// names the coder, the chunking granularity and the item sequence that
// together define how the point stream is encoded.
type Params struct {
	Compressor uint16
	Coder      uint16
	ChunkSize  uint32
	Items      []Item
}

const paramsFixedSize = 34

// ItemsForFormat returns the item sequence for a point record format.
// Only the legacy formats 0-5 have a defined sequence here.
func ItemsForFormat(format uint8) ([]Item, error) {
	items := []Item{{Type: itemPoint10, Size: 20, Version: itemVersion}}
	switch format {
	case 0:
	case 1:
		items = append(items, Item{Type: itemGpsTime11, Size: 8, Version: itemVersion})
	case 2:
		items = append(items, Item{Type: itemRGB12, Size: 6, Version: itemVersion})
	case 3:
		items = append(items,
			Item{Type: itemGpsTime11, Size: 8, Version: itemVersion},
			Item{Type: itemRGB12, Size: 6, Version: itemVersion})
	case 4:
		items = append(items,
			Item{Type: itemGpsTime11, Size: 8, Version: itemVersion},
			Item{Type: itemByte, Size: 29, Version: itemVersion})
	case 5:
		items = append(items,
			Item{Type: itemGpsTime11, Size: 8, Version: itemVersion},
			Item{Type: itemRGB12, Size: 6, Version: itemVersion},
			Item{Type: itemByte, Size: 29, Version: itemVersion})
	default:
		return nil, fmt.Errorf("%w: no compression item sequence for point format %d", errs.ErrUnsupportedFormat, format)
	}
	return items, nil
}

// NewParams builds the parameter record for a point format.
func NewParams(format uint8, chunkSize uint32) (*Params, error) {
	items, err := ItemsForFormat(format)
	if err != nil {
		return nil, err
	}
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	return &Params{
		Compressor: compressorPointwiseChunked,
		Coder:      coderArithmetic,
		ChunkSize:  chunkSize,
		Items:      items,
	}, nil
}

// RecordSize returns the byte length of one uncompressed point record
// described by the item sequence.
func (p *Params) RecordSize() int {
	size := 0
	for _, item := range p.Items {
		size += int(item.Size)
	}
	return size
}

// Bytes serializes the parameter record payload.
func (p *Params) Bytes() []byte {
	engine := endian.GetLittleEndianEngine()
	buf := make([]byte, 0, paramsFixedSize+6*len(p.Items))

	buf = engine.AppendUint16(buf, p.Compressor)
	buf = engine.AppendUint16(buf, p.Coder)
	buf = append(buf, versionMajor, versionMinor)
	buf = engine.AppendUint16(buf, 0) // revision
	buf = engine.AppendUint32(buf, 0) // options
	buf = engine.AppendUint32(buf, p.ChunkSize)
	buf = engine.AppendUint64(buf, ^uint64(0)) // evlr count, unused
	buf = engine.AppendUint64(buf, ^uint64(0)) // evlr offset, unused
	buf = engine.AppendUint16(buf, uint16(len(p.Items)))
	for _, item := range p.Items {
		buf = engine.AppendUint16(buf, item.Type)
		buf = engine.AppendUint16(buf, item.Size)
		buf = engine.AppendUint16(buf, item.Version)
	}
	return buf
}

// ParseParams decodes a parameter record payload and rejects settings
// this engine cannot decode.
func ParseParams(data []byte) (*Params, error) {
	if len(data) < paramsFixedSize {
		return nil, fmt.Errorf("%w: compression parameter record truncated at %d bytes", errs.ErrInvalidHeader, len(data))
	}
	engine := endian.GetLittleEndianEngine()

	p := &Params{
		Compressor: engine.Uint16(data[0:2]),
		Coder:      engine.Uint16(data[2:4]),
		ChunkSize:  engine.Uint32(data[12:16]),
	}
	if p.Compressor != compressorPointwiseChunked {
		return nil, fmt.Errorf("%w: compressor %d", errs.ErrUnsupportedFormat, p.Compressor)
	}
	if p.Coder != coderArithmetic {
		return nil, fmt.Errorf("%w: entropy coder %d", errs.ErrUnsupportedFormat, p.Coder)
	}

	numItems := int(engine.Uint16(data[32:34]))
	if len(data) < paramsFixedSize+6*numItems {
		return nil, fmt.Errorf("%w: parameter record declares %d items but carries %d bytes",
			errs.ErrInvalidHeader, numItems, len(data))
	}
	p.Items = make([]Item, numItems)
	for i := range p.Items {
		off := paramsFixedSize + 6*i
		p.Items[i] = Item{
			Type:    engine.Uint16(data[off : off+2]),
			Size:    engine.Uint16(data[off+2 : off+4]),
			Version: engine.Uint16(data[off+4 : off+6]),
		}
	}
	return p, nil
}

// newItemCompressors instantiates the compressor chain for an item
// sequence.
func newItemCompressors(items []Item) ([]itemCompressor, error) {
	chain := make([]itemCompressor, 0, len(items))
	for _, item := range items {
		switch item.Type {
		case itemPoint10:
			chain = append(chain, newPoint10())
		case itemGpsTime11:
			chain = append(chain, newGpsTime11())
		case itemRGB12:
			chain = append(chain, newRGB12())
		case itemByte:
			chain = append(chain, newByteItem(int(item.Size)))
		default:
			return nil, fmt.Errorf("%w: compression item type %d", errs.ErrUnsupportedFormat, item.Type)
		}
	}
	return chain, nil
}
