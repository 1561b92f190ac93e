package laz

import (
	"fmt"
	"io"

	"github.com/arloliu/pointcloud/endian"
	"github.com/arloliu/pointcloud/errs"
)

// chunkEntry is one row of the chunk table: how many records the chunk
// holds and how many compressed bytes it occupies, first raw record
// included.
type chunkEntry struct {
	records uint32
	bytes   uint32
}

const chunkTableVersion = 0

// Writer produces a chunked compressed point stream. The stream opens
// with a placeholder for the chunk table offset, followed by the chunks
// themselves. Each chunk starts with its first record stored raw, which
// seeds the predictors, and continues with the entropy-coded residuals of
// the remaining records. Close appends the chunk table and patches the
// offset at the front.
type Writer struct {
	w          io.WriteSeeker
	params     *Params
	recordSize int

	start  int64 // file offset of the chunk table offset field
	chunks []chunkEntry

	chain      []itemCompressor
	enc        *arithmeticEncoder
	firstRaw   []byte
	chunkCount uint32
	closed     bool
}

// NewWriter starts a compressed stream at the current position of w.
func NewWriter(w io.WriteSeeker, params *Params) (*Writer, error) {
	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	cw := &Writer{
		w:          w,
		params:     params,
		recordSize: params.RecordSize(),
		start:      start,
		firstRaw:   make([]byte, params.RecordSize()),
	}

	// placeholder, patched by Close once the table position is known
	placeholder := endian.GetLittleEndianEngine().AppendUint64(nil, ^uint64(0))
	if _, err := w.Write(placeholder); err != nil {
		return nil, err
	}
	return cw, nil
}

// WriteRecord appends one uncompressed point record of the configured
// size to the stream.
func (cw *Writer) WriteRecord(raw []byte) error {
	if cw.closed {
		return fmt.Errorf("%w: write on closed stream", errs.ErrInvalidHeader)
	}
	if len(raw) != cw.recordSize {
		return fmt.Errorf("%w: record is %d bytes, stream expects %d",
			errs.ErrLayoutMismatch, len(raw), cw.recordSize)
	}

	if cw.chunkCount == 0 {
		chain, err := newItemCompressors(cw.params.Items)
		if err != nil {
			return err
		}
		cw.chain = chain
		cw.enc = newArithmeticEncoder()
		copy(cw.firstRaw, raw)

		off := 0
		for _, item := range cw.chain {
			item.init(raw[off : off+item.size()])
			off += item.size()
		}
		cw.chunkCount = 1
		return cw.maybeFlush()
	}

	off := 0
	for _, item := range cw.chain {
		item.encode(cw.enc, raw[off:off+item.size()])
		off += item.size()
	}
	cw.chunkCount++
	return cw.maybeFlush()
}

func (cw *Writer) maybeFlush() error {
	if cw.chunkCount >= cw.params.ChunkSize {
		return cw.flushChunk()
	}
	return nil
}

func (cw *Writer) flushChunk() error {
	if cw.chunkCount == 0 {
		return nil
	}
	stream := cw.enc.done()

	if _, err := cw.w.Write(cw.firstRaw); err != nil {
		return err
	}
	if _, err := cw.w.Write(stream); err != nil {
		return err
	}
	cw.chunks = append(cw.chunks, chunkEntry{
		records: cw.chunkCount,
		bytes:   uint32(cw.recordSize + len(stream)),
	})
	cw.chunkCount = 0
	cw.chain = nil
	cw.enc = nil
	return nil
}

// Close flushes the open chunk, writes the chunk table and patches the
// table offset at the head of the stream. The underlying writer is left
// positioned at the end of the stream.
func (cw *Writer) Close() error {
	if cw.closed {
		return nil
	}
	if err := cw.flushChunk(); err != nil {
		return err
	}
	cw.closed = true

	tableOffset, err := cw.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	engine := endian.GetLittleEndianEngine()
	table := make([]byte, 0, 8+8*len(cw.chunks))
	table = engine.AppendUint32(table, chunkTableVersion)
	table = engine.AppendUint32(table, uint32(len(cw.chunks)))
	for _, c := range cw.chunks {
		table = engine.AppendUint32(table, c.records)
		table = engine.AppendUint32(table, c.bytes)
	}
	if _, err := cw.w.Write(table); err != nil {
		return err
	}
	end, err := cw.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	if _, err := cw.w.Seek(cw.start, io.SeekStart); err != nil {
		return err
	}
	patch := engine.AppendUint64(nil, uint64(tableOffset))
	if _, err := cw.w.Write(patch); err != nil {
		return err
	}
	_, err = cw.w.Seek(end, io.SeekStart)
	return err
}

// Reader decodes a chunked compressed point stream. Seeking is chunk
// granular: landing inside a chunk decodes and discards the records
// before the target.
type Reader struct {
	r          io.ReadSeeker
	params     *Params
	recordSize int

	chunks       []chunkEntry
	chunkOffsets []int64 // file offset of each chunk

	chunkIndex int // chunk the cursor is in
	chunkPos   uint32
	firstRaw   []byte
	chain      []itemCompressor
	dec        *arithmeticDecoder
	loaded     bool
}

// NewReader opens a compressed stream at the current position of r and
// parses the chunk table.
func NewReader(r io.ReadSeeker, params *Params) (*Reader, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	engine := endian.GetLittleEndianEngine()
	var head [8]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("%w: missing chunk table offset: %v", errs.ErrCorruptStream, err)
	}
	tableOffset := int64(engine.Uint64(head[:]))
	if tableOffset <= start {
		return nil, fmt.Errorf("%w: chunk table offset %d precedes stream start %d",
			errs.ErrCorruptStream, tableOffset, start)
	}

	if _, err := r.Seek(tableOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: chunk table unreachable: %v", errs.ErrCorruptStream, err)
	}
	var fixed [8]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, fmt.Errorf("%w: chunk table truncated: %v", errs.ErrCorruptStream, err)
	}
	if v := engine.Uint32(fixed[0:4]); v != chunkTableVersion {
		return nil, fmt.Errorf("%w: chunk table version %d", errs.ErrCorruptStream, v)
	}
	numChunks := int(engine.Uint32(fixed[4:8]))

	raw := make([]byte, 8*numChunks)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: chunk table truncated: %v", errs.ErrCorruptStream, err)
	}

	cr := &Reader{
		r:            r,
		params:       params,
		recordSize:   params.RecordSize(),
		chunks:       make([]chunkEntry, numChunks),
		chunkOffsets: make([]int64, numChunks),
	}
	offset := start + 8
	for i := range cr.chunks {
		cr.chunks[i] = chunkEntry{
			records: engine.Uint32(raw[8*i : 8*i+4]),
			bytes:   engine.Uint32(raw[8*i+4 : 8*i+8]),
		}
		cr.chunkOffsets[i] = offset
		offset += int64(cr.chunks[i].bytes)
		if offset > tableOffset {
			return nil, fmt.Errorf("%w: chunk %d overruns the chunk table", errs.ErrCorruptStream, i)
		}
	}
	return cr, nil
}

// NumRecords returns the record count declared by the chunk table.
func (cr *Reader) NumRecords() uint64 {
	var n uint64
	for _, c := range cr.chunks {
		n += uint64(c.records)
	}
	return n
}

// loadChunk reads chunk i into memory, seeds the predictors from its
// raw first record and leaves the cursor past that record.
func (cr *Reader) loadChunk(i int) error {
	if _, err := cr.r.Seek(cr.chunkOffsets[i], io.SeekStart); err != nil {
		return fmt.Errorf("%w: chunk %d unreachable: %v", errs.ErrCorruptStream, i, err)
	}
	data := make([]byte, cr.chunks[i].bytes)
	if _, err := io.ReadFull(cr.r, data); err != nil {
		return fmt.Errorf("%w: chunk %d truncated: %v", errs.ErrCorruptStream, i, err)
	}
	if len(data) < cr.recordSize {
		return fmt.Errorf("%w: chunk %d shorter than one record", errs.ErrCorruptStream, i)
	}

	chain, err := newItemCompressors(cr.params.Items)
	if err != nil {
		return err
	}
	cr.chain = chain
	cr.firstRaw = append(cr.firstRaw[:0], data[:cr.recordSize]...)

	off := 0
	for _, item := range cr.chain {
		item.init(data[off : off+item.size()])
		off += item.size()
	}
	cr.dec = newArithmeticDecoder(data[cr.recordSize:])
	cr.chunkIndex = i
	cr.chunkPos = 0
	cr.loaded = true
	return nil
}

// ReadRecord decodes the next record into dst, which must hold at least
// the stream's record size.
func (cr *Reader) ReadRecord(dst []byte) error {
	if len(dst) < cr.recordSize {
		return fmt.Errorf("%w: destination is %d bytes, record is %d",
			errs.ErrLayoutMismatch, len(dst), cr.recordSize)
	}

	if !cr.loaded {
		if len(cr.chunks) == 0 {
			return io.EOF
		}
		if err := cr.loadChunk(0); err != nil {
			return err
		}
	}

	if cr.chunkPos >= cr.chunks[cr.chunkIndex].records {
		next := cr.chunkIndex + 1
		if next >= len(cr.chunks) {
			return io.EOF
		}
		if err := cr.loadChunk(next); err != nil {
			return err
		}
	}

	if cr.chunkPos == 0 {
		// the first record of a chunk is stored raw
		copy(dst, cr.firstRaw)
		cr.chunkPos = 1
		return nil
	}

	off := 0
	for _, item := range cr.chain {
		item.decode(cr.dec, dst[off:off+item.size()])
		off += item.size()
	}
	if cr.dec.overrun {
		return fmt.Errorf("%w: entropy stream exhausted in chunk %d", errs.ErrCorruptStream, cr.chunkIndex)
	}
	cr.chunkPos++
	return nil
}

// SeekToRecord positions the cursor so the next ReadRecord returns
// record n. Records preceding n inside its chunk are decoded and
// discarded.
func (cr *Reader) SeekToRecord(n uint64) error {
	var base uint64
	for i, c := range cr.chunks {
		if n < base+uint64(c.records) {
			if err := cr.loadChunk(i); err != nil {
				return err
			}
			scratch := make([]byte, cr.recordSize)
			for skip := n - base; skip > 0; skip-- {
				if err := cr.skipOne(scratch); err != nil {
					return err
				}
			}
			return nil
		}
		base += uint64(c.records)
	}
	return fmt.Errorf("%w: record %d beyond stream of %d records",
		errs.ErrIndexOutOfBounds, n, base)
}

func (cr *Reader) skipOne(scratch []byte) error {
	if cr.chunkPos == 0 {
		// the first record was already consumed to seed the predictors
		cr.chunkPos = 1
		return nil
	}
	off := 0
	for _, item := range cr.chain {
		item.decode(cr.dec, scratch[off:off+item.size()])
		off += item.size()
	}
	if cr.dec.overrun {
		return fmt.Errorf("%w: entropy stream exhausted in chunk %d", errs.ErrCorruptStream, cr.chunkIndex)
	}
	cr.chunkPos++
	return nil
}
