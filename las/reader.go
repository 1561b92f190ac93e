package las

import (
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/pointcloud/buffer"
	"github.com/arloliu/pointcloud/errs"
	"github.com/arloliu/pointcloud/laz"
	"github.com/arloliu/pointcloud/schema"
)

// Reader reads point records from a LAS or compressed LAS file and
// converts them into point buffers. It is not safe for concurrent use.
type Reader struct {
	r      io.ReadSeeker
	header *Header
	vlrs   []VLR

	lazParams *laz.Params
	lazReader *laz.Reader

	recordLen int
	index     uint64 // next point to read

	record []byte
	point  []byte

	// plan cache for the last layout seen
	planFP uint64
	plan   *readPlan
}

// NewReader opens the file at the start of r, parses the header and the
// variable length records and positions the reader at point 0.
func NewReader(r io.ReadSeeker) (*Reader, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	head := make([]byte, headerSize14)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidHeader, err)
	}

	header := &Header{}
	if err := header.Parse(head[:n]); err != nil {
		return nil, err
	}

	vlrRegion := make([]byte, int(header.OffsetToPointData)-int(header.HeaderSize))
	if _, err := r.Seek(int64(header.HeaderSize), io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, vlrRegion); err != nil {
		return nil, fmt.Errorf("%w: variable length records: %v", errs.ErrInvalidHeader, err)
	}
	vlrs, err := parseVLRs(vlrRegion, header.NumberOfVLRs)
	if err != nil {
		return nil, err
	}

	recordLen, err := RecordLength(header.Format())
	if err != nil {
		return nil, err
	}

	lr := &Reader{
		r:         r,
		header:    header,
		vlrs:      vlrs,
		recordLen: int(recordLen),
		record:    make([]byte, recordLen),
	}

	if header.Compressed() {
		if err := lr.openCompressed(); err != nil {
			return nil, err
		}
	} else {
		if _, err := r.Seek(int64(header.OffsetToPointData), io.SeekStart); err != nil {
			return nil, err
		}
	}
	return lr, nil
}

// openCompressed locates the compression parameter record and sets up
// the chunked stream reader behind the point data offset.
func (lr *Reader) openCompressed() error {
	var payload []byte
	for _, v := range lr.vlrs {
		if v.UserID == laz.VLRUserID && v.RecordID == laz.VLRRecordID {
			payload = v.Data
			break
		}
	}
	if payload == nil {
		return fmt.Errorf("%w: compressed file without a compression parameter record", errs.ErrInvalidHeader)
	}

	params, err := laz.ParseParams(payload)
	if err != nil {
		return err
	}
	if params.RecordSize() != lr.recordLen {
		return fmt.Errorf("%w: compression items describe %d-byte records, format %d has %d",
			errs.ErrInvalidHeader, params.RecordSize(), lr.header.Format(), lr.recordLen)
	}

	if _, err := lr.r.Seek(int64(lr.header.OffsetToPointData), io.SeekStart); err != nil {
		return err
	}
	reader, err := laz.NewReader(lr.r, params)
	if err != nil {
		return err
	}
	lr.lazParams = params
	lr.lazReader = reader
	return nil
}

// Header returns the parsed file header.
func (lr *Reader) Header() *Header { return lr.header }

// VLRs returns the file's variable length records.
func (lr *Reader) VLRs() []VLR { return lr.vlrs }

// NumPoints returns the point count declared by the header.
func (lr *Reader) NumPoints() uint64 { return lr.header.NumberOfPoints }

// Format returns the point record format, compression bit stripped.
func (lr *Reader) Format() uint8 { return lr.header.Format() }

// Compressed reports whether the point records are stored compressed.
func (lr *Reader) Compressed() bool { return lr.header.Compressed() }

func (lr *Reader) planFor(layout *schema.PointLayout) (*readPlan, error) {
	if lr.plan != nil && lr.planFP == layout.Fingerprint() {
		return lr.plan, nil
	}
	plan, err := newReadPlan(lr.header.Format(), layout, lr.header)
	if err != nil {
		return nil, err
	}
	lr.plan = plan
	lr.planFP = layout.Fingerprint()
	return plan, nil
}

// ReadInto reads up to count points into buf, converting each record to
// the buffer's layout. It returns the number of points appended; fewer
// than count past the end of the file is not an error.
func (lr *Reader) ReadInto(buf buffer.PointBuffer, count int) (int, error) {
	layout := buf.Layout()
	plan, err := lr.planFor(layout)
	if err != nil {
		return 0, err
	}
	if len(lr.point) < layout.PointStride() {
		lr.point = make([]byte, layout.PointStride())
	}
	point := lr.point[:layout.PointStride()]

	var p rawPoint
	read := 0
	for read < count && lr.index < lr.header.NumberOfPoints {
		if err := lr.readRecord(); err != nil {
			return read, err
		}
		decodeRecord(lr.header.Format(), lr.record, &p)
		if err := plan.fill(&p, point); err != nil {
			return read, err
		}
		if err := buf.PushPoint(point); err != nil {
			return read, err
		}
		lr.index++
		read++
	}
	return read, nil
}

func (lr *Reader) readRecord() error {
	if lr.lazReader != nil {
		return lr.lazReader.ReadRecord(lr.record)
	}
	if _, err := io.ReadFull(lr.r, lr.record); err != nil {
		return fmt.Errorf("%w: point %d: %v", errs.ErrCorruptStream, lr.index, err)
	}
	return nil
}

// SeekToPoint positions the reader so the next read starts at point n.
// Seeking to the point count itself is allowed and leaves the reader at
// the end of the points.
func (lr *Reader) SeekToPoint(n uint64) error {
	total := lr.header.NumberOfPoints
	if n > total {
		return fmt.Errorf("%w: point %d beyond point count %d", errs.ErrIndexOutOfBounds, n, total)
	}

	if lr.lazReader != nil {
		if n < total {
			if err := lr.lazReader.SeekToRecord(n); err != nil {
				return err
			}
		}
		lr.index = n
		return nil
	}

	offset := int64(lr.header.OffsetToPointData) + int64(n)*int64(lr.recordLen)
	if _, err := lr.r.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	lr.index = n
	return nil
}
