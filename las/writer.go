package las

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/arloliu/pointcloud/buffer"
	"github.com/arloliu/pointcloud/errs"
	"github.com/arloliu/pointcloud/internal/options"
	"github.com/arloliu/pointcloud/laz"
	"github.com/arloliu/pointcloud/schema"
)

const generatingSoftware = "pointcloud"

// WriterOption configures a Writer.
type WriterOption = options.Option[*Writer]

// WithPointFormat sets the point record format, 0 through 10. The
// default is format 0.
func WithPointFormat(format uint8) WriterOption {
	return options.New(func(w *Writer) error {
		if int(format) >= len(recordLengths) {
			return fmt.Errorf("%w: point record format %d", errs.ErrUnsupportedFormat, format)
		}
		w.header.PointFormat = format

		return nil
	})
}

// WithVersion sets the file version. Formats 6-10 require version 1.4.
func WithVersion(major, minor uint8) WriterOption {
	return options.New(func(w *Writer) error {
		if headerSizeForVersion(major, minor) == 0 {
			return fmt.Errorf("%w: version %d.%d", errs.ErrUnsupportedVersion, major, minor)
		}
		w.header.VersionMajor = major
		w.header.VersionMinor = minor
		w.versionSet = true

		return nil
	})
}

// WithScale sets the coordinate grid resolution. The default is 0.001
// on all three axes.
func WithScale(x, y, z float64) WriterOption {
	return options.New(func(w *Writer) error {
		if x <= 0 || y <= 0 || z <= 0 {
			return fmt.Errorf("%w: scale must be positive", errs.ErrOutOfScaleRange)
		}
		w.header.ScaleX, w.header.ScaleY, w.header.ScaleZ = x, y, z

		return nil
	})
}

// WithOffset sets the coordinate grid origin.
func WithOffset(x, y, z float64) WriterOption {
	return options.NoError(func(w *Writer) {
		w.header.OffsetX, w.header.OffsetY, w.header.OffsetZ = x, y, z
	})
}

// WithCompression stores the point records compressed. Only the legacy
// formats 0-5 can be compressed.
func WithCompression() WriterOption {
	return options.NoError(func(w *Writer) {
		w.compressed = true
	})
}

// WithChunkSize sets the record count per compressed chunk.
func WithChunkSize(n uint32) WriterOption {
	return options.NoError(func(w *Writer) {
		w.chunkSize = n
	})
}

// WithSystemIdentifier sets the header's system identifier string.
func WithSystemIdentifier(id string) WriterOption {
	return options.NoError(func(w *Writer) {
		w.header.SystemIdentifier = id
	})
}

// Writer writes point buffers out as a LAS file. The header and the
// variable length records freeze on the first Write; Close rewrites the
// header with the final point count, the bounding box and the per-return
// counts.
type Writer struct {
	w      io.WriteSeeker
	header *Header
	vlrs   []VLR

	compressed bool
	chunkSize  uint32
	versionSet bool
	frozen     bool
	closed     bool

	lazWriter *laz.Writer

	recordLen int
	record    []byte

	planFP uint64
	plan   *writePlan

	byReturn  [maxPointsByReturn]uint64
	boundsSet bool
}

// NewWriter creates a writer targeting w. Nothing is written until the
// first Write call.
func NewWriter(w io.WriteSeeker, opts ...WriterOption) (*Writer, error) {
	now := time.Now()
	lw := &Writer{
		w: w,
		header: &Header{
			VersionMajor:       1,
			VersionMinor:       2,
			GeneratingSoftware: generatingSoftware,
			CreationDayOfYear:  uint16(now.YearDay()),
			CreationYear:       uint16(now.Year()),
			ScaleX:             0.001,
			ScaleY:             0.001,
			ScaleZ:             0.001,
		},
	}
	if err := options.Apply(lw, opts...); err != nil {
		return nil, err
	}

	format := lw.header.Format()
	if !lw.versionSet && formatExtended(format) {
		lw.header.VersionMinor = 4
	}
	if formatExtended(format) && lw.header.VersionMinor < 4 {
		return nil, fmt.Errorf("%w: point format %d requires version 1.4", errs.ErrUnsupportedVersion, format)
	}
	if lw.compressed && formatExtended(format) {
		return nil, fmt.Errorf("%w: point format %d cannot be compressed", errs.ErrUnsupportedFormat, format)
	}

	length, err := RecordLength(format)
	if err != nil {
		return nil, err
	}
	lw.recordLen = int(length)
	lw.record = make([]byte, length)
	lw.header.PointRecordLength = length
	return lw, nil
}

// Header returns the header under construction. Mutating it after the
// first Write has no effect on the file.
func (lw *Writer) Header() *Header { return lw.header }

// AddVLR appends a variable length record. Records can only be added
// before the first Write.
func (lw *Writer) AddVLR(vlr VLR) error {
	if lw.frozen {
		return fmt.Errorf("%w: variable length records are fixed after the first write", errs.ErrHeaderFrozen)
	}
	lw.vlrs = append(lw.vlrs, vlr)
	return nil
}

// freeze writes the header and the variable length records and, for
// compressed output, opens the chunked stream.
func (lw *Writer) freeze() error {
	format := lw.header.Format()

	var params *laz.Params
	if lw.compressed {
		var err error
		params, err = laz.NewParams(format, lw.chunkSize)
		if err != nil {
			return err
		}
		lw.vlrs = append(lw.vlrs, VLR{
			UserID:      laz.VLRUserID,
			RecordID:    laz.VLRRecordID,
			Description: "compression parameters",
			Data:        params.Bytes(),
		})
		lw.header.PointFormat = format | compressedFormatBit
	}

	size := headerSizeForVersion(lw.header.VersionMajor, lw.header.VersionMinor)
	offset := uint32(size)
	for i := range lw.vlrs {
		offset += uint32(lw.vlrs[i].size())
	}
	lw.header.HeaderSize = size
	lw.header.OffsetToPointData = offset
	lw.header.NumberOfVLRs = uint32(len(lw.vlrs))

	if _, err := lw.w.Write(lw.header.Bytes()); err != nil {
		return err
	}
	for i := range lw.vlrs {
		if _, err := lw.w.Write(lw.vlrs[i].Bytes()); err != nil {
			return err
		}
	}

	if lw.compressed {
		var err error
		lw.lazWriter, err = laz.NewWriter(lw.w, params)
		if err != nil {
			return err
		}
	}
	lw.frozen = true
	return nil
}

func (lw *Writer) planFor(layout *schema.PointLayout) (*writePlan, error) {
	if lw.plan != nil && lw.planFP == layout.Fingerprint() {
		return lw.plan, nil
	}
	plan, err := newWritePlan(lw.header.Format(), layout, lw.header)
	if err != nil {
		return nil, err
	}
	lw.plan = plan
	lw.planFP = layout.Fingerprint()
	return plan, nil
}

// Write appends every point of buf to the file. The first call freezes
// the header, the grid and the variable length records.
func (lw *Writer) Write(buf buffer.PointBuffer) error {
	if lw.closed {
		return fmt.Errorf("%w: write on closed writer", errs.ErrHeaderFrozen)
	}
	plan, err := lw.planFor(buf.Layout())
	if err != nil {
		return err
	}
	if !lw.frozen {
		if err := lw.freeze(); err != nil {
			return err
		}
	}

	format := lw.header.Format()
	var p rawPoint
	for point := range buf.Points() {
		if err := plan.extract(point, &p); err != nil {
			return err
		}
		encodeRecord(format, &p, lw.record)
		if err := lw.writeRecord(); err != nil {
			return err
		}
		lw.account(&p)
	}
	return nil
}

func (lw *Writer) writeRecord() error {
	if lw.lazWriter != nil {
		return lw.lazWriter.WriteRecord(lw.record)
	}
	_, err := lw.w.Write(lw.record)
	return err
}

// account folds one written point into the header statistics.
func (lw *Writer) account(p *rawPoint) {
	h := lw.header
	h.NumberOfPoints++

	if r := p.ReturnNumber; r >= 1 && r <= maxPointsByReturn {
		lw.byReturn[r-1]++
	}

	x := float64(p.X)*h.ScaleX + h.OffsetX
	y := float64(p.Y)*h.ScaleY + h.OffsetY
	z := float64(p.Z)*h.ScaleZ + h.OffsetZ
	if !lw.boundsSet {
		h.MinX, h.MaxX = x, x
		h.MinY, h.MaxY = y, y
		h.MinZ, h.MaxZ = z, z
		lw.boundsSet = true
		return
	}
	h.MinX = math.Min(h.MinX, x)
	h.MaxX = math.Max(h.MaxX, x)
	h.MinY = math.Min(h.MinY, y)
	h.MaxY = math.Max(h.MaxY, y)
	h.MinZ = math.Min(h.MinZ, z)
	h.MaxZ = math.Max(h.MaxZ, z)
}

// Close finishes the file: the compressed stream is flushed and the
// header is rewritten with the final counts and bounds.
func (lw *Writer) Close() error {
	if lw.closed {
		return nil
	}
	if !lw.frozen {
		if err := lw.freeze(); err != nil {
			return err
		}
	}
	lw.closed = true

	if lw.lazWriter != nil {
		if err := lw.lazWriter.Close(); err != nil {
			return err
		}
	}

	end, err := lw.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	lw.header.PointsByReturn = lw.byReturn
	if _, err := lw.w.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := lw.w.Write(lw.header.Bytes()); err != nil {
		return err
	}
	_, err = lw.w.Seek(end, io.SeekStart)
	return err
}
