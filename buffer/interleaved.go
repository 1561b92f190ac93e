package buffer

import (
	"fmt"
	"iter"

	"github.com/arloliu/pointcloud/errs"
	"github.com/arloliu/pointcloud/format"
	"github.com/arloliu/pointcloud/schema"
)

// Interleaved stores points attribute-interleaved: one contiguous byte
// region, point-major. Point i's attribute a lives at
// i*PointStride + a.Offset.
//
// Attribute-wise pushes go through a staging area: values accumulate per
// attribute until every attribute of the layout has a value for the next
// point, at which time the point is assembled and appended. Staged values
// are not visible through Len or the accessors until complete.
type Interleaved struct {
	layout *schema.PointLayout
	data   []byte

	// staging columns for attribute-wise pushes, one per layout member
	staged [][]byte
}

var _ PointBuffer = (*Interleaved)(nil)

// NewInterleaved creates an empty interleaved buffer with capacity for the
// given number of points.
func NewInterleaved(layout *schema.PointLayout, capacity int) *Interleaved {
	if capacity < 0 {
		capacity = 0
	}

	return &Interleaved{
		layout: layout,
		data:   make([]byte, 0, capacity*layout.PointStride()),
		staged: make([][]byte, layout.Len()),
	}
}

// Len returns the number of complete points in the buffer.
func (b *Interleaved) Len() int {
	return len(b.data) / b.layout.PointStride()
}

// Layout returns the buffer's point layout.
func (b *Interleaved) Layout() *schema.PointLayout {
	return b.layout
}

// Kind reports format.LayoutInterleaved.
func (b *Interleaved) Kind() format.LayoutKind {
	return format.LayoutInterleaved
}

// Data returns the underlying interleaved byte region of all complete
// points. The slice aliases internal storage and is valid only until the
// next mutation.
func (b *Interleaved) Data() []byte {
	return b.data
}

// PushPoint appends one point's full packed bytes.
func (b *Interleaved) PushPoint(raw []byte) error {
	if len(raw) != b.layout.PointStride() {
		return fmt.Errorf("%w: got %d bytes, point stride is %d",
			errs.ErrLayoutMismatch, len(raw), b.layout.PointStride())
	}
	if b.hasStaged() {
		return fmt.Errorf("%w: attribute-wise pushes left a partial point", errs.ErrIncompletePoint)
	}

	b.data = append(b.data, raw...)

	return nil
}

// GetPoint copies point index's packed bytes into dst.
func (b *Interleaved) GetPoint(index int, dst []byte) error {
	stride := b.layout.PointStride()
	if len(dst) != stride {
		return fmt.Errorf("%w: dst is %d bytes, point stride is %d", errs.ErrLayoutMismatch, len(dst), stride)
	}
	if index < 0 || index >= b.Len() {
		return fmt.Errorf("%w: index %d, point count %d", errs.ErrIndexOutOfBounds, index, b.Len())
	}

	copy(dst, b.data[index*stride:(index+1)*stride])

	return nil
}

// SetPoint overwrites point index with the given packed bytes.
func (b *Interleaved) SetPoint(index int, raw []byte) error {
	stride := b.layout.PointStride()
	if len(raw) != stride {
		return fmt.Errorf("%w: got %d bytes, point stride is %d", errs.ErrLayoutMismatch, len(raw), stride)
	}
	if index < 0 || index >= b.Len() {
		return fmt.Errorf("%w: index %d, point count %d", errs.ErrIndexOutOfBounds, index, b.Len())
	}

	copy(b.data[index*stride:], raw)

	return nil
}

// PushAttribute stages a single value for the named attribute. When every
// attribute of the layout has a staged value for the next point, the point
// is assembled and appended.
func (b *Interleaved) PushAttribute(name string, raw []byte) error {
	return b.PushAttributeRange(name, raw)
}

// PushAttributeRange stages values for consecutive points of the named
// attribute. len(raw) must be a multiple of the attribute's byte size.
func (b *Interleaved) PushAttributeRange(name string, raw []byte) error {
	memberIdx, _, err := attributeIndex(b.layout, name, raw)
	if err != nil {
		return err
	}

	b.staged[memberIdx] = append(b.staged[memberIdx], raw...)
	b.assembleStaged()

	return nil
}

// hasStaged reports whether any attribute values are staged for an
// incomplete point.
func (b *Interleaved) hasStaged() bool {
	for _, col := range b.staged {
		if len(col) > 0 {
			return true
		}
	}

	return false
}

// assembleStaged moves as many complete points as possible from the staging
// columns into the interleaved region.
func (b *Interleaved) assembleStaged() {
	members := b.layout.Members()

	for {
		// a point is complete when every staging column holds at least one value
		complete := true
		for i, m := range members {
			if len(b.staged[i]) < m.Size() {
				complete = false
				break
			}
		}
		if !complete {
			return
		}

		for i, m := range members {
			size := m.Size()
			b.data = append(b.data, b.staged[i][:size]...)
			b.staged[i] = b.staged[i][size:]
		}
	}
}

// GetAttribute returns the stored bytes of one attribute value. The slice
// aliases internal storage and is valid only until the next mutation.
func (b *Interleaved) GetAttribute(name string, index int) ([]byte, error) {
	m, ok := b.layout.Member(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownAttribute, name)
	}
	if index < 0 || index >= b.Len() {
		return nil, fmt.Errorf("%w: index %d, point count %d", errs.ErrIndexOutOfBounds, index, b.Len())
	}

	start := index*b.layout.PointStride() + m.Offset

	return b.data[start : start+m.Size() : start+m.Size()], nil
}

// SetAttribute overwrites one attribute value.
func (b *Interleaved) SetAttribute(name string, index int, raw []byte) error {
	m, ok := b.layout.Member(name)
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrUnknownAttribute, name)
	}
	if len(raw) != m.Size() {
		return fmt.Errorf("%w: got %d bytes, attribute %q is %d bytes",
			errs.ErrLayoutMismatch, len(raw), name, m.Size())
	}
	if index < 0 || index >= b.Len() {
		return fmt.Errorf("%w: index %d, point count %d", errs.ErrIndexOutOfBounds, index, b.Len())
	}

	copy(b.data[index*b.layout.PointStride()+m.Offset:], raw)

	return nil
}

// Points returns a restartable iterator over the packed bytes of every
// complete point.
func (b *Interleaved) Points() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		stride := b.layout.PointStride()
		for i := 0; i < b.Len(); i++ {
			if !yield(b.data[i*stride : (i+1)*stride : (i+1)*stride]) {
				return
			}
		}
	}
}

// attributeIndex resolves an attribute name to its member index and
// validates that raw holds a whole number of values.
func attributeIndex(layout *schema.PointLayout, name string, raw []byte) (int, int, error) {
	m, ok := layout.Member(name)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", errs.ErrUnknownAttribute, name)
	}

	size := m.Size()
	if len(raw) == 0 || len(raw)%size != 0 {
		return 0, 0, fmt.Errorf("%w: got %d bytes, attribute %q is %d bytes per value",
			errs.ErrLayoutMismatch, len(raw), name, size)
	}

	idx, _ := layout.MemberIndex(name)

	return idx, size, nil
}
