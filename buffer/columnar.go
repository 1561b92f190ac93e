package buffer

import (
	"fmt"
	"iter"

	"github.com/arloliu/pointcloud/errs"
	"github.com/arloliu/pointcloud/format"
	"github.com/arloliu/pointcloud/schema"
)

// Columnar stores one contiguous byte region per attribute (struct of
// arrays). Attribute a of point i lives at columns[a][i*a.Size()].
//
// Attribute-wise pushes are O(1) amortized appends into the attribute's own
// region, so columns may temporarily hold different value counts. Len
// reports the number of complete points (the minimum across columns);
// whole-point accessors operate on complete points only, while attribute
// accessors reach every value stored in the attribute's own column.
type Columnar struct {
	layout  *schema.PointLayout
	columns [][]byte
}

var _ PointBuffer = (*Columnar)(nil)

// NewColumnar creates an empty columnar buffer with capacity for the given
// number of points.
func NewColumnar(layout *schema.PointLayout, capacity int) *Columnar {
	if capacity < 0 {
		capacity = 0
	}

	columns := make([][]byte, layout.Len())
	for i, m := range layout.Members() {
		columns[i] = make([]byte, 0, capacity*m.Size())
	}

	return &Columnar{
		layout:  layout,
		columns: columns,
	}
}

// Len returns the number of complete points: the minimum value count across
// all attribute columns.
func (b *Columnar) Len() int {
	if len(b.columns) == 0 {
		return 0
	}

	count := -1
	for i, m := range b.layout.Members() {
		n := len(b.columns[i]) / m.Size()
		if count < 0 || n < count {
			count = n
		}
	}

	return count
}

// Layout returns the buffer's point layout.
func (b *Columnar) Layout() *schema.PointLayout {
	return b.layout
}

// Kind reports format.LayoutColumnar.
func (b *Columnar) Kind() format.LayoutKind {
	return format.LayoutColumnar
}

// AttributeData returns the named attribute's whole storage region. The
// slice aliases internal storage and is valid only until the next mutation.
func (b *Columnar) AttributeData(name string) ([]byte, error) {
	i, ok := b.layout.MemberIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownAttribute, name)
	}

	return b.columns[i], nil
}

// PushPoint appends one point's full packed bytes, scattering each attribute
// into its own column.
func (b *Columnar) PushPoint(raw []byte) error {
	if len(raw) != b.layout.PointStride() {
		return fmt.Errorf("%w: got %d bytes, point stride is %d",
			errs.ErrLayoutMismatch, len(raw), b.layout.PointStride())
	}
	if b.ragged() {
		return fmt.Errorf("%w: attribute columns hold unequal value counts", errs.ErrIncompletePoint)
	}

	for i, m := range b.layout.Members() {
		b.columns[i] = append(b.columns[i], raw[m.Offset:m.Offset+m.Size()]...)
	}

	return nil
}

// GetPoint gathers point index's attributes into dst in packed layout order.
func (b *Columnar) GetPoint(index int, dst []byte) error {
	stride := b.layout.PointStride()
	if len(dst) != stride {
		return fmt.Errorf("%w: dst is %d bytes, point stride is %d", errs.ErrLayoutMismatch, len(dst), stride)
	}
	if index < 0 || index >= b.Len() {
		return fmt.Errorf("%w: index %d, point count %d", errs.ErrIndexOutOfBounds, index, b.Len())
	}

	for i, m := range b.layout.Members() {
		size := m.Size()
		copy(dst[m.Offset:], b.columns[i][index*size:(index+1)*size])
	}

	return nil
}

// SetPoint overwrites point index with the given packed bytes.
func (b *Columnar) SetPoint(index int, raw []byte) error {
	stride := b.layout.PointStride()
	if len(raw) != stride {
		return fmt.Errorf("%w: got %d bytes, point stride is %d", errs.ErrLayoutMismatch, len(raw), stride)
	}
	if index < 0 || index >= b.Len() {
		return fmt.Errorf("%w: index %d, point count %d", errs.ErrIndexOutOfBounds, index, b.Len())
	}

	for i, m := range b.layout.Members() {
		size := m.Size()
		copy(b.columns[i][index*size:], raw[m.Offset:m.Offset+size])
	}

	return nil
}

// PushAttribute appends a single value into the named attribute's column.
func (b *Columnar) PushAttribute(name string, raw []byte) error {
	return b.PushAttributeRange(name, raw)
}

// PushAttributeRange appends values for consecutive points into the named
// attribute's column. This is an O(1) amortized append.
func (b *Columnar) PushAttributeRange(name string, raw []byte) error {
	memberIdx, _, err := attributeIndex(b.layout, name, raw)
	if err != nil {
		return err
	}

	b.columns[memberIdx] = append(b.columns[memberIdx], raw...)

	return nil
}

// GetAttribute returns the stored bytes of one attribute value. The index is
// checked against the attribute's own column, so values pushed ahead of
// other attributes remain reachable. The slice aliases internal storage and
// is valid only until the next mutation.
func (b *Columnar) GetAttribute(name string, index int) ([]byte, error) {
	i, ok := b.layout.MemberIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownAttribute, name)
	}

	size := b.layout.Members()[i].Size()
	count := len(b.columns[i]) / size
	if index < 0 || index >= count {
		return nil, fmt.Errorf("%w: index %d, attribute %q holds %d values",
			errs.ErrIndexOutOfBounds, index, name, count)
	}

	start := index * size

	return b.columns[i][start : start+size : start+size], nil
}

// SetAttribute overwrites one attribute value.
func (b *Columnar) SetAttribute(name string, index int, raw []byte) error {
	i, ok := b.layout.MemberIndex(name)
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrUnknownAttribute, name)
	}

	size := b.layout.Members()[i].Size()
	if len(raw) != size {
		return fmt.Errorf("%w: got %d bytes, attribute %q is %d bytes",
			errs.ErrLayoutMismatch, len(raw), name, size)
	}

	count := len(b.columns[i]) / size
	if index < 0 || index >= count {
		return fmt.Errorf("%w: index %d, attribute %q holds %d values",
			errs.ErrIndexOutOfBounds, index, name, count)
	}

	copy(b.columns[i][index*size:], raw)

	return nil
}

// Points returns a restartable iterator over the packed bytes of every
// complete point. The yielded slice is a reused scratch buffer, valid only
// within the current iteration step.
func (b *Columnar) Points() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		scratch := make([]byte, b.layout.PointStride())
		for i := 0; i < b.Len(); i++ {
			if err := b.GetPoint(i, scratch); err != nil {
				return
			}
			if !yield(scratch) {
				return
			}
		}
	}
}

// ragged reports whether the attribute columns hold unequal value counts.
func (b *Columnar) ragged() bool {
	members := b.layout.Members()
	if len(members) == 0 {
		return false
	}

	first := len(b.columns[0]) / members[0].Size()
	for i := 1; i < len(members); i++ {
		if len(b.columns[i])/members[i].Size() != first {
			return true
		}
	}

	return false
}
