// Package buffer provides in-memory storage for point data in two physical
// layouts behind one layout-agnostic contract.
//
// An Interleaved buffer stores points attribute-interleaved (array of
// structs): one contiguous region, point-major. A Columnar buffer stores one
// contiguous region per attribute (struct of arrays). Both implement
// PointBuffer; callers never branch on which variant they hold.
//
// Interleaved favors whole-point access patterns such as streaming every
// attribute per point, which is what LAS/LAZ I/O does. Columnar favors
// single-attribute bulk operations such as recomputing only positions.
//
// Typed access is provided by Binding and View: a Binding maps layout
// attributes onto the fields of a Go struct through explicit accessors, and a
// View reads and writes whole records against either buffer kind.
//
// Buffers are not internally synchronized. The intended discipline is shared
// reads or one exclusive writer; for cross-goroutine work, partition point
// ranges across buffers owned by separate goroutines.
package buffer

import (
	"iter"

	"github.com/arloliu/pointcloud/format"
	"github.com/arloliu/pointcloud/schema"
)

// PointBuffer is the layout-agnostic contract shared by the interleaved and
// columnar storage strategies.
//
// All raw byte arguments and results use the layout's packed little-endian
// representation. Slices returned by accessors alias internal storage and
// are valid only until the next mutation of the buffer.
type PointBuffer interface {
	// Len returns the number of complete points in the buffer.
	Len() int

	// Layout returns the buffer's point layout. The layout is shared and
	// immutable.
	Layout() *schema.PointLayout

	// Kind reports the physical storage strategy.
	Kind() format.LayoutKind

	// PushPoint appends one point's full packed bytes.
	// Fails with errs.ErrLayoutMismatch if len(raw) != PointStride, and with
	// errs.ErrIncompletePoint if attribute-wise pushes left a partially
	// assembled point.
	PushPoint(raw []byte) error

	// GetPoint copies point index's packed bytes into dst.
	// Fails with errs.ErrIndexOutOfBounds or errs.ErrLayoutMismatch if dst
	// is not exactly PointStride bytes.
	GetPoint(index int, dst []byte) error

	// SetPoint overwrites point index with the given packed bytes.
	SetPoint(index int, raw []byte) error

	// PushAttribute appends a single value for the named attribute.
	// Fails with errs.ErrUnknownAttribute if the layout lacks the name and
	// errs.ErrLayoutMismatch if len(raw) is not the attribute's size.
	PushAttribute(name string, raw []byte) error

	// PushAttributeRange appends values for n consecutive points of the
	// named attribute; len(raw) must be a multiple of the attribute's size.
	PushAttributeRange(name string, raw []byte) error

	// GetAttribute returns the stored bytes of one attribute value.
	// Fails with errs.ErrUnknownAttribute or errs.ErrIndexOutOfBounds.
	GetAttribute(name string, index int) ([]byte, error)

	// SetAttribute overwrites one attribute value.
	SetAttribute(name string, index int, raw []byte) error

	// Points returns a restartable iterator over the packed bytes of every
	// complete point. The yielded slice is only valid within the current
	// iteration step and must not be mutated.
	Points() iter.Seq[[]byte]
}

// New creates a buffer of the requested kind with capacity for capacity
// points. It is a convenience dispatcher over NewInterleaved and NewColumnar.
func New(kind format.LayoutKind, layout *schema.PointLayout, capacity int) PointBuffer {
	if kind == format.LayoutColumnar {
		return NewColumnar(layout, capacity)
	}

	return NewInterleaved(layout, capacity)
}
