// Package errs defines the sentinel error values used across the pointcloud
// module.
//
// All errors are plain sentinel values so callers can test for them with
// errors.Is. Packages wrap them with additional context using fmt.Errorf and
// the %w verb:
//
//	return fmt.Errorf("%w: attribute %q", errs.ErrUnknownAttribute, name)
package errs

import "errors"

// Schema and buffer errors. All of these are locally recoverable: the caller
// picks a correct layout, attribute name or index and retries.
var (
	// ErrDuplicateAttribute is returned when adding an attribute whose name
	// already exists in the layout under construction.
	ErrDuplicateAttribute = errors.New("duplicate attribute")

	// ErrLayoutMismatch is returned when raw point bytes do not match the
	// buffer layout's point stride.
	ErrLayoutMismatch = errors.New("layout mismatch")

	// ErrUnknownAttribute is returned when an attribute name is not part of
	// the buffer's layout.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrIndexOutOfBounds is returned when a point index is >= the buffer's
	// point count.
	ErrIndexOutOfBounds = errors.New("point index out of bounds")

	// ErrIncompletePoint is returned when attribute-wise pushes into an
	// interleaved buffer violate the layout's attribute order, leaving a
	// partially assembled point.
	ErrIncompletePoint = errors.New("incomplete point")

	// ErrTypeLayoutMismatch is returned when a typed view's binding layout is
	// not structurally equal to the buffer's layout.
	ErrTypeLayoutMismatch = errors.New("type layout mismatch")
)

// LAS/LAZ codec errors.
var (
	// ErrInvalidHeader is returned when the LAS header is malformed: wrong
	// magic bytes, impossible field values, or truncated fixed fields.
	// Header parse failures are fatal for the stream.
	ErrInvalidHeader = errors.New("invalid LAS header")

	// ErrUnsupportedVersion is returned for LAS versions outside 1.0-1.4.
	ErrUnsupportedVersion = errors.New("unsupported LAS version")

	// ErrUnsupportedFormat is returned for point record formats the
	// operation cannot handle, e.g. writing formats 6-10.
	ErrUnsupportedFormat = errors.New("unsupported point record format")

	// ErrHeaderFrozen is returned when header mutations (such as AddVLR) are
	// attempted after the first point has been written.
	ErrHeaderFrozen = errors.New("header frozen")

	// ErrOutOfScaleRange is returned when quantizing a floating point
	// position would overflow the 32-bit wire field.
	ErrOutOfScaleRange = errors.New("value out of scale range")

	// ErrLossyConversion is returned when narrowing an attribute value would
	// discard set bits. Conversions never truncate silently.
	ErrLossyConversion = errors.New("lossy attribute conversion")

	// ErrCorruptStream is returned when a LAZ chunk's bitstream is truncated
	// or internally inconsistent. It aborts only the current chunk; the
	// reader remains usable for seeks into other chunks.
	ErrCorruptStream = errors.New("corrupt compressed stream")
)

// Snapshot codec errors.
var (
	// ErrInvalidSnapshot is returned when snapshot bytes are truncated or
	// carry an unknown magic/flag combination.
	ErrInvalidSnapshot = errors.New("invalid snapshot data")

	// ErrChecksumMismatch is returned when the snapshot payload checksum
	// does not match the stored digest.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")

	// ErrUnknownCompression is returned for compression type codes with no
	// registered codec.
	ErrUnknownCompression = errors.New("unknown compression type")
)
