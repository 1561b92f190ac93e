package schema

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/arloliu/pointcloud/errs"
)

// Member is one attribute of a layout together with its byte offset in the
// interleaved (packed) point record.
type Member struct {
	Attribute
	// Offset is the byte offset of this attribute within one packed point.
	Offset int
}

// PointLayout is an ordered set of unique attributes describing one point
// record type. The packed form has no implicit padding: each attribute
// starts where the previous one ends and PointStride is the sum of all
// attribute sizes.
//
// A PointLayout is immutable after creation and safe for concurrent use.
type PointLayout struct {
	members     []Member
	index       map[string]int
	stride      int
	fingerprint uint64
}

// LayoutBuilder accumulates attributes for a PointLayout. The zero value is
// not usable; create builders with NewLayoutBuilder.
type LayoutBuilder struct {
	attributes []Attribute
}

// NewLayoutBuilder creates an empty layout builder.
func NewLayoutBuilder() *LayoutBuilder {
	return &LayoutBuilder{}
}

// Add appends an attribute to the layout under construction and returns the
// builder for chaining. Duplicate names are reported by Build.
func (b *LayoutBuilder) Add(attr Attribute) *LayoutBuilder {
	b.attributes = append(b.attributes, attr)
	return b
}

// Build validates the accumulated attributes and constructs the layout.
//
// Returns:
//   - *PointLayout: The immutable layout.
//   - error: errs.ErrDuplicateAttribute if two attributes share a name.
func (b *LayoutBuilder) Build() (*PointLayout, error) {
	return NewLayout(b.attributes...)
}

// NewLayout constructs a PointLayout from the given attributes in order.
//
// Returns:
//   - *PointLayout: The immutable layout.
//   - error: errs.ErrDuplicateAttribute if two attributes share a name.
func NewLayout(attributes ...Attribute) (*PointLayout, error) {
	l := &PointLayout{
		members: make([]Member, 0, len(attributes)),
		index:   make(map[string]int, len(attributes)),
	}

	digest := xxhash.New()
	for _, attr := range attributes {
		if _, exists := l.index[attr.Name()]; exists {
			return nil, fmt.Errorf("%w: %q", errs.ErrDuplicateAttribute, attr.Name())
		}

		l.index[attr.Name()] = len(l.members)
		l.members = append(l.members, Member{Attribute: attr, Offset: l.stride})
		l.stride += attr.Size()

		// Canonical encoding for the fingerprint: name, NUL, datatype code.
		_, _ = digest.WriteString(attr.Name())
		_, _ = digest.Write([]byte{0, byte(attr.Datatype())})
	}
	l.fingerprint = digest.Sum64()

	return l, nil
}

// Member returns the member for the named attribute.
func (l *PointLayout) Member(name string) (Member, bool) {
	i, ok := l.index[name]
	if !ok {
		return Member{}, false
	}

	return l.members[i], true
}

// MemberIndex returns the position of the named attribute within the layout.
func (l *PointLayout) MemberIndex(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

// Attribute returns the descriptor for the named attribute.
func (l *PointLayout) Attribute(name string) (Attribute, bool) {
	m, ok := l.Member(name)
	return m.Attribute, ok
}

// HasAttribute reports whether the layout contains the named attribute.
func (l *PointLayout) HasAttribute(name string) bool {
	_, ok := l.index[name]
	return ok
}

// Members returns the layout's members in declaration order. The returned
// slice must not be mutated.
func (l *PointLayout) Members() []Member {
	return l.members
}

// Len returns the number of attributes in the layout.
func (l *PointLayout) Len() int {
	return len(l.members)
}

// PointStride returns the byte size of one packed (interleaved) point.
func (l *PointLayout) PointStride() int {
	return l.stride
}

// Fingerprint returns a 64-bit xxhash digest of the layout's canonical
// encoding. Two layouts with equal fingerprints are structurally equal for
// all practical purposes; Equal performs the exact comparison.
func (l *PointLayout) Fingerprint() uint64 {
	return l.fingerprint
}

// Equal reports structural equality: same attributes with same datatypes in
// the same order. Two independently built but identical layouts are
// interchangeable.
func (l *PointLayout) Equal(other *PointLayout) bool {
	if l == other {
		return true
	}
	if other == nil || len(l.members) != len(other.members) {
		return false
	}
	if l.fingerprint != other.fingerprint {
		return false
	}
	for i, m := range l.members {
		if m.Attribute != other.members[i].Attribute {
			return false
		}
	}

	return true
}

func (l *PointLayout) String() string {
	var sb strings.Builder
	sb.WriteString("PointLayout{")
	for i, m := range l.members {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s@%d", m.Attribute, m.Offset)
	}
	sb.WriteString("}")

	return sb.String()
}
