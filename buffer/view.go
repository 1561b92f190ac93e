package buffer

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"

	"github.com/arloliu/pointcloud/errs"
	"github.com/arloliu/pointcloud/schema"
)

// fieldCodec translates one attribute's packed bytes to and from a field of
// the record type T. src and dst are exactly the attribute's byte size.
type fieldCodec[T any] struct {
	name   string
	offset int
	size   int
	decode func(rec *T, src []byte)
	encode func(rec *T, dst []byte)
}

// Binding maps the attributes of a point layout onto the fields of a record
// type T through explicit typed accessors. Each field read or write goes
// through the attribute's byte offset and size recorded in the layout, never
// through T's native struct layout, so the same T works unchanged against
// either storage strategy.
//
// A Binding may cover a subset of the layout's attributes; unbound
// attributes are left zero by Append and ignored by At.
//
// Bindings are cheap to construct and immutable once handed to a View.
type Binding[T any] struct {
	layout *schema.PointLayout
	fields []fieldCodec[T]
}

// NewBinding creates an empty binding against the given layout.
func NewBinding[T any](layout *schema.PointLayout) *Binding[T] {
	return &Binding[T]{layout: layout}
}

// Layout returns the layout the binding was built against.
func (b *Binding[T]) Layout() *schema.PointLayout {
	return b.layout
}

func (b *Binding[T]) member(name string, want schema.DataType) (schema.Member, error) {
	m, ok := b.layout.Member(name)
	if !ok {
		return schema.Member{}, fmt.Errorf("%w: %q", errs.ErrUnknownAttribute, name)
	}
	if m.Datatype() != want {
		return schema.Member{}, fmt.Errorf("%w: attribute %q is %s, binding expects %s",
			errs.ErrTypeLayoutMismatch, name, m.Datatype(), want)
	}

	return m, nil
}

func (b *Binding[T]) add(m schema.Member, decode func(*T, []byte), encode func(*T, []byte)) {
	b.fields = append(b.fields, fieldCodec[T]{
		name:   m.Name(),
		offset: m.Offset,
		size:   m.Size(),
		decode: decode,
		encode: encode,
	})
}

// BindU8 binds a U8 attribute to typed accessors on T.
func (b *Binding[T]) BindU8(name string, get func(*T) uint8, set func(*T, uint8)) error {
	m, err := b.member(name, schema.U8)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) { set(rec, src[0]) },
		func(rec *T, dst []byte) { dst[0] = get(rec) })

	return nil
}

// BindI8 binds an I8 attribute to typed accessors on T.
func (b *Binding[T]) BindI8(name string, get func(*T) int8, set func(*T, int8)) error {
	m, err := b.member(name, schema.I8)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) { set(rec, int8(src[0])) },
		func(rec *T, dst []byte) { dst[0] = byte(get(rec)) })

	return nil
}

// BindU16 binds a U16 attribute to typed accessors on T.
func (b *Binding[T]) BindU16(name string, get func(*T) uint16, set func(*T, uint16)) error {
	m, err := b.member(name, schema.U16)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) { set(rec, binary.LittleEndian.Uint16(src)) },
		func(rec *T, dst []byte) { binary.LittleEndian.PutUint16(dst, get(rec)) })

	return nil
}

// BindI16 binds an I16 attribute to typed accessors on T.
func (b *Binding[T]) BindI16(name string, get func(*T) int16, set func(*T, int16)) error {
	m, err := b.member(name, schema.I16)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) { set(rec, int16(binary.LittleEndian.Uint16(src))) },
		func(rec *T, dst []byte) { binary.LittleEndian.PutUint16(dst, uint16(get(rec))) })

	return nil
}

// BindU32 binds a U32 attribute to typed accessors on T.
func (b *Binding[T]) BindU32(name string, get func(*T) uint32, set func(*T, uint32)) error {
	m, err := b.member(name, schema.U32)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) { set(rec, binary.LittleEndian.Uint32(src)) },
		func(rec *T, dst []byte) { binary.LittleEndian.PutUint32(dst, get(rec)) })

	return nil
}

// BindI32 binds an I32 attribute to typed accessors on T.
func (b *Binding[T]) BindI32(name string, get func(*T) int32, set func(*T, int32)) error {
	m, err := b.member(name, schema.I32)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) { set(rec, int32(binary.LittleEndian.Uint32(src))) },
		func(rec *T, dst []byte) { binary.LittleEndian.PutUint32(dst, uint32(get(rec))) })

	return nil
}

// BindU64 binds a U64 attribute to typed accessors on T.
func (b *Binding[T]) BindU64(name string, get func(*T) uint64, set func(*T, uint64)) error {
	m, err := b.member(name, schema.U64)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) { set(rec, binary.LittleEndian.Uint64(src)) },
		func(rec *T, dst []byte) { binary.LittleEndian.PutUint64(dst, get(rec)) })

	return nil
}

// BindI64 binds an I64 attribute to typed accessors on T.
func (b *Binding[T]) BindI64(name string, get func(*T) int64, set func(*T, int64)) error {
	m, err := b.member(name, schema.I64)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) { set(rec, int64(binary.LittleEndian.Uint64(src))) },
		func(rec *T, dst []byte) { binary.LittleEndian.PutUint64(dst, uint64(get(rec))) })

	return nil
}

// BindF32 binds an F32 attribute to typed accessors on T.
func (b *Binding[T]) BindF32(name string, get func(*T) float32, set func(*T, float32)) error {
	m, err := b.member(name, schema.F32)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) { set(rec, math.Float32frombits(binary.LittleEndian.Uint32(src))) },
		func(rec *T, dst []byte) { binary.LittleEndian.PutUint32(dst, math.Float32bits(get(rec))) })

	return nil
}

// BindF64 binds an F64 attribute to typed accessors on T.
func (b *Binding[T]) BindF64(name string, get func(*T) float64, set func(*T, float64)) error {
	m, err := b.member(name, schema.F64)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) { set(rec, math.Float64frombits(binary.LittleEndian.Uint64(src))) },
		func(rec *T, dst []byte) { binary.LittleEndian.PutUint64(dst, math.Float64bits(get(rec))) })

	return nil
}

// BindVec3F64 binds a Vec3F64 attribute to typed accessors on T.
func (b *Binding[T]) BindVec3F64(name string, get func(*T) [3]float64, set func(*T, [3]float64)) error {
	m, err := b.member(name, schema.Vec3F64)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) {
			var v [3]float64
			for i := range v {
				v[i] = math.Float64frombits(binary.LittleEndian.Uint64(src[i*8:]))
			}
			set(rec, v)
		},
		func(rec *T, dst []byte) {
			v := get(rec)
			for i := range v {
				binary.LittleEndian.PutUint64(dst[i*8:], math.Float64bits(v[i]))
			}
		})

	return nil
}

// BindVec3F32 binds a Vec3F32 attribute to typed accessors on T.
func (b *Binding[T]) BindVec3F32(name string, get func(*T) [3]float32, set func(*T, [3]float32)) error {
	m, err := b.member(name, schema.Vec3F32)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) {
			var v [3]float32
			for i := range v {
				v[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
			}
			set(rec, v)
		},
		func(rec *T, dst []byte) {
			v := get(rec)
			for i := range v {
				binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v[i]))
			}
		})

	return nil
}

// BindVec3I32 binds a Vec3I32 attribute to typed accessors on T.
func (b *Binding[T]) BindVec3I32(name string, get func(*T) [3]int32, set func(*T, [3]int32)) error {
	m, err := b.member(name, schema.Vec3I32)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) {
			var v [3]int32
			for i := range v {
				v[i] = int32(binary.LittleEndian.Uint32(src[i*4:]))
			}
			set(rec, v)
		},
		func(rec *T, dst []byte) {
			v := get(rec)
			for i := range v {
				binary.LittleEndian.PutUint32(dst[i*4:], uint32(v[i]))
			}
		})

	return nil
}

// BindVec3U16 binds a Vec3U16 attribute to typed accessors on T.
func (b *Binding[T]) BindVec3U16(name string, get func(*T) [3]uint16, set func(*T, [3]uint16)) error {
	m, err := b.member(name, schema.Vec3U16)
	if err != nil {
		return err
	}
	b.add(m,
		func(rec *T, src []byte) {
			var v [3]uint16
			for i := range v {
				v[i] = binary.LittleEndian.Uint16(src[i*2:])
			}
			set(rec, v)
		},
		func(rec *T, dst []byte) {
			v := get(rec)
			for i := range v {
				binary.LittleEndian.PutUint16(dst[i*2:], v[i])
			}
		})

	return nil
}

// View is a typed cursor over a PointBuffer. It borrows the buffer for its
// lifetime and owns no data; records obtained from At are copies.
//
// Many read-only views may coexist over one buffer. A view used for Set or
// Append must be the buffer's only user for the duration of the mutation.
type View[T any] struct {
	buf     PointBuffer
	binding *Binding[T]
}

// NewView binds a record binding to a buffer.
//
// Returns:
//   - *View[T]: The typed view.
//   - error: errs.ErrTypeLayoutMismatch if the binding's layout is not
//     structurally equal to the buffer's layout.
func NewView[T any](buf PointBuffer, binding *Binding[T]) (*View[T], error) {
	if !binding.layout.Equal(buf.Layout()) {
		return nil, fmt.Errorf("%w: binding layout %s does not match buffer layout %s",
			errs.ErrTypeLayoutMismatch, binding.layout, buf.Layout())
	}

	return &View[T]{buf: buf, binding: binding}, nil
}

// Len returns the number of complete points visible through the view.
func (v *View[T]) Len() int {
	return v.buf.Len()
}

// At copies point index out of the buffer into a new record.
func (v *View[T]) At(index int) (T, error) {
	var rec T
	for _, f := range v.binding.fields {
		src, err := v.buf.GetAttribute(f.name, index)
		if err != nil {
			return rec, err
		}
		f.decode(&rec, src)
	}

	return rec, nil
}

// Set writes the record's bound fields into point index.
func (v *View[T]) Set(index int, rec *T) error {
	scratch := make([]byte, 0, 24)
	for _, f := range v.binding.fields {
		if cap(scratch) < f.size {
			scratch = make([]byte, f.size)
		}
		buf := scratch[:f.size]
		f.encode(rec, buf)
		if err := v.buf.SetAttribute(f.name, index, buf); err != nil {
			return err
		}
	}

	return nil
}

// Append encodes the record into one packed point and pushes it onto the
// buffer. Attributes not covered by the binding are zero.
func (v *View[T]) Append(rec *T) error {
	packed := make([]byte, v.binding.layout.PointStride())
	for _, f := range v.binding.fields {
		f.encode(rec, packed[f.offset:f.offset+f.size])
	}

	return v.buf.PushPoint(packed)
}

// All returns a restartable iterator producing a copy of every complete
// point in order. The buffer must not be mutated during iteration.
func (v *View[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := 0; i < v.buf.Len(); i++ {
			rec, err := v.At(i)
			if err != nil {
				return
			}
			if !yield(rec) {
				return
			}
		}
	}
}
