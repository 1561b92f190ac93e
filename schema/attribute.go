// Package schema describes the named, typed attributes a point record
// carries and their packed binary layout.
//
// An Attribute pairs a name with a DataType; a PointLayout is an ordered set
// of unique attributes with derived byte offsets. Layouts are immutable after
// construction and shared read-only by every buffer and view that uses them.
//
// # Basic Usage
//
//	layout, err := schema.NewLayout(schema.Position3D, schema.Intensity, schema.Classification)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(layout.PointStride()) // 27
package schema

import "fmt"

// DataType identifies the binary representation of one attribute value.
type DataType uint8

const (
	U8      DataType = 0x01
	I8      DataType = 0x02
	U16     DataType = 0x03
	I16     DataType = 0x04
	U32     DataType = 0x05
	I32     DataType = 0x06
	U64     DataType = 0x07
	I64     DataType = 0x08
	F32     DataType = 0x09
	F64     DataType = 0x0A
	Vec3I32 DataType = 0x0B
	Vec3U16 DataType = 0x0C
	Vec3F32 DataType = 0x0D
	Vec3F64 DataType = 0x0E
)

// Size returns the packed byte size of one value of this datatype.
func (d DataType) Size() int {
	switch d {
	case U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64:
		return 8
	case Vec3U16:
		return 6
	case Vec3I32, Vec3F32:
		return 12
	case Vec3F64:
		return 24
	default:
		return 0
	}
}

// Valid reports whether the datatype is a known code.
func (d DataType) Valid() bool {
	return d >= U8 && d <= Vec3F64
}

func (d DataType) String() string {
	switch d {
	case U8:
		return "U8"
	case I8:
		return "I8"
	case U16:
		return "U16"
	case I16:
		return "I16"
	case U32:
		return "U32"
	case I32:
		return "I32"
	case U64:
		return "U64"
	case I64:
		return "I64"
	case F32:
		return "F32"
	case F64:
		return "F64"
	case Vec3I32:
		return "Vec3I32"
	case Vec3U16:
		return "Vec3U16"
	case Vec3F32:
		return "Vec3F32"
	case Vec3F64:
		return "Vec3F64"
	default:
		return "Unknown"
	}
}

// Attribute describes one named, typed point attribute. Attributes are
// immutable; identity is by name. Two attributes with the same name must
// agree on datatype within one layout.
type Attribute struct {
	name     string
	datatype DataType
}

// NewAttribute creates an attribute descriptor.
// It panics if the datatype is not a known code; descriptors are almost
// always package-level values, so this is a construction-time programming
// error rather than a runtime condition.
func NewAttribute(name string, datatype DataType) Attribute {
	if !datatype.Valid() {
		panic(fmt.Sprintf("schema: invalid datatype %d for attribute %q", datatype, name))
	}

	return Attribute{name: name, datatype: datatype}
}

// Name returns the attribute name.
func (a Attribute) Name() string { return a.name }

// Datatype returns the attribute's datatype.
func (a Attribute) Datatype() DataType { return a.datatype }

// Size returns the packed byte size of one value of this attribute.
func (a Attribute) Size() int { return a.datatype.Size() }

// WithDatatype returns a copy of the attribute carrying the same name but a
// different datatype. This is how callers request unit/width conversions
// from the LAS codec, e.g. positions as Vec3F32 instead of Vec3F64.
func (a Attribute) WithDatatype(datatype DataType) Attribute {
	return NewAttribute(a.name, datatype)
}

func (a Attribute) String() string {
	return fmt.Sprintf("%s[%s]", a.name, a.datatype)
}

// Well-known attributes of LAS point records. The datatypes are the default
// in-memory representations; use WithDatatype to request a different width.
var (
	Position3D        = NewAttribute("Position3D", Vec3F64)
	Intensity         = NewAttribute("Intensity", U16)
	ReturnNumber      = NewAttribute("ReturnNumber", U8)
	NumberOfReturns   = NewAttribute("NumberOfReturns", U8)
	ScanDirectionFlag = NewAttribute("ScanDirectionFlag", U8)
	EdgeOfFlightLine  = NewAttribute("EdgeOfFlightLine", U8)
	Classification    = NewAttribute("Classification", U8)
	ClassFlags        = NewAttribute("ClassFlags", U8)
	ScanAngleRank     = NewAttribute("ScanAngleRank", I8)
	ScanAngle         = NewAttribute("ScanAngle", I16)
	ScannerChannel    = NewAttribute("ScannerChannel", U8)
	UserData          = NewAttribute("UserData", U8)
	PointSourceID     = NewAttribute("PointSourceID", U16)
	GpsTime           = NewAttribute("GpsTime", F64)
	ColorRGB          = NewAttribute("ColorRGB", Vec3U16)
	NIR               = NewAttribute("NIR", U16)
	WavePacketIndex   = NewAttribute("WavePacketIndex", U8)
	WavePacketOffset  = NewAttribute("WavePacketOffset", U64)
	WavePacketSize    = NewAttribute("WavePacketSize", U32)
	WaveReturnPoint   = NewAttribute("WaveReturnPoint", F32)
	WaveParameters    = NewAttribute("WaveParameters", Vec3F32)
)
