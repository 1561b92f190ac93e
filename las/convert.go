package las

import (
	"fmt"
	"math"

	"github.com/arloliu/pointcloud/endian"
	"github.com/arloliu/pointcloud/errs"
	"github.com/arloliu/pointcloud/schema"
)

// extendedScanAngleUnit is the angle increment of the 16-bit scan angle
// carried by formats 6-10, in degrees.
const extendedScanAngleUnit = 0.006

// quantize maps a coordinate onto the integer grid defined by scale and
// offset.
func quantize(v, scale, offset float64) (int32, error) {
	g := math.Round((v - offset) / scale)
	if math.IsNaN(g) || g < math.MinInt32 || g > math.MaxInt32 {
		return 0, fmt.Errorf("%w: coordinate %v exceeds the grid at scale %v offset %v",
			errs.ErrOutOfScaleRange, v, scale, offset)
	}
	return int32(g), nil
}

// uintToScalar stores an unsigned value into a scalar member, narrowing
// only when no set bits are lost.
func uintToScalar(dst []byte, dt schema.DataType, v uint64) error {
	engine := endian.GetLittleEndianEngine()
	switch dt {
	case schema.U8:
		if v > math.MaxUint8 {
			return fmt.Errorf("%w: %d does not fit u8", errs.ErrLossyConversion, v)
		}
		dst[0] = uint8(v)
	case schema.U16:
		if v > math.MaxUint16 {
			return fmt.Errorf("%w: %d does not fit u16", errs.ErrLossyConversion, v)
		}
		engine.PutUint16(dst, uint16(v))
	case schema.U32:
		if v > math.MaxUint32 {
			return fmt.Errorf("%w: %d does not fit u32", errs.ErrLossyConversion, v)
		}
		engine.PutUint32(dst, uint32(v))
	case schema.U64:
		engine.PutUint64(dst, v)
	case schema.I8:
		if v > math.MaxInt8 {
			return fmt.Errorf("%w: %d does not fit i8", errs.ErrLossyConversion, v)
		}
		dst[0] = uint8(int8(v))
	case schema.I16:
		if v > math.MaxInt16 {
			return fmt.Errorf("%w: %d does not fit i16", errs.ErrLossyConversion, v)
		}
		engine.PutUint16(dst, uint16(int16(v)))
	case schema.I32:
		if v > math.MaxInt32 {
			return fmt.Errorf("%w: %d does not fit i32", errs.ErrLossyConversion, v)
		}
		engine.PutUint32(dst, uint32(int32(v)))
	case schema.I64:
		if v > math.MaxInt64 {
			return fmt.Errorf("%w: %d does not fit i64", errs.ErrLossyConversion, v)
		}
		engine.PutUint64(dst, v)
	case schema.F32:
		engine.PutUint32(dst, math.Float32bits(float32(v)))
	case schema.F64:
		engine.PutUint64(dst, math.Float64bits(float64(v)))
	default:
		return fmt.Errorf("%w: scalar value into %s member", errs.ErrTypeLayoutMismatch, dt)
	}
	return nil
}

// intToScalar stores a signed value into a scalar member.
func intToScalar(dst []byte, dt schema.DataType, v int64) error {
	engine := endian.GetLittleEndianEngine()
	switch dt {
	case schema.I8:
		if v < math.MinInt8 || v > math.MaxInt8 {
			return fmt.Errorf("%w: %d does not fit i8", errs.ErrLossyConversion, v)
		}
		dst[0] = uint8(int8(v))
	case schema.I16:
		if v < math.MinInt16 || v > math.MaxInt16 {
			return fmt.Errorf("%w: %d does not fit i16", errs.ErrLossyConversion, v)
		}
		engine.PutUint16(dst, uint16(int16(v)))
	case schema.I32:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return fmt.Errorf("%w: %d does not fit i32", errs.ErrLossyConversion, v)
		}
		engine.PutUint32(dst, uint32(int32(v)))
	case schema.I64:
		engine.PutUint64(dst, uint64(v))
	case schema.U8, schema.U16, schema.U32, schema.U64:
		if v < 0 {
			return fmt.Errorf("%w: negative %d into unsigned member", errs.ErrLossyConversion, v)
		}
		return uintToScalar(dst, dt, uint64(v))
	case schema.F32:
		engine.PutUint32(dst, math.Float32bits(float32(v)))
	case schema.F64:
		engine.PutUint64(dst, math.Float64bits(float64(v)))
	default:
		return fmt.Errorf("%w: scalar value into %s member", errs.ErrTypeLayoutMismatch, dt)
	}
	return nil
}

// floatToScalar stores a floating point value into a float member.
// Narrowing to f32 may round.
func floatToScalar(dst []byte, dt schema.DataType, v float64) error {
	engine := endian.GetLittleEndianEngine()
	switch dt {
	case schema.F32:
		engine.PutUint32(dst, math.Float32bits(float32(v)))
	case schema.F64:
		engine.PutUint64(dst, math.Float64bits(v))
	default:
		return fmt.Errorf("%w: floating point value into %s member", errs.ErrTypeLayoutMismatch, dt)
	}
	return nil
}

// scalarToUint reads a scalar member as an unsigned value bounded by
// max. Floats round to the nearest integer.
func scalarToUint(src []byte, dt schema.DataType, max uint64) (uint64, error) {
	engine := endian.GetLittleEndianEngine()
	var v uint64
	switch dt {
	case schema.U8:
		v = uint64(src[0])
	case schema.U16:
		v = uint64(engine.Uint16(src))
	case schema.U32:
		v = uint64(engine.Uint32(src))
	case schema.U64:
		v = engine.Uint64(src)
	case schema.I8, schema.I16, schema.I32, schema.I64:
		i, err := scalarToInt(src, dt, 0, math.MaxInt64)
		if err != nil {
			return 0, err
		}
		v = uint64(i)
	case schema.F32:
		f := float64(math.Float32frombits(engine.Uint32(src)))
		return floatAsUint(f, max)
	case schema.F64:
		f := math.Float64frombits(engine.Uint64(src))
		return floatAsUint(f, max)
	default:
		return 0, fmt.Errorf("%w: %s member as scalar", errs.ErrTypeLayoutMismatch, dt)
	}
	if v > max {
		return 0, fmt.Errorf("%w: %d exceeds field maximum %d", errs.ErrLossyConversion, v, max)
	}
	return v, nil
}

func floatAsUint(f float64, max uint64) (uint64, error) {
	r := math.Round(f)
	if math.IsNaN(r) || r < 0 || r > float64(max) {
		return 0, fmt.Errorf("%w: %v does not fit field maximum %d", errs.ErrLossyConversion, f, max)
	}
	return uint64(r), nil
}

// scalarToInt reads a scalar member as a signed value within [min, max].
func scalarToInt(src []byte, dt schema.DataType, min, max int64) (int64, error) {
	engine := endian.GetLittleEndianEngine()
	var v int64
	switch dt {
	case schema.I8:
		v = int64(int8(src[0]))
	case schema.I16:
		v = int64(int16(engine.Uint16(src)))
	case schema.I32:
		v = int64(int32(engine.Uint32(src)))
	case schema.I64:
		v = int64(engine.Uint64(src))
	case schema.U8:
		v = int64(src[0])
	case schema.U16:
		v = int64(engine.Uint16(src))
	case schema.U32:
		v = int64(engine.Uint32(src))
	case schema.U64:
		u := engine.Uint64(src)
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d exceeds field maximum %d", errs.ErrLossyConversion, u, max)
		}
		v = int64(u)
	case schema.F32:
		f := float64(math.Float32frombits(engine.Uint32(src)))
		r := math.Round(f)
		if math.IsNaN(r) || r < float64(min) || r > float64(max) {
			return 0, fmt.Errorf("%w: %v outside field range", errs.ErrLossyConversion, f)
		}
		return int64(r), nil
	case schema.F64:
		f := math.Float64frombits(engine.Uint64(src))
		r := math.Round(f)
		if math.IsNaN(r) || r < float64(min) || r > float64(max) {
			return 0, fmt.Errorf("%w: %v outside field range", errs.ErrLossyConversion, f)
		}
		return int64(r), nil
	default:
		return 0, fmt.Errorf("%w: %s member as scalar", errs.ErrTypeLayoutMismatch, dt)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%w: %d outside field range [%d, %d]", errs.ErrLossyConversion, v, min, max)
	}
	return v, nil
}

// scalarToFloat reads a scalar member as a floating point value.
func scalarToFloat(src []byte, dt schema.DataType) (float64, error) {
	engine := endian.GetLittleEndianEngine()
	switch dt {
	case schema.F32:
		return float64(math.Float32frombits(engine.Uint32(src))), nil
	case schema.F64:
		return math.Float64frombits(engine.Uint64(src)), nil
	case schema.U8:
		return float64(src[0]), nil
	case schema.U16:
		return float64(engine.Uint16(src)), nil
	case schema.U32:
		return float64(engine.Uint32(src)), nil
	case schema.U64:
		return float64(engine.Uint64(src)), nil
	case schema.I8:
		return float64(int8(src[0])), nil
	case schema.I16:
		return float64(int16(engine.Uint16(src))), nil
	case schema.I32:
		return float64(int32(engine.Uint32(src))), nil
	case schema.I64:
		return float64(int64(engine.Uint64(src))), nil
	default:
		return 0, fmt.Errorf("%w: %s member as scalar", errs.ErrTypeLayoutMismatch, dt)
	}
}

// attrAvailable reports whether a well-known attribute is carried by a
// point record format. Attributes shared by every format, like the
// positions and flags, are always available; the scan angle attributes
// are served in both widths through unit conversion.
func attrAvailable(format uint8, name string) bool {
	switch name {
	case schema.GpsTime.Name():
		return formatHasGpsTime(format)
	case schema.ColorRGB.Name():
		return formatHasRGB(format)
	case schema.NIR.Name():
		return formatHasNIR(format)
	case schema.WavePacketIndex.Name(), schema.WavePacketOffset.Name(),
		schema.WavePacketSize.Name(), schema.WaveReturnPoint.Name(),
		schema.WaveParameters.Name():
		return formatHasWavePacket(format)
	}
	return true
}

// readStep fills one layout member from a decoded record.
type readStep struct {
	offset int
	size   int
	fn     func(p *rawPoint, field []byte) error
}

// readPlan converts decoded records into packed points of one layout.
type readPlan struct {
	steps  []readStep
	stride int
}

func newReadPlan(format uint8, layout *schema.PointLayout, h *Header) (*readPlan, error) {
	plan := &readPlan{
		steps:  make([]readStep, 0, layout.Len()),
		stride: layout.PointStride(),
	}
	for _, m := range layout.Members() {
		fn, err := readFieldFunc(format, m.Attribute, h)
		if err != nil {
			return nil, err
		}
		plan.steps = append(plan.steps, readStep{offset: m.Offset, size: m.Size(), fn: fn})
	}
	return plan, nil
}

// fill writes the members of one packed point from a decoded record.
func (pl *readPlan) fill(p *rawPoint, point []byte) error {
	for _, step := range pl.steps {
		if err := step.fn(p, point[step.offset:step.offset+step.size]); err != nil {
			return err
		}
	}
	return nil
}

func readFieldFunc(format uint8, attr schema.Attribute, h *Header) (func(p *rawPoint, field []byte) error, error) {
	name := attr.Name()
	dt := attr.Datatype()

	if !attrAvailable(format, name) {
		return nil, fmt.Errorf("%w: attribute %q is not carried by point format %d",
			errs.ErrUnknownAttribute, name, format)
	}

	switch name {
	case schema.Position3D.Name():
		sx, sy, sz := h.ScaleX, h.ScaleY, h.ScaleZ
		ox, oy, oz := h.OffsetX, h.OffsetY, h.OffsetZ
		engine := endian.GetLittleEndianEngine()
		switch dt {
		case schema.Vec3F64:
			return func(p *rawPoint, field []byte) error {
				engine.PutUint64(field[0:8], math.Float64bits(float64(p.X)*sx+ox))
				engine.PutUint64(field[8:16], math.Float64bits(float64(p.Y)*sy+oy))
				engine.PutUint64(field[16:24], math.Float64bits(float64(p.Z)*sz+oz))
				return nil
			}, nil
		case schema.Vec3F32:
			return func(p *rawPoint, field []byte) error {
				engine.PutUint32(field[0:4], math.Float32bits(float32(float64(p.X)*sx+ox)))
				engine.PutUint32(field[4:8], math.Float32bits(float32(float64(p.Y)*sy+oy)))
				engine.PutUint32(field[8:12], math.Float32bits(float32(float64(p.Z)*sz+oz)))
				return nil
			}, nil
		case schema.Vec3I32:
			return func(p *rawPoint, field []byte) error {
				engine.PutUint32(field[0:4], uint32(p.X))
				engine.PutUint32(field[4:8], uint32(p.Y))
				engine.PutUint32(field[8:12], uint32(p.Z))
				return nil
			}, nil
		}
		return nil, fmt.Errorf("%w: %s as %s", errs.ErrTypeLayoutMismatch, name, dt)

	case schema.ColorRGB.Name():
		if dt != schema.Vec3U16 {
			return nil, fmt.Errorf("%w: %s as %s", errs.ErrTypeLayoutMismatch, name, dt)
		}
		engine := endian.GetLittleEndianEngine()
		return func(p *rawPoint, field []byte) error {
			engine.PutUint16(field[0:2], p.Red)
			engine.PutUint16(field[2:4], p.Green)
			engine.PutUint16(field[4:6], p.Blue)
			return nil
		}, nil

	case schema.WaveParameters.Name():
		if dt != schema.Vec3F32 {
			return nil, fmt.Errorf("%w: %s as %s", errs.ErrTypeLayoutMismatch, name, dt)
		}
		engine := endian.GetLittleEndianEngine()
		return func(p *rawPoint, field []byte) error {
			engine.PutUint32(field[0:4], math.Float32bits(p.WaveXt))
			engine.PutUint32(field[4:8], math.Float32bits(p.WaveYt))
			engine.PutUint32(field[8:12], math.Float32bits(p.WaveZt))
			return nil
		}, nil

	case schema.GpsTime.Name():
		return func(p *rawPoint, field []byte) error {
			return floatToScalar(field, dt, p.GpsTime)
		}, nil

	case schema.WaveReturnPoint.Name():
		return func(p *rawPoint, field []byte) error {
			return floatToScalar(field, dt, float64(p.WaveReturnPoint))
		}, nil

	case schema.ScanAngleRank.Name():
		if formatExtended(format) {
			return func(p *rawPoint, field []byte) error {
				return intToScalar(field, dt, int64(math.Round(float64(p.ScanAngle)*extendedScanAngleUnit)))
			}, nil
		}
		return func(p *rawPoint, field []byte) error {
			return intToScalar(field, dt, int64(p.ScanAngleRank))
		}, nil

	case schema.ScanAngle.Name():
		if formatExtended(format) {
			return func(p *rawPoint, field []byte) error {
				return intToScalar(field, dt, int64(p.ScanAngle))
			}, nil
		}
		return func(p *rawPoint, field []byte) error {
			return intToScalar(field, dt, int64(math.Round(float64(p.ScanAngleRank)/extendedScanAngleUnit)))
		}, nil
	}

	// the remaining well-known attributes are unsigned scalars
	var get func(p *rawPoint) uint64
	switch name {
	case schema.Intensity.Name():
		get = func(p *rawPoint) uint64 { return uint64(p.Intensity) }
	case schema.ReturnNumber.Name():
		get = func(p *rawPoint) uint64 { return uint64(p.ReturnNumber) }
	case schema.NumberOfReturns.Name():
		get = func(p *rawPoint) uint64 { return uint64(p.NumberOfReturns) }
	case schema.ScanDirectionFlag.Name():
		get = func(p *rawPoint) uint64 { return uint64(p.ScanDirection) }
	case schema.EdgeOfFlightLine.Name():
		get = func(p *rawPoint) uint64 { return uint64(p.EdgeOfFlight) }
	case schema.Classification.Name():
		get = func(p *rawPoint) uint64 { return uint64(p.Classification) }
	case schema.ClassFlags.Name():
		get = func(p *rawPoint) uint64 { return uint64(p.ClassFlags) }
	case schema.ScannerChannel.Name():
		get = func(p *rawPoint) uint64 { return uint64(p.ScannerChannel) }
	case schema.UserData.Name():
		get = func(p *rawPoint) uint64 { return uint64(p.UserData) }
	case schema.PointSourceID.Name():
		get = func(p *rawPoint) uint64 { return uint64(p.PointSourceID) }
	case schema.NIR.Name():
		get = func(p *rawPoint) uint64 { return uint64(p.NIR) }
	case schema.WavePacketIndex.Name():
		get = func(p *rawPoint) uint64 { return uint64(p.WavePacketIndex) }
	case schema.WavePacketOffset.Name():
		get = func(p *rawPoint) uint64 { return p.WaveOffset }
	case schema.WavePacketSize.Name():
		get = func(p *rawPoint) uint64 { return uint64(p.WaveSize) }
	default:
		return nil, fmt.Errorf("%w: attribute %q has no point record field", errs.ErrUnknownAttribute, name)
	}
	return func(p *rawPoint, field []byte) error {
		return uintToScalar(field, dt, get(p))
	}, nil
}

// writeStep extracts one record field from a packed point.
type writeStep func(point []byte, p *rawPoint) error

// writePlan converts packed points of one layout into wire records.
type writePlan struct {
	steps []writeStep
}

func newWritePlan(format uint8, layout *schema.PointLayout, h *Header) (*writePlan, error) {
	plan := &writePlan{steps: make([]writeStep, 0, layout.Len())}
	for _, m := range layout.Members() {
		step, err := writeFieldFunc(format, m, h)
		if err != nil {
			return nil, err
		}
		plan.steps = append(plan.steps, step)
	}
	return plan, nil
}

// extract fills p from one packed point. Fields the layout does not
// carry stay at their zero values.
func (pl *writePlan) extract(point []byte, p *rawPoint) error {
	*p = rawPoint{}
	for _, step := range pl.steps {
		if err := step(point, p); err != nil {
			return err
		}
	}
	return nil
}

func writeFieldFunc(format uint8, m schema.Member, h *Header) (writeStep, error) {
	name := m.Name()
	dt := m.Datatype()
	off := m.Offset
	size := m.Size()

	if !attrAvailable(format, name) {
		return nil, fmt.Errorf("%w: attribute %q cannot be stored in point format %d",
			errs.ErrLossyConversion, name, format)
	}

	field := func(point []byte) []byte { return point[off : off+size] }

	switch name {
	case schema.Position3D.Name():
		sx, sy, sz := h.ScaleX, h.ScaleY, h.ScaleZ
		ox, oy, oz := h.OffsetX, h.OffsetY, h.OffsetZ
		engine := endian.GetLittleEndianEngine()
		switch dt {
		case schema.Vec3F64:
			return func(point []byte, p *rawPoint) error {
				f := field(point)
				x := math.Float64frombits(engine.Uint64(f[0:8]))
				y := math.Float64frombits(engine.Uint64(f[8:16]))
				z := math.Float64frombits(engine.Uint64(f[16:24]))
				return p.setPosition(x, y, z, sx, sy, sz, ox, oy, oz)
			}, nil
		case schema.Vec3F32:
			return func(point []byte, p *rawPoint) error {
				f := field(point)
				x := float64(math.Float32frombits(engine.Uint32(f[0:4])))
				y := float64(math.Float32frombits(engine.Uint32(f[4:8])))
				z := float64(math.Float32frombits(engine.Uint32(f[8:12])))
				return p.setPosition(x, y, z, sx, sy, sz, ox, oy, oz)
			}, nil
		case schema.Vec3I32:
			return func(point []byte, p *rawPoint) error {
				f := field(point)
				p.X = int32(engine.Uint32(f[0:4]))
				p.Y = int32(engine.Uint32(f[4:8]))
				p.Z = int32(engine.Uint32(f[8:12]))
				return nil
			}, nil
		}
		return nil, fmt.Errorf("%w: %s as %s", errs.ErrTypeLayoutMismatch, name, dt)

	case schema.ColorRGB.Name():
		if dt != schema.Vec3U16 {
			return nil, fmt.Errorf("%w: %s as %s", errs.ErrTypeLayoutMismatch, name, dt)
		}
		engine := endian.GetLittleEndianEngine()
		return func(point []byte, p *rawPoint) error {
			f := field(point)
			p.Red = engine.Uint16(f[0:2])
			p.Green = engine.Uint16(f[2:4])
			p.Blue = engine.Uint16(f[4:6])
			return nil
		}, nil

	case schema.WaveParameters.Name():
		if dt != schema.Vec3F32 {
			return nil, fmt.Errorf("%w: %s as %s", errs.ErrTypeLayoutMismatch, name, dt)
		}
		engine := endian.GetLittleEndianEngine()
		return func(point []byte, p *rawPoint) error {
			f := field(point)
			p.WaveXt = math.Float32frombits(engine.Uint32(f[0:4]))
			p.WaveYt = math.Float32frombits(engine.Uint32(f[4:8]))
			p.WaveZt = math.Float32frombits(engine.Uint32(f[8:12]))
			return nil
		}, nil

	case schema.GpsTime.Name():
		return func(point []byte, p *rawPoint) error {
			v, err := scalarToFloat(field(point), dt)
			if err != nil {
				return err
			}
			p.GpsTime = v
			return nil
		}, nil

	case schema.WaveReturnPoint.Name():
		return func(point []byte, p *rawPoint) error {
			v, err := scalarToFloat(field(point), dt)
			if err != nil {
				return err
			}
			p.WaveReturnPoint = float32(v)
			return nil
		}, nil

	case schema.ScanAngleRank.Name():
		if formatExtended(format) {
			return func(point []byte, p *rawPoint) error {
				v, err := scalarToInt(field(point), dt, math.MinInt8, math.MaxInt8)
				if err != nil {
					return err
				}
				p.ScanAngle = int16(math.Round(float64(v) / extendedScanAngleUnit))
				return nil
			}, nil
		}
		return func(point []byte, p *rawPoint) error {
			v, err := scalarToInt(field(point), dt, math.MinInt8, math.MaxInt8)
			if err != nil {
				return err
			}
			p.ScanAngleRank = int8(v)
			return nil
		}, nil

	case schema.ScanAngle.Name():
		if formatExtended(format) {
			return func(point []byte, p *rawPoint) error {
				v, err := scalarToInt(field(point), dt, math.MinInt16, math.MaxInt16)
				if err != nil {
					return err
				}
				p.ScanAngle = int16(v)
				return nil
			}, nil
		}
		return func(point []byte, p *rawPoint) error {
			v, err := scalarToInt(field(point), dt, math.MinInt16, math.MaxInt16)
			if err != nil {
				return err
			}
			rank := math.Round(float64(v) * extendedScanAngleUnit)
			if rank < math.MinInt8 || rank > math.MaxInt8 {
				return fmt.Errorf("%w: scan angle %d does not fit the 8-bit rank", errs.ErrLossyConversion, v)
			}
			p.ScanAngleRank = int8(rank)
			return nil
		}, nil
	}

	// the remaining well-known attributes are unsigned record fields
	// with a format-dependent bit width
	var max uint64
	var set func(p *rawPoint, v uint64)
	switch name {
	case schema.Intensity.Name():
		max, set = math.MaxUint16, func(p *rawPoint, v uint64) { p.Intensity = uint16(v) }
	case schema.ReturnNumber.Name():
		// legacy records define returns 1-5 and legacy headers carry
		// only five by-return counters
		max, set = 5, func(p *rawPoint, v uint64) { p.ReturnNumber = uint8(v) }
		if formatExtended(format) {
			max = 15
		}
	case schema.NumberOfReturns.Name():
		max, set = 5, func(p *rawPoint, v uint64) { p.NumberOfReturns = uint8(v) }
		if formatExtended(format) {
			max = 15
		}
	case schema.ScanDirectionFlag.Name():
		max, set = 1, func(p *rawPoint, v uint64) { p.ScanDirection = uint8(v) }
	case schema.EdgeOfFlightLine.Name():
		max, set = 1, func(p *rawPoint, v uint64) { p.EdgeOfFlight = uint8(v) }
	case schema.Classification.Name():
		max, set = 31, func(p *rawPoint, v uint64) { p.Classification = uint8(v) }
		if formatExtended(format) {
			max = math.MaxUint8
		}
	case schema.ClassFlags.Name():
		max, set = 7, func(p *rawPoint, v uint64) { p.ClassFlags = uint8(v) }
		if formatExtended(format) {
			max = 15
		}
	case schema.ScannerChannel.Name():
		// legacy formats have no channel bits, so only channel 0 survives
		max, set = 0, func(p *rawPoint, v uint64) { p.ScannerChannel = uint8(v) }
		if formatExtended(format) {
			max = 3
		}
	case schema.UserData.Name():
		max, set = math.MaxUint8, func(p *rawPoint, v uint64) { p.UserData = uint8(v) }
	case schema.PointSourceID.Name():
		max, set = math.MaxUint16, func(p *rawPoint, v uint64) { p.PointSourceID = uint16(v) }
	case schema.NIR.Name():
		max, set = math.MaxUint16, func(p *rawPoint, v uint64) { p.NIR = uint16(v) }
	case schema.WavePacketIndex.Name():
		max, set = math.MaxUint8, func(p *rawPoint, v uint64) { p.WavePacketIndex = uint8(v) }
	case schema.WavePacketOffset.Name():
		max, set = math.MaxUint64, func(p *rawPoint, v uint64) { p.WaveOffset = v }
	case schema.WavePacketSize.Name():
		max, set = math.MaxUint32, func(p *rawPoint, v uint64) { p.WaveSize = uint32(v) }
	default:
		return nil, fmt.Errorf("%w: attribute %q has no point record field", errs.ErrUnknownAttribute, name)
	}
	return func(point []byte, p *rawPoint) error {
		v, err := scalarToUint(field(point), dt, max)
		if err != nil {
			return err
		}
		set(p, v)
		return nil
	}, nil
}

// setPosition quantizes a coordinate triple onto the header grid.
func (p *rawPoint) setPosition(x, y, z, sx, sy, sz, ox, oy, oz float64) error {
	var err error
	if p.X, err = quantize(x, sx, ox); err != nil {
		return err
	}
	if p.Y, err = quantize(y, sy, oy); err != nil {
		return err
	}
	p.Z, err = quantize(z, sz, oz)
	return err
}
