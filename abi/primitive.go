package abi

import "fmt"

// Primitive is a fixed-width integral or floating-point type. All
// primitives are little-endian on the wire; alignment always equals size.
type Primitive struct {
	Kind PrimitiveKind
	Bits uint8
}

// PrimitiveKind distinguishes signed integers, unsigned integers, and
// floating-point numbers.
type PrimitiveKind uint8

const (
	PrimitiveSigned PrimitiveKind = iota
	PrimitiveUnsigned
	PrimitiveFloat
)

var (
	I8  = Primitive{PrimitiveSigned, 8}
	I16 = Primitive{PrimitiveSigned, 16}
	I32 = Primitive{PrimitiveSigned, 32}
	I64 = Primitive{PrimitiveSigned, 64}
	U8  = Primitive{PrimitiveUnsigned, 8}
	U16 = Primitive{PrimitiveUnsigned, 16}
	U32 = Primitive{PrimitiveUnsigned, 32}
	U64 = Primitive{PrimitiveUnsigned, 64}
	F16 = Primitive{PrimitiveFloat, 16}
	F32 = Primitive{PrimitiveFloat, 32}
	F64 = Primitive{PrimitiveFloat, 64}
)

// Size returns the primitive's byte size.
func (p Primitive) Size() uint64 { return uint64(p.Bits) / 8 }

// Align returns the primitive's natural alignment, equal to its size.
func (p Primitive) Align() uint64 { return p.Size() }

// String returns the primitive's schema spelling, e.g. "i32", "u64", "f64".
func (p Primitive) String() string {
	switch p.Kind {
	case PrimitiveSigned:
		return fmt.Sprintf("i%d", p.Bits)
	case PrimitiveUnsigned:
		return fmt.Sprintf("u%d", p.Bits)
	case PrimitiveFloat:
		return fmt.Sprintf("f%d", p.Bits)
	default:
		return "invalid-primitive"
	}
}

// IsInteger reports whether p is a signed or unsigned integral type.
func (p Primitive) IsInteger() bool { return p.Kind == PrimitiveSigned || p.Kind == PrimitiveUnsigned }

// ParsePrimitive parses the schema spelling of a primitive type
// ("i8".."i64", "u8".."u64", "f16", "f32", "f64").
func ParsePrimitive(s string) (Primitive, bool) {
	switch s {
	case "i8":
		return I8, true
	case "i16":
		return I16, true
	case "i32":
		return I32, true
	case "i64":
		return I64, true
	case "u8":
		return U8, true
	case "u16":
		return U16, true
	case "u32":
		return U32, true
	case "u64":
		return U64, true
	case "f16":
		return F16, true
	case "f32":
		return F32, true
	case "f64":
		return F64, true
	default:
		return Primitive{}, false
	}
}
