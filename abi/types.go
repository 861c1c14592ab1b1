package abi

// TypeKind is implemented by every shape a TypeDef can take: Struct,
// Union, Enum, Array, SizeDiscriminatedUnion, PrimitiveKindRef, and
// TypeRef. It is a closed set; callers type-switch on the concrete type
// rather than extending it.
type TypeKind interface {
	isTypeKind()
	// Attrs returns the kind's container attributes (packed,
	// explicit-alignment, comment). PrimitiveKindRef and TypeRef have no
	// attributes of their own and return the zero value.
	Attrs() ContainerAttributes
}

// _typeKind is embedded by every TypeKind implementation to seal the set
// and avoid repeating isTypeKind on each concrete type.
type _typeKind struct{}

func (_typeKind) isTypeKind() {}

// ContainerAttributes are the attributes every aggregate TypeKind carries.
type ContainerAttributes struct {
	Packed            bool
	ExplicitAlignment uint64 // 0 means unspecified
	Comment           Docs
}

func (a ContainerAttributes) Attrs() ContainerAttributes { return a }

// StructField is one named, typed field of a StructType, in declaration order.
type StructField struct {
	Name string
	Type TypeKind
}

// StructType is an ordered sequence of fields. Only the trailing field may
// be variable-sized; C flags any earlier variable-sized field as a layout
// violation.
type StructType struct {
	_typeKind
	ContainerAttributes
	Fields []StructField
}

// UnionVariant is one named alternative of a UnionType. All variants share
// the same storage and must be constant-sized.
type UnionVariant struct {
	Name string
	Type TypeKind
}

// UnionType is a set of same-storage variants with no runtime discriminant;
// decoding treats the union as an opaque, max-sized byte slot.
type UnionType struct {
	_typeKind
	ContainerAttributes
	Variants []UnionVariant
}

// EnumVariant is one tagged alternative of an EnumType.
type EnumVariant struct {
	Name     string
	TagValue uint64
	Type     TypeKind
}

// EnumType is a tagged union: a tag expression evaluated in the parent
// scope selects one of Variants by TagValue.
type EnumType struct {
	_typeKind
	ContainerAttributes
	TagExpr  *Expr
	Variants []EnumVariant
}

// ArrayType is a sequence of Size elements of ElementType. When Jagged is
// true, elements may have differing footprints and must each be
// self-describing; indexing becomes O(n).
type ArrayType struct {
	_typeKind
	ContainerAttributes
	ElementType TypeKind
	Size        *Expr
	Jagged      bool
}

// SizeDiscriminatedVariant is one alternative of a SizeDiscriminatedUnionType,
// selected by matching an externally supplied payload size.
type SizeDiscriminatedVariant struct {
	Name         string
	ExpectedSize uint64
	Type         TypeKind
}

// SizeDiscriminatedUnionType selects its active variant by matching a
// runtime-supplied payload size against each variant's ExpectedSize.
type SizeDiscriminatedUnionType struct {
	_typeKind
	ContainerAttributes
	Variants []SizeDiscriminatedVariant
}

// PrimitiveKindRef wraps a Primitive as a TypeKind.
type PrimitiveKindRef struct {
	_typeKind
	Primitive Primitive
}

func (PrimitiveKindRef) Attrs() ContainerAttributes { return ContainerAttributes{} }

// TypeRef is a named reference to another TypeDef, resolved by the type
// resolver (Component D) once the referenced package's types are known.
type TypeRef struct {
	_typeKind
	Name    string
	Comment Docs

	// Target is nil on a freshly parsed schema and the resolver does not
	// set it; lookups go through the type map by Name.
	Target *TypeDef
}

func (TypeRef) Attrs() ContainerAttributes { return ContainerAttributes{} }

// TypeDef names a TypeKind. It is the unit the dependency analyzer and
// type resolver operate on.
type TypeDef struct {
	Name string
	Kind TypeKind
}
