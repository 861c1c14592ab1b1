package abi

import (
	"math"

	"chainkit/abitool/abi/ordered"
)

// ReflectedKind discriminates the shape of a decoded Value.
type ReflectedKind uint8

const (
	ValuePrimitive ReflectedKind = iota
	ValueStruct
	ValueUnion
	ValueEnum
	ValueArray
	ValueSizeDiscriminatedUnion
	ValueTypeRef
)

// ReflectedType is the static type descriptor half of a ReflectedValue.
type ReflectedType struct {
	Name          string
	Kind          ReflectedKind
	Size          *uint64 // nil when the type is variable-sized
	Alignment     uint64
	DynamicParams map[string]map[string]Primitive
}

// ReflectedValue pairs a decoded subvalue with its static type descriptor,
// the unit the reflector (Component H) produces at every node.
type ReflectedValue struct {
	TypeInfo ReflectedType
	Value    Value
}

// Value is a decoded data tree. Exactly one field is meaningful per Kind.
type Value struct {
	Kind ReflectedKind

	Primitive      uint64
	PrimitiveFloat float64
	IsFloat        bool

	Fields map[string]ReflectedValue
	Order  []string // field/variant declaration order, for stable output

	VariantName string
	TagValue    uint64
	Variant     *ReflectedValue

	Elements []ReflectedValue

	Raw []byte // Union: opaque bytes (no discriminant)

	// Enrichment populated by the well-known-type registry.
	Enrichment  map[string]any
	ReplacedBy  any
	HasReplaced bool
}

// Reflector orchestrates extraction then evaluation then decoding for a
// single resolved package.
type Reflector struct {
	Types    *ordered.Map[string, *TypeDef]
	Resolved map[string]*ResolvedType
	Ir       IrIndex
	Metadata ProgramMetadata
	Registry *HandlerRegistry
}

// NewReflector builds a Reflector over a fully resolved, IR-built package.
func NewReflector(types *ordered.Map[string, *TypeDef], resolved map[string]*ResolvedType, ir IrIndex, meta ProgramMetadata, registry *HandlerRegistry) *Reflector {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Reflector{Types: types, Resolved: resolved, Ir: ir, Metadata: meta, Registry: registry}
}

// ValidateBuffer extracts dynamic parameters and evaluates typeName's
// footprint IR against buf, returning bytes_consumed without decoding.
func (r *Reflector) ValidateBuffer(typeName string, buf []byte) (uint64, error) {
	cache, err := NewExtractor(r.Types, r.Resolved).Extract(typeName, buf)
	if err != nil {
		return 0, err
	}
	return NewInterp(r.Ir).ValidateBuffer(typeName, cache.Params, uint64(len(buf)))
}

// DynamicParams extracts and returns the name->value map discovered by the
// parameter cache extractor for typeName against buf.
func (r *Reflector) DynamicParams(typeName string, buf []byte) (ParamMap, error) {
	cache, err := NewExtractor(r.Types, r.Resolved).Extract(typeName, buf)
	if err != nil {
		return nil, err
	}
	return cache.Params, nil
}

// Reflect validates buf against typeName then decodes it into a
// ReflectedValue tree, passing leaves through the well-known-type registry.
func (r *Reflector) Reflect(typeName string, buf []byte) (ReflectedValue, error) {
	if _, err := r.ValidateBuffer(typeName, buf); err != nil {
		return ReflectedValue{}, err
	}
	def, ok := r.Types.GetOK(typeName)
	if !ok {
		return ReflectedValue{}, &UnknownTypeReferenceError{Name: typeName}
	}
	d := &decoder{r: r, buf: buf}
	return d.decode(typeName, def.Kind)
}

// reflectRoot resolves a program-metadata root type and reflects buf
// against it.
func (r *Reflector) reflectRoot(root RootKind, buf []byte) (ReflectedValue, error) {
	typeName, ok := r.Metadata.RootTypes[root]
	if !ok {
		return ReflectedValue{}, &MissingRootTypeError{Root: string(root)}
	}
	return r.Reflect(typeName, buf)
}

func (r *Reflector) ReflectInstruction(buf []byte) (ReflectedValue, error) { return r.reflectRoot(RootInstruction, buf) }
func (r *Reflector) ReflectAccount(buf []byte) (ReflectedValue, error)     { return r.reflectRoot(RootAccount, buf) }
func (r *Reflector) ReflectEvent(buf []byte) (ReflectedValue, error)       { return r.reflectRoot(RootEvents, buf) }
func (r *Reflector) ReflectErrors(buf []byte) (ReflectedValue, error)      { return r.reflectRoot(RootErrors, buf) }

type decoder struct {
	r     *Reflector
	buf   []byte
	cache *ParamCache
}

func (d *decoder) decode(name string, k TypeKind) (ReflectedValue, error) {
	d.cache = newParamCache()
	rv, err := d.decodeAt(name, k, 0)
	if err != nil {
		return ReflectedValue{}, err
	}
	d.r.Registry.apply(name, &rv)
	return rv, nil
}

func (d *decoder) decodeAt(name string, k TypeKind, offset uint64) (ReflectedValue, error) {
	switch t := k.(type) {
	case PrimitiveKindRef:
		return d.decodePrimitive(name, t.Primitive, offset)

	case TypeRef:
		def, ok := d.r.Types.GetOK(t.Name)
		if !ok {
			return ReflectedValue{}, &UnknownTypeReferenceError{Name: t.Name}
		}
		rv, err := d.decodeAt(t.Name, def.Kind, offset)
		if err != nil {
			return ReflectedValue{}, err
		}
		rv.TypeInfo.Kind = ValueTypeRef
		d.r.Registry.apply(t.Name, &rv)
		return rv, nil

	case StructType:
		return d.decodeStruct(name, t, offset)

	case UnionType:
		return d.decodeUnion(name, t, offset)

	case EnumType:
		return d.decodeEnum(name, t, offset)

	case ArrayType:
		return d.decodeArray(name, t, offset)

	case SizeDiscriminatedUnionType:
		return d.decodeSizeDiscriminatedUnion(name, t, offset)

	default:
		return ReflectedValue{}, &UnsupportedOperationError{Description: "decoder: unhandled type kind"}
	}
}

func (d *decoder) decodePrimitive(name string, p Primitive, offset uint64) (ReflectedValue, error) {
	v, _, err := readPrimitive(d.buf, offset, p)
	if err != nil {
		return ReflectedValue{}, err
	}
	size := p.Size()
	val := Value{Kind: ValuePrimitive, Primitive: v}
	if p.Kind == PrimitiveFloat {
		val.IsFloat = true
		val.PrimitiveFloat = decodeFloat(v, p.Bits)
	}
	return ReflectedValue{
		TypeInfo: ReflectedType{Name: name, Kind: ValuePrimitive, Size: &size, Alignment: 1},
		Value:    val,
	}, nil
}

func decodeFloat(bits64 uint64, width uint8) float64 {
	switch width {
	case 32:
		return float64(math.Float32frombits(uint32(bits64)))
	case 64:
		return math.Float64frombits(bits64)
	default:
		return 0
	}
}

func (d *decoder) decodeStruct(name string, s StructType, offset uint64) (ReflectedValue, error) {
	fields := make(map[string]ReflectedValue, len(s.Fields))
	order := make([]string, 0, len(s.Fields))
	cur := offset
	for _, f := range s.Fields {
		rv, err := d.decodeAt(name+"."+f.Name, f.Type, cur)
		if err != nil {
			return ReflectedValue{}, err
		}
		if rv.Value.Kind == ValuePrimitive {
			d.cache.Params[f.Name] = rv.Value.Primitive
			d.cache.Params[name+"."+f.Name] = rv.Value.Primitive
		}
		fields[f.Name] = rv
		order = append(order, f.Name)
		cur += rv.byteLen()
	}
	total := cur - offset
	return ReflectedValue{
		TypeInfo: ReflectedType{Name: name, Kind: ValueStruct, Size: &total, Alignment: 1},
		Value:    Value{Kind: ValueStruct, Fields: fields, Order: order},
	}, nil
}

// byteLen reports how many bytes a decoded value occupied, as recorded in
// its TypeInfo.Size (0 when unset); the decoder uses it to advance past
// every decoded field and element.
func (v ReflectedValue) byteLen() uint64 {
	if v.TypeInfo.Size != nil {
		return *v.TypeInfo.Size
	}
	return 0
}

func (d *decoder) decodeUnion(name string, u UnionType, offset uint64) (ReflectedValue, error) {
	rt, ok := d.r.Resolved[name]
	var size uint64
	if ok && rt.Size.Class == SizeConst {
		size = rt.Size.Const
	}
	end := offset + size
	if end > uint64(len(d.buf)) {
		return ReflectedValue{}, &BufferTooSmallError{Type: name, Required: end, Available: uint64(len(d.buf))}
	}
	raw := append([]byte(nil), d.buf[offset:end]...)
	return ReflectedValue{
		TypeInfo: ReflectedType{Name: name, Kind: ValueUnion, Size: &size, Alignment: 1},
		Value:    Value{Kind: ValueUnion, Raw: raw},
	}, nil
}

func (d *decoder) decodeEnum(name string, e EnumType, offset uint64) (ReflectedValue, error) {
	ext := NewExtractor(d.r.Types, d.r.Resolved)
	tagVal, _, err := ext.evalScalarExpr(e.TagExpr, d.cache)
	if err != nil {
		return ReflectedValue{}, err
	}
	for _, v := range e.Variants {
		if v.TagValue != tagVal {
			continue
		}
		variant, err := d.decodeAt(name+"."+v.Name, v.Type, offset)
		if err != nil {
			return ReflectedValue{}, err
		}
		total := variant.byteLen()
		d.cache.Params["payload_size"] = total
		return ReflectedValue{
			TypeInfo: ReflectedType{Name: name, Kind: ValueEnum, Size: &total, Alignment: 1},
			Value: Value{
				Kind:        ValueEnum,
				VariantName: v.Name,
				TagValue:    tagVal,
				Variant:     &variant,
			},
		}, nil
	}
	return ReflectedValue{}, &InvalidTagValueError{Type: name, Tag: e.TagExpr.String(), Value: tagVal}
}

func (d *decoder) decodeArray(name string, a ArrayType, offset uint64) (ReflectedValue, error) {
	ext := NewExtractor(d.r.Types, d.r.Resolved)
	count, _, err := ext.evalScalarExpr(a.Size, d.cache)
	if err != nil {
		return ReflectedValue{}, err
	}
	elems := make([]ReflectedValue, 0, count)
	cur := offset
	for i := uint64(0); i < count; i++ {
		rv, err := d.decodeAt(name+"[]", a.ElementType, cur)
		if err != nil {
			return ReflectedValue{}, err
		}
		cur += rv.byteLen()
		elems = append(elems, rv)
	}
	total := cur - offset
	return ReflectedValue{
		TypeInfo: ReflectedType{Name: name, Kind: ValueArray, Size: &total, Alignment: 1},
		Value:    Value{Kind: ValueArray, Elements: elems},
	}, nil
}

func (d *decoder) decodeSizeDiscriminatedUnion(name string, u SizeDiscriminatedUnionType, offset uint64) (ReflectedValue, error) {
	return ReflectedValue{}, &UnsupportedOperationError{
		Description: name + ": size-discriminated union requires an externally supplied payload_size; decode via the parent struct's length field",
	}
}

