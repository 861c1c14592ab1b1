package abi

import (
	"fmt"

	"chainkit/abitool/abi/ordered"
)

// SizeClass distinguishes a constant-sized resolved type from one whose
// footprint depends on buffer contents.
type SizeClass uint8

const (
	SizeConst SizeClass = iota
	SizeVariable
)

// Size is a resolved type's footprint: either a known constant, or a set of
// dynamic parameters (keyed by owner -- a field or variant name -- to the
// dotted paths and primitive types the owner's footprint depends on).
type Size struct {
	Class    SizeClass
	Const    uint64
	Variable map[string]map[string]Primitive
}

func constSize(n uint64) Size { return Size{Class: SizeConst, Const: n} }

// merge folds src's variable entries into dst under owner, creating dst if needed.
func mergeVariable(dst map[string]map[string]Primitive, owner string, src map[string]Primitive) map[string]map[string]Primitive {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]map[string]Primitive)
	}
	if dst[owner] == nil {
		dst[owner] = make(map[string]Primitive)
	}
	for k, v := range src {
		dst[owner][k] = v
	}
	return dst
}

// ResolvedType is the output of the type resolver (Component D) for a
// single TypeDef: its footprint, alignment, dynamic parameters, and (for
// structs) field offsets for the constant-sized prefix.
type ResolvedType struct {
	Name string
	Kind TypeKind

	Size      Size
	Alignment uint64

	// DynamicParams maps owner (field/variant name) to the dotted paths and
	// primitive types that owner's footprint depends on. For a struct or an
	// Enum this is exactly Size.Variable (an Enum's tag-expression fields
	// are not recorded here); for an Array it also records the count
	// expression's own dynamic fields under the synthetic owner "$count".
	DynamicParams map[string]map[string]Primitive

	// FieldOffsets holds the byte offset of each field in the constant-sized
	// prefix of a struct. A tail variable field has no entry.
	FieldOffsets map[string]uint64

	// TagClassification / ArraySizeClass classify the Enum's tag expression or the
	// Array's size expression, nil for other kinds.
	TagClassification  *Classification
	ArraySizeClass     *Classification
	RequiresPayloadSize map[string]bool // per enum variant name
}

// Resolver resolves a package's TypeDefs in dependency order, caching
// results so a TypeRef target is only resolved once.
type Resolver struct {
	types    *ordered.Map[string, *TypeDef]
	resolved map[string]*ResolvedType
}

// NewResolver builds a Resolver over types. Callers should resolve in the
// order produced by Analyze so that every TypeRef target is resolved
// before it is needed.
func NewResolver(types *ordered.Map[string, *TypeDef]) *Resolver {
	return &Resolver{types: types, resolved: make(map[string]*ResolvedType)}
}

// ResolveAll resolves every name in order and then enforces that every
// resolved type's alignment is 1.
func (r *Resolver) ResolveAll(order []string) (map[string]*ResolvedType, error) {
	for _, name := range order {
		if _, err := r.Resolve(name); err != nil {
			return nil, &UnresolvedTypeError{Name: name, Err: err}
		}
	}
	for name, rt := range r.resolved {
		if rt.Alignment != 1 {
			return nil, &AlignmentViolationError{Type: name, Alignment: rt.Alignment}
		}
	}
	return r.resolved, nil
}

// Resolve resolves name, returning a cached result if already resolved.
func (r *Resolver) Resolve(name string) (*ResolvedType, error) {
	if rt, ok := r.resolved[name]; ok {
		return rt, nil
	}
	def, ok := r.types.GetOK(name)
	if !ok {
		return nil, &UnknownTypeReferenceError{Name: name}
	}
	rt, err := r.resolveKind(name, def.Kind, nil)
	if err != nil {
		return nil, err
	}
	r.resolved[name] = rt
	return rt, nil
}

// resolveKind resolves k under name. scope is the set of already-resolved
// sibling field types visible to k's tag/size expressions when k is
// embedded inline as a struct field (nil at top level).
func (r *Resolver) resolveKind(name string, k TypeKind, scope map[string]Primitive) (*ResolvedType, error) {
	switch t := k.(type) {
	case PrimitiveKindRef:
		return &ResolvedType{Name: name, Kind: k, Size: constSize(t.Primitive.Size()), Alignment: 1}, nil

	case StructType:
		return r.resolveStruct(name, t)

	case UnionType:
		return r.resolveUnion(name, t)

	case EnumType:
		return r.resolveEnum(name, t, scope)

	case ArrayType:
		return r.resolveArray(name, t, scope)

	case SizeDiscriminatedUnionType:
		return r.resolveSizeDiscriminatedUnion(name, t)

	case TypeRef:
		target, err := r.Resolve(t.Name)
		if err != nil {
			return nil, err
		}
		return &ResolvedType{
			Name:          name,
			Kind:          k,
			Size:          target.Size,
			Alignment:     target.Alignment,
			DynamicParams: target.DynamicParams,
		}, nil

	default:
		return nil, fmt.Errorf("abi: unhandled TypeKind %T", k)
	}
}

func (r *Resolver) resolveStruct(name string, s StructType) (*ResolvedType, error) {
	rt := &ResolvedType{
		Name:         name,
		Kind:         s,
		Alignment:    1,
		FieldOffsets: make(map[string]uint64),
	}

	var offset uint64
	fieldTypes := make(map[string]Primitive)
	variable := make(map[string]map[string]Primitive)

	for i, f := range s.Fields {
		isTail := i == len(s.Fields)-1

		fieldResolved, err := r.resolveFieldType(f.Type, fieldTypes)
		if err != nil {
			return nil, err
		}

		if fieldResolved.Size.Class == SizeConst {
			rt.FieldOffsets[f.Name] = offset
			offset += fieldResolved.Size.Const
			if prim, ok := primitiveOf(f.Type); ok {
				fieldTypes[f.Name] = prim
			}
			continue
		}

		if !isTail {
			return nil, &LayoutViolationError{Type: name, Field: f.Name, Chain: []string{f.Name}}
		}

		for owner, paths := range fieldResolved.Size.Variable {
			key := f.Name
			if owner != "" && owner != f.Name {
				key = f.Name + "." + owner
			}
			variable = mergeVariable(variable, key, paths)
		}
	}

	if len(variable) > 0 {
		rt.Size = Size{Class: SizeVariable, Variable: variable}
		rt.DynamicParams = variable
	} else {
		rt.Size = constSize(offset)
	}
	return rt, nil
}

// resolveFieldType resolves a struct field's type, passing fieldTypes as
// the scope visible to any inline Enum/Array tag or size expression.
func (r *Resolver) resolveFieldType(k TypeKind, fieldTypes map[string]Primitive) (*ResolvedType, error) {
	switch t := k.(type) {
	case EnumType:
		return r.resolveEnum("", t, fieldTypes)
	case ArrayType:
		return r.resolveArray("", t, fieldTypes)
	case TypeRef:
		return r.Resolve(t.Name)
	default:
		return r.resolveKind("", k, nil)
	}
}

func primitiveOf(k TypeKind) (Primitive, bool) {
	if p, ok := k.(PrimitiveKindRef); ok {
		return p.Primitive, true
	}
	return Primitive{}, false
}

func (r *Resolver) resolveUnion(name string, u UnionType) (*ResolvedType, error) {
	var max uint64
	for _, v := range u.Variants {
		vr, err := r.resolveKind("", v.Type, nil)
		if err != nil {
			return nil, err
		}
		if vr.Size.Class != SizeConst {
			return nil, &IrBuildError{Type: name, Reason: fmt.Sprintf("union variant %q must be constant-sized", v.Name)}
		}
		if vr.Size.Const > max {
			max = vr.Size.Const
		}
	}
	return &ResolvedType{Name: name, Kind: u, Size: constSize(max), Alignment: 1}, nil
}

func (r *Resolver) resolveEnum(name string, e EnumType, scope map[string]Primitive) (*ResolvedType, error) {
	tagClass, err := Classify(e.TagExpr, nil, scope)
	if err != nil {
		return nil, err
	}

	rt := &ResolvedType{
		Name:                name,
		Kind:                e,
		Alignment:           1,
		TagClassification:   &tagClass,
		RequiresPayloadSize: make(map[string]bool),
	}

	variable := make(map[string]map[string]Primitive)
	var variableSeen bool
	var maxConst uint64

	for _, v := range e.Variants {
		vr, err := r.resolveKind("", v.Type, nil)
		if err != nil {
			return nil, err
		}
		if vr.Size.Class == SizeConst {
			if vr.Size.Const > maxConst {
				maxConst = vr.Size.Const
			}
			continue
		}
		variableSeen = true
		// The variant requires an external payload_size hint unless its own
		// dynamic fields are entirely contained within its own namespace.
		requiresExternal := requiresPayloadSize(vr)
		rt.RequiresPayloadSize[v.Name] = requiresExternal
		for owner, paths := range vr.Size.Variable {
			variable = mergeVariable(variable, v.Name+"."+owner, paths)
		}
	}

	if variableSeen {
		rt.Size = Size{Class: SizeVariable, Variable: variable}
		rt.DynamicParams = variable
	} else {
		rt.Size = constSize(maxConst)
	}
	return rt, nil
}

// requiresPayloadSize implements the formal rule: a variant requires an
// external payload_size hint iff its lowered size depends on a dynamic
// field path that does not resolve within the variant's own field
// namespace (i.e. the variant cannot measure its own trailing length from
// fields it itself declares).
func requiresPayloadSize(vr *ResolvedType) bool {
	if vr.Size.Class == SizeConst {
		return false
	}
	for owner, paths := range vr.Size.Variable {
		for path := range paths {
			if !pathWithinOwner(owner, path) {
				return true
			}
		}
	}
	return false
}

func pathWithinOwner(owner, path string) bool {
	return path == owner || len(path) > len(owner) && path[:len(owner)+1] == owner+"."
}

func (r *Resolver) resolveArray(name string, a ArrayType, scope map[string]Primitive) (*ResolvedType, error) {
	sizeClass, err := Classify(a.Size, nil, scope)
	if err != nil {
		return nil, err
	}

	elem, err := r.resolveKind("", a.ElementType, nil)
	if err != nil {
		return nil, err
	}

	rt := &ResolvedType{
		Name:           name,
		Kind:           a,
		Alignment:      1,
		ArraySizeClass: &sizeClass,
	}

	if a.Jagged || elem.Size.Class != SizeConst || !sizeClass.Constant {
		variable := make(map[string]map[string]Primitive)
		for path, prim := range sizeClass.DynamicFields {
			variable = mergeVariable(variable, "$count", map[string]Primitive{path: prim})
		}
		if elem.Size.Class != SizeConst {
			for owner, paths := range elem.Size.Variable {
				variable = mergeVariable(variable, "$element."+owner, paths)
			}
		}
		rt.Size = Size{Class: SizeVariable, Variable: variable}
		rt.DynamicParams = variable
		return rt, nil
	}

	rt.Size = constSize(sizeClass.Value * elem.Size.Const)
	return rt, nil
}

func (r *Resolver) resolveSizeDiscriminatedUnion(name string, u SizeDiscriminatedUnionType) (*ResolvedType, error) {
	variable := make(map[string]map[string]Primitive)
	for _, v := range u.Variants {
		if _, err := r.resolveKind("", v.Type, nil); err != nil {
			return nil, err
		}
		variable = mergeVariable(variable, v.Name, map[string]Primitive{"payload_size": U64})
	}
	return &ResolvedType{
		Name:          name,
		Kind:          u,
		Alignment:     1,
		Size:          Size{Class: SizeVariable, Variable: variable},
		DynamicParams: variable,
	}, nil
}
