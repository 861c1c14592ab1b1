package abi

import (
	"sort"

	"chainkit/abitool/abi/ordered"
)

// Builder lowers ResolvedTypes into TypeIr trees (Component E). It is built
// from the same type map and resolved-type index produced by a Resolver.
type Builder struct {
	types    *ordered.Map[string, *TypeDef]
	resolved map[string]*ResolvedType
}

// NewBuilder constructs a Builder over a fully resolved type set.
func NewBuilder(types *ordered.Map[string, *TypeDef], resolved map[string]*ResolvedType) *Builder {
	return &Builder{types: types, resolved: resolved}
}

// BuildAll lowers every name in order into a LayoutIr.
func (b *Builder) BuildAll(order []string) (*LayoutIr, error) {
	l := &LayoutIr{Version: CurrentLayoutIrVersion}
	for _, name := range order {
		ir, err := b.Build(name)
		if err != nil {
			return nil, err
		}
		l.Types = append(l.Types, ir)
	}
	return l, nil
}

// Build lowers a single named TypeDef into its TypeIr.
func (b *Builder) Build(name string) (*TypeIr, error) {
	def, ok := b.types.GetOK(name)
	if !ok {
		return nil, &UnknownTypeReferenceError{Name: name}
	}
	rt, ok := b.resolved[name]
	if !ok {
		return nil, &IrBuildError{Type: name, Reason: "type was not resolved before IR building"}
	}

	params := make(map[string]bool)
	root, err := b.lower(name, def.Kind, rt, params)
	if err != nil {
		return nil, err
	}

	comment := ""
	if attrs, ok := attrsOf(def.Kind); ok {
		comment = attrs.Comment.Contents
	}

	return &TypeIr{
		TypeName:   name,
		Alignment:  1,
		Root:       root,
		Parameters: sortedParameters(params, rt.DynamicParams),
		Comment:    comment,
	}, nil
}

func attrsOf(k TypeKind) (ContainerAttributes, bool) {
	switch t := k.(type) {
	case StructType:
		return t.ContainerAttributes, true
	case UnionType:
		return t.ContainerAttributes, true
	case EnumType:
		return t.ContainerAttributes, true
	case ArrayType:
		return t.ContainerAttributes, true
	case SizeDiscriminatedUnionType:
		return t.ContainerAttributes, true
	default:
		return ContainerAttributes{}, false
	}
}

// sortedParameters renders params (direct FieldRef targets) plus every
// path recorded in dynamicParams (owner -> path -> primitive) as a
// deterministically ordered IrParameter list. A parameter is derived when
// it does not appear in direct -- i.e. it is a dynamic-param path that no
// FieldRef, Switch tag, payload_size binding or call argument emitted by
// the lowering names directly.
func sortedParameters(direct map[string]bool, dynamicParams map[string]map[string]Primitive) []IrParameter {
	seen := make(map[string]bool)
	var out []IrParameter
	for path := range direct {
		if seen[path] {
			continue
		}
		seen[path] = true
		out = append(out, IrParameter{Name: path, Derived: false})
	}
	for _, paths := range dynamicParams {
		for path := range paths {
			if seen[path] {
				continue
			}
			seen[path] = true
			out = append(out, IrParameter{Name: path, Derived: !direct[path]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// lower dispatches on k's kind, recording every FieldRef path it emits
// into params.
func (b *Builder) lower(name string, k TypeKind, rt *ResolvedType, params map[string]bool) (*IrNode, error) {
	switch t := k.(type) {
	case PrimitiveKindRef:
		return Const(t.Primitive.Size()), nil

	case StructType:
		return b.lowerStruct(name, t, rt, params)

	case ArrayType:
		return b.lowerArray(name, t, rt, params)

	case EnumType:
		return b.lowerEnum(name, t, rt, params)

	case SizeDiscriminatedUnionType:
		return b.lowerSizeDiscriminatedUnion(name, t, params)

	case UnionType:
		if rt.Size.Class != SizeConst {
			return nil, &IrBuildError{Type: name, Reason: "union must resolve to a constant size"}
		}
		return Const(rt.Size.Const), nil

	case TypeRef:
		return b.lowerTypeRef(t, params)

	default:
		return nil, &IrBuildError{Type: name, Reason: "unhandled type kind"}
	}
}

func (b *Builder) lowerStruct(name string, s StructType, rt *ResolvedType, params map[string]bool) (*IrNode, error) {
	var prefix uint64
	var tailField *StructField
	for i := range s.Fields {
		f := &s.Fields[i]
		if _, isConst := rt.FieldOffsets[f.Name]; isConst {
			sz, err := b.constFieldSize(f.Type)
			if err != nil {
				return nil, err
			}
			prefix += sz
			continue
		}
		tailField = f
	}

	if tailField == nil {
		return Const(prefix), nil
	}

	tailRT := rt // struct-level dynamic params already reflect the tail field
	tailNode, err := b.lowerFieldValue(name, tailField.Type, tailRT, params)
	if err != nil {
		return nil, err
	}
	if prefix == 0 {
		return tailNode, nil
	}
	return AddCheckedNode(Const(prefix), tailNode), nil
}

// constFieldSize returns the footprint of a field whose ResolvedType is
// constant, without requiring a fresh Resolver (the Resolver already
// proved this at resolution time; here we only need the number).
func (b *Builder) constFieldSize(k TypeKind) (uint64, error) {
	switch t := k.(type) {
	case PrimitiveKindRef:
		return t.Primitive.Size(), nil
	case TypeRef:
		target, ok := b.resolved[t.Name]
		if !ok {
			return 0, &UnknownTypeReferenceError{Name: t.Name}
		}
		return target.Size.Const, nil
	default:
		// Inline constant-sized aggregate (e.g. a fixed array, a union):
		// resolve it fresh since it has no TypeDef entry of its own.
		r := NewResolver(b.types)
		r.resolved = b.resolved
		rt, err := r.resolveKind("", k, nil)
		if err != nil {
			return 0, err
		}
		return rt.Size.Const, nil
	}
}

// lowerFieldValue lowers the IR for a struct's tail field, which may be a
// named reference (emitted as CallNested) or an inline variable-sized
// aggregate (emitted directly).
func (b *Builder) lowerFieldValue(ownerName string, k TypeKind, rt *ResolvedType, params map[string]bool) (*IrNode, error) {
	if ref, ok := k.(TypeRef); ok {
		return b.lowerTypeRef(ref, params)
	}
	return b.lower(ownerName, k, rt, params)
}

func (b *Builder) lowerTypeRef(ref TypeRef, params map[string]bool) (*IrNode, error) {
	target, ok := b.resolved[ref.Name]
	if !ok {
		return nil, &UnknownTypeReferenceError{Name: ref.Name}
	}
	var args []CallArg
	for owner, paths := range target.DynamicParams {
		_ = owner
		for path := range paths {
			params[path] = true
			args = append(args, CallArg{Name: path, ValueParameter: path})
		}
	}
	sort.Slice(args, func(i, j int) bool { return args[i].Name < args[j].Name })
	return CallNestedNode(ref.Name, args), nil
}

func (b *Builder) lowerArray(name string, a ArrayType, rt *ResolvedType, params map[string]bool) (*IrNode, error) {
	if a.Jagged {
		countParam := "count"
		if a.Size.Kind == ExprFieldRef {
			countParam = a.Size.String()
		}
		params[countParam] = true
		elemName, _ := elementTypeName(a.ElementType)
		return SumOverArrayNode(elemName, countParam, name+".elem"), nil
	}

	elem := a.ElementType
	var elemSize *IrNode
	if prim, ok := primitiveOf(elem); ok {
		elemSize = Const(prim.Size())
	} else if ref, ok := elem.(TypeRef); ok {
		target, ok := b.resolved[ref.Name]
		if !ok {
			return nil, &UnknownTypeReferenceError{Name: ref.Name}
		}
		if target.Size.Class != SizeConst {
			return nil, &IrBuildError{Type: name, Reason: "non-jagged array element must be constant-sized"}
		}
		elemSize = Const(target.Size.Const)
	} else {
		r := NewResolver(b.types)
		r.resolved = b.resolved
		er, err := r.resolveKind("", elem, nil)
		if err != nil {
			return nil, err
		}
		if er.Size.Class != SizeConst {
			return nil, &IrBuildError{Type: name, Reason: "non-jagged array element must be constant-sized"}
		}
		elemSize = Const(er.Size.Const)
	}

	count, err := b.lowerExpr(a.Size, params)
	if err != nil {
		return nil, err
	}
	if count.Op == IrConst && elemSize.Op == IrConst {
		return Const(count.Value * elemSize.Value), nil
	}
	return MulCheckedNode(elemSize, count), nil
}

func elementTypeName(k TypeKind) (string, bool) {
	if ref, ok := k.(TypeRef); ok {
		return ref.Name, true
	}
	return "", false
}

func (b *Builder) lowerEnum(name string, e EnumType, rt *ResolvedType, params map[string]bool) (*IrNode, error) {
	tagParam := e.TagExpr.String()
	params[tagParam] = true

	cases := make([]SwitchCase, 0, len(e.Variants))
	for _, v := range e.Variants {
		variantRT, err := b.resolveInline(v.Type)
		if err != nil {
			return nil, err
		}
		node, err := b.lower(name+"."+v.Name, v.Type, variantRT, params)
		if err != nil {
			return nil, err
		}
		sc := SwitchCase{TagValue: v.TagValue, Node: node}
		if rt.RequiresPayloadSize[v.Name] {
			sc.NewParameters = map[string]string{"payload_size": "payload_size"}
			params["payload_size"] = true
		}
		cases = append(cases, sc)
	}
	return SwitchNode(tagParam, cases, nil), nil
}

func (b *Builder) lowerSizeDiscriminatedUnion(name string, u SizeDiscriminatedUnionType, params map[string]bool) (*IrNode, error) {
	params["payload_size"] = true
	cases := make([]SwitchCase, 0, len(u.Variants))
	for _, v := range u.Variants {
		variantRT, err := b.resolveInline(v.Type)
		if err != nil {
			return nil, err
		}
		node, err := b.lower(name+"."+v.Name, v.Type, variantRT, params)
		if err != nil {
			return nil, err
		}
		cases = append(cases, SwitchCase{TagValue: v.ExpectedSize, Node: node})
	}
	return SwitchNode("payload_size", cases, nil), nil
}

// resolveInline resolves an inline TypeKind that has no TypeDef entry of
// its own (an enum or size-discriminated-union variant's type), reusing
// the Builder's already-resolved index for any TypeRef it contains.
func (b *Builder) resolveInline(k TypeKind) (*ResolvedType, error) {
	r := NewResolver(b.types)
	r.resolved = b.resolved
	return r.resolveKind("", k, nil)
}

// lowerExpr lowers a size/count Expr into IR. Only literal, field-ref, add,
// and mul forms survive into the footprint IR; any other operator
// (already legal for tag/size classification) has no IrNode
// representation and fails IR building explicitly.
func (b *Builder) lowerExpr(e *Expr, params map[string]bool) (*IrNode, error) {
	switch e.Kind {
	case ExprLiteral:
		return Const(e.LiteralValue), nil
	case ExprFieldRef:
		path := e.String()
		params[path] = true
		return FieldRefNode(path), nil
	case ExprBinaryOp:
		left, err := b.lowerExpr(e.Left, params)
		if err != nil {
			return nil, err
		}
		right, err := b.lowerExpr(e.Right, params)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case OpAdd:
			return AddCheckedNode(left, right), nil
		case OpMul:
			return MulCheckedNode(left, right), nil
		default:
			return nil, &IrBuildError{Reason: "operator " + e.Op.String() + " has no footprint-IR representation"}
		}
	default:
		return nil, &IrBuildError{Reason: "expression kind has no footprint-IR representation"}
	}
}
