package abi

import (
	"encoding/binary"

	"chainkit/abitool/abi/ordered"
)

// ParamCache is the output of the parameter cache extractor (Component G):
// the values the IR interpreter needs (Params), values computed from other
// params rather than read directly off the buffer (Derived), and the byte
// offsets of variable-starting subregions (Offsets), so a decoder can seek
// without re-walking the buffer from the start.
type ParamCache struct {
	Params  ParamMap
	Derived ParamMap
	Offsets map[string]uint64
}

func newParamCache() *ParamCache {
	return &ParamCache{Params: ParamMap{}, Derived: ParamMap{}, Offsets: map[string]uint64{}}
}

// Extractor peels a buffer against a package's resolved types to discover
// the dynamic parameter values the IR interpreter needs.
type Extractor struct {
	Types    *ordered.Map[string, *TypeDef]
	Resolved map[string]*ResolvedType
}

// NewExtractor builds an Extractor over a fully resolved package.
func NewExtractor(types *ordered.Map[string, *TypeDef], resolved map[string]*ResolvedType) *Extractor {
	return &Extractor{Types: types, Resolved: resolved}
}

// readPrimitive reads a little-endian primitive value at offset and
// returns it widened to u64, along with the number of bytes consumed.
func readPrimitive(buf []byte, offset uint64, p Primitive) (uint64, uint64, error) {
	size := p.Size()
	if offset+size > uint64(len(buf)) {
		return 0, 0, &BufferTooSmallError{Required: offset + size, Available: uint64(len(buf))}
	}
	b := buf[offset : offset+size]
	switch size {
	case 1:
		return uint64(b[0]), 1, nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(b)), 2, nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(b)), 4, nil
	case 8:
		return binary.LittleEndian.Uint64(b), 8, nil
	default:
		return 0, 0, &UnsupportedOperationError{Description: "primitive of unsupported width"}
	}
}

// Extract peels buf following rootType's structure, starting at offset 0,
// and returns the discovered parameter cache.
func (x *Extractor) Extract(rootType string, buf []byte) (*ParamCache, error) {
	cache := newParamCache()
	def, ok := x.Types.GetOK(rootType)
	if !ok {
		return nil, &UnknownTypeReferenceError{Name: rootType}
	}
	if _, err := x.peel(rootType, def.Kind, buf, 0, cache); err != nil {
		return nil, err
	}
	return cache, nil
}

// peel reads k starting at offset within buf, binding every dynamic
// parameter it discovers into cache, and returns the number of bytes k
// occupies (its footprint).
func (x *Extractor) peel(ownerName string, k TypeKind, buf []byte, offset uint64, cache *ParamCache) (uint64, error) {
	switch t := k.(type) {
	case PrimitiveKindRef:
		_, n, err := readPrimitive(buf, offset, t.Primitive)
		return n, err

	case TypeRef:
		def, ok := x.Types.GetOK(t.Name)
		if !ok {
			return 0, &UnknownTypeReferenceError{Name: t.Name}
		}
		return x.peel(t.Name, def.Kind, buf, offset, cache)

	case StructType:
		return x.peelStruct(ownerName, t, buf, offset, cache)

	case UnionType:
		rt, ok := x.Resolved[ownerName]
		if ok && rt.Size.Class == SizeConst {
			return rt.Size.Const, nil
		}
		return x.resolveInlineSize(k)

	case ArrayType:
		return x.peelArray(ownerName, t, buf, offset, cache)

	case EnumType:
		return x.peelEnum(ownerName, t, buf, offset, cache)

	case SizeDiscriminatedUnionType:
		return x.peelSizeDiscriminatedUnion(ownerName, t, buf, offset, cache)

	default:
		return 0, &UnsupportedOperationError{Description: "extractor: unhandled type kind"}
	}
}

func (x *Extractor) resolveInlineSize(k TypeKind) (uint64, error) {
	r := NewResolver(x.Types)
	r.resolved = x.Resolved
	rt, err := r.resolveKind("", k, nil)
	if err != nil {
		return 0, err
	}
	if rt.Size.Class != SizeConst {
		return 0, &IrBuildError{Reason: "expected constant-sized inline type"}
	}
	return rt.Size.Const, nil
}

func (x *Extractor) peelStruct(name string, s StructType, buf []byte, offset uint64, cache *ParamCache) (uint64, error) {
	start := offset
	cur := offset
	for i, f := range s.Fields {
		n, err := x.peel(name+"."+f.Name, f.Type, buf, cur, cache)
		if err != nil {
			return 0, err
		}
		if prim, ok := primitiveOf(f.Type); ok {
			v, _, _ := readPrimitive(buf, cur, prim)
			cache.Params[f.Name] = v
			cache.Params[name+"."+f.Name] = v
		}
		if i == len(s.Fields)-1 {
			cache.Offsets[name+"."+f.Name] = cur
		}
		cur += n
	}
	return cur - start, nil
}

func (x *Extractor) peelArray(name string, a ArrayType, buf []byte, offset uint64, cache *ParamCache) (uint64, error) {
	countVal, countBytes, err := x.evalScalarExpr(a.Size, cache)
	if err != nil {
		return 0, err
	}
	_ = countBytes
	cache.Params["count"] = countVal
	cache.Params[name+".count"] = countVal

	cur := offset
	for i := uint64(0); i < countVal; i++ {
		n, err := x.peel(name+"[]", a.ElementType, buf, cur, cache)
		if err != nil {
			return 0, err
		}
		cur += n
	}
	return cur - offset, nil
}

// evalScalarExpr evaluates an Expr against values already present in
// cache.Params (used for array-count and enum-tag expressions that
// reference sibling fields already peeled earlier in the same struct).
// The second return value is unused and reserved for future width tracking.
func (x *Extractor) evalScalarExpr(e *Expr, cache *ParamCache) (uint64, uint64, error) {
	switch e.Kind {
	case ExprLiteral:
		return e.LiteralValue, 0, nil
	case ExprFieldRef:
		path := e.String()
		if v, ok := cache.Params[path]; ok {
			return v, 0, nil
		}
		if v, ok := cache.Params[lastSegment(path)]; ok {
			return v, 0, nil
		}
		return 0, 0, &MissingIrParameterError{Param: path}
	case ExprUnaryOp:
		v, _, err := x.evalScalarExpr(e.Left, cache)
		if err != nil {
			return 0, 0, err
		}
		r, err := evalUnary(e.Op, v)
		return r, 0, err
	case ExprBinaryOp:
		l, _, err := x.evalScalarExpr(e.Left, cache)
		if err != nil {
			return 0, 0, err
		}
		r, _, err := x.evalScalarExpr(e.Right, cache)
		if err != nil {
			return 0, 0, err
		}
		v, err := evalBinary(e.Op, l, r)
		return v, 0, err
	default:
		return 0, 0, &UnsupportedOperationError{Description: "expression kind not evaluable at extraction time"}
	}
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
	}
	return path
}

func (x *Extractor) peelEnum(name string, e EnumType, buf []byte, offset uint64, cache *ParamCache) (uint64, error) {
	tagVal, _, err := x.evalScalarExpr(e.TagExpr, cache)
	if err != nil {
		return 0, err
	}
	tagParam := e.TagExpr.String()
	cache.Params[tagParam] = tagVal

	for _, v := range e.Variants {
		if v.TagValue != tagVal {
			continue
		}
		n, err := x.peel(name+"."+v.Name, v.Type, buf, offset, cache)
		if err != nil {
			return 0, err
		}
		cache.Derived["payload_size"] = n
		cache.Params["payload_size"] = n
		return n, nil
	}
	return 0, &InvalidTagValueError{Type: name, Tag: tagParam, Value: tagVal}
}

func (x *Extractor) peelSizeDiscriminatedUnion(name string, u SizeDiscriminatedUnionType, buf []byte, offset uint64, cache *ParamCache) (uint64, error) {
	payloadSize, ok := cache.Params["payload_size"]
	if !ok {
		return 0, &MissingIrParameterError{Type: name, Param: "payload_size"}
	}
	for _, v := range u.Variants {
		if v.ExpectedSize != payloadSize {
			continue
		}
		return x.peel(name+"."+v.Name, v.Type, buf, offset, cache)
	}
	return 0, &InvalidTagValueError{Type: name, Tag: "payload_size", Value: payloadSize}
}
