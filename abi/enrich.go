package abi

import "chainkit/abitool/abi/wellknown"

// HandlerRegistry adapts wellknown.Registry to the decoded ReflectedValue
// shape the reflector produces, converting a struct's decoded Fields into
// the wellknown.FieldValue view a Handler expects.
type HandlerRegistry struct {
	inner *wellknown.Registry
}

// DefaultRegistry builds a HandlerRegistry with every built-in well-known handler.
func DefaultRegistry() *HandlerRegistry {
	return &HandlerRegistry{inner: wellknown.WithDefaults()}
}

// NewHandlerRegistry wraps an existing wellknown.Registry.
func NewHandlerRegistry(r *wellknown.Registry) *HandlerRegistry {
	return &HandlerRegistry{inner: r}
}

// apply runs the handler registered for typeName, if any, against rv's
// decoded struct fields, attaching enrichment or replacing the value.
func (h *HandlerRegistry) apply(typeName string, rv *ReflectedValue) {
	if h == nil || h.inner == nil {
		return
	}
	var fields map[string]wellknown.FieldValue
	switch rv.Value.Kind {
	case ValueStruct:
		fields = make(map[string]wellknown.FieldValue, len(rv.Value.Fields))
		for name, f := range rv.Value.Fields {
			fields[name] = toFieldValue(f)
		}
	case ValueEnum:
		fields = map[string]wellknown.FieldValue{
			"$value": {Uint: rv.Value.TagValue, Int: int64(rv.Value.TagValue)},
		}
	case ValueArray:
		bytes, ok := bytesOfArray(*rv)
		if !ok {
			return
		}
		fields = map[string]wellknown.FieldValue{"$bytes": {Bytes: bytes, IsBytes: true}}
	case ValueUnion:
		fields = map[string]wellknown.FieldValue{"$bytes": {Bytes: rv.Value.Raw, IsBytes: true}}
	default:
		return
	}
	result := h.inner.Process(typeName, fields)
	if !result.Matched {
		return
	}
	if result.Replace != nil {
		rv.Value.ReplacedBy = result.Replace
		rv.Value.HasReplaced = true
	}
	if len(result.Enrichment) > 0 {
		rv.Value.Enrichment = result.Enrichment
	}
}

func toFieldValue(rv ReflectedValue) wellknown.FieldValue {
	switch rv.Value.Kind {
	case ValuePrimitive:
		if rv.Value.IsFloat {
			return wellknown.FieldValue{Float: rv.Value.PrimitiveFloat, IsFloat: true}
		}
		return wellknown.FieldValue{Uint: rv.Value.Primitive, Int: int64(rv.Value.Primitive)}
	case ValueArray:
		bytes, ok := bytesOfArray(rv)
		if ok {
			return wellknown.FieldValue{Bytes: bytes, IsBytes: true}
		}
	case ValueUnion:
		return wellknown.FieldValue{Bytes: rv.Value.Raw, IsBytes: true}
	}
	return wellknown.FieldValue{}
}

// bytesOfArray collapses a decoded array-of-u8 ReflectedValue into a byte
// slice, used for fixed-size byte-array fields like a 32-byte Pubkey.
func bytesOfArray(rv ReflectedValue) ([]byte, bool) {
	out := make([]byte, 0, len(rv.Value.Elements))
	for _, e := range rv.Value.Elements {
		if e.Value.Kind != ValuePrimitive || e.Value.IsFloat {
			return nil, false
		}
		out = append(out, byte(e.Value.Primitive))
	}
	return out, true
}
