package serialize

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"chainkit/abitool/abi"
)

// Field numbers for the protobuf wire encoding of IrNode. There is no
// .proto schema to generate from — the IR's tagged-union shape doesn't map
// cleanly onto protobuf's oneof without a generated accessor per variant,
// so the wire form is built directly with protowire, field numbers chosen
// once and fixed here as the wire contract.
const (
	fieldOp         = 1
	fieldSizeExpr   = 2
	fieldAlignment  = 3
	fieldEndianness = 4
	fieldValue      = 5
	fieldPath       = 6
	fieldAlias      = 7
	fieldLeft       = 8
	fieldRight      = 9
	fieldInner      = 10
	fieldTag        = 11
	fieldCase       = 12
	fieldDefault    = 13
	fieldTypeName   = 14
	fieldArgument   = 15
	fieldElementType  = 16
	fieldCountParam   = 17
	fieldIterPrefix   = 18

	caseFieldTagValue = 1
	caseFieldNode     = 2
	caseFieldNewParam = 3

	argFieldName  = 1
	argFieldValue = 2

	typeIrFieldName      = 1
	typeIrFieldAlignment = 2
	typeIrFieldRoot       = 3
	typeIrFieldParameter  = 4
	typeIrFieldComment    = 5

	paramFieldName    = 1
	paramFieldDerived = 2

	layoutFieldVersion = 1
	layoutFieldType    = 2
)

func appendNode(b []byte, n *abi.IrNode) []byte {
	if n == nil {
		return b
	}
	b = protowire.AppendTag(b, fieldOp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(n.Op))
	if n.SizeExpr != "" {
		b = protowire.AppendTag(b, fieldSizeExpr, protowire.BytesType)
		b = protowire.AppendString(b, n.SizeExpr)
	}
	if n.Alignment != 0 {
		b = protowire.AppendTag(b, fieldAlignment, protowire.VarintType)
		b = protowire.AppendVarint(b, n.Alignment)
	}
	b = protowire.AppendTag(b, fieldEndianness, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(n.Endianness))

	switch n.Op {
	case abi.IrConst:
		b = protowire.AppendTag(b, fieldValue, protowire.VarintType)
		b = protowire.AppendVarint(b, n.Value)
	case abi.IrFieldRef:
		b = protowire.AppendTag(b, fieldPath, protowire.BytesType)
		b = protowire.AppendString(b, n.Path)
		if n.Alias != "" {
			b = protowire.AppendTag(b, fieldAlias, protowire.BytesType)
			b = protowire.AppendString(b, n.Alias)
		}
	case abi.IrAddChecked, abi.IrMulChecked:
		b = protowire.AppendTag(b, fieldLeft, protowire.BytesType)
		b = protowire.AppendBytes(b, appendNode(nil, n.Left))
		b = protowire.AppendTag(b, fieldRight, protowire.BytesType)
		b = protowire.AppendBytes(b, appendNode(nil, n.Right))
	case abi.IrAlignUp:
		b = protowire.AppendTag(b, fieldInner, protowire.BytesType)
		b = protowire.AppendBytes(b, appendNode(nil, n.Inner))
	case abi.IrSwitch:
		b = protowire.AppendTag(b, fieldTag, protowire.BytesType)
		b = protowire.AppendString(b, n.Tag)
		for _, c := range n.Cases {
			b = protowire.AppendTag(b, fieldCase, protowire.BytesType)
			b = protowire.AppendBytes(b, appendCase(c))
		}
		if n.Default != nil {
			b = protowire.AppendTag(b, fieldDefault, protowire.BytesType)
			b = protowire.AppendBytes(b, appendNode(nil, n.Default))
		}
	case abi.IrCallNested:
		b = protowire.AppendTag(b, fieldTypeName, protowire.BytesType)
		b = protowire.AppendString(b, n.TypeName)
		for _, a := range n.Arguments {
			b = protowire.AppendTag(b, fieldArgument, protowire.BytesType)
			b = protowire.AppendBytes(b, appendArg(a))
		}
	case abi.IrSumOverArray:
		b = protowire.AppendTag(b, fieldElementType, protowire.BytesType)
		b = protowire.AppendString(b, n.ElementType)
		b = protowire.AppendTag(b, fieldCountParam, protowire.BytesType)
		b = protowire.AppendString(b, n.CountParameter)
		if n.IterationParameterPrefix != "" {
			b = protowire.AppendTag(b, fieldIterPrefix, protowire.BytesType)
			b = protowire.AppendString(b, n.IterationParameterPrefix)
		}
	}
	return b
}

func appendCase(c abi.SwitchCase) []byte {
	var b []byte
	b = protowire.AppendTag(b, caseFieldTagValue, protowire.VarintType)
	b = protowire.AppendVarint(b, c.TagValue)
	b = protowire.AppendTag(b, caseFieldNode, protowire.BytesType)
	b = protowire.AppendBytes(b, appendNode(nil, c.Node))
	for k, v := range c.NewParameters {
		b = protowire.AppendTag(b, caseFieldNewParam, protowire.BytesType)
		var kv []byte
		kv = protowire.AppendTag(kv, 1, protowire.BytesType)
		kv = protowire.AppendString(kv, k)
		kv = protowire.AppendTag(kv, 2, protowire.BytesType)
		kv = protowire.AppendString(kv, v)
		b = protowire.AppendBytes(b, kv)
	}
	return b
}

func appendArg(a abi.CallArg) []byte {
	var b []byte
	b = protowire.AppendTag(b, argFieldName, protowire.BytesType)
	b = protowire.AppendString(b, a.Name)
	b = protowire.AppendTag(b, argFieldValue, protowire.BytesType)
	b = protowire.AppendString(b, a.ValueParameter)
	return b
}

func appendTypeIr(t *abi.TypeIr) []byte {
	var b []byte
	b = protowire.AppendTag(b, typeIrFieldName, protowire.BytesType)
	b = protowire.AppendString(b, t.TypeName)
	b = protowire.AppendTag(b, typeIrFieldAlignment, protowire.VarintType)
	b = protowire.AppendVarint(b, t.Alignment)
	if t.Root != nil {
		b = protowire.AppendTag(b, typeIrFieldRoot, protowire.BytesType)
		b = protowire.AppendBytes(b, appendNode(nil, t.Root))
	}
	for _, p := range t.Parameters {
		var pb []byte
		pb = protowire.AppendTag(pb, paramFieldName, protowire.BytesType)
		pb = protowire.AppendString(pb, p.Name)
		if p.Derived {
			pb = protowire.AppendTag(pb, paramFieldDerived, protowire.VarintType)
			pb = protowire.AppendVarint(pb, 1)
		}
		b = protowire.AppendTag(b, typeIrFieldParameter, protowire.BytesType)
		b = protowire.AppendBytes(b, pb)
	}
	if t.Comment != "" {
		b = protowire.AppendTag(b, typeIrFieldComment, protowire.BytesType)
		b = protowire.AppendString(b, t.Comment)
	}
	return b
}

// EncodeProtobuf renders a LayoutIr as a protobuf-wire-format byte string.
func EncodeProtobuf(l *abi.LayoutIr) []byte {
	var b []byte
	b = protowire.AppendTag(b, layoutFieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(l.Version))
	for _, t := range l.Types {
		b = protowire.AppendTag(b, layoutFieldType, protowire.BytesType)
		b = protowire.AppendBytes(b, appendTypeIr(t))
	}
	return b
}

func consumeNode(data []byte) (*abi.IrNode, error) {
	n := &abi.IrNode{}
	haveOp := false
	for len(data) > 0 {
		num, typ, n2 := protowire.ConsumeTag(data)
		if n2 < 0 {
			return nil, protowire.ParseError(n2)
		}
		data = data[n2:]
		switch num {
		case fieldOp:
			v, n3 := protowire.ConsumeVarint(data)
			if n3 < 0 {
				return nil, protowire.ParseError(n3)
			}
			n.Op = abi.IrNodeOp(v)
			haveOp = true
			data = data[n3:]
		case fieldSizeExpr:
			s, n3, err := consumeString(data)
			if err != nil {
				return nil, err
			}
			n.SizeExpr = s
			data = data[n3:]
		case fieldAlignment:
			v, n3 := protowire.ConsumeVarint(data)
			if n3 < 0 {
				return nil, protowire.ParseError(n3)
			}
			n.Alignment = v
			data = data[n3:]
		case fieldEndianness:
			v, n3 := protowire.ConsumeVarint(data)
			if n3 < 0 {
				return nil, protowire.ParseError(n3)
			}
			n.Endianness = abi.Endianness(v)
			data = data[n3:]
		case fieldValue:
			v, n3 := protowire.ConsumeVarint(data)
			if n3 < 0 {
				return nil, protowire.ParseError(n3)
			}
			n.Value = v
			data = data[n3:]
		case fieldPath:
			s, n3, err := consumeString(data)
			if err != nil {
				return nil, err
			}
			n.Path = s
			data = data[n3:]
		case fieldAlias:
			s, n3, err := consumeString(data)
			if err != nil {
				return nil, err
			}
			n.Alias = s
			data = data[n3:]
		case fieldLeft:
			child, n3, err := consumeSubNode(data)
			if err != nil {
				return nil, err
			}
			n.Left = child
			data = data[n3:]
		case fieldRight:
			child, n3, err := consumeSubNode(data)
			if err != nil {
				return nil, err
			}
			n.Right = child
			data = data[n3:]
		case fieldInner:
			child, n3, err := consumeSubNode(data)
			if err != nil {
				return nil, err
			}
			n.Inner = child
			data = data[n3:]
		case fieldTag:
			s, n3, err := consumeString(data)
			if err != nil {
				return nil, err
			}
			n.Tag = s
			data = data[n3:]
		case fieldCase:
			raw, n3 := protowire.ConsumeBytes(data)
			if n3 < 0 {
				return nil, protowire.ParseError(n3)
			}
			c, err := consumeCase(raw)
			if err != nil {
				return nil, err
			}
			n.Cases = append(n.Cases, c)
			data = data[n3:]
		case fieldDefault:
			child, n3, err := consumeSubNode(data)
			if err != nil {
				return nil, err
			}
			n.Default = child
			data = data[n3:]
		case fieldTypeName:
			s, n3, err := consumeString(data)
			if err != nil {
				return nil, err
			}
			n.TypeName = s
			data = data[n3:]
		case fieldArgument:
			raw, n3 := protowire.ConsumeBytes(data)
			if n3 < 0 {
				return nil, protowire.ParseError(n3)
			}
			a, err := consumeArg(raw)
			if err != nil {
				return nil, err
			}
			n.Arguments = append(n.Arguments, a)
			data = data[n3:]
		case fieldElementType:
			s, n3, err := consumeString(data)
			if err != nil {
				return nil, err
			}
			n.ElementType = s
			data = data[n3:]
		case fieldCountParam:
			s, n3, err := consumeString(data)
			if err != nil {
				return nil, err
			}
			n.CountParameter = s
			data = data[n3:]
		case fieldIterPrefix:
			s, n3, err := consumeString(data)
			if err != nil {
				return nil, err
			}
			n.IterationParameterPrefix = s
			data = data[n3:]
		default:
			n3 := protowire.ConsumeFieldValue(num, typ, data)
			if n3 < 0 {
				return nil, protowire.ParseError(n3)
			}
			data = data[n3:]
		}
	}
	if !haveOp {
		return nil, fmt.Errorf("serialize: ir node missing op field")
	}
	return n, nil
}

func consumeSubNode(data []byte) (*abi.IrNode, int, error) {
	raw, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	node, err := consumeNode(raw)
	if err != nil {
		return nil, 0, err
	}
	return node, n, nil
}

func consumeString(data []byte) (string, int, error) {
	s, n := protowire.ConsumeString(data)
	if n < 0 {
		return "", 0, protowire.ParseError(n)
	}
	return s, n, nil
}

func consumeCase(data []byte) (abi.SwitchCase, error) {
	var c abi.SwitchCase
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return c, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case caseFieldTagValue:
			v, n2 := protowire.ConsumeVarint(data)
			if n2 < 0 {
				return c, protowire.ParseError(n2)
			}
			c.TagValue = v
			data = data[n2:]
		case caseFieldNode:
			node, n2, err := consumeSubNode(data)
			if err != nil {
				return c, err
			}
			c.Node = node
			data = data[n2:]
		case caseFieldNewParam:
			raw, n2 := protowire.ConsumeBytes(data)
			if n2 < 0 {
				return c, protowire.ParseError(n2)
			}
			k, v, err := consumeKV(raw)
			if err != nil {
				return c, err
			}
			if c.NewParameters == nil {
				c.NewParameters = make(map[string]string)
			}
			c.NewParameters[k] = v
			data = data[n2:]
		default:
			n2 := protowire.ConsumeFieldValue(num, typ, data)
			if n2 < 0 {
				return c, protowire.ParseError(n2)
			}
			data = data[n2:]
		}
	}
	return c, nil
}

func consumeKV(data []byte) (string, string, error) {
	var k, v string
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", "", protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			s, n2, err := consumeString(data)
			if err != nil {
				return "", "", err
			}
			k = s
			data = data[n2:]
		case 2:
			s, n2, err := consumeString(data)
			if err != nil {
				return "", "", err
			}
			v = s
			data = data[n2:]
		default:
			n2 := protowire.ConsumeFieldValue(num, typ, data)
			if n2 < 0 {
				return "", "", protowire.ParseError(n2)
			}
			data = data[n2:]
		}
	}
	return k, v, nil
}

func consumeArg(data []byte) (abi.CallArg, error) {
	var a abi.CallArg
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return a, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case argFieldName:
			s, n2, err := consumeString(data)
			if err != nil {
				return a, err
			}
			a.Name = s
			data = data[n2:]
		case argFieldValue:
			s, n2, err := consumeString(data)
			if err != nil {
				return a, err
			}
			a.ValueParameter = s
			data = data[n2:]
		default:
			n2 := protowire.ConsumeFieldValue(num, typ, data)
			if n2 < 0 {
				return a, protowire.ParseError(n2)
			}
			data = data[n2:]
		}
	}
	return a, nil
}

func consumeTypeIr(data []byte) (*abi.TypeIr, error) {
	t := &abi.TypeIr{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case typeIrFieldName:
			s, n2, err := consumeString(data)
			if err != nil {
				return nil, err
			}
			t.TypeName = s
			data = data[n2:]
		case typeIrFieldAlignment:
			v, n2 := protowire.ConsumeVarint(data)
			if n2 < 0 {
				return nil, protowire.ParseError(n2)
			}
			t.Alignment = v
			data = data[n2:]
		case typeIrFieldRoot:
			node, n2, err := consumeSubNode(data)
			if err != nil {
				return nil, err
			}
			t.Root = node
			data = data[n2:]
		case typeIrFieldParameter:
			raw, n2 := protowire.ConsumeBytes(data)
			if n2 < 0 {
				return nil, protowire.ParseError(n2)
			}
			p, err := consumeParameter(raw)
			if err != nil {
				return nil, err
			}
			t.Parameters = append(t.Parameters, p)
			data = data[n2:]
		case typeIrFieldComment:
			s, n2, err := consumeString(data)
			if err != nil {
				return nil, err
			}
			t.Comment = s
			data = data[n2:]
		default:
			n2 := protowire.ConsumeFieldValue(num, typ, data)
			if n2 < 0 {
				return nil, protowire.ParseError(n2)
			}
			data = data[n2:]
		}
	}
	return t, nil
}

func consumeParameter(data []byte) (abi.IrParameter, error) {
	var p abi.IrParameter
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return p, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case paramFieldName:
			s, n2, err := consumeString(data)
			if err != nil {
				return p, err
			}
			p.Name = s
			data = data[n2:]
		case paramFieldDerived:
			v, n2 := protowire.ConsumeVarint(data)
			if n2 < 0 {
				return p, protowire.ParseError(n2)
			}
			p.Derived = v != 0
			data = data[n2:]
		default:
			n2 := protowire.ConsumeFieldValue(num, typ, data)
			if n2 < 0 {
				return p, protowire.ParseError(n2)
			}
			data = data[n2:]
		}
	}
	return p, nil
}

// DecodeProtobuf parses a LayoutIr from its protobuf wire encoding.
func DecodeProtobuf(data []byte) (*abi.LayoutIr, error) {
	l := &abi.LayoutIr{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case layoutFieldVersion:
			v, n2 := protowire.ConsumeVarint(data)
			if n2 < 0 {
				return nil, protowire.ParseError(n2)
			}
			l.Version = int(v)
			data = data[n2:]
		case layoutFieldType:
			raw, n2 := protowire.ConsumeBytes(data)
			if n2 < 0 {
				return nil, protowire.ParseError(n2)
			}
			t, err := consumeTypeIr(raw)
			if err != nil {
				return nil, err
			}
			l.Types = append(l.Types, t)
			data = data[n2:]
		default:
			n2 := protowire.ConsumeFieldValue(num, typ, data)
			if n2 < 0 {
				return nil, protowire.ParseError(n2)
			}
			data = data[n2:]
		}
	}
	if l.Version != abi.CurrentLayoutIrVersion {
		return nil, fmt.Errorf("serialize: unsupported layout ir version %d", l.Version)
	}
	return l, nil
}
