// Package serialize encodes and decodes LayoutIr documents: a JSON form
// keyed by an explicit "op" discriminator per node, and a protobuf wire
// form with flattened, explicit field numbers.
package serialize

import (
	"encoding/json"
	"fmt"

	"chainkit/abitool/abi"
)

// jsonIrNode is the wire shape of abi.IrNode: every field optional, "op"
// selects which are meaningful. Mirrors abi.IrNodeOp.String() for the
// discriminator values so a hand-written LayoutIr document stays readable.
type jsonIrNode struct {
	Op         string        `json:"op"`
	SizeExpr   string        `json:"size_expr,omitempty"`
	Alignment  uint64        `json:"alignment,omitempty"`
	Endianness string        `json:"endianness,omitempty"`
	Value      *uint64       `json:"value,omitempty"`
	Path       string        `json:"path,omitempty"`
	Alias      string        `json:"alias,omitempty"`
	Left       *jsonIrNode   `json:"left,omitempty"`
	Right      *jsonIrNode   `json:"right,omitempty"`
	Inner      *jsonIrNode   `json:"inner,omitempty"`
	Tag        string        `json:"tag,omitempty"`
	Cases      []jsonCase    `json:"cases,omitempty"`
	Default    *jsonIrNode   `json:"default,omitempty"`
	TypeName   string        `json:"type_name,omitempty"`
	Arguments  []jsonCallArg `json:"arguments,omitempty"`

	ElementType              string `json:"element_type,omitempty"`
	CountParameter            string `json:"count_parameter,omitempty"`
	IterationParameterPrefix string `json:"iteration_parameter_prefix,omitempty"`
}

type jsonCase struct {
	TagValue      uint64            `json:"tag_value"`
	Node          *jsonIrNode       `json:"node"`
	NewParameters map[string]string `json:"new_parameters,omitempty"`
}

type jsonCallArg struct {
	Name           string `json:"name"`
	ValueParameter string `json:"value_parameter"`
}

type jsonIrParameter struct {
	Name    string `json:"name"`
	Derived bool   `json:"derived,omitempty"`
}

type jsonTypeIr struct {
	TypeName   string            `json:"type_name"`
	Alignment  uint64            `json:"alignment"`
	Root       *jsonIrNode       `json:"root"`
	Parameters []jsonIrParameter `json:"parameters,omitempty"`
	Comment    string            `json:"comment,omitempty"`
}

type jsonLayoutIr struct {
	Version int          `json:"version"`
	Types   []jsonTypeIr `json:"types"`
}

func endiannessString(e abi.Endianness) string {
	if e == abi.BigEndian {
		return "big"
	}
	return "little"
}

func parseEndianness(s string) (abi.Endianness, error) {
	switch s {
	case "", "little":
		return abi.LittleEndian, nil
	case "big":
		return abi.BigEndian, nil
	default:
		return 0, fmt.Errorf("serialize: unknown endianness %q", s)
	}
}

func toJSONNode(n *abi.IrNode) *jsonIrNode {
	if n == nil {
		return nil
	}
	out := &jsonIrNode{
		Op:                        n.Op.String(),
		SizeExpr:                  n.SizeExpr,
		Alignment:                 n.Alignment,
		Endianness:                endiannessString(n.Endianness),
		Path:                      n.Path,
		Alias:                     n.Alias,
		Left:                      toJSONNode(n.Left),
		Right:                     toJSONNode(n.Right),
		Inner:                     toJSONNode(n.Inner),
		Tag:                       n.Tag,
		Default:                   toJSONNode(n.Default),
		TypeName:                  n.TypeName,
		ElementType:               n.ElementType,
		CountParameter:            n.CountParameter,
		IterationParameterPrefix:  n.IterationParameterPrefix,
	}
	if n.Op == abi.IrConst {
		v := n.Value
		out.Value = &v
	}
	for _, c := range n.Cases {
		out.Cases = append(out.Cases, jsonCase{
			TagValue:      c.TagValue,
			Node:          toJSONNode(c.Node),
			NewParameters: c.NewParameters,
		})
	}
	for _, a := range n.Arguments {
		out.Arguments = append(out.Arguments, jsonCallArg{Name: a.Name, ValueParameter: a.ValueParameter})
	}
	return out
}

func opFromString(s string) (abi.IrNodeOp, error) {
	switch s {
	case "const":
		return abi.IrConst, nil
	case "zero-size":
		return abi.IrZeroSize, nil
	case "field-ref":
		return abi.IrFieldRef, nil
	case "add-checked":
		return abi.IrAddChecked, nil
	case "mul-checked":
		return abi.IrMulChecked, nil
	case "align-up":
		return abi.IrAlignUp, nil
	case "switch":
		return abi.IrSwitch, nil
	case "call-nested":
		return abi.IrCallNested, nil
	case "sum-over-array":
		return abi.IrSumOverArray, nil
	default:
		return 0, fmt.Errorf("serialize: unknown ir op %q", s)
	}
}

func fromJSONNode(n *jsonIrNode) (*abi.IrNode, error) {
	if n == nil {
		return nil, nil
	}
	op, err := opFromString(n.Op)
	if err != nil {
		return nil, err
	}
	end, err := parseEndianness(n.Endianness)
	if err != nil {
		return nil, err
	}
	out := &abi.IrNode{
		Op:                       op,
		SizeExpr:                 n.SizeExpr,
		Alignment:                n.Alignment,
		Endianness:               end,
		Path:                     n.Path,
		Alias:                    n.Alias,
		Tag:                      n.Tag,
		TypeName:                 n.TypeName,
		ElementType:              n.ElementType,
		CountParameter:           n.CountParameter,
		IterationParameterPrefix: n.IterationParameterPrefix,
	}
	if n.Value != nil {
		out.Value = *n.Value
	}
	if out.Left, err = fromJSONNode(n.Left); err != nil {
		return nil, err
	}
	if out.Right, err = fromJSONNode(n.Right); err != nil {
		return nil, err
	}
	if out.Inner, err = fromJSONNode(n.Inner); err != nil {
		return nil, err
	}
	if out.Default, err = fromJSONNode(n.Default); err != nil {
		return nil, err
	}
	for _, c := range n.Cases {
		node, err := fromJSONNode(c.Node)
		if err != nil {
			return nil, err
		}
		out.Cases = append(out.Cases, abi.SwitchCase{TagValue: c.TagValue, Node: node, NewParameters: c.NewParameters})
	}
	for _, a := range n.Arguments {
		out.Arguments = append(out.Arguments, abi.CallArg{Name: a.Name, ValueParameter: a.ValueParameter})
	}
	return out, nil
}

// EncodeJSON renders a LayoutIr as an indented JSON document.
func EncodeJSON(l *abi.LayoutIr) ([]byte, error) {
	doc := jsonLayoutIr{Version: l.Version}
	for _, t := range l.Types {
		jt := jsonTypeIr{
			TypeName:  t.TypeName,
			Alignment: t.Alignment,
			Root:      toJSONNode(t.Root),
			Comment:   t.Comment,
		}
		for _, p := range t.Parameters {
			jt.Parameters = append(jt.Parameters, jsonIrParameter{Name: p.Name, Derived: p.Derived})
		}
		doc.Types = append(doc.Types, jt)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeJSON parses a LayoutIr document produced by EncodeJSON.
func DecodeJSON(data []byte) (*abi.LayoutIr, error) {
	var doc jsonLayoutIr
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("serialize: decode layout ir: %w", err)
	}
	if doc.Version != abi.CurrentLayoutIrVersion {
		return nil, &abi.ParseError{
			Path: "<layout ir>",
			Err:  fmt.Errorf("unsupported layout ir version %d (this toolchain writes and reads version %d)", doc.Version, abi.CurrentLayoutIrVersion),
		}
	}
	out := &abi.LayoutIr{Version: doc.Version}
	for _, jt := range doc.Types {
		root, err := fromJSONNode(jt.Root)
		if err != nil {
			return nil, fmt.Errorf("serialize: type %s: %w", jt.TypeName, err)
		}
		t := &abi.TypeIr{
			TypeName:  jt.TypeName,
			Alignment: jt.Alignment,
			Root:      root,
			Comment:   jt.Comment,
		}
		for _, p := range jt.Parameters {
			t.Parameters = append(t.Parameters, abi.IrParameter{Name: p.Name, Derived: p.Derived})
		}
		out.Types = append(out.Types, t)
	}
	return out, nil
}
