package abi

import "math/bits"

// ParamMap is the name -> value map an IR evaluation reads FieldRef and
// Switch tags from. Values are always stored as u64 regardless of the
// underlying primitive's width or signedness.
type ParamMap map[string]uint64

// Interp evaluates TypeIr trees against a read-only index of sibling
// TypeIrs (for CallNested) and a per-call ParamMap.
type Interp struct {
	Index IrIndex
}

// NewInterp builds an Interp over index.
func NewInterp(index IrIndex) *Interp {
	return &Interp{Index: index}
}

// Footprint evaluates typeName's TypeIr against params and returns its
// computed byte footprint.
func (in *Interp) Footprint(typeName string, params ParamMap) (uint64, error) {
	ir, ok := in.Index[typeName]
	if !ok {
		return 0, &UnknownTypeError{Type: typeName}
	}
	return in.eval(typeName, ir.Root, params)
}

// ValidateBuffer evaluates typeName's footprint and checks it against
// bufLen, returning the footprint (bytes_consumed) on success.
func (in *Interp) ValidateBuffer(typeName string, params ParamMap, bufLen uint64) (uint64, error) {
	n, err := in.Footprint(typeName, params)
	if err != nil {
		return 0, err
	}
	if n > bufLen {
		return 0, &BufferTooSmallError{Type: typeName, Required: n, Available: bufLen}
	}
	return n, nil
}

func (in *Interp) eval(typeName string, node *IrNode, params ParamMap) (uint64, error) {
	if node.Endianness != LittleEndian {
		return 0, &UnsupportedEndiannessError{Type: typeName}
	}

	switch node.Op {
	case IrConst:
		return node.Value, nil

	case IrZeroSize:
		return 0, nil

	case IrFieldRef:
		name := node.Alias
		if name == "" {
			name = node.Path
		}
		v, ok := params[name]
		if !ok {
			return 0, &MissingIrParameterError{Type: typeName, Param: name}
		}
		return v, nil

	case IrAddChecked:
		left, err := in.eval(typeName, node.Left, params)
		if err != nil {
			return 0, err
		}
		right, err := in.eval(typeName, node.Right, params)
		if err != nil {
			return 0, err
		}
		sum, carry := bits.Add64(left, right, 0)
		if carry != 0 {
			return 0, &ArithmeticOverflowError{Type: typeName, Op: "add-checked"}
		}
		return sum, nil

	case IrMulChecked:
		left, err := in.eval(typeName, node.Left, params)
		if err != nil {
			return 0, err
		}
		right, err := in.eval(typeName, node.Right, params)
		if err != nil {
			return 0, err
		}
		hi, lo := bits.Mul64(left, right)
		if hi != 0 {
			return 0, &ArithmeticOverflowError{Type: typeName, Op: "mul-checked"}
		}
		return lo, nil

	case IrAlignUp:
		inner, err := in.eval(typeName, node.Inner, params)
		if err != nil {
			return 0, err
		}
		align := node.Alignment
		if align <= 1 {
			return inner, nil
		}
		sum, carry := bits.Add64(inner, align-1, 0)
		if carry != 0 {
			return 0, &ArithmeticOverflowError{Type: typeName, Op: "align-up"}
		}
		return sum &^ (align - 1), nil

	case IrSwitch:
		tagValue, ok := params[node.Tag]
		if !ok {
			return 0, &MissingIrParameterError{Type: typeName, Param: node.Tag}
		}
		for _, c := range node.Cases {
			if c.TagValue != tagValue {
				continue
			}
			return in.eval(typeName, c.Node, params)
		}
		if node.Default != nil {
			return in.eval(typeName, node.Default, params)
		}
		return 0, &InvalidTagValueError{Type: typeName, Tag: node.Tag, Value: tagValue}

	case IrCallNested:
		nested, ok := in.Index[node.TypeName]
		if !ok {
			return 0, &UnknownTypeError{Type: node.TypeName}
		}
		nestedParams := make(ParamMap, len(node.Arguments))
		for _, arg := range node.Arguments {
			v, ok := params[arg.ValueParameter]
			if !ok {
				return 0, &MissingIrParameterError{Type: typeName, Param: arg.ValueParameter}
			}
			nestedParams[arg.Name] = v
		}
		// Inherit any parent-scope parameter the callee also declares but
		// wasn't explicitly bound above.
		for _, p := range nested.Parameters {
			if _, bound := nestedParams[p.Name]; bound {
				continue
			}
			if v, ok := params[p.Name]; ok {
				nestedParams[p.Name] = v
			}
		}
		return in.eval(node.TypeName, nested.Root, nestedParams)

	case IrSumOverArray:
		return 0, &UnsupportedOperationError{Description: "sum-over-array requires instance data; use reflection instead"}

	default:
		return 0, &UnsupportedOperationError{Description: "unknown IR node op"}
	}
}
