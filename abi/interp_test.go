package abi

import (
	"errors"
	"testing"
)

func TestInterpFootprintConstant(t *testing.T) {
	index := IrIndex{
		"Fixed": {TypeName: "Fixed", Alignment: 1, Root: Const(40)},
	}
	in := NewInterp(index)
	got, err := in.Footprint("Fixed", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != 40 {
		t.Errorf("Footprint: got %d, want 40", got)
	}
}

func TestInterpMulCheckedOverflow(t *testing.T) {
	index := IrIndex{
		"Overflowing": {
			TypeName: "Overflowing",
			Root:     MulCheckedNode(Const(^uint64(0)), Const(2)),
		},
	}
	in := NewInterp(index)
	_, err := in.Footprint("Overflowing", nil)
	var overflow *ArithmeticOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("Footprint: got %v (%T), want *ArithmeticOverflowError", err, err)
	}
	if overflow.Op != "mul-checked" {
		t.Errorf("ArithmeticOverflowError.Op: got %q, want mul-checked", overflow.Op)
	}
}

func TestInterpAddCheckedOverflow(t *testing.T) {
	index := IrIndex{
		"Overflowing": {
			TypeName: "Overflowing",
			Root:     AddCheckedNode(Const(^uint64(0)), Const(1)),
		},
	}
	in := NewInterp(index)
	_, err := in.Footprint("Overflowing", nil)
	var overflow *ArithmeticOverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("Footprint: got %v, want *ArithmeticOverflowError", err)
	}
}

func TestInterpSwitchNoDefaultMissingCase(t *testing.T) {
	index := IrIndex{
		"Tagged": {
			TypeName: "Tagged",
			Root: SwitchNode("tag", []SwitchCase{
				{TagValue: 0, Node: Const(4)},
				{TagValue: 1, Node: Const(8)},
			}, nil),
		},
	}
	in := NewInterp(index)
	_, err := in.Footprint("Tagged", ParamMap{"tag": 2})
	var invalid *InvalidTagValueError
	if !errors.As(err, &invalid) {
		t.Fatalf("Footprint: got %v, want *InvalidTagValueError", err)
	}
}

func TestInterpValidateBufferTooSmall(t *testing.T) {
	index := IrIndex{"Fixed": {TypeName: "Fixed", Root: Const(40)}}
	in := NewInterp(index)
	_, err := in.ValidateBuffer("Fixed", nil, 39)
	var tooSmall *BufferTooSmallError
	if !errors.As(err, &tooSmall) {
		t.Fatalf("ValidateBuffer: got %v, want *BufferTooSmallError", err)
	}

	n, err := in.ValidateBuffer("Fixed", nil, 40)
	if err != nil || n != 40 {
		t.Errorf("ValidateBuffer(40): got (%d, %v), want (40, nil)", n, err)
	}

	n, err = in.ValidateBuffer("Fixed", nil, 100)
	if err != nil || n != 40 {
		t.Errorf("ValidateBuffer(100): got (%d, %v), want (40, nil)", n, err)
	}
}

func TestInterpRejectsBigEndian(t *testing.T) {
	node := Const(4)
	node.Endianness = BigEndian
	index := IrIndex{"BigEndianType": {TypeName: "BigEndianType", Root: node}}
	in := NewInterp(index)
	_, err := in.Footprint("BigEndianType", nil)
	var unsupported *UnsupportedEndiannessError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Footprint: got %v, want *UnsupportedEndiannessError", err)
	}
}

func TestInterpCallNestedAndFieldRef(t *testing.T) {
	index := IrIndex{
		"Inner": {TypeName: "Inner", Root: AddCheckedNode(FieldRefNode("n"), Const(1))},
		"Outer": {
			TypeName: "Outer",
			Root: CallNestedNode("Inner", []CallArg{
				{Name: "n", ValueParameter: "count"},
			}),
		},
	}
	in := NewInterp(index)
	got, err := in.Footprint("Outer", ParamMap{"count": 9})
	if err != nil {
		t.Fatal(err)
	}
	if got != 10 {
		t.Errorf("Footprint(Outer): got %d, want 10", got)
	}
}
