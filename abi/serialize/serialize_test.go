package serialize

import (
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"chainkit/abitool/abi"
)

// sampleLayout exercises every abi.IrNodeOp at least once, nested deeply
// enough to cover Left/Right/Inner/Default/Cases/Arguments.
func sampleLayout() *abi.LayoutIr {
	everything := abi.SwitchNode("tag", []abi.SwitchCase{
		{
			TagValue: 0,
			Node: abi.AddCheckedNode(
				abi.Const(4),
				abi.MulCheckedNode(abi.Const(2), abi.FieldRefNode("count")),
			),
			NewParameters: map[string]string{"payload_size": "payload_size"},
		},
		{
			TagValue: 1,
			Node: abi.AlignUpNode(8, abi.CallNestedNode("Other", []abi.CallArg{
				{Name: "x", ValueParameter: "y"},
			})),
		},
	}, abi.SumOverArrayNode("Elem", "n", "elem"))

	return &abi.LayoutIr{
		Version: abi.CurrentLayoutIrVersion,
		Types: []*abi.TypeIr{
			{TypeName: "Empty", Alignment: 1, Root: abi.ZeroSize()},
			{
				TypeName:   "Simple",
				Alignment:  1,
				Root:       abi.Const(9),
				Parameters: []abi.IrParameter{{Name: "x"}},
				Comment:    "simple",
			},
			{
				TypeName:  "Everything",
				Alignment: 1,
				Root:      everything,
				Parameters: []abi.IrParameter{
					{Name: "count"},
					{Name: "payload_size", Derived: true},
				},
			},
		},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	want := sampleLayout()
	data, err := EncodeJSON(want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("JSON round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestJSONDecodeRejectsUnsupportedVersion(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"version": 999, "types": []}`))
	if err == nil {
		t.Fatal("DecodeJSON: got nil error for unsupported version, want error")
	}
}

func TestProtobufRoundTrip(t *testing.T) {
	want := sampleLayout()
	data := EncodeProtobuf(want)
	got, err := DecodeProtobuf(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("protobuf round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestProtobufDecodeRejectsUnsupportedVersion(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, layoutFieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, 999)
	if _, err := DecodeProtobuf(b); err == nil {
		t.Fatal("DecodeProtobuf: got nil error for unsupported version, want error")
	}
}
