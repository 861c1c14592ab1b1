package abi

import (
	"encoding/binary"
	"errors"
	"testing"

	"chainkit/abitool/abi/ordered"
)

func TestExtractorPeelsTailArrayCount(t *testing.T) {
	sizeExpr := FieldRef("count")
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("Wrapper", &TypeDef{Name: "Wrapper", Kind: StructType{Fields: []StructField{
		{Name: "count", Type: u64()},
		{Name: "payload", Type: ArrayType{ElementType: u8(), Size: sizeExpr}},
	}}})

	buf := make([]byte, 8+3)
	binary.LittleEndian.PutUint64(buf[:8], 3)
	copy(buf[8:], []byte{0x41, 0x41, 0x41})

	x := NewExtractor(types, nil)
	cache, err := x.Extract("Wrapper", buf)
	if err != nil {
		t.Fatal(err)
	}
	if cache.Params["count"] != 3 {
		t.Errorf("cache.Params[count]: got %d, want 3", cache.Params["count"])
	}
	if cache.Params["Wrapper.count"] != 3 {
		t.Errorf("cache.Params[Wrapper.count]: got %d, want 3", cache.Params["Wrapper.count"])
	}
}

func TestExtractorPeelsEnumTagAndPayloadSize(t *testing.T) {
	tagExpr := FieldRef("tag")
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("Tagged", &TypeDef{Name: "Tagged", Kind: StructType{Fields: []StructField{
		{Name: "tag", Type: u8()},
		{Name: "body", Type: EnumType{
			TagExpr: tagExpr,
			Variants: []EnumVariant{
				{Name: "small", TagValue: 0, Type: u8()},
				{Name: "big", TagValue: 1, Type: u64()},
			},
		}},
	}}})

	buf := make([]byte, 1+8)
	buf[0] = 1
	binary.LittleEndian.PutUint64(buf[1:], 0x0807060504030201)

	x := NewExtractor(types, nil)
	cache, err := x.Extract("Tagged", buf)
	if err != nil {
		t.Fatal(err)
	}
	if cache.Params["tag"] != 1 {
		t.Errorf("cache.Params[tag]: got %d, want 1", cache.Params["tag"])
	}
	if cache.Params["payload_size"] != 8 {
		t.Errorf("cache.Params[payload_size]: got %d, want 8", cache.Params["payload_size"])
	}
	if cache.Derived["payload_size"] != 8 {
		t.Errorf("cache.Derived[payload_size]: got %d, want 8", cache.Derived["payload_size"])
	}
}

func TestExtractorMissingParamForUnboundArrayCount(t *testing.T) {
	sizeExpr := FieldRef("count")
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("Bytes", &TypeDef{Name: "Bytes", Kind: ArrayType{ElementType: u8(), Size: sizeExpr}})

	x := NewExtractor(types, nil)
	_, err := x.Extract("Bytes", []byte{1, 2, 3})
	var missing *MissingIrParameterError
	if !errors.As(err, &missing) {
		t.Fatalf("Extract: got %v (%T), want *MissingIrParameterError", err, err)
	}
}

func TestExtractorSizeDiscriminatedUnionRequiresExternalPayloadSize(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("Sdu", &TypeDef{Name: "Sdu", Kind: SizeDiscriminatedUnionType{
		Variants: []SizeDiscriminatedVariant{
			{Name: "a", ExpectedSize: 1, Type: u8()},
			{Name: "b", ExpectedSize: 8, Type: u64()},
		},
	}})

	x := NewExtractor(types, nil)
	_, err := x.Extract("Sdu", []byte{0x01})
	var missing *MissingIrParameterError
	if !errors.As(err, &missing) {
		t.Fatalf("Extract: got %v (%T), want *MissingIrParameterError", err, err)
	}
}
