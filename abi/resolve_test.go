package abi

import (
	"testing"

	"chainkit/abitool/abi/ordered"
)

func TestResolverConstantSizedStruct(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("Amount", &TypeDef{Name: "Amount", Kind: StructType{Fields: []StructField{
		{Name: "lamports", Type: u64()},
		{Name: "decimals", Type: u8()},
	}}})

	r := NewResolver(types)
	resolved, err := r.ResolveAll([]string{"Amount"})
	if err != nil {
		t.Fatal(err)
	}
	rt := resolved["Amount"]
	if rt.Size.Class != SizeConst {
		t.Fatalf("Amount.Size.Class: got %v, want SizeConst", rt.Size.Class)
	}
	if rt.Size.Const != 9 {
		t.Errorf("Amount.Size.Const: got %d, want 9", rt.Size.Const)
	}
}

func TestResolverVariableSizedTailArray(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	sizeExpr := FieldRef("count")
	types.Set("Wrapper", &TypeDef{Name: "Wrapper", Kind: StructType{Fields: []StructField{
		{Name: "count", Type: u64()},
		{Name: "payload", Type: ArrayType{ElementType: u8(), Size: sizeExpr}},
	}}})

	r := NewResolver(types)
	resolved, err := r.ResolveAll([]string{"Wrapper"})
	if err != nil {
		t.Fatal(err)
	}
	if resolved["Wrapper"].Size.Class != SizeVariable {
		t.Errorf("Wrapper.Size.Class: got %v, want SizeVariable", resolved["Wrapper"].Size.Class)
	}
}

func TestResolverLayoutViolationForNonTailVariableField(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	sizeExpr := FieldRef("count")
	types.Set("Bad", &TypeDef{Name: "Bad", Kind: StructType{Fields: []StructField{
		{Name: "count", Type: u64()},
		{Name: "payload", Type: ArrayType{ElementType: u8(), Size: sizeExpr}},
		{Name: "trailer", Type: u8()},
	}}})

	r := NewResolver(types)
	if _, err := r.ResolveAll([]string{"Bad"}); err == nil {
		t.Fatal("expected a LayoutViolationError for a non-tail variable field, got nil")
	}
}

func TestResolverUnknownTypeReference(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("Transfer", &TypeDef{Name: "Transfer", Kind: StructType{Fields: []StructField{
		{Name: "amount", Type: TypeRef{Name: "Missing"}},
	}}})

	r := NewResolver(types)
	if _, err := r.ResolveAll([]string{"Transfer"}); err == nil {
		t.Fatal("expected an error resolving an unknown TypeRef, got nil")
	}
}
