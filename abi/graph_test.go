package abi

import (
	"testing"

	"chainkit/abitool/abi/ordered"
)

func u8() TypeKind { p, _ := ParsePrimitive("u8"); return PrimitiveKindRef{Primitive: p} }
func u64() TypeKind { p, _ := ParsePrimitive("u64"); return PrimitiveKindRef{Primitive: p} }

func TestAnalyzeDetectsCycle(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("A", &TypeDef{Name: "A", Kind: StructType{Fields: []StructField{{Name: "b", Type: TypeRef{Name: "B"}}}}})
	types.Set("B", &TypeDef{Name: "B", Kind: StructType{Fields: []StructField{{Name: "a", Type: TypeRef{Name: "A"}}}}})

	res, err := Analyze(types)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Cycles) == 0 {
		t.Fatal("expected a cycle between A and B, got none")
	}
}

func TestAnalyzeOrdersDependenciesBeforeDependents(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("Amount", &TypeDef{Name: "Amount", Kind: StructType{Fields: []StructField{{Name: "lamports", Type: u64()}}}})
	types.Set("Transfer", &TypeDef{Name: "Transfer", Kind: StructType{Fields: []StructField{{Name: "amount", Type: TypeRef{Name: "Amount"}}}}})

	res, err := Analyze(types)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Cycles) != 0 {
		t.Fatalf("unexpected cycles: %v", res.Cycles)
	}
	pos := map[string]int{}
	for i, name := range res.Order {
		pos[name] = i
	}
	if pos["Amount"] >= pos["Transfer"] {
		t.Errorf("expected Amount to resolve before Transfer, got order %v", res.Order)
	}
}

func TestAnalyzeUnknownTypeReference(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("Transfer", &TypeDef{Name: "Transfer", Kind: StructType{Fields: []StructField{{Name: "amount", Type: TypeRef{Name: "Missing"}}}}})

	_, err := Analyze(types)
	if err == nil {
		t.Fatal("expected an UnknownTypeReferenceError, got nil")
	}
}
