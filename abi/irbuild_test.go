package abi

import (
	"testing"

	"chainkit/abitool/abi/ordered"
)

func buildAll(t *testing.T, types *ordered.Map[string, *TypeDef], order []string) (*LayoutIr, map[string]*ResolvedType) {
	t.Helper()
	r := NewResolver(types)
	resolved, err := r.ResolveAll(order)
	if err != nil {
		t.Fatal(err)
	}
	b := NewBuilder(types, resolved)
	ir, err := b.BuildAll(order)
	if err != nil {
		t.Fatal(err)
	}
	return ir, resolved
}

func TestBuilderConstantStructLowersToConst(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("Amount", &TypeDef{Name: "Amount", Kind: StructType{Fields: []StructField{
		{Name: "lamports", Type: u64()},
		{Name: "decimals", Type: u8()},
	}}})

	ir, _ := buildAll(t, types, []string{"Amount"})
	if len(ir.Types) != 1 {
		t.Fatalf("len(ir.Types): got %d, want 1", len(ir.Types))
	}
	root := ir.Types[0].Root
	if root.Op != IrConst || root.Value != 9 {
		t.Errorf("Amount IR root: got op=%v value=%d, want IrConst(9)", root.Op, root.Value)
	}
}

func TestBuilderTailArrayLowersToFieldRefAndSum(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	sizeExpr := FieldRef("count")
	types.Set("Wrapper", &TypeDef{Name: "Wrapper", Kind: StructType{Fields: []StructField{
		{Name: "count", Type: u64()},
		{Name: "payload", Type: ArrayType{ElementType: u8(), Size: sizeExpr}},
	}}})

	ir, _ := buildAll(t, types, []string{"Wrapper"})
	index := IrIndex{}
	for _, ti := range ir.Types {
		index[ti.TypeName] = ti
	}

	in := NewInterp(index)
	got, err := in.Footprint("Wrapper", ParamMap{"count": 20})
	if err != nil {
		t.Fatal(err)
	}
	if got != 28 {
		t.Errorf("Footprint(Wrapper, count=20): got %d, want 28 (8 header + 20 payload)", got)
	}
}

// A TypeRef to a variable-sized nested type is only lowered as a
// CallNested node when it occupies the tail position -- a TypeRef to a
// constant-sized type is inlined directly as its constant footprint, since
// there is nothing left for the callee to compute at runtime.
func TestBuilderTypeRefToVariableTailEmitsCallNested(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	countSize := FieldRef("count")
	types.Set("Blob", &TypeDef{Name: "Blob", Kind: StructType{Fields: []StructField{
		{Name: "count", Type: u64()},
		{Name: "payload", Type: ArrayType{ElementType: u8(), Size: countSize}},
	}}})
	types.Set("Container", &TypeDef{Name: "Container", Kind: StructType{Fields: []StructField{
		{Name: "header", Type: u8()},
		{Name: "body", Type: TypeRef{Name: "Blob"}},
	}}})

	ir, _ := buildAll(t, types, []string{"Blob", "Container"})
	index := IrIndex{}
	for _, ti := range ir.Types {
		index[ti.TypeName] = ti
	}

	var containerRoot *IrNode
	for _, ti := range ir.Types {
		if ti.TypeName == "Container" {
			containerRoot = ti.Root
		}
	}
	if containerRoot == nil || containerRoot.Op != IrAddChecked {
		t.Fatalf("Container IR root: got %+v, want IrAddChecked(header, CallNested(Blob))", containerRoot)
	}
	if containerRoot.Right == nil || containerRoot.Right.Op != IrCallNested || containerRoot.Right.TypeName != "Blob" {
		t.Fatalf("Container IR root.Right: got %+v, want IrCallNested into Blob", containerRoot.Right)
	}

	in := NewInterp(index)
	got, err := in.Footprint("Container", ParamMap{"count": 10})
	if err != nil {
		t.Fatal(err)
	}
	if got != 19 {
		t.Errorf("Footprint(Container, count=10): got %d, want 19 (1 header + 8 Blob.count + 10 Blob.payload)", got)
	}
}

// A fixed-size inline array embedded ahead of a variable tail field
// contributes its literal byte count to the constant prefix.
func TestBuilderFixedInlineArrayContributesToPrefix(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	literalSize := Literal(32, U64)
	tailSize := FieldRef("count")
	types.Set("Record", &TypeDef{Name: "Record", Kind: StructType{Fields: []StructField{
		{Name: "key", Type: ArrayType{ElementType: u8(), Size: literalSize}},
		{Name: "count", Type: u64()},
		{Name: "payload", Type: ArrayType{ElementType: u8(), Size: tailSize}},
	}}})

	ir, _ := buildAll(t, types, []string{"Record"})
	index := IrIndex{}
	for _, ti := range ir.Types {
		index[ti.TypeName] = ti
	}
	in := NewInterp(index)
	got, err := in.Footprint("Record", ParamMap{"count": 10})
	if err != nil {
		t.Fatal(err)
	}
	if got != 50 {
		t.Errorf("Footprint(Record, count=10): got %d, want 50 (32 key + 8 count + 10 payload)", got)
	}
}
