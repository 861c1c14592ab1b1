package abi

import (
	"errors"
	"testing"

	"chainkit/abitool/abi/ordered"
)

func newTestReflector(t *testing.T, types *ordered.Map[string, *TypeDef], order []string) *Reflector {
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
	index := IrIndex{}
	for _, ti := range ir.Types {
		index[ti.TypeName] = ti
	}
	return NewReflector(types, resolved, index, ProgramMetadata{}, nil)
}

// hash32Array is a fixed 32-byte array field, the sibling-hash element
// type shared by both proof body variants.
func hash32Array() ArrayType {
	return ArrayType{ElementType: u8(), Size: Literal(32, U64)}
}

// stateProofTypes builds a merkle-proof schema whose tagged union picks
// between a shorter "existing" body and a longer "updating" body, each
// self-describing its own sibling count so the enum's variants never need
// a field outside their own declared namespace.
func stateProofTypes() (*ordered.Map[string, *TypeDef], []string) {
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("ExistingProofBody", &TypeDef{Name: "ExistingProofBody", Kind: StructType{Fields: []StructField{
		{Name: "sibling_count", Type: u8()},
		{Name: "sibling_hashes", Type: ArrayType{ElementType: hash32Array(), Size: FieldRef("sibling_count")}},
	}}})
	types.Set("UpdatingProofBody", &TypeDef{Name: "UpdatingProofBody", Kind: StructType{Fields: []StructField{
		{Name: "sibling_count", Type: u8()},
		{Name: "existing_leaf_hash", Type: hash32Array()},
		{Name: "sibling_hashes", Type: ArrayType{ElementType: hash32Array(), Size: FieldRef("sibling_count")}},
	}}})

	tag := Binary(OpBitAnd, Binary(OpShr, FieldRef("type_slot"), Literal(62, U64)), Literal(3, U64))
	types.Set("StateProof", &TypeDef{Name: "StateProof", Kind: StructType{Fields: []StructField{
		{Name: "type_slot", Type: u64()},
		{Name: "proof_body", Type: EnumType{
			TagExpr: tag,
			Variants: []EnumVariant{
				{Name: "existing", TagValue: 0, Type: TypeRef{Name: "ExistingProofBody"}},
				{Name: "updating", TagValue: 1, Type: TypeRef{Name: "UpdatingProofBody"}},
			},
		}},
	}}})

	return types, []string{"ExistingProofBody", "UpdatingProofBody", "StateProof"}
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func hashByte(seed, n byte) []byte {
	h := make([]byte, 32)
	for i := range h {
		h[i] = seed + n + byte(i)
	}
	return h
}

func TestReflectorDecodesExistingProofVariant(t *testing.T) {
	types, order := stateProofTypes()
	reflector := newTestReflector(t, types, order)

	// high two bits of type_slot == 0 selects "existing"
	typeSlot := uint64(0) << 62
	buf := append([]byte{}, le64(typeSlot)...)
	buf = append(buf, 2) // sibling_count
	buf = append(buf, hashByte(1, 0)...)
	buf = append(buf, hashByte(1, 1)...)

	rv, err := reflector.Reflect("StateProof", buf)
	if err != nil {
		t.Fatal(err)
	}
	body := rv.Value.Fields["proof_body"]
	if body.Value.Kind != ValueEnum || body.Value.VariantName != "existing" {
		t.Fatalf("proof_body: got variant %q kind %v, want existing", body.Value.VariantName, body.Value.Kind)
	}
	hashes := body.Value.Variant.Value.Fields["sibling_hashes"]
	if len(hashes.Value.Elements) != 2 {
		t.Fatalf("sibling_hashes: got %d elements, want 2", len(hashes.Value.Elements))
	}
	first, ok := bytesOfArray(hashes.Value.Elements[0])
	if !ok || first[0] != 1 {
		t.Errorf("sibling_hashes[0]: got %v, ok=%v", first, ok)
	}
}

func TestReflectorDecodesUpdatingProofVariant(t *testing.T) {
	types, order := stateProofTypes()
	reflector := newTestReflector(t, types, order)

	// high two bits of type_slot == 1 selects "updating"
	typeSlot := uint64(1) << 62
	buf := append([]byte{}, le64(typeSlot)...)
	buf = append(buf, 1) // sibling_count
	buf = append(buf, hashByte(9, 0)...) // existing_leaf_hash
	buf = append(buf, hashByte(5, 0)...) // sibling_hashes[0]

	rv, err := reflector.Reflect("StateProof", buf)
	if err != nil {
		t.Fatal(err)
	}
	body := rv.Value.Fields["proof_body"]
	if body.Value.Kind != ValueEnum || body.Value.VariantName != "updating" {
		t.Fatalf("proof_body: got variant %q kind %v, want updating", body.Value.VariantName, body.Value.Kind)
	}
	leaf, ok := bytesOfArray(body.Value.Variant.Value.Fields["existing_leaf_hash"])
	if !ok || leaf[0] != 9 {
		t.Errorf("existing_leaf_hash: got %v, ok=%v", leaf, ok)
	}
	hashes := body.Value.Variant.Value.Fields["sibling_hashes"]
	if len(hashes.Value.Elements) != 1 {
		t.Fatalf("sibling_hashes: got %d elements, want 1", len(hashes.Value.Elements))
	}
}

func TestReflectorValidateBufferDetectsUndersizedBuffer(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("Wrapper", &TypeDef{Name: "Wrapper", Kind: StructType{Fields: []StructField{
		{Name: "count", Type: u64()},
		{Name: "payload", Type: ArrayType{ElementType: u8(), Size: FieldRef("count")}},
	}}})
	reflector := newTestReflector(t, types, []string{"Wrapper"})

	buf := append([]byte{}, le64(10)...)
	buf = append(buf, []byte{1, 2, 3}...) // only 3 of the 10 promised payload bytes

	_, err := reflector.ValidateBuffer("Wrapper", buf)
	var tooSmall *BufferTooSmallError
	if !errors.As(err, &tooSmall) {
		t.Fatalf("ValidateBuffer: got %v (%T), want *BufferTooSmallError", err, err)
	}
}

func TestReflectorValidateBufferRequiresExternalPayloadSizeForSdu(t *testing.T) {
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("Sdu", &TypeDef{Name: "Sdu", Kind: SizeDiscriminatedUnionType{
		Variants: []SizeDiscriminatedVariant{
			{Name: "a", ExpectedSize: 1, Type: u8()},
			{Name: "b", ExpectedSize: 8, Type: u64()},
		},
	}})
	reflector := newTestReflector(t, types, []string{"Sdu"})

	_, err := reflector.ValidateBuffer("Sdu", []byte{0x01})
	if err == nil {
		t.Fatal("ValidateBuffer(Sdu): got nil error, want MissingIrParameterError for payload_size")
	}
}

func pubkeySignatureTypes() (*ordered.Map[string, *TypeDef], []string) {
	types := &ordered.Map[string, *TypeDef]{}
	types.Set("Pubkey", &TypeDef{Name: "Pubkey", Kind: ArrayType{ElementType: u8(), Size: Literal(32, U64)}})
	types.Set("Signature", &TypeDef{Name: "Signature", Kind: ArrayType{ElementType: u8(), Size: Literal(64, U64)}})
	return types, []string{"Pubkey", "Signature"}
}

func TestReflectorEnrichesPubkeyWithAddress(t *testing.T) {
	types, order := pubkeySignatureTypes()
	reflector := newTestReflector(t, types, order)

	b := make([]byte, 32)
	for i := range b {
		b[i] = byte(i)
	}
	rv, err := reflector.Reflect("Pubkey", b)
	if err != nil {
		t.Fatal(err)
	}
	addr, ok := rv.Value.Enrichment["address"].(string)
	if !ok || len(addr) != 46 || addr[:2] != "ta" {
		t.Errorf("Pubkey enrichment[address]: got %v", rv.Value.Enrichment["address"])
	}
}

func TestReflectorEnrichesSignature(t *testing.T) {
	types, order := pubkeySignatureTypes()
	reflector := newTestReflector(t, types, order)

	b := make([]byte, 64)
	for i := range b {
		b[i] = byte(i)
	}
	rv, err := reflector.Reflect("Signature", b)
	if err != nil {
		t.Fatal(err)
	}
	sig, ok := rv.Value.Enrichment["signature"].(string)
	if !ok || len(sig) != 90 || sig[:2] != "ts" {
		t.Errorf("Signature enrichment[signature]: got %v", rv.Value.Enrichment["signature"])
	}
}
