package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"chainkit/abitool/abi"
)

const commonSchema = `
package: "chain.common.v1"
abi-version: 1
package-version: "1.0.0"
types:
  Amount:
    struct:
      fields:
        - name: lamports
          type: u64
`

const rootSchema = `
package: "chain.token.v1"
abi-version: 1
package-version: "1.0.0"
imports:
  - path: "common.yaml"
types:
  Transfer:
    struct:
      fields:
        - name: amount
          type: Amount
        - name: memo_len
          type: u8
`

func writeSchemas(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "common.yaml"), []byte(commonSchema), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "root.yaml"), []byte(rootSchema), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoaderResolvesLocalImportsAndLinksTypeRefs(t *testing.T) {
	dir := writeSchemas(t)
	ld := New(nil, nil, nil, nil)

	res, err := ld.Load(context.Background(), filepath.Join(dir, "root.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Root.Ident.Name != "chain.token.v1" {
		t.Errorf("Root.Ident.Name: got %q", res.Root.Ident.Name)
	}
	if len(res.All) != 2 {
		t.Errorf("len(All): got %d, want 2", len(res.All))
	}

	def, ok := res.Root.Types.GetOK("Transfer")
	if !ok {
		t.Fatal("Transfer type missing")
	}
	s, ok := def.Kind.(abi.StructType)
	if !ok {
		t.Fatalf("Transfer kind: got %T, want StructType", def.Kind)
	}
	ref, ok := s.Fields[0].Type.(abi.TypeRef)
	if !ok {
		t.Fatalf("amount field type: got %T, want TypeRef", s.Fields[0].Type)
	}
	if ref.Name != "Amount" {
		t.Errorf("TypeRef.Name: got %q, want Amount", ref.Name)
	}

	edges := res.Edges[res.Root.CanonicalLocation]
	if len(edges) != 1 {
		t.Fatalf("Edges[root]: got %d entries, want 1", len(edges))
	}
}

func TestLoaderNotFoundError(t *testing.T) {
	dir := t.TempDir()
	bad := `
package: "chain.broken.v1"
abi-version: 1
package-version: "1.0.0"
imports:
  - path: "missing.yaml"
types:
  Empty:
    struct:
      fields: []
`
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	ld := New(nil, nil, nil, nil)
	_, err := ld.Load(context.Background(), path)
	var notFound *abi.NotFoundError
	if err == nil {
		t.Fatal("expected NotFoundError, got nil")
	}
	if !matchNotFound(err, &notFound) {
		t.Fatalf("expected *abi.NotFoundError, got %T: %v", err, err)
	}
}

func matchNotFound(err error, target **abi.NotFoundError) bool {
	nf, ok := err.(*abi.NotFoundError)
	if ok {
		*target = nf
	}
	return ok
}

func TestEncodeDocumentRoundTrip(t *testing.T) {
	dir := writeSchemas(t)
	ld := New(nil, nil, nil, nil)
	res, err := ld.Load(context.Background(), filepath.Join(dir, "root.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	out, err := EncodeDocument(res.Root)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) == 0 {
		t.Fatal("EncodeDocument produced empty output")
	}
	reparsed, err := decodeDocument("reencoded.yaml", out)
	if err != nil {
		t.Fatalf("re-decoding encoded document: %v", err)
	}
	if reparsed.Types.Len() != res.Root.Types.Len() {
		t.Errorf("re-decoded type count: got %d, want %d", reparsed.Types.Len(), res.Root.Types.Len())
	}
}
